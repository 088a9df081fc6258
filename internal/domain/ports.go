package domain

import "context"

type GitlabClient interface {
	FetchRepository(ctx context.Context, baseURL, token, id string) (Repository, error)
	FetchPipelines(ctx context.Context, baseURL, token string, repoID int64, perPage int) ([]Pipeline, error)
	TestConnection(ctx context.Context, baseURL, token string) (bool, error)
}

type SettingsStore interface {
	Load(ctx context.Context) (Settings, error)
	Save(ctx context.Context, s Settings) error
}

type ZulipSender interface {
	SendZulip(ctx context.Context, cfg ZulipSettings, content string) (any, error)
}

type TelegramSender interface {
	SendTelegram(ctx context.Context, cfg TelegramSettings, text string) (any, error)
}

type StatusCache interface {
	Write(ctx context.Context, s Snapshot) error
}
