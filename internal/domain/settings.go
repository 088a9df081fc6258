package domain

import "strings"

type GitLabSettings struct {
	URL          string `json:"url"`
	Token        string `json:"token"`
	Repositories string `json:"repositories"`
}

type ZulipSettings struct {
	Enabled bool   `json:"enabled"`
	URL     string `json:"url"`
	Email   string `json:"email"`
	APIKey  string `json:"apiKey"`
	Stream  string `json:"stream"`
	Topic   string `json:"topic"`
}

type TelegramSettings struct {
	Enabled  bool   `json:"enabled"`
	BotToken string `json:"botToken"`
	ChatID   string `json:"chatId"`
}

type NotifyOn struct {
	Success bool `json:"success"`
	Failed  bool `json:"failed"`
	Running bool `json:"running"`
	Pending bool `json:"pending"`
}

// Enabled reports whether notifications are wanted for status. Statuses
// without a toggle are never notified.
func (n NotifyOn) Enabled(status PipelineStatus) bool {
	switch status {
	case StatusSuccess:
		return n.Success
	case StatusFailed:
		return n.Failed
	case StatusRunning:
		return n.Running
	case StatusPending:
		return n.Pending
	default:
		return false
	}
}

type NotificationSettings struct {
	Zulip    ZulipSettings    `json:"zulip"`
	Telegram TelegramSettings `json:"telegram"`
	NotifyOn NotifyOn         `json:"notifyOn"`
}

type Settings struct {
	GitLab        GitLabSettings       `json:"gitlab"`
	Notifications NotificationSettings `json:"notifications"`
}

func DefaultSettings() Settings {
	return Settings{
		GitLab: GitLabSettings{
			URL: "https://gitlab.com",
		},
		Notifications: NotificationSettings{
			Zulip: ZulipSettings{
				Topic: "GitLab Pipelines",
			},
			NotifyOn: NotifyOn{
				Failed: true,
			},
		},
	}
}

// Configured reports whether the GitLab section carries everything an
// aggregation pass needs.
func (g GitLabSettings) Configured() bool {
	return g.URL != "" && g.Token != "" && g.Repositories != ""
}

// ParseRepositoryIDs splits a comma separated identifier list, trimming
// entries and dropping blanks.
func ParseRepositoryIDs(list string) []string {
	var ids []string
	for _, item := range strings.Split(list, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		ids = append(ids, item)
	}
	return ids
}

// JoinRepositoryIDs is the inverse of ParseRepositoryIDs.
func JoinRepositoryIDs(ids []string) string {
	return strings.Join(ids, ",")
}
