package wiring

import (
	"github.com/davarch/pipelines-dashboard/internal/application"
	"github.com/davarch/pipelines-dashboard/internal/domain"
	"github.com/davarch/pipelines-dashboard/internal/infrastructure/cache_fs"
	"github.com/davarch/pipelines-dashboard/internal/infrastructure/config"
	"github.com/davarch/pipelines-dashboard/internal/infrastructure/gitlab_http"
	"github.com/davarch/pipelines-dashboard/internal/infrastructure/http_api"
	"github.com/davarch/pipelines-dashboard/internal/infrastructure/notify_telegram"
	"github.com/davarch/pipelines-dashboard/internal/infrastructure/notify_zulip"
	"github.com/davarch/pipelines-dashboard/internal/infrastructure/settings_fs"
	do "github.com/samber/do/v2"
	"go.uber.org/zap"
)

var InfrastructurePackage = do.Package(
	do.Lazy[*settings_fs.Store](NewSettingsStore),
	do.Lazy[domain.SettingsStore](func(i do.Injector) (domain.SettingsStore, error) {
		return do.MustInvoke[*settings_fs.Store](i), nil
	}),
	do.Lazy[*gitlab_http.Client](NewGitLabClient),
	do.Lazy[domain.GitlabClient](func(i do.Injector) (domain.GitlabClient, error) {
		return do.MustInvoke[*gitlab_http.Client](i), nil
	}),
	do.Lazy[*notify_zulip.Sender](NewZulip),
	do.Lazy[*notify_telegram.Sender](NewTelegram),
	do.Lazy[*cache_fs.FSCache](NewCache),
)

var ApplicationPackage = do.Package(
	do.Lazy[*application.Aggregator](NewAggregator),
	do.Lazy[*application.Notifier](NewNotifier),
	do.Lazy[*application.WebhookHandler](NewWebhookHandler),
	do.Lazy[*application.PollUseCase](NewPollUseCase),
	do.Lazy[*application.Scheduler](NewScheduler),
)

var PrimaryPackage = do.Package(
	do.Lazy[*http_api.Server](NewHTTPServer),
)

// New returns a container for cfg. Services are built on first use.
func New(cfg config.Config, log *zap.Logger) *do.RootScope {
	i := do.New(InfrastructurePackage, ApplicationPackage, PrimaryPackage)
	do.ProvideValue(i, cfg)
	do.ProvideValue(i, log)
	return i
}

func logger(i do.Injector, name string) *zap.Logger {
	return do.MustInvoke[*zap.Logger](i).Named(name)
}

func NewSettingsStore(i do.Injector) (*settings_fs.Store, error) {
	cfg := do.MustInvoke[config.Config](i)
	return settings_fs.New(cfg.Settings.Path, logger(i, "settings")), nil
}

func NewGitLabClient(i do.Injector) (*gitlab_http.Client, error) {
	cfg := do.MustInvoke[config.Config](i)
	return gitlab_http.New(cfg.GitLab.Timeout, cfg.GitLab.PerPage), nil
}

func NewZulip(i do.Injector) (*notify_zulip.Sender, error) {
	cfg := do.MustInvoke[config.Config](i)
	return notify_zulip.New(logger(i, "zulip"), cfg.Notify.Timeout, cfg.Notify.MaxRetries), nil
}

func NewTelegram(i do.Injector) (*notify_telegram.Sender, error) {
	cfg := do.MustInvoke[config.Config](i)
	return notify_telegram.New(logger(i, "telegram"), cfg.Notify.Timeout, cfg.Notify.MaxRetries), nil
}

func NewCache(i do.Injector) (*cache_fs.FSCache, error) {
	cfg := do.MustInvoke[config.Config](i)
	return cache_fs.New(cfg.Cache.Path), nil
}

func NewAggregator(i do.Injector) (*application.Aggregator, error) {
	cfg := do.MustInvoke[config.Config](i)
	gl := do.MustInvoke[domain.GitlabClient](i)
	return application.NewAggregator(logger(i, "aggregator"), gl, cfg.GitLab.PerPage, cfg.GitLab.Concurrency), nil
}

func NewNotifier(i do.Injector) (*application.Notifier, error) {
	z := do.MustInvoke[*notify_zulip.Sender](i)
	t := do.MustInvoke[*notify_telegram.Sender](i)
	return application.NewNotifier(logger(i, "notifier"), z, t), nil
}

func NewWebhookHandler(i do.Injector) (*application.WebhookHandler, error) {
	st := do.MustInvoke[domain.SettingsStore](i)
	n := do.MustInvoke[*application.Notifier](i)
	return application.NewWebhookHandler(logger(i, "webhook"), st, n), nil
}

func NewPollUseCase(i do.Injector) (*application.PollUseCase, error) {
	cfg := do.MustInvoke[config.Config](i)
	st := do.MustInvoke[domain.SettingsStore](i)
	agg := do.MustInvoke[*application.Aggregator](i)
	n := do.MustInvoke[*application.Notifier](i)

	var cache domain.StatusCache
	if cfg.Cache.Path != "" {
		cache = do.MustInvoke[*cache_fs.FSCache](i)
	}

	return application.NewPollUseCase(logger(i, "poll"), st, agg, n, cache, cfg.Poll.NotifyChanges), nil
}

func NewScheduler(i do.Injector) (*application.Scheduler, error) {
	cfg := do.MustInvoke[config.Config](i)
	uc := do.MustInvoke[*application.PollUseCase](i)
	return application.NewScheduler(logger(i, "scheduler"), uc, cfg.Poll.Interval, cfg.Poll.PauseFile), nil
}

func NewHTTPServer(i do.Injector) (*http_api.Server, error) {
	cfg := do.MustInvoke[config.Config](i)
	return http_api.New(
		logger(i, "http"),
		http_api.Config{
			Addr:          cfg.Server.Addr,
			ReadTimeout:   cfg.Server.ReadTimeout,
			WriteTimeout:  cfg.Server.WriteTimeout,
			WebhookSecret: cfg.Webhook.Secret,
		},
		do.MustInvoke[domain.SettingsStore](i),
		do.MustInvoke[domain.GitlabClient](i),
		do.MustInvoke[*application.Aggregator](i),
		do.MustInvoke[*application.Notifier](i),
		do.MustInvoke[*application.WebhookHandler](i),
		do.MustInvoke[*application.PollUseCase](i),
	), nil
}
