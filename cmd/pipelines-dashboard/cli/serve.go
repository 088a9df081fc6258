package cli

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/davarch/pipelines-dashboard/internal/application"
	"github.com/davarch/pipelines-dashboard/internal/infrastructure/http_api"
	"github.com/davarch/pipelines-dashboard/internal/infrastructure/settings_fs"
	do "github.com/samber/do/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the polling scheduler",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, inj, err := bootstrap()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		store := do.MustInvoke[*settings_fs.Store](inj)
		sched := do.MustInvoke[*application.Scheduler](inj)
		srv := do.MustInvoke[*http_api.Server](inj)

		// creates the settings file with defaults on first start
		if _, err := store.Load(ctx); err != nil {
			log.Warn("settings load failed", zap.Error(err))
		}

		if err := settings_fs.Watch(ctx, store.Path(), log.Named("watch"), sched.Trigger); err != nil {
			log.Warn("settings watch disabled", zap.String("path", store.Path()), zap.Error(err))
		}

		log.Info("start",
			zap.String("version", version),
			zap.String("addr", cfg.Server.Addr),
			zap.Duration("every", cfg.Poll.Interval),
			zap.String("settings", store.Path()),
			zap.String("cache", cfg.Cache.Path),
			zap.String("pause_file", cfg.Poll.PauseFile),
			zap.Bool("notify_changes", cfg.Poll.NotifyChanges),
		)

		sched.Start(ctx)
		defer sched.Stop()

		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start() }()

		select {
		case <-ctx.Done():
		case err := <-errCh:
			if err != nil {
				return err
			}
		}

		log.Info("shutting down")

		sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer scancel()

		return srv.Shutdown(sctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
