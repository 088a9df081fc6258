package wiring

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/davarch/pipelines-dashboard/internal/application"
	"github.com/davarch/pipelines-dashboard/internal/domain"
	"github.com/davarch/pipelines-dashboard/internal/infrastructure/config"
	"github.com/davarch/pipelines-dashboard/internal/infrastructure/http_api"
	do "github.com/samber/do/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_ResolvesGraph(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Settings.Path = filepath.Join(dir, "settings.json")
	cfg.Cache.Path = filepath.Join(dir, "status.json")

	i := New(cfg, zap.NewNop())

	_, err := do.Invoke[*http_api.Server](i)
	require.NoError(t, err)

	_, err = do.Invoke[*application.Scheduler](i)
	require.NoError(t, err)

	st, err := do.Invoke[domain.SettingsStore](i)
	require.NoError(t, err)

	s, err := st.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultSettings().Notifications, s.Notifications)
	assert.FileExists(t, cfg.Settings.Path)
}
