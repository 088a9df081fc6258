package settings_fs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/davarch/pipelines-dashboard/internal/domain"
	"github.com/sethvargo/go-envconfig"
	"go.uber.org/zap"
)

// Overrides are environment values that shadow the stored GitLab connection.
// Empty fields leave the stored value alone.
type Overrides struct {
	URL   string `env:"GITLAB_URL"`
	Token string `env:"GITLAB_TOKEN"`
}

// Resolve is the single merge point between stored settings and overrides.
func Resolve(stored domain.Settings, o Overrides) domain.Settings {
	eff := stored
	if o.URL != "" {
		eff.GitLab.URL = o.URL
	}
	if o.Token != "" {
		eff.GitLab.Token = o.Token
	}
	return eff
}

// DefaultPath is $SETTINGS_FILE or data/settings.json under the working dir.
func DefaultPath() string {
	if v := os.Getenv("SETTINGS_FILE"); v != "" {
		return v
	}
	wd, err := os.Getwd()
	if err != nil {
		return filepath.Join("data", "settings.json")
	}
	return filepath.Join(wd, "data", "settings.json")
}

type Store struct {
	log      *zap.Logger
	path     string
	lookuper envconfig.Lookuper
}

func New(path string, l *zap.Logger) *Store {
	return NewWithLookuper(path, envconfig.OsLookuper(), l)
}

func NewWithLookuper(path string, lk envconfig.Lookuper, l *zap.Logger) *Store {
	if path == "" {
		path = DefaultPath()
	}
	return &Store{log: l, path: path, lookuper: lk}
}

func (s *Store) Path() string { return s.path }

func (s *Store) Overrides(ctx context.Context) (Overrides, error) {
	var o Overrides
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &o,
		Lookuper: s.lookuper,
	}); err != nil {
		return Overrides{}, fmt.Errorf("read settings overrides: %w", err)
	}
	return o, nil
}

// Load returns the effective settings. A missing file is created with
// defaults; unreadable or malformed files fall back to defaults.
func (s *Store) Load(ctx context.Context) (domain.Settings, error) {
	o, err := s.Overrides(ctx)
	if err != nil {
		return domain.Settings{}, err
	}

	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.log.Info("settings file not found, creating with defaults", zap.String("path", s.path))
			if err := s.Save(ctx, domain.DefaultSettings()); err != nil {
				s.log.Warn("failed to save default settings", zap.String("path", s.path), zap.Error(err))
			}
		} else {
			s.log.Warn("settings read failed, using defaults", zap.String("path", s.path), zap.Error(err))
		}
		return Resolve(domain.DefaultSettings(), o), nil
	}

	var stored domain.Settings
	if err := json.Unmarshal(b, &stored); err != nil {
		s.log.Warn("settings decode failed, using defaults", zap.String("path", s.path), zap.Error(err))
		return Resolve(domain.DefaultSettings(), o), nil
	}

	return Resolve(stored, o), nil
}

// Save replaces the whole document. Overrides are applied first so a stored
// value never diverges from an active override.
func (s *Store) Save(ctx context.Context, st domain.Settings) error {
	o, err := s.Overrides(ctx)
	if err != nil {
		return err
	}
	eff := Resolve(st, o)

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	b, err := json.MarshalIndent(eff, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write settings: %w", err)
	}

	s.log.Debug("settings saved", zap.String("path", s.path))
	return nil
}
