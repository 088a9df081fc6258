package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"
)

const DefaultPath = "config.yaml"

type Config struct {
	Server struct {
		Addr         string        `yaml:"addr"`
		ReadTimeout  time.Duration `yaml:"read_timeout"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
	} `yaml:"server"`

	GitLab struct {
		Timeout     time.Duration `yaml:"timeout"`
		PerPage     int           `yaml:"per_page"`
		Concurrency int           `yaml:"concurrency"`
	} `yaml:"gitlab"`

	Poll struct {
		Interval      time.Duration `yaml:"interval"`
		NotifyChanges bool          `yaml:"notify_changes"`
		PauseFile     string        `yaml:"pause_file"`
	} `yaml:"poll"`

	Settings struct {
		Path string `yaml:"path"`
	} `yaml:"settings"`

	Cache struct {
		Path string `yaml:"path"`
	} `yaml:"cache"`

	Notify struct {
		Timeout    time.Duration `yaml:"timeout"`
		MaxRetries uint64        `yaml:"max_retries"`
	} `yaml:"notify"`

	Webhook struct {
		Secret string `yaml:"secret"`
	} `yaml:"webhook"`

	Log struct {
		Level       string `yaml:"level"`
		Development bool   `yaml:"development"`
	} `yaml:"log"`
}

func Default() Config {
	var c Config

	c.Server.Addr = ":3000"
	c.Server.ReadTimeout = 10 * time.Second
	c.Server.WriteTimeout = 30 * time.Second
	c.GitLab.Timeout = 10 * time.Second
	c.GitLab.PerPage = 50
	c.GitLab.Concurrency = 4
	c.Poll.Interval = 2 * time.Minute
	c.Settings.Path = filepath.Join("data", "settings.json")
	c.Notify.Timeout = 10 * time.Second
	c.Log.Level = "info"

	return c
}

// Load reads path over the defaults and applies env overrides. A missing
// file is not an error; a malformed one is.
func Load(path string) (Config, error) {
	c := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(b, &c); err != nil {
				return c, fmt.Errorf("parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return c, fmt.Errorf("read %s: %w", path, err)
		}
	}

	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		c.Server.Addr = v
	}

	if v := os.Getenv("GITLAB_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.GitLab.Timeout = d
		}
	}

	if v := os.Getenv("GITLAB_PER_PAGE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.GitLab.PerPage = n
		}
	}

	if v := os.Getenv("INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Poll.Interval = d
		}
	}

	if v := os.Getenv("SETTINGS_FILE"); v != "" {
		c.Settings.Path = v
	}

	if v := os.Getenv("CACHE_PATH"); v != "" {
		c.Cache.Path = v
	}

	if v := os.Getenv("WEBHOOK_SECRET"); v != "" {
		c.Webhook.Secret = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}

	c.Cache.Path = expandHome(c.Cache.Path)
	c.Poll.PauseFile = expandHome(c.Poll.PauseFile)
	c.Settings.Path = expandHome(c.Settings.Path)

	def := Default()
	if c.Server.Addr == "" {
		c.Server.Addr = def.Server.Addr
	}
	if c.GitLab.Timeout <= 0 {
		c.GitLab.Timeout = def.GitLab.Timeout
	}
	if c.GitLab.PerPage <= 0 {
		c.GitLab.PerPage = def.GitLab.PerPage
	}
	if c.GitLab.Concurrency <= 0 {
		c.GitLab.Concurrency = def.GitLab.Concurrency
	}
	if c.Poll.Interval <= 0 {
		c.Poll.Interval = def.Poll.Interval
	}
	if c.Notify.Timeout <= 0 {
		c.Notify.Timeout = def.Notify.Timeout
	}
	if c.Settings.Path == "" {
		c.Settings.Path = def.Settings.Path
	}

	return c, nil
}

func Save(path string, c Config) error {
	if path == "" {
		return errors.New("empty config path")
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	lockFile := path + ".lock"
	lf, err := os.OpenFile(lockFile, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return err
	}
	defer func() {
		_ = lf.Close()
		_ = os.Remove(lockFile)
	}()

	if runtime.GOOS != "windows" {
		if err := syscall.Flock(int(lf.Fd()), syscall.LOCK_EX); err != nil {
			return err
		}
		defer func() { _ = syscall.Flock(int(lf.Fd()), syscall.LOCK_UN) }()
	}

	b, err := yaml.Marshal(&c)
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	defer func() { _ = f.Close() }()

	if _, err := f.Write(b); err != nil {
		return err
	}

	if err := f.Sync(); err != nil {
		return err
	}

	return os.Rename(tmp, path)
}

func expandHome(p string) string {
	if strings.HasPrefix(p, "~/") {
		if h, _ := os.UserHomeDir(); h != "" {
			return h + p[1:]
		}
	}
	return p
}
