package domain

import (
	"context"
	"errors"
	"sync"
)

var ErrMockNotFound = errors.New("404 Not Found")

type MockGitLab struct {
	mu sync.Mutex

	Repositories map[string]Repository
	Pipelines    map[int64][]Pipeline
	PipelineErrs map[int64]error
	Version      bool

	RepoCalls     []string
	PipelineCalls []int64
}

func (m *MockGitLab) FetchRepository(ctx context.Context, baseURL, token, id string) (Repository, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RepoCalls = append(m.RepoCalls, id)

	r, ok := m.Repositories[id]
	if !ok {
		return Repository{}, ErrMockNotFound
	}
	return r, nil
}

func (m *MockGitLab) FetchPipelines(ctx context.Context, baseURL, token string, repoID int64, perPage int) ([]Pipeline, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PipelineCalls = append(m.PipelineCalls, repoID)

	if err := m.PipelineErrs[repoID]; err != nil {
		return nil, err
	}
	src := m.Pipelines[repoID]
	out := make([]Pipeline, len(src))
	copy(out, src)
	return out, nil
}

func (m *MockGitLab) TestConnection(ctx context.Context, baseURL, token string) (bool, error) {
	if !m.Version {
		return false, errors.New("no version")
	}
	return true, nil
}

type MockSettings struct {
	mu       sync.Mutex
	Settings Settings
	Err      error // returned by Save
	LoadErr  error
	Saved    []Settings
}

func (m *MockSettings) Load(ctx context.Context) (Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadErr != nil {
		return Settings{}, m.LoadErr
	}
	return m.Settings, nil
}

func (m *MockSettings) Save(ctx context.Context, s Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Settings = s
	m.Saved = append(m.Saved, s)
	return nil
}

type MockZulip struct {
	mu       sync.Mutex
	Messages []string
	Err      error
}

func (z *MockZulip) SendZulip(ctx context.Context, cfg ZulipSettings, content string) (any, error) {
	z.mu.Lock()
	defer z.mu.Unlock()
	z.Messages = append(z.Messages, content)
	if z.Err != nil {
		return nil, z.Err
	}
	return map[string]any{"result": "success"}, nil
}

type MockTelegram struct {
	mu       sync.Mutex
	Messages []string
	Err      error
}

func (t *MockTelegram) SendTelegram(ctx context.Context, cfg TelegramSettings, text string) (any, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Messages = append(t.Messages, text)
	if t.Err != nil {
		return nil, t.Err
	}
	return map[string]any{"ok": true}, nil
}

type MockCache struct {
	Snapshots []Snapshot
	Err       error
}

func (c *MockCache) Write(ctx context.Context, s Snapshot) error {
	if c.Err != nil {
		return c.Err
	}
	c.Snapshots = append(c.Snapshots, s)
	return nil
}
