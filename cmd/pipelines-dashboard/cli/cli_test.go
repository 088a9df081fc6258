package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/davarch/pipelines-dashboard/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestAddRepository(t *testing.T) {
	got, changed := addRepository("123, ,456", "acme/web")
	assert.True(t, changed)
	assert.Equal(t, "123,456,acme/web", got)

	got, changed = addRepository("123,456", "456")
	assert.False(t, changed)
	assert.Equal(t, "123,456", got)

	got, changed = addRepository("", "1")
	assert.True(t, changed)
	assert.Equal(t, "1", got)
}

func TestRemoveRepository(t *testing.T) {
	got, changed := removeRepository("123, 456", "123")
	assert.True(t, changed)
	assert.Equal(t, "456", got)

	got, changed = removeRepository("123", "789")
	assert.False(t, changed)
	assert.Equal(t, "123", got)
}

func TestRenderPipelines(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	renderPipelines(&buf, []domain.Pipeline{{
		ID:         7,
		Status:     domain.StatusFailed,
		Ref:        "main",
		WebURL:     "https://gitlab.example.com/p/7",
		CreatedAt:  now.Add(-3 * time.Hour),
		Repository: domain.Repository{Name: "api", PathWithNamespace: "acme/api"},
	}}, now)

	out := buf.String()
	assert.Contains(t, out, "STATUS")
	assert.Contains(t, out, "❌ failed")
	assert.Contains(t, out, "#7")
	assert.Contains(t, out, "acme/api")
	assert.Contains(t, out, "3 hours ago")
}

func TestCommandTree(t *testing.T) {
	for _, path := range [][]string{
		{"serve"}, {"pipelines"}, {"check"}, {"version"},
		{"repos", "list"}, {"repos", "add"}, {"repos", "remove"},
		{"config", "init"},
	} {
		cmd, _, err := rootCmd.Find(path)
		if assert.NoError(t, err, path) {
			assert.Equal(t, path[len(path)-1], cmd.Name())
		}
	}
}
