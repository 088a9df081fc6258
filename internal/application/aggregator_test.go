package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/davarch/pipelines-dashboard/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func configured(repos string) domain.Settings {
	s := domain.DefaultSettings()
	s.GitLab.URL = "https://gitlab.example.com"
	s.GitLab.Token = "glpat-test"
	s.GitLab.Repositories = repos
	return s
}

func at(minute int) time.Time {
	return time.Date(2024, 5, 1, 12, minute, 0, 0, time.UTC)
}

func TestAggregator_ListPipelines_SortedAndTagged(t *testing.T) {
	api := domain.Repository{ID: 123, Name: "api", PathWithNamespace: "acme/api"}
	web := domain.Repository{ID: 789, Name: "web", PathWithNamespace: "acme/web"}
	gl := &domain.MockGitLab{
		Repositories: map[string]domain.Repository{"123": api, "acme/web": web},
		Pipelines: map[int64][]domain.Pipeline{
			123: {
				{ID: 10, Status: domain.StatusSuccess, CreatedAt: at(5)},
				{ID: 11, Status: domain.StatusFailed, CreatedAt: at(1)},
			},
			789: {
				{ID: 20, Status: domain.StatusRunning, CreatedAt: at(9)},
				{ID: 21, Status: domain.StatusPending, CreatedAt: at(5)},
			},
		},
	}

	agg := NewAggregator(zap.NewNop(), gl, 50, 2)
	got, err := agg.ListPipelines(context.Background(), configured("123,acme/web"))
	require.NoError(t, err)
	require.Len(t, got.Items, 4)
	assert.Empty(t, got.Failures)

	for i := 1; i < len(got.Items); i++ {
		assert.False(t, got.Items[i].CreatedAt.After(got.Items[i-1].CreatedAt), "not sorted at %d", i)
	}

	// equal timestamps keep configured repository order
	assert.Equal(t, []int64{20, 10, 21, 11}, pipelineIDs(got.Items))
	assert.Equal(t, "web", got.Items[0].Repository.Name)
	assert.Equal(t, "api", got.Items[1].Repository.Name)
}

func TestAggregator_SkipsUnresolvableRepository(t *testing.T) {
	api := domain.Repository{ID: 123, Name: "api"}
	gl := &domain.MockGitLab{
		Repositories: map[string]domain.Repository{"123": api},
		Pipelines: map[int64][]domain.Pipeline{
			123: {{ID: 1, Status: domain.StatusFailed, CreatedAt: at(1)}},
		},
	}

	agg := NewAggregator(zap.NewNop(), gl, 50, 4)
	got, err := agg.ListPipelines(context.Background(), configured("123, ,456"))
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"123", "456"}, gl.RepoCalls)
	assert.Equal(t, []int64{123}, gl.PipelineCalls)

	require.Len(t, got.Items, 1)
	assert.Equal(t, int64(123), got.Items[0].Repository.ID)

	require.Len(t, got.Failures, 1)
	assert.Equal(t, "456", got.Failures[0].Repository)
	assert.Equal(t, domain.StageRepository, got.Failures[0].Stage)
	assert.Contains(t, got.Failures[0].Error, "404")
}

func TestAggregator_SkipsFailedPipelinePage(t *testing.T) {
	gl := &domain.MockGitLab{
		Repositories: map[string]domain.Repository{
			"1": {ID: 1, Name: "one"},
			"2": {ID: 2, Name: "two"},
		},
		Pipelines: map[int64][]domain.Pipeline{
			1: {{ID: 100, CreatedAt: at(1)}},
		},
		PipelineErrs: map[int64]error{2: errors.New("unexpected payload")},
	}

	agg := NewAggregator(zap.NewNop(), gl, 50, 4)
	got, err := agg.ListPipelines(context.Background(), configured("1,2"))
	require.NoError(t, err)

	assert.Equal(t, []int64{100}, pipelineIDs(got.Items))
	require.Len(t, got.Failures, 1)
	assert.Equal(t, "2", got.Failures[0].Repository)
	assert.Equal(t, domain.StagePipelines, got.Failures[0].Stage)
}

func TestAggregator_NotConfigured(t *testing.T) {
	agg := NewAggregator(zap.NewNop(), &domain.MockGitLab{}, 50, 4)

	tests := []struct {
		name   string
		mutate func(*domain.Settings)
	}{
		{name: "missing url", mutate: func(s *domain.Settings) { s.GitLab.URL = "" }},
		{name: "missing token", mutate: func(s *domain.Settings) { s.GitLab.Token = "" }},
		{name: "missing repositories", mutate: func(s *domain.Settings) { s.GitLab.Repositories = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := configured("123")
			tt.mutate(&s)

			_, err := agg.ListPipelines(context.Background(), s)
			assert.ErrorIs(t, err, domain.ErrNotConfigured)

			_, err = agg.ListRepositories(context.Background(), s)
			assert.ErrorIs(t, err, domain.ErrNotConfigured)
		})
	}
}

func TestAggregator_BlankIdentifiersOnly(t *testing.T) {
	gl := &domain.MockGitLab{}
	agg := NewAggregator(zap.NewNop(), gl, 50, 4)

	got, err := agg.ListPipelines(context.Background(), configured(" , ,"))
	require.NoError(t, err)
	assert.NotNil(t, got.Items)
	assert.Empty(t, got.Items)
	assert.Empty(t, gl.RepoCalls)
}

func TestAggregator_NoResolvableRepositories(t *testing.T) {
	gl := &domain.MockGitLab{}
	agg := NewAggregator(zap.NewNop(), gl, 50, 4)

	got, err := agg.ListPipelines(context.Background(), configured("1,2"))
	require.NoError(t, err)
	assert.Empty(t, got.Items)
	assert.Len(t, got.Failures, 2)
	assert.Empty(t, gl.PipelineCalls)
}

func pipelineIDs(ps []domain.Pipeline) []int64 {
	out := make([]int64, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.ID)
	}
	return out
}
