package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func fixturePipelines() []Pipeline {
	api := Repository{ID: 123, Name: "api"}
	web := Repository{ID: 456, Name: "web"}
	return []Pipeline{
		{ID: 1, Status: StatusFailed, Ref: "main", Repository: api},
		{ID: 2, Status: StatusSuccess, Ref: "feature/Login", Repository: web},
		{ID: 3, Status: StatusSuccess, Ref: "main", Repository: api},
		{ID: 4, Status: StatusRunning, Ref: "release-1.2", Repository: web},
	}
}

func ids(ps []Pipeline) []int64 {
	out := make([]int64, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.ID)
	}
	return out
}

func TestPipelineFilter_Apply(t *testing.T) {
	tests := []struct {
		name   string
		filter PipelineFilter
		want   []int64
	}{
		{name: "zero filter keeps everything", filter: PipelineFilter{}, want: []int64{1, 2, 3, 4}},
		{name: "all keyword", filter: PipelineFilter{Status: "all", RepositoryID: "all"}, want: []int64{1, 2, 3, 4}},
		{name: "by status", filter: PipelineFilter{Status: "success"}, want: []int64{2, 3}},
		{name: "by repository id", filter: PipelineFilter{RepositoryID: "456"}, want: []int64{2, 4}},
		{name: "unknown repository", filter: PipelineFilter{RepositoryID: "789"}, want: []int64{}},
		{name: "branch substring ignores case", filter: PipelineFilter{Branch: "LOGIN"}, want: []int64{2}},
		{name: "combined", filter: PipelineFilter{Status: "success", RepositoryID: "123", Branch: "ma"}, want: []int64{3}},
		{name: "limit", filter: PipelineFilter{Limit: 2}, want: []int64{1, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.filter.Apply(fixturePipelines())
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestPipelineFilter_DoesNotMutateInput(t *testing.T) {
	in := fixturePipelines()
	_ = PipelineFilter{Status: "failed"}.Apply(in)
	assert.Len(t, in, 4)
	assert.Equal(t, int64(1), in[0].ID)
}

func TestBranches(t *testing.T) {
	assert.Equal(t, []string{"main", "feature/Login", "release-1.2"}, Branches(fixturePipelines()))
}
