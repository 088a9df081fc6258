package domain

import (
	"strconv"
	"strings"
)

const FilterAll = "all"

// PipelineFilter narrows an aggregated pipeline list. Empty fields and "all"
// match everything.
type PipelineFilter struct {
	Status       string
	RepositoryID string
	Branch       string
	Limit        int
}

func (f PipelineFilter) Apply(in []Pipeline) []Pipeline {
	branch := strings.ToLower(f.Branch)

	out := make([]Pipeline, 0, len(in))
	for _, p := range in {
		if f.Status != "" && f.Status != FilterAll && string(p.Status) != f.Status {
			continue
		}
		if f.RepositoryID != "" && f.RepositoryID != FilterAll &&
			strconv.FormatInt(p.Repository.ID, 10) != f.RepositoryID {
			continue
		}
		if branch != "" && !strings.Contains(strings.ToLower(p.Ref), branch) {
			continue
		}
		out = append(out, p)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out
}

// Branches returns the distinct refs in first-seen order.
func Branches(in []Pipeline) []string {
	seen := make(map[string]struct{}, len(in))
	var out []string
	for _, p := range in {
		if _, ok := seen[p.Ref]; ok {
			continue
		}
		seen[p.Ref] = struct{}{}
		out = append(out, p.Ref)
	}
	return out
}
