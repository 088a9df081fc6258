package cache_fs

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"

	"github.com/davarch/pipelines-dashboard/internal/domain"
)

// FSCache writes the latest poll snapshot to a JSON file for status bars and
// other local consumers.
type FSCache struct {
	path string
}

func New(path string) *FSCache { return &FSCache{path: path} }

type statusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

type out struct {
	Retrieved int64                 `json:"retrieved"`
	Total     int                   `json:"total"`
	Counts    []statusCount         `json:"counts"`
	Failures  []domain.FetchFailure `json:"failures,omitempty"`
	Latest    *latest               `json:"latest,omitempty"`
	Error     string                `json:"error,omitempty"`
}

type latest struct {
	PipelineID   int64  `json:"pipeline_id"`
	RepositoryID int64  `json:"repository_id"`
	Repository   string `json:"repository"`
	Ref          string `json:"ref"`
	Status       string `json:"status"`
	URL          string `json:"url"`
}

func (c *FSCache) Write(_ context.Context, s domain.Snapshot) error {
	if c.path == "" {
		return errors.New("cache path is empty")
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return err
	}

	o := out{
		Retrieved: s.Retrieved.Unix(),
		Total:     s.Total,
		Counts:    make([]statusCount, 0, len(s.Counts)),
		Failures:  s.Failures,
		Error:     s.Error,
	}
	for st, n := range s.Counts {
		o.Counts = append(o.Counts, statusCount{Status: string(st), Count: n})
	}
	sort.Slice(o.Counts, func(i, j int) bool { return o.Counts[i].Status < o.Counts[j].Status })

	if p := s.Latest; p != nil {
		o.Latest = &latest{
			PipelineID:   p.ID,
			RepositoryID: p.Repository.ID,
			Repository:   p.Repository.PathWithNamespace,
			Ref:          p.Ref,
			Status:       string(p.Status),
			URL:          p.WebURL,
		}
	}

	tmp := c.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(o); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	return os.Rename(tmp, c.path)
}
