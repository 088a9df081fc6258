package domain

import (
	"strings"
	"time"
)

type PipelineStatus string

const (
	StatusSuccess PipelineStatus = "success"
	StatusFailed  PipelineStatus = "failed"
	StatusRunning PipelineStatus = "running"
	StatusPending PipelineStatus = "pending"
	StatusOther   PipelineStatus = "other"
)

// ParseStatus maps an upstream status string onto the statuses the dashboard
// knows about. Anything else (canceled, skipped, manual...) becomes other.
func ParseStatus(s string) PipelineStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "success":
		return StatusSuccess
	case "failed":
		return StatusFailed
	case "running":
		return StatusRunning
	case "pending":
		return StatusPending
	default:
		return StatusOther
	}
}

func (s PipelineStatus) Glyph() string {
	switch s {
	case StatusSuccess:
		return "✅"
	case StatusFailed:
		return "❌"
	case StatusRunning:
		return "▶️"
	case StatusPending:
		return "⏳"
	default:
		return "ℹ️"
	}
}

type Repository struct {
	ID                int64  `json:"id"`
	Name              string `json:"name"`
	PathWithNamespace string `json:"path_with_namespace"`
	WebURL            string `json:"web_url"`
}

type Pipeline struct {
	ID         int64          `json:"id"`
	Status     PipelineStatus `json:"status"`
	Ref        string         `json:"ref"`
	SHA        string         `json:"sha"`
	WebURL     string         `json:"web_url"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	Duration   *int           `json:"duration"`
	Repository Repository     `json:"repository"`
}

// FetchFailure records one item dropped from an aggregation pass.
type FetchFailure struct {
	Repository string `json:"repository"`
	Stage      string `json:"stage"`
	Error      string `json:"error"`
}

const (
	StageRepository = "repository"
	StagePipelines  = "pipelines"
)

// Batch is the outcome of a best-effort fan-out: everything that succeeded
// plus a record of what was skipped.
type Batch[T any] struct {
	Items    []T
	Failures []FetchFailure
}

type Snapshot struct {
	Retrieved time.Time              `json:"retrieved"`
	Total     int                    `json:"total"`
	Counts    map[PipelineStatus]int `json:"counts"`
	Failures  []FetchFailure         `json:"failures"`
	Latest    *Pipeline              `json:"latest,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

// ChannelResult is the per-channel outcome of a single dispatch attempt.
type ChannelResult struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

type NotifyResult struct {
	Skipped  bool           `json:"-"`
	Message  string         `json:"message"`
	Zulip    *ChannelResult `json:"zulip"`
	Telegram *ChannelResult `json:"telegram"`
}
