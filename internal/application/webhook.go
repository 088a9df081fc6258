package application

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/davarch/pipelines-dashboard/internal/domain"
	"go.uber.org/zap"
)

const (
	MessageNotPipelineEvent = "Not a pipeline event"
	MessageWebhookProcessed = "Webhook processed"
)

type WebhookOutcome struct {
	Message string               `json:"message"`
	Result  *domain.NotifyResult `json:"-"`
}

type WebhookHandler struct {
	log      *zap.Logger
	settings domain.SettingsStore
	notifier *Notifier
}

func NewWebhookHandler(l *zap.Logger, st domain.SettingsStore, n *Notifier) *WebhookHandler {
	return &WebhookHandler{log: l, settings: st, notifier: n}
}

type pipelineEvent struct {
	ObjectKind       string `json:"object_kind"`
	ObjectAttributes struct {
		ID        int64       `json:"id"`
		Status    string      `json:"status"`
		Ref       string      `json:"ref"`
		SHA       string      `json:"sha"`
		URL       string      `json:"url"`
		CreatedAt webhookTime `json:"created_at"`
		UpdatedAt webhookTime `json:"updated_at"`
		Duration  *int        `json:"duration"`
	} `json:"object_attributes"`
	Project struct {
		ID                int64  `json:"id"`
		Name              string `json:"name"`
		PathWithNamespace string `json:"path_with_namespace"`
		WebURL            string `json:"web_url"`
	} `json:"project"`
}

// webhookTime accepts both RFC3339 and the "2006-01-02 15:04:05 UTC" form
// GitLab uses in hook payloads.
type webhookTime struct{ time.Time }

var webhookTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05 MST",
	"2006-01-02 15:04:05 -0700",
}

func (t *webhookTime) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return nil
	}
	for _, layout := range webhookTimeLayouts {
		if v, err := time.Parse(layout, s); err == nil {
			t.Time = v
			return nil
		}
	}
	return fmt.Errorf("unsupported timestamp %q", s)
}

// Handle processes one GitLab hook body. Non-pipeline events are accepted and
// ignored. Malformed payloads are reported as ErrInvalidInput.
func (h *WebhookHandler) Handle(ctx context.Context, body []byte) (WebhookOutcome, error) {
	var kind struct {
		ObjectKind string `json:"object_kind"`
	}
	if err := json.Unmarshal(body, &kind); err != nil {
		return WebhookOutcome{}, fmt.Errorf("%w: webhook body: %v", domain.ErrInvalidInput, err)
	}
	if kind.ObjectKind != "pipeline" {
		h.log.Debug("webhook ignored", zap.String("object_kind", kind.ObjectKind))
		return WebhookOutcome{Message: MessageNotPipelineEvent}, nil
	}

	var ev pipelineEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return WebhookOutcome{}, fmt.Errorf("%w: pipeline event: %v", domain.ErrInvalidInput, err)
	}

	s, err := h.settings.Load(ctx)
	if err != nil {
		return WebhookOutcome{}, fmt.Errorf("load settings: %w", err)
	}

	p := ev.toPipeline()
	res := h.notifier.Notify(ctx, p, s.Notifications)
	if res.Skipped {
		return WebhookOutcome{Message: res.Message}, nil
	}

	h.log.Info("webhook processed",
		zap.Int64("pipeline", p.ID),
		zap.Int64("repository", p.Repository.ID),
		zap.String("status", string(p.Status)),
	)

	return WebhookOutcome{Message: MessageWebhookProcessed, Result: &res}, nil
}

func (ev pipelineEvent) toPipeline() domain.Pipeline {
	a := ev.ObjectAttributes
	return domain.Pipeline{
		ID:        a.ID,
		Status:    domain.ParseStatus(a.Status),
		Ref:       a.Ref,
		SHA:       a.SHA,
		WebURL:    a.URL,
		CreatedAt: a.CreatedAt.Time,
		UpdatedAt: a.UpdatedAt.Time,
		Duration:  a.Duration,
		Repository: domain.Repository{
			ID:                ev.Project.ID,
			Name:              ev.Project.Name,
			PathWithNamespace: ev.Project.PathWithNamespace,
			WebURL:            ev.Project.WebURL,
		},
	}
}
