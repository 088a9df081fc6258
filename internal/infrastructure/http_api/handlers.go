package http_api

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/davarch/pipelines-dashboard/internal/application"
	"github.com/davarch/pipelines-dashboard/internal/domain"
	"go.uber.org/zap"
)

type errorResponse struct {
	Error string `json:"error"`
}

type notifyResults struct {
	Zulip    *domain.ChannelResult `json:"zulip"`
	Telegram *domain.ChannelResult `json:"telegram"`
}

type notifyResponse struct {
	Message string         `json:"message"`
	Results *notifyResults `json:"results,omitempty"`
}

func notifyResponseOf(res domain.NotifyResult) notifyResponse {
	if res.Skipped {
		return notifyResponse{Message: res.Message}
	}
	return notifyResponse{
		Message: res.Message,
		Results: &notifyResults{Zulip: res.Zulip, Telegram: res.Telegram},
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleRepositories(w http.ResponseWriter, r *http.Request) {
	st, err := s.settings.Load(r.Context())
	if err != nil {
		s.internalError(w, "Failed to fetch repositories", err)
		return
	}

	batch, err := s.agg.ListRepositories(r.Context(), st)
	if err != nil {
		s.aggregationError(w, "Failed to fetch repositories", err)
		return
	}

	setFailures(w, batch.Failures)
	writeJSON(w, http.StatusOK, batch.Items)
}

func (s *Server) handlePipelines(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := domain.PipelineFilter{
		Status:       q.Get("status"),
		RepositoryID: q.Get("repository"),
		Branch:       q.Get("branch"),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a non-negative integer"})
			return
		}
		f.Limit = n
	}

	st, err := s.settings.Load(r.Context())
	if err != nil {
		s.internalError(w, "Failed to fetch pipelines", err)
		return
	}

	batch, err := s.agg.ListPipelines(r.Context(), st)
	if err != nil {
		s.aggregationError(w, "Failed to fetch pipelines", err)
		return
	}

	setFailures(w, batch.Failures)
	writeJSON(w, http.StatusOK, f.Apply(batch.Items))
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	st, err := s.settings.Load(r.Context())
	if err != nil {
		s.internalError(w, "Failed to fetch settings", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	var st domain.Settings
	if err := decodeBody(w, r, &st); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
		return
	}

	if strings.TrimSpace(st.GitLab.URL) == "" || strings.TrimSpace(st.GitLab.Token) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "GitLab URL and access token are required"})
		return
	}

	if err := s.settings.Save(r.Context(), st); err != nil {
		s.log.Error("settings save failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleTestConnection(w http.ResponseWriter, r *http.Request) {
	var in struct {
		URL   string `json:"url"`
		Token string `json:"token"`
	}
	if err := decodeBody(w, r, &in); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
		return
	}
	if in.URL == "" || in.Token == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "URL and token are required"})
		return
	}

	ok, err := s.gl.TestConnection(r.Context(), in.URL, in.Token)
	if err != nil {
		s.log.Warn("gitlab connection test failed", zap.String("url", in.URL), zap.Error(err))
	}
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   "Failed to connect to GitLab API",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Connection successful",
	})
}

func (s *Server) handleNotify(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Pipeline *domain.Pipeline `json:"pipeline"`
	}
	if err := decodeBody(w, r, &in); err != nil || in.Pipeline == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
		return
	}

	p := *in.Pipeline
	p.Status = domain.ParseStatus(string(p.Status))

	st, err := s.settings.Load(r.Context())
	if err != nil {
		s.internalError(w, "Failed to send notifications", err)
		return
	}

	res := s.notifier.Notify(r.Context(), p, st.Notifications)
	writeJSON(w, http.StatusOK, notifyResponseOf(res))
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if s.secret != "" {
		got := r.Header.Get("X-Gitlab-Token")
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.secret)) != 1 {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Invalid webhook token"})
			return
		}
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
		return
	}

	out, err := s.webhook.Handle(r.Context(), body)
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		s.log.Warn("webhook rejected", zap.Error(err))
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid webhook payload"})
		return
	case err != nil:
		s.internalError(w, "Failed to process webhook", err)
		return
	}

	if out.Result == nil {
		writeJSON(w, http.StatusOK, out)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Message string         `json:"message"`
		Result  notifyResponse `json:"result"`
	}{
		Message: out.Message,
		Result:  notifyResponseOf(*out.Result),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.status.Latest())
}

func (s *Server) aggregationError(w http.ResponseWriter, msg string, err error) {
	if errors.Is(err, domain.ErrNotConfigured) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	s.internalError(w, msg, err)
}

func (s *Server) internalError(w http.ResponseWriter, msg string, err error) {
	s.log.Error(msg, zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: msg})
}

// setFailures reports skipped repositories without changing the body shape.
func setFailures(w http.ResponseWriter, fs []domain.FetchFailure) {
	if len(fs) > 0 {
		w.Header().Set("X-Fetch-Failures", strconv.Itoa(len(fs)))
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

var _ StatusSource = (*application.PollUseCase)(nil)
