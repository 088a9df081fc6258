package notify_zulip

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/davarch/pipelines-dashboard/internal/domain"
	"go.uber.org/zap"
)

type Sender struct {
	log        *zap.Logger
	hc         *http.Client
	maxRetries uint64
}

// New returns a Zulip sender. maxRetries of zero means a single attempt.
func New(l *zap.Logger, timeout time.Duration, maxRetries uint64) *Sender {
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
		TLSHandshakeTimeout: 5 * time.Second,
		IdleConnTimeout:     90 * time.Second,
	}
	return &Sender{
		log:        l,
		hc:         &http.Client{Transport: tr, Timeout: timeout},
		maxRetries: maxRetries,
	}
}

type StatusError struct {
	Code int
	Msg  string
}

func (e *StatusError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("zulip %d: %s", e.Code, e.Msg)
	}
	return fmt.Sprintf("zulip %d", e.Code)
}

// SendZulip posts content as a stream message. The decoded response body is
// returned even when the status is not successful.
func (s *Sender) SendZulip(ctx context.Context, cfg domain.ZulipSettings, content string) (any, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if base == "" {
		return nil, errors.New("zulip url is empty")
	}
	endpoint := base + "/api/v1/messages"

	form := url.Values{}
	form.Set("type", "stream")
	form.Set("to", cfg.Stream)
	form.Set("subject", cfg.Topic)
	form.Set("content", content)
	body := form.Encode()

	var data any
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.SetBasicAuth(cfg.Email, cfg.APIKey)

		resp, err := s.hc.Do(req)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		data = nil
		b, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return err
		}
		if len(b) > 0 {
			if err := json.Unmarshal(b, &data); err != nil {
				data = nil
				if resp.StatusCode < 300 {
					return backoff.Permanent(fmt.Errorf("decode zulip response: %w", err))
				}
			}
		}

		if resp.StatusCode >= 300 {
			se := &StatusError{Code: resp.StatusCode, Msg: messageOf(data)}
			if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
				return backoff.Permanent(se)
			}
			return se
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 5 * time.Second

	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, s.maxRetries), ctx)); err != nil {
		return data, err
	}

	s.log.Debug("zulip message sent", zap.String("stream", cfg.Stream), zap.String("topic", cfg.Topic))
	return data, nil
}

func messageOf(data any) string {
	m, ok := data.(map[string]any)
	if !ok {
		return ""
	}
	msg, _ := m["msg"].(string)
	return msg
}
