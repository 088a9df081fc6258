package notify_telegram

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/davarch/pipelines-dashboard/internal/domain"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

type Sender struct {
	log        *zap.Logger
	hc         *http.Client
	endpoint   string
	maxRetries uint64
}

type Option func(*Sender)

// WithEndpoint overrides the Bot API endpoint format
// ("https://host/bot%s/%s").
func WithEndpoint(endpoint string) Option {
	return func(s *Sender) { s.endpoint = endpoint }
}

// New returns a Telegram sender. maxRetries of zero means a single attempt.
func New(l *zap.Logger, timeout time.Duration, maxRetries uint64, opts ...Option) *Sender {
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
		TLSHandshakeTimeout: 5 * time.Second,
		IdleConnTimeout:     90 * time.Second,
	}
	s := &Sender{
		log:        l,
		hc:         &http.Client{Transport: tr, Timeout: timeout},
		endpoint:   tgbotapi.APIEndpoint,
		maxRetries: maxRetries,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ctxClient binds the bot's requests to the caller's context; the library
// builds requests without one.
type ctxClient struct {
	ctx context.Context
	hc  *http.Client
}

func (c ctxClient) Do(req *http.Request) (*http.Response, error) {
	return c.hc.Do(req.WithContext(c.ctx))
}

// SendTelegram sends text to the configured chat in HTML parse mode. The Bot
// API response is returned as data, also on failure when one was received.
// sendMessage goes out form-encoded and false flags such as
// disable_web_page_preview are omitted, which the Bot API reads as false.
func (s *Sender) SendTelegram(ctx context.Context, cfg domain.TelegramSettings, text string) (any, error) {
	if strings.TrimSpace(cfg.BotToken) == "" {
		return nil, errors.New("telegram bot token is empty")
	}

	msg, err := newMessage(cfg.ChatID, text)
	if err != nil {
		return nil, err
	}

	// Constructed directly to skip the getMe round trip of NewBotAPI.
	bot := &tgbotapi.BotAPI{
		Token:  cfg.BotToken,
		Client: ctxClient{ctx: ctx, hc: s.hc},
		Buffer: 100,
	}
	bot.SetAPIEndpoint(s.endpoint)

	var resp *tgbotapi.APIResponse
	op := func() error {
		r, err := bot.Request(msg)
		resp = r
		if err == nil {
			return nil
		}
		var apiErr *tgbotapi.Error
		if errors.As(err, &apiErr) && apiErr.Code >= 400 && apiErr.Code < 500 && apiErr.Code != http.StatusTooManyRequests {
			return backoff.Permanent(fmt.Errorf("telegram %d: %s", apiErr.Code, apiErr.Message))
		}
		return fmt.Errorf("telegram: %w", err)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 5 * time.Second

	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, s.maxRetries), ctx)); err != nil {
		if resp != nil {
			return resp, err
		}
		return nil, err
	}

	s.log.Debug("telegram message sent", zap.String("chat", cfg.ChatID))
	return resp, nil
}

// newMessage accepts numeric chat ids and "@channel" usernames.
func newMessage(chatID, text string) (tgbotapi.MessageConfig, error) {
	chatID = strings.TrimSpace(chatID)

	var msg tgbotapi.MessageConfig
	if id, err := strconv.ParseInt(chatID, 10, 64); err == nil {
		msg = tgbotapi.NewMessage(id, text)
	} else if strings.HasPrefix(chatID, "@") && len(chatID) > 1 {
		msg = tgbotapi.NewMessageToChannel(chatID, text)
	} else {
		return tgbotapi.MessageConfig{}, fmt.Errorf("invalid telegram chat id %q", chatID)
	}

	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = false
	return msg, nil
}
