package application

import (
	"context"
	"fmt"
	"html"
	"sync"

	"github.com/davarch/pipelines-dashboard/internal/domain"
	"go.uber.org/zap"
)

const MessageNotificationsSent = "Notifications sent"

type Notifier struct {
	log      *zap.Logger
	zulip    domain.ZulipSender
	telegram domain.TelegramSender
}

func NewNotifier(l *zap.Logger, z domain.ZulipSender, t domain.TelegramSender) *Notifier {
	return &Notifier{log: l, zulip: z, telegram: t}
}

// Notify dispatches p to every enabled channel. Channels run concurrently and
// a failure in one never affects the other.
func (n *Notifier) Notify(ctx context.Context, p domain.Pipeline, ns domain.NotificationSettings) domain.NotifyResult {
	if !ns.NotifyOn.Enabled(p.Status) {
		return domain.NotifyResult{
			Skipped: true,
			Message: fmt.Sprintf("Notifications for %s status are disabled", p.Status),
		}
	}

	res := domain.NotifyResult{Message: MessageNotificationsSent}

	var wg sync.WaitGroup
	if ns.Zulip.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			data, err := n.zulip.SendZulip(ctx, ns.Zulip, ZulipContent(p))
			res.Zulip = n.result("zulip", p, data, err)
		}()
	}
	if ns.Telegram.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			data, err := n.telegram.SendTelegram(ctx, ns.Telegram, TelegramText(p))
			res.Telegram = n.result("telegram", p, data, err)
		}()
	}
	wg.Wait()

	return res
}

func (n *Notifier) result(channel string, p domain.Pipeline, data any, err error) *domain.ChannelResult {
	if err != nil {
		n.log.Warn("notification failed",
			zap.String("channel", channel),
			zap.Int64("pipeline", p.ID),
			zap.Int64("repository", p.Repository.ID),
			zap.Error(err),
		)
		return &domain.ChannelResult{Success: false, Data: data, Error: err.Error()}
	}
	n.log.Debug("notification sent",
		zap.String("channel", channel),
		zap.Int64("pipeline", p.ID),
	)
	return &domain.ChannelResult{Success: true, Data: data}
}

// ZulipContent renders the Zulip markdown line for p.
func ZulipContent(p domain.Pipeline) string {
	return fmt.Sprintf("%s Pipeline [#%d](%s) for %s (%s) is **%s**",
		p.Status.Glyph(), p.ID, p.WebURL, p.Repository.Name, p.Ref, p.Status)
}

// TelegramText renders the Telegram message for p. The chat uses HTML parse
// mode so user-controlled parts are escaped.
func TelegramText(p domain.Pipeline) string {
	return fmt.Sprintf("%s Pipeline #%d for %s (%s) is %s\n\n%s",
		p.Status.Glyph(), p.ID,
		html.EscapeString(p.Repository.Name),
		html.EscapeString(p.Ref),
		p.Status,
		html.EscapeString(p.WebURL))
}
