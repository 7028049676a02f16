// Package notify: outbound notices about newly created reports
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"infrabeacon/internal/logger"
	"infrabeacon/internal/metrics"
	"infrabeacon/internal/report"

	"gopkg.in/telebot.v3"
)

type Notifier interface {
	// ReportCreated must not block the submission; failures are only logged.
	ReportCreated(ctx context.Context, r *report.Report)
}

type Noop struct{}

func (Noop) ReportCreated(context.Context, *report.Report) {}

// Telegram posts high-severity reports to a chat.
type Telegram struct {
	bot  *telebot.Bot
	chat *telebot.Chat
}

func NewTelegram(token string, chatID int64) (*Telegram, error) {
	bot, err := telebot.NewBot(telebot.Settings{Token: token})
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return &Telegram{bot: bot, chat: &telebot.Chat{ID: chatID}}, nil
}

func (t *Telegram) ReportCreated(_ context.Context, r *report.Report) {
	if r.Severity != report.High {
		return
	}
	text := FormatReport(r)
	go func() {
		if _, err := t.bot.Send(t.chat, text, &telebot.SendOptions{DisableWebPagePreview: true}); err != nil {
			metrics.NotifyTotal.WithLabelValues("fail").Inc()
			logger.L().WithError(err).WithField("id", r.ID).Warn("notify_telegram_error")
			return
		}
		metrics.NotifyTotal.WithLabelValues("ok").Inc()
	}()
}

// FormatReport renders the plain-text notice for a report.
func FormatReport(r *report.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "New %s severity report: %s\n", r.Severity, strings.ReplaceAll(string(r.IssueType), "_", " "))
	if r.Description != "" {
		fmt.Fprintf(&b, "%s\n", r.Description)
	}
	fmt.Fprintf(&b, "Location: https://maps.google.com/?q=%.6f,%.6f\n", r.Latitude, r.Longitude)
	fmt.Fprintf(&b, "Reported: %s\n", r.CreatedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "ID: %s", r.ID)
	return b.String()
}
