// Package telegram delivers new-posting alerts to a Telegram chat.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/AnonArchitect/career-crawler/internal/scraper"
)

// Config carries the bot credentials and pacing knobs.
type Config struct {
	Token     string
	ChatID    int64
	SendPause time.Duration
}

// session is the slice of the bot API the notifier needs. Tests swap in a
// fake; production dials the real Bot API per run.
type session interface {
	Send(msg tgbotapi.Chattable) (tgbotapi.Message, error)
	Close()
}

type botSession struct {
	bot    *tgbotapi.BotAPI
	client *http.Client
}

func (s *botSession) Send(msg tgbotapi.Chattable) (tgbotapi.Message, error) {
	return s.bot.Send(msg)
}

func (s *botSession) Close() {
	s.client.CloseIdleConnections()
}

// Notifier reads unalerted postings from the store and pushes each one to
// the configured chat. A posting is flagged notified only after its message
// is accepted, so a crash mid-run re-sends at worst the in-flight item and
// never flags something that was not delivered.
type Notifier struct {
	cfg    Config
	store  scraper.PostingStore
	pauser scraper.Pauser
	logger *zap.Logger
	dial   func() (session, error)
}

func New(cfg Config, store scraper.PostingStore, logger *zap.Logger) (*Notifier, error) {
	if cfg.Token == "" || cfg.ChatID == 0 {
		return nil, fmt.Errorf("telegram token and chat id are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	n := &Notifier{
		cfg:    cfg,
		store:  store,
		pauser: scraper.TimerPauser{},
		logger: logger,
	}
	n.dial = func() (session, error) {
		client := &http.Client{Timeout: 30 * time.Second}
		bot, err := tgbotapi.NewBotAPIWithClient(cfg.Token, tgbotapi.APIEndpoint, client)
		if err != nil {
			return nil, fmt.Errorf("connect telegram bot: %w", err)
		}
		return &botSession{bot: bot, client: client}, nil
	}
	return n, nil
}

// Notify sends alerts for every unnotified posting, oldest batch first as the
// store returns them. A positive limit caps the batch; the remainder stays
// unnotified and is picked up next run.
func (n *Notifier) Notify(ctx context.Context, limit int) (int, error) {
	postings, err := n.store.Unnotified(ctx)
	if err != nil {
		return 0, fmt.Errorf("load unnotified postings: %w", err)
	}
	if len(postings) == 0 {
		n.logger.Debug("no postings awaiting alerts")
		return 0, nil
	}

	if limit > 0 && len(postings) > limit {
		n.logger.Info("capping alert batch",
			zap.Int("pending", len(postings)),
			zap.Int("limit", limit))
		postings = postings[:limit]
	}

	sess, err := n.dial()
	if err != nil {
		return 0, err
	}
	defer sess.Close()

	sent := 0
	for i, p := range postings {
		if err := ctx.Err(); err != nil {
			return sent, err
		}

		msg := tgbotapi.NewMessage(n.cfg.ChatID, formatPosting(p))
		msg.ParseMode = tgbotapi.ModeHTML
		msg.DisableWebPagePreview = true

		if _, err := sess.Send(msg); err != nil {
			if isAuthError(err) {
				return sent, fmt.Errorf("telegram rejected credentials: %w", err)
			}
			n.logger.Warn("alert send failed, will retry next run",
				zap.Int64("posting_id", p.ID),
				zap.String("url", p.URL),
				zap.Error(err))
			continue
		}

		if err := n.store.MarkNotified(ctx, p.ID); err != nil {
			n.logger.Error("posting sent but not flagged, duplicate alert possible",
				zap.Int64("posting_id", p.ID),
				zap.Error(err))
			continue
		}
		sent++

		if i < len(postings)-1 {
			n.pauser.Pause(ctx, n.cfg.SendPause)
		}
	}

	n.logger.Info("alert batch done",
		zap.Int("sent", sent),
		zap.Int("batch", len(postings)))
	return sent, nil
}

func formatPosting(p scraper.Posting) string {
	location := p.Location
	if location == "" {
		location = scraper.LocationUnknown
	}

	text := fmt.Sprintf("💼 <b>%s</b>\n", html.EscapeString(p.Title))
	text += fmt.Sprintf("🏢 %s\n", html.EscapeString(p.Company))
	text += fmt.Sprintf("📍 %s\n", html.EscapeString(location))
	if p.PostedAt != nil {
		text += fmt.Sprintf("📅 %s\n", p.PostedAt.Format("2006-01-02"))
	}
	text += fmt.Sprintf("🔗 <a href=\"%s\">View posting</a>", p.URL)
	return text
}

// isAuthError reports whether the Bot API refused our credentials. Retrying
// other postings in the batch cannot succeed after that.
func isAuthError(err error) bool {
	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden
}
