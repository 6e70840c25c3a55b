// Package notifier delivers availability alerts through the Telegram Bot API.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/user/ferry-watch/internal/domain"
)

var (
	ErrMissingCredentials = errors.New("telegram bot token or chat id not configured")
	ErrDelivery           = errors.New("telegram message not delivered")
)

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Telegram sends messages to a single chat.
type Telegram struct {
	client *resty.Client
	token  string
	chatID string
	logger *zap.Logger
}

func NewTelegram(baseURL, token, chatID string, timeout time.Duration, logger *zap.Logger) *Telegram {
	client := resty.New()
	client.SetBaseURL(strings.TrimRight(baseURL, "/"))
	client.SetTimeout(timeout)
	client.SetHeader("Content-Type", "application/json")
	t := &Telegram{client: client, token: token, chatID: chatID, logger: logger}
	client.SetLogger(restyLogger{t: t, log: logger.Named("resty").Sugar()})
	return t
}

// Notify posts text as an HTML formatted message.
func (t *Telegram) Notify(ctx context.Context, text string) error {
	if t.token == "" || t.chatID == "" {
		t.logger.Error("telegram credentials not found, skipping notification")
		return ErrMissingCredentials
	}

	var apiErr apiResponse
	resp, err := t.client.R().
		SetContext(ctx).
		SetBody(sendMessageRequest{ChatID: t.chatID, Text: text, ParseMode: "HTML"}).
		SetError(&apiErr).
		Post("/bot" + t.token + "/sendMessage")
	if err != nil {
		err = fmt.Errorf("%w: %s", ErrDelivery, t.redact(err.Error()))
		t.logger.Error("failed to send telegram message", zap.Error(err))
		return err
	}
	if !resp.IsSuccess() {
		err = fmt.Errorf("%w: status %d: %s", ErrDelivery, resp.StatusCode(), apiErr.Description)
		t.logger.Error("failed to send telegram message", zap.Error(err))
		return err
	}

	t.logger.Info("telegram message sent", zap.String("chat_id", t.chatID))
	return nil
}

// redact keeps the bot token out of errors and logs.
func (t *Telegram) redact(s string) string {
	if t.token == "" {
		return s
	}
	return strings.ReplaceAll(s, t.token, "<redacted>")
}

// restyLogger routes the client's own messages through zap without the token.
type restyLogger struct {
	t   *Telegram
	log *zap.SugaredLogger
}

func (l restyLogger) Errorf(format string, v ...any) { l.log.Warn(l.t.redact(fmt.Sprintf(format, v...))) }
func (l restyLogger) Warnf(format string, v ...any) { l.log.Warn(l.t.redact(fmt.Sprintf(format, v...))) }
func (l restyLogger) Debugf(format string, v ...any) { l.log.Debug(l.t.redact(fmt.Sprintf(format, v...))) }

// FormatAvailability renders the alert for an available itinerary.
func FormatAvailability(operator, bookingLink string, c domain.SearchCriteria, checkedAt time.Time) string {
	esc := html.EscapeString
	leg := func(from, to string, date time.Time, at string) string {
		return fmt.Sprintf("%s → %s on %s @ %s", esc(from), esc(to), date.Format("Mon 02 Jan"), esc(at))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🚢 %s Alert! Your ferry is now available:\n\n", esc(operator))
	fmt.Fprintf(&b, "Outbound: %s\n", leg(c.DeparturePort, c.ArrivalPort, c.OutboundDate, c.OutboundTime))
	fmt.Fprintf(&b, "Return: %s\n\n", leg(c.ArrivalPort, c.DeparturePort, c.ReturnDate, c.ReturnTime))
	fmt.Fprintf(&b, "Book now: %s\n\n", esc(bookingLink))
	fmt.Fprintf(&b, "Checked at: %s", checkedAt.UTC().Format("2006-01-02 15:04:05 UTC"))
	return b.String()
}
