package alerting

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"pricewatch/internal/alerts"
	"pricewatch/internal/series"
)

// Notification describes one alert whose threshold was reached.
type Notification struct {
	Alert       alerts.UserAlert
	LatestPrice decimal.Decimal
	Date        series.Date
	Unit        string
}

// Notifier delivers triggered alerts.
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// LogNotifier writes notifications to the log only.
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier is used when no remote channel is configured.
func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With().Str("component", "alert_log").Logger()}
}

// Notify logs the notification.
func (n *LogNotifier) Notify(_ context.Context, note Notification) error {
	n.logger.Warn().
		Str("alert_id", note.Alert.ID).
		Str("commodity", note.Alert.Commodity).
		Str("region", note.Alert.Region).
		Str("threshold", note.Alert.Threshold.StringFixed(2)).
		Str("latest", note.LatestPrice.StringFixed(2)).
		Str("date", note.Date.Key()).
		Msg("price alert triggered")
	return nil
}

// TelegramNotifier pushes messages through the Telegram Bot API.
type TelegramNotifier struct {
	botToken string
	chatID   string
	client   *resty.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier constructs a Telegram notifier.
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		client:   client,
		logger:   logger.With().Str("component", "alert_telegram").Logger(),
	}
}

type telegramResult struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Notify calls sendMessage with the rendered text.
func (n *TelegramNotifier) Notify(ctx context.Context, note Notification) error {
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    RenderMessage(note),
	}

	var result telegramResult
	resp, err := n.client.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(&result).
		SetError(&result).
		Post(fmt.Sprintf("/bot%s/sendMessage", n.botToken))
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	if resp.IsError() {
		if result.Description != "" {
			return fmt.Errorf("telegram status %d: %s", resp.StatusCode(), result.Description)
		}
		return fmt.Errorf("telegram status %d", resp.StatusCode())
	}
	if !result.OK {
		return fmt.Errorf("telegram returned ok=false")
	}

	n.logger.Info().
		Str("alert_id", note.Alert.ID).
		Str("date", note.Date.Key()).
		Msg("alert sent (telegram)")
	return nil
}

// RenderMessage formats a notification as plain text.
func RenderMessage(note Notification) string {
	b := strings.Builder{}
	b.WriteString("[Price Alert]\n")
	b.WriteString(fmt.Sprintf("%s in %s\n", note.Alert.Commodity, note.Alert.Region))
	price := note.LatestPrice.StringFixed(2)
	if note.Unit != "" {
		price += " " + note.Unit
	}
	b.WriteString(fmt.Sprintf("Latest: %s on %s\n", price, note.Date.Key()))
	b.WriteString(fmt.Sprintf("Threshold: %s\n", note.Alert.Threshold.StringFixed(2)))
	if note.Alert.CreatedAt != "" {
		b.WriteString(fmt.Sprintf("Alert created %s", note.Alert.CreatedAt))
	}
	return b.String()
}

var (
	_ Notifier = (*TelegramNotifier)(nil)
	_ Notifier = (*LogNotifier)(nil)
)
