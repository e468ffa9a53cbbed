// Package notify delivers alerts about analysis results, such as a watched
// symbol whose recommendation changed between runs.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"stock-analyst/internal/analysis"
	"stock-analyst/internal/security"
)

// Notifier sends notifications.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

// Channel is one delivery route.
type Channel interface {
	Name() string
	Send(ctx context.Context, n Notification) error
	IsEnabled() bool
}

// Notification represents a notification message.
type Notification struct {
	Type      Type
	Symbol    string
	Title     string
	Message   string
	Data      map[string]interface{}
	Timestamp time.Time
}

// Type represents the type of notification.
type Type string

const (
	TypeStanceChange Type = "stance_change"
	TypeError        Type = "error"
	TypeSummary      Type = "summary"
)

// Level filters which notification types are delivered.
type Level string

const (
	LevelAll         Level = "all"
	LevelChangesOnly Level = "changes_only"
	LevelErrorsOnly  Level = "errors_only"
)

// Config selects and configures channels.
type Config struct {
	Level    string         `mapstructure:"level"`
	Webhook  WebhookConfig  `mapstructure:"webhook"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// WebhookConfig configures the JSON webhook channel.
type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

// TelegramConfig configures the Telegram bot channel.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	// APIURL overrides https://api.telegram.org.
	APIURL string `mapstructure:"api_url"`
}

// Enabled reports whether any channel is configured.
func (c Config) Enabled() bool {
	return c.Webhook.Enabled || c.Telegram.Enabled
}

// MultiNotifier sends notifications to multiple channels.
type MultiNotifier struct {
	channels []Channel
	level    Level
	mu       sync.RWMutex
}

// NewMultiNotifier creates a MultiNotifier with the channels enabled in cfg.
func NewMultiNotifier(cfg Config) *MultiNotifier {
	mn := &MultiNotifier{level: Level(cfg.Level)}
	if mn.level == "" {
		mn.level = LevelAll
	}
	if cfg.Webhook.Enabled {
		mn.channels = append(mn.channels, NewWebhookNotifier(cfg.Webhook))
	}
	if cfg.Telegram.Enabled {
		mn.channels = append(mn.channels, NewTelegramNotifier(cfg.Telegram))
	}
	return mn
}

// AddChannel adds a notification channel.
func (mn *MultiNotifier) AddChannel(ch Channel) {
	mn.mu.Lock()
	defer mn.mu.Unlock()
	mn.channels = append(mn.channels, ch)
}

func (mn *MultiNotifier) shouldSend(t Type) bool {
	switch mn.level {
	case LevelChangesOnly:
		return t == TypeStanceChange
	case LevelErrorsOnly:
		return t == TypeError
	default:
		return true
	}
}

// Send sends a notification to all enabled channels. Every channel is
// tried; failures are joined into one error.
func (mn *MultiNotifier) Send(ctx context.Context, n Notification) error {
	if !mn.shouldSend(n.Type) {
		return nil
	}
	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now()
	}

	mn.mu.RLock()
	channels := mn.channels
	mn.mu.RUnlock()

	var errs []string
	for _, ch := range channels {
		if !ch.IsEnabled() {
			continue
		}
		if err := ch.Send(ctx, n); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", ch.Name(), err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Horizons holds the three stances of one report.
type Horizons struct {
	Short  analysis.Stance
	Medium analysis.Stance
	Long   analysis.Stance
}

// StanceChange builds a notification when any horizon differs between prev
// and cur. It returns false when nothing changed.
func StanceChange(symbol string, prev, cur Horizons, price float64) (Notification, bool) {
	if prev == cur {
		return Notification{}, false
	}

	var parts []string
	data := map[string]interface{}{"price": price}
	for _, h := range []struct {
		name      string
		prev, cur analysis.Stance
	}{
		{"short", prev.Short, cur.Short},
		{"medium", prev.Medium, cur.Medium},
		{"long", prev.Long, cur.Long},
	} {
		data[h.name+"_term"] = string(h.cur)
		if h.prev != h.cur {
			parts = append(parts, fmt.Sprintf("%s term %s → %s", h.name, h.prev, h.cur))
			data[h.name+"_term_previous"] = string(h.prev)
		}
	}

	return Notification{
		Type:    TypeStanceChange,
		Symbol:  symbol,
		Title:   fmt.Sprintf("%s recommendation changed", symbol),
		Message: strings.Join(parts, "\n"),
		Data:    data,
	}, true
}

// Failures builds an error notification for symbols that could not be
// analyzed in a batch.
func Failures(listName string, failed map[string]error) Notification {
	lines := make([]string, 0, len(failed))
	for symbol, err := range failed {
		lines = append(lines, fmt.Sprintf("%s: %v", symbol, err))
	}
	return Notification{
		Type:    TypeError,
		Title:   fmt.Sprintf("%d symbols failed on watchlist %s", len(failed), listName),
		Message: strings.Join(lines, "\n"),
		Data:    map[string]interface{}{"watchlist": listName, "failed": len(failed)},
	}
}

// WebhookNotifier posts notifications as JSON.
type WebhookNotifier struct {
	url     string
	enabled bool
	client  *http.Client
}

// NewWebhookNotifier creates a new WebhookNotifier.
func NewWebhookNotifier(cfg WebhookConfig) *WebhookNotifier {
	return &WebhookNotifier{
		url:     cfg.URL,
		enabled: cfg.Enabled && cfg.URL != "",
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (w *WebhookNotifier) Name() string { return "webhook" }

func (w *WebhookNotifier) IsEnabled() bool { return w.enabled }

// Send sends a notification via webhook.
func (w *WebhookNotifier) Send(ctx context.Context, n Notification) error {
	if !w.enabled {
		return nil
	}

	payload := map[string]interface{}{
		"type":      n.Type,
		"symbol":    n.Symbol,
		"title":     n.Title,
		"message":   n.Message,
		"data":      n.Data,
		"timestamp": n.Timestamp.Format(time.RFC3339),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "StockAnalyst/1.0")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// TelegramNotifier sends notifications via a Telegram bot.
type TelegramNotifier struct {
	apiURL   string
	botToken string
	chatID   string
	enabled  bool
	client   *http.Client
}

// NewTelegramNotifier creates a new TelegramNotifier.
func NewTelegramNotifier(cfg TelegramConfig) *TelegramNotifier {
	api := cfg.APIURL
	if api == "" {
		api = "https://api.telegram.org"
	}
	return &TelegramNotifier{
		apiURL:   strings.TrimRight(api, "/"),
		botToken: cfg.BotToken,
		chatID:   cfg.ChatID,
		enabled:  cfg.Enabled && cfg.BotToken != "" && cfg.ChatID != "",
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *TelegramNotifier) Name() string { return "telegram" }

func (t *TelegramNotifier) IsEnabled() bool { return t.enabled }

// Send sends a notification via Telegram using HTML parse mode.
func (t *TelegramNotifier) Send(ctx context.Context, n Notification) error {
	if !t.enabled {
		return nil
	}

	text := fmt.Sprintf("<b>%s</b>\n\n%s", escapeHTML(n.Title), escapeHTML(n.Message))
	payload := map[string]interface{}{
		"chat_id":    t.chatID,
		"text":       text,
		"parse_mode": "HTML",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiURL, t.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		// The request URL embeds the bot token.
		return fmt.Errorf("sending telegram message: %s", security.Redact(err.Error(), t.botToken))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}
	return nil
}

func escapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}
