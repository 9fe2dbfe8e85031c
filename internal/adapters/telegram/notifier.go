package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"atrDipBot/internal/ports"
)

const defaultTimeout = 10 * time.Second

// Notifier delivers status messages via the Telegram Bot API.
// Delivery is best-effort: every failure is logged and swallowed so the
// trading loop never depends on it.
type Notifier struct {
	baseURL string
	chatID  string
	client  *http.Client
	logger  ports.Logger
	enabled bool
}

// Config holds configuration for the Telegram notifier.
type Config struct {
	Token  string
	ChatID string
	Logger ports.Logger
	// BaseURL overrides the Telegram API endpoint, used in tests.
	BaseURL string
}

// New creates a Telegram notifier. When token or chat ID is empty the
// notifier is disabled rather than failing: notification misconfiguration
// must not abort the bot.
func New(cfg Config) (*Notifier, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Telegram notifier")
	}

	enabled := cfg.Token != "" && cfg.ChatID != ""
	if !enabled {
		cfg.Logger.Warn(context.Background(), "Telegram notifier disabled (token or chat ID not configured)")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &Notifier{
		baseURL: fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(baseURL, "/"), cfg.Token),
		chatID:  cfg.ChatID,
		client:  &http.Client{Timeout: defaultTimeout},
		logger:  cfg.Logger,
		enabled: enabled,
	}, nil
}

// Enabled reports whether messages will actually be sent.
func (n *Notifier) Enabled() bool {
	return n.enabled
}

// Notify implements ports.Notifier.
func (n *Notifier) Notify(ctx context.Context, text string) {
	if !n.enabled {
		return
	}

	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		n.logger.Warn(ctx, "Failed to build Telegram request", map[string]interface{}{"error": err.Error()})
		return
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Warn(ctx, "Failed to deliver Telegram message", map[string]interface{}{"error": err.Error()})
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		n.logger.Warn(ctx, "Telegram API returned error status", map[string]interface{}{"status": resp.StatusCode})
	}
}
