package telegram

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/akiyanov/levels/internal/notifier"
)

const apiBaseURL = "https://api.telegram.org"

// Telegram implements the Notifier interface for Telegram Bot API
type Telegram struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
}

// New creates a new Telegram notifier
func New(botToken, chatID string) *Telegram {
	return &Telegram{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  apiBaseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// NewWithBaseURL creates a Telegram notifier with custom API URL (for testing)
func NewWithBaseURL(botToken, chatID, url string) *Telegram {
	t := New(botToken, chatID)
	t.baseURL = url
	return t
}

func (t *Telegram) Name() string {
	return "telegram"
}

func (t *Telegram) Send(event notifier.Event) error {
	return t.sendMessage(formatEvent(event))
}

func (t *Telegram) SendBatch(events []notifier.Event) error {
	if len(events) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("*%d trading events*\n\n", len(events)))
	for i, event := range events {
		sb.WriteString(formatEvent(event))
		if i < len(events)-1 {
			sb.WriteString("\n---\n\n")
		}
	}

	return t.sendMessage(sb.String())
}

func formatEvent(event notifier.Event) string {
	var sb strings.Builder

	emoji := "📈"
	if event.Side == "SELL" {
		emoji = "📉"
	}

	sb.WriteString(fmt.Sprintf("%s *%s* %s\n", emoji, event.Symbol, event.Side))
	sb.WriteString(fmt.Sprintf("Qty: %v @ %.4f\n", event.Quantity, event.Price))
	if event.Commission > 0 {
		sb.WriteString(fmt.Sprintf("Fee: %.4f\n", event.Commission))
	}
	if event.Note != "" {
		sb.WriteString(fmt.Sprintf("Note: %s\n", event.Note))
	}
	sb.WriteString(fmt.Sprintf("Time: %s", event.Time.Format("2006-01-02 15:04:05")))

	return sb.String()
}

func (t *Telegram) sendMessage(text string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.botToken)

	payload := map[string]any{
		"chat_id":    t.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram: failed to marshal payload: %w", err)
	}

	resp, err := t.client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: failed to send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var result map[string]any
		json.NewDecoder(resp.Body).Decode(&result)
		return fmt.Errorf("telegram: API error (status %d): %v", resp.StatusCode, result)
	}

	return nil
}
