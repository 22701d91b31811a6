package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-pkgz/lgr"
)

const (
	defaultTelegramURL = "https://api.telegram.org"
	maxMessageLen      = 4096 // telegram limit, in characters
)

// TelegramParams configures Telegram transport
type TelegramParams struct {
	Token   string
	BaseURL string        // api url, default https://api.telegram.org
	Timeout time.Duration // per request, default 10s
}

// Telegram sends html messages with the bot api
type Telegram struct {
	token   string
	baseURL string
	client  *http.Client
}

// NewTelegram makes telegram transport
func NewTelegram(p TelegramParams) *Telegram {
	if p.BaseURL == "" {
		p.BaseURL = defaultTelegramURL
	}
	if p.Timeout <= 0 {
		p.Timeout = 10 * time.Second
	}
	return &Telegram{token: p.Token, baseURL: strings.TrimSuffix(p.BaseURL, "/"), client: &http.Client{Timeout: p.Timeout}}
}

// Send delivers text to every recipient chat. A failure for one recipient doesn't stop the others,
// nothing is retried. Messages longer than the telegram limit are split on paragraph boundaries.
func (t *Telegram) Send(ctx context.Context, recipients []string, text string) []Delivery {
	chunks := splitMessage(text, maxMessageLen)
	res := make([]Delivery, 0, len(recipients))
	for _, chatID := range cleanRecipients(recipients) {
		var err error
		for _, chunk := range chunks {
			if err = t.sendMessage(ctx, chatID, chunk); err != nil {
				break
			}
		}
		if err != nil {
			lgr.Printf("[WARN] failed to send telegram message to %s: %v", chatID, err)
		} else {
			lgr.Printf("[INFO] notification sent to %s", chatID)
		}
		res = append(res, Delivery{Recipient: chatID, Err: err})
	}
	return res
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (t *Telegram) sendMessage(ctx context.Context, chatID, text string) error {
	body, err := json.Marshal(sendMessageRequest{ChatID: chatID, Text: text, ParseMode: "HTML", DisableWebPagePreview: true})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		// the error text carries the url with the token, lgr secrets mask it in logs
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	var ar apiResponse
	if err := json.Unmarshal(data, &ar); err != nil && resp.StatusCode == http.StatusOK {
		return fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || !ar.OK {
		return fmt.Errorf("telegram api status %d: %s", resp.StatusCode, ar.Description)
	}
	return nil
}

// splitMessage cuts text into chunks of at most limit characters, preferring paragraph
// and then line boundaries
func splitMessage(text string, limit int) []string {
	var res []string
	for len([]rune(text)) > limit {
		r := []rune(text)
		head := string(r[:limit])
		cut := strings.LastIndex(head, "\n\n")
		if cut <= 0 {
			cut = strings.LastIndex(head, "\n")
		}
		if cut <= 0 {
			cut = len(head)
		}
		res = append(res, strings.TrimRight(text[:cut], "\n"))
		text = strings.TrimLeft(text[cut:], "\n")
	}
	if text != "" || len(res) == 0 {
		res = append(res, text)
	}
	return res
}
