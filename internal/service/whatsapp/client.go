// Package whatsapp sends replies back to patients through the Gupshup
// WhatsApp gateway.
package whatsapp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/samcomdev/medichat/internal/config"
	"github.com/samcomdev/medichat/internal/model/chat"
)

// Gupshup renders at most three quick replies per message.
const maxQuickReplies = 3

type Client struct {
	cfg        config.WhatsAppConfig
	httpClient *http.Client
}

func NewClient(cfg config.WhatsAppConfig) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Send delivers one reply to a phone number, as plain text or as a
// quick-reply message when buttons are present.
func (c *Client) Send(ctx context.Context, destination string, reply chat.Reply) error {
	message, err := encodeMessage(reply)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	form := url.Values{}
	form.Set("channel", "whatsapp")
	form.Set("source", c.cfg.Source)
	form.Set("destination", destination)
	form.Set("message", message)
	if c.cfg.AppName != "" {
		form.Set("src.name", c.cfg.AppName)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.SendURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("apikey", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("gupshup returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

func encodeMessage(reply chat.Reply) (string, error) {
	if len(reply.Buttons) == 0 {
		raw, err := json.Marshal(map[string]string{
			"type": "text",
			"text": reply.Text,
		})
		return string(raw), err
	}

	buttons := reply.Buttons
	if len(buttons) > maxQuickReplies {
		buttons = buttons[:maxQuickReplies]
	}

	options := make([]map[string]string, 0, len(buttons))
	for _, b := range buttons {
		options = append(options, map[string]string{
			"type":     "text",
			"title":    b.Text,
			"postback": b.Value,
		})
	}

	raw, err := json.Marshal(map[string]any{
		"type": "quick_reply",
		"content": map[string]string{
			"type": "text",
			"text": reply.Text,
		},
		"options": options,
	})
	return string(raw), err
}
