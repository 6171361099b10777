// Package discord implements a notifier.Notifier for Discord webhooks.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
	"time"

	"github.com/FerDeGante/Eventora-sub000/internal/port/notifier"
)

const providerName = "discord"

// Notifier sends notifications to Discord via incoming webhook.
type Notifier struct {
	webhookURL string
	httpClient *http.Client
	now        func() time.Time
}

// NewNotifier creates a Discord notifier with the given webhook URL.
func NewNotifier(webhookURL string) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		now:        time.Now,
	}
}

func (n *Notifier) Name() string { return providerName }

type webhook struct {
	Embeds []embed `json:"embeds"`
}

type embed struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Color       int          `json:"color"`
	Fields      []embedField `json:"fields,omitempty"`
	Footer      *footer      `json:"footer,omitempty"`
	Timestamp   string       `json:"timestamp"`
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type footer struct {
	Text string `json:"text"`
}

func (n *Notifier) render(nt *notifier.Notification) webhook {
	e := embed{
		Title:       nt.Title,
		Description: nt.Message,
		Color:       levelColor(nt.Level),
		Timestamp:   n.now().UTC().Format(time.RFC3339),
	}
	keys := make([]string, 0, len(nt.Fields))
	for k, v := range nt.Fields {
		// Discord rejects embed fields with empty values.
		if v != "" {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	for _, k := range keys {
		e.Fields = append(e.Fields, embedField{Name: k, Value: nt.Fields[k], Inline: true})
	}
	if nt.Source != "" {
		e.Footer = &footer{Text: nt.Source + " · clinic " + nt.TenantID}
	}
	return webhook{Embeds: []embed{e}}
}

// Send posts the notification as a single embed.
func (n *Notifier) Send(ctx context.Context, nt notifier.Notification) error {
	if n.webhookURL == "" {
		return notifier.ErrNotConfigured
	}

	body, err := json.Marshal(n.render(&nt))
	if err != nil {
		return fmt.Errorf("discord marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req) //nolint:gosec // webhook URL from trusted config
	if err != nil {
		return fmt.Errorf("discord send: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	// Discord returns 204 on success
	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
		return fmt.Errorf("discord API %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// levelColor returns Discord embed color integers for notification levels.
func levelColor(level string) int {
	if level == notifier.LevelWarning {
		return 0xF39C12 // orange
	}
	return 0x3498DB // blue
}
