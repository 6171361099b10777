// Package slack posts staff notifications to a Slack incoming webhook.
package slack

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

const providerName = "slack"

// Notifier sends notifications to Slack via incoming webhook.
type Notifier struct {
	webhookURL string
	httpClient *http.Client
}

var _ notifier.Notifier = (*Notifier)(nil)

// NewNotifier creates a Slack notifier with the given webhook URL.
func NewNotifier(webhookURL string) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (n *Notifier) Name() string { return providerName }

type message struct {
	Blocks []block `json:"blocks"`
}

type block struct {
	Type   string `json:"type"`
	Text   *text  `json:"text,omitempty"`
	Fields []text `json:"fields,omitempty"`
	Elems  []text `json:"elements,omitempty"`
}

type text struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func render(nt *notifier.Notification) message {
	msg := message{Blocks: []block{
		{Type: "header", Text: &text{Type: "plain_text", Text: levelTag(nt.Level) + " " + nt.Title}},
		{Type: "section", Text: &text{Type: "mrkdwn", Text: nt.Message}},
	}}

	if len(nt.Fields) > 0 {
		keys := make([]string, 0, len(nt.Fields))
		for k := range nt.Fields {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		fields := make([]text, 0, len(keys))
		for _, k := range keys {
			fields = append(fields, text{Type: "mrkdwn", Text: fmt.Sprintf("*%s*\n%s", k, nt.Fields[k])})
		}
		msg.Blocks = append(msg.Blocks, block{Type: "section", Fields: fields})
	}

	if nt.Source != "" {
		msg.Blocks = append(msg.Blocks, block{
			Type:  "context",
			Elems: []text{{Type: "mrkdwn", Text: fmt.Sprintf("_%s · clinic %s_", nt.Source, nt.TenantID)}},
		})
	}
	return msg
}

// Send posts the notification.
func (n *Notifier) Send(ctx context.Context, nt notifier.Notification) error {
	if n.webhookURL == "" {
		return notifier.ErrNotConfigured
	}

	body, err := json.Marshal(render(&nt))
	if err != nil {
		return fmt.Errorf("slack marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req) //nolint:gosec // webhook URL from trusted config
	if err != nil {
		return fmt.Errorf("slack send: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
		return fmt.Errorf("slack API %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func levelTag(level string) string {
	if level == notifier.LevelWarning {
		return "[WARN]"
	}
	return "[INFO]"
}
