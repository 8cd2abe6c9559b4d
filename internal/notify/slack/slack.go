// Package slack posts flagged triage decisions to a Slack channel via an
// incoming webhook so a senior clinician can review them.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/linnemanlabs/mediguard/internal/triage"
)

const (
	maxTextLen  = 2000
	httpTimeout = 10 * time.Second
)

// Notifier sends flagged decisions to a Slack webhook.
type Notifier struct {
	webhookURL string
	client     *http.Client
}

// New creates a new Slack notifier. If webhookURL is empty, Notify is a no-op.
func New(webhookURL string) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: httpTimeout},
	}
}

// Notify posts a review request for d to the configured webhook.
func (n *Notifier) Notify(ctx context.Context, d *triage.Decision) error {
	if n.webhookURL == "" {
		return nil
	}

	body, err := json.Marshal(buildMessage(d))
	if err != nil {
		return fmt.Errorf("slack: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req) //nolint:gosec // G704: webhookURL is from trusted config, not user input
	if err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack: webhook returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func buildMessage(d *triage.Decision) map[string]any {
	return map[string]any{
		"text": fmt.Sprintf("Triage review needed: %s (%s)", d.PatientID, d.Class),
		"blocks": []map[string]any{
			headerBlock(d),
			fieldsBlock(d),
			{"type": "divider"},
			textBlock("Explanation", d.Explanation),
			textBlock("Symptoms", d.Symptoms),
			contextBlock(d),
		},
	}
}

func headerBlock(d *triage.Decision) map[string]any {
	return map[string]any{
		"type": "header",
		"text": map[string]any{
			"type": "plain_text",
			"text": fmt.Sprintf("%s Review needed: %s %s", classEmoji(d.Class), d.Class, d.PatientID),
		},
	}
}

func fieldsBlock(d *triage.Decision) map[string]any {
	v := d.Vitals
	fields := []map[string]any{
		{"type": "mrkdwn", "text": fmt.Sprintf("*Patient:* %s", d.PatientID)},
		{"type": "mrkdwn", "text": fmt.Sprintf("*Class:* %s", d.Class)},
		{"type": "mrkdwn", "text": fmt.Sprintf("*Confidence:* %.0f%%", d.Confidence*100)},
		{"type": "mrkdwn", "text": fmt.Sprintf("*BP:* %d/%d", v.BPSystolic, v.BPDiastolic)},
		{"type": "mrkdwn", "text": fmt.Sprintf("*HR:* %d  *SpO2:* %d%%", v.HeartRate, v.SpO2)},
		{"type": "mrkdwn", "text": fmt.Sprintf("*Temp:* %.1f  *Pain:* %d/10", v.Temperature, v.PainScore)},
	}
	return map[string]any{
		"type":   "section",
		"fields": fields,
	}
}

func textBlock(title, s string) map[string]any {
	text := truncate(s, maxTextLen)
	if text == "" {
		text = "_none recorded_"
	}
	return map[string]any{
		"type": "section",
		"text": map[string]any{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*%s*\n%s", title, text),
		},
	}
}

func contextBlock(d *triage.Decision) map[string]any {
	model := d.ModelVersion
	if model == "" {
		model = "unknown"
	}
	return map[string]any{
		"type": "context",
		"elements": []map[string]any{
			{
				"type": "mrkdwn",
				"text": fmt.Sprintf("mediguard • decision %s • model %s • %s", d.ID, model, d.CreatedAt.UTC().Format("2006-01-02 15:04 UTC")),
			},
		},
	}
}

func classEmoji(c triage.Class) string {
	switch c {
	case triage.ClassEmergent:
		return "\U0001f534" // red circle
	case triage.ClassUrgent:
		return "\U0001f7e1" // yellow circle
	default:
		return "\U0001f7e2" // green circle
	}
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
