// Package notify posts operator notifications to a configured webhook.
// Delivery is best effort; billing never depends on it.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type Webhook struct {
	url    string
	client *http.Client
}

func NewWebhook(url string) *Webhook {
	return &Webhook{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Enabled reports whether a webhook URL is configured.
func (w *Webhook) Enabled() bool {
	return w != nil && w.url != ""
}

// SendLowBalance notifies that a charge left an account under the threshold.
func (w *Webhook) SendLowBalance(ctx context.Context, userID, totalCredits int64) error {
	if !w.Enabled() {
		return nil
	}
	return w.send(ctx, map[string]interface{}{
		"event":         "low_balance",
		"user_id":       userID,
		"total_credits": totalCredits,
	})
}

func (w *Webhook) send(ctx context.Context, payload map[string]interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
