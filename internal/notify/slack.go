package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

type Slack struct {
	enabled bool
	webhook string
	client  *http.Client
}

func NewSlack(enabled bool, webhook string) *Slack {
	return &Slack{enabled: enabled, webhook: webhook, client: &http.Client{Timeout: 10 * time.Second}}
}

// Send posts text to the webhook. A disabled notifier is a no-op.
func (s *Slack) Send(ctx context.Context, text string) error {
	if s == nil || !s.enabled || s.webhook == "" {
		return nil
	}
	body, _ := json.Marshal(map[string]string{"text": text})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhook, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("slack post: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("slack post: status %d", resp.StatusCode)
	}
	return nil
}

// Format renders the summary of a train-local run triggered outside HTTP.
func Format(trigger, folder string, loaded, skipped, samples, features int, steps []string, err error) string {
	if err != nil {
		return fmt.Sprintf(":x: *train-local* `%s` (%s) failed: %s", folder, trigger, err)
	}
	return fmt.Sprintf(":white_check_mark: *train-local* `%s` (%s) files=%d skipped=%d samples=%d features=%d steps=%s",
		folder, trigger, loaded, skipped, samples, features, strings.Join(steps, ","))
}
