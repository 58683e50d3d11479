package simd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/msdbook/msdsim/internal/fishery"
	"github.com/msdbook/msdsim/pkg/logger"
	"github.com/msdbook/msdsim/pkg/models"
	"github.com/msdbook/msdsim/pkg/utils"
)

// CallbackSecretHeader carries the per-run callback secret.
const CallbackSecretHeader = "X-Fishery-Callback-Secret"

// NotificationPayload is the JSON body posted to a run's callback URL
type NotificationPayload struct {
	Run        *models.Run         `json:"run"`
	Objectives *fishery.Objectives `json:"objectives,omitempty"`
	Timestamp  time.Time           `json:"timestamp"`
}

// Notifier posts terminal run states to callback URLs
type Notifier struct {
	httpClient *http.Client
	maxRetries int
	backoff    utils.BackoffStrategy
}

// NewNotifier creates a notifier with three retries and exponential backoff
func NewNotifier() *Notifier {
	return &Notifier{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		maxRetries: 3,
		backoff:    utils.NewExponentialBackoff(time.Second, 30*time.Second, 2),
	}
}

// Notify sends the run state to callbackURL in the background and returns
// immediately. "{run_id}" in the URL is replaced by the run ID.
func (n *Notifier) Notify(callbackURL, callbackSecret string, rec *RunRecord) {
	if callbackURL == "" {
		return
	}
	if rec == nil || rec.Run == nil {
		logger.Warn("cannot notify: invalid run record", "callback_url", callbackURL)
		return
	}

	payload := NotificationPayload{
		Run:       rec.Run,
		Timestamp: time.Now().UTC(),
	}
	if rec.Evaluation != nil {
		objs := rec.Evaluation.Objectives
		payload.Objectives = &objs
	}
	finalURL := strings.ReplaceAll(callbackURL, "{run_id}", rec.Run.ID)

	go func() {
		if err := n.Send(context.Background(), finalURL, callbackSecret, payload); err != nil {
			logger.Error("failed to send notification after retries",
				"callback_url", finalURL,
				"run_id", rec.Run.ID,
				"max_retries", n.maxRetries,
				"error", err)
		}
	}()
}

// Send posts payload, retrying non-2xx responses and transport errors.
func (n *Notifier) Send(ctx context.Context, callbackURL, callbackSecret string, payload NotificationPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= n.maxRetries; attempt++ {
		if attempt > 0 {
			delay := n.backoff.NextDelay(attempt - 1)
			logger.Debug("retrying notification", "callback_url", callbackURL, "attempt", attempt, "delay", delay)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, callbackURL, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", "msdsim-fishd/1.0")
		if callbackSecret != "" {
			req.Header.Set(CallbackSecretHeader, callbackSecret)
		}

		resp, err := n.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("HTTP request failed: %w", err)
			logger.Warn("notification attempt failed", "callback_url", callbackURL, "attempt", attempt+1, "error", err)
			continue
		}
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			logger.Info("notification sent", "callback_url", callbackURL, "status_code", resp.StatusCode)
			return nil
		}
		lastErr = fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		logger.Warn("notification returned non-2xx status",
			"callback_url", callbackURL,
			"status_code", resp.StatusCode,
			"response_body", string(snippet),
			"attempt", attempt+1)
	}
	return lastErr
}
