// Package alerting delivers high-severity detection results to external
// sinks. Dispatchers implement detector.AlertDispatcher; the engine only
// invokes them for HIGH and CRITICAL results and never blocks a detection
// on delivery.
package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/galafis/Anomaly-Detection-System/pkg/detector"
	"github.com/galafis/Anomaly-Detection-System/pkg/logger"
)

// LogDispatcher writes alerts to the structured log. It is the fallback sink
// when no webhook is configured.
type LogDispatcher struct {
	log *logger.Logger
}

func NewLogDispatcher(log *logger.Logger) *LogDispatcher {
	if log == nil {
		log = logger.Nop()
	}
	return &LogDispatcher{log: log.WithField("component", "alerting")}
}

func (d *LogDispatcher) Notify(_ context.Context, result *detector.AnomalyResult) error {
	d.log.Warn("ALERT [%s] %s (id=%s algorithm=%s confidence=%.3f)",
		result.AlertLevel, result.Description, result.ID, result.Algorithm, result.Confidence)
	return nil
}

// WebhookDispatcher POSTs an alert payload as JSON to a configured URL.
type WebhookDispatcher struct {
	url    string
	client *http.Client
}

// webhookPayload is the wire shape of an outbound alert. The feature vector
// is omitted: payloads stay small and the full vector remains queryable by
// result ID.
type webhookPayload struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Algorithm   string    `json:"algorithm"`
	AlertLevel  string    `json:"alert_level"`
	Confidence  float64   `json:"confidence"`
	Score       float64   `json:"anomaly_score"`
	Description string    `json:"description"`
}

func NewWebhookDispatcher(url string, timeout time.Duration) *WebhookDispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookDispatcher{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (d *WebhookDispatcher) Notify(ctx context.Context, result *detector.AnomalyResult) error {
	payload := webhookPayload{
		ID:          result.ID.String(),
		Timestamp:   result.Timestamp,
		Algorithm:   string(result.Algorithm),
		AlertLevel:  string(result.AlertLevel),
		Confidence:  result.Confidence,
		Score:       result.AnomalyScore,
		Description: result.Description,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding alert payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("delivering alert webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("alert webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// Throttled wraps a dispatcher with a rate limit. Alerts beyond the limit are
// dropped rather than queued, so a detection storm cannot build an unbounded
// backlog of notifications.
type Throttled struct {
	next    detector.AlertDispatcher
	limiter *rate.Limiter
	log     *logger.Logger
}

func NewThrottled(next detector.AlertDispatcher, maxPerMinute int, log *logger.Logger) *Throttled {
	if log == nil {
		log = logger.Nop()
	}
	if maxPerMinute <= 0 {
		maxPerMinute = 60
	}
	return &Throttled{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(float64(maxPerMinute)/60.0), maxPerMinute),
		log:     log.WithField("component", "alerting"),
	}
}

func (t *Throttled) Notify(ctx context.Context, result *detector.AnomalyResult) error {
	if !t.limiter.Allow() {
		t.log.Warn("alert rate limit exceeded, dropping notification for %s", result.ID)
		return nil
	}
	return t.next.Notify(ctx, result)
}
