package alerting

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galafis/Anomaly-Detection-System/pkg/detector"
	"github.com/galafis/Anomaly-Detection-System/pkg/logger"
)

func sampleResult() *detector.AnomalyResult {
	return &detector.AnomalyResult{
		ID:           uuid.New(),
		Timestamp:    time.Now().UTC(),
		Algorithm:    detector.AlgorithmEnsemble,
		IsAnomaly:    true,
		Confidence:   0.93,
		AnomalyScore: -0.41,
		Features:     []float64{1, 2, 3},
		AlertLevel:   detector.AlertCritical,
		Description:  "Ensemble detection: 2/2 algorithms detected anomaly",
	}
}

func TestLogDispatcher(t *testing.T) {
	d := NewLogDispatcher(logger.Nop())
	assert.NoError(t, d.Notify(context.Background(), sampleResult()))
}

func TestWebhookDispatcherDelivers(t *testing.T) {
	var received webhookPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	result := sampleResult()
	d := NewWebhookDispatcher(server.URL, time.Second)
	require.NoError(t, d.Notify(context.Background(), result))

	assert.Equal(t, result.ID.String(), received.ID)
	assert.Equal(t, "critical", received.AlertLevel)
	assert.Equal(t, result.Confidence, received.Confidence)
	assert.Equal(t, result.Description, received.Description)
}

func TestWebhookDispatcherRejectedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	d := NewWebhookDispatcher(server.URL, time.Second)
	assert.Error(t, d.Notify(context.Background(), sampleResult()))
}

func TestWebhookDispatcherUnreachable(t *testing.T) {
	d := NewWebhookDispatcher("http://127.0.0.1:1", 100*time.Millisecond)
	assert.Error(t, d.Notify(context.Background(), sampleResult()))
}

type countingDispatcher struct {
	mu    sync.Mutex
	calls int
}

func (d *countingDispatcher) Notify(context.Context, *detector.AnomalyResult) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	return nil
}

func TestThrottledDropsBeyondBurst(t *testing.T) {
	inner := &countingDispatcher{}
	throttled := NewThrottled(inner, 2, logger.Nop())

	// Burst of 2 passes; the rest are dropped without error.
	for i := 0; i < 10; i++ {
		assert.NoError(t, throttled.Notify(context.Background(), sampleResult()))
	}

	inner.mu.Lock()
	defer inner.mu.Unlock()
	assert.Equal(t, 2, inner.calls)
}
