package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/bid-cli/internal/config"
	"github.com/sells-group/bid-cli/internal/resilience"
)

func TestNewWebhookNotifier_NoURL(t *testing.T) {
	t.Parallel()
	assert.Nil(t, NewWebhookNotifier(config.NotifyConfig{}))
}

func TestWebhookNotifier_DeliversQueuedEvents(t *testing.T) {
	t.Parallel()

	var received atomic.Int32
	var lastKind atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var ev Event
		if err := json.NewDecoder(r.Body).Decode(&ev); err == nil {
			lastKind.Store(string(ev.Kind))
		}
		received.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	w := NewWebhookNotifier(config.NotifyConfig{WebhookURL: srv.URL})
	require.NotNil(t, w)

	w.Notify(NewEvent(EventAssemblyNotFound, "estimate.add_assembly", "Assembly ASM-X not found."))
	w.Notify(NewEvent(EventBidWon, "archive.append", "Bid won."))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan int, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return received.Load() == 2 }, 2*time.Second, 10*time.Millisecond)
	cancel()

	assert.Equal(t, 2, <-done)
	assert.Equal(t, string(EventBidWon), lastKind.Load())
}

func TestWebhookNotifier_RetriesTransientStatus(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	w := NewWebhookNotifier(config.NotifyConfig{WebhookURL: srv.URL, MaxAttempts: 3})
	w.retry.InitialBackoff = time.Millisecond
	w.retry.JitterFraction = 0

	ok := w.deliver(context.Background(), NewEvent(EventPriceUpdate, "pricing", "adder changed"))
	assert.True(t, ok)
	assert.Equal(t, int32(2), calls.Load())
}

func TestWebhookNotifier_PermanentFailure(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	w := NewWebhookNotifier(config.NotifyConfig{WebhookURL: srv.URL})
	ok := w.deliver(context.Background(), NewEvent(EventInvalidQuantity, "estimate", "bad qty"))
	assert.False(t, ok)
	assert.Equal(t, int32(1), calls.Load())
}

func TestWebhookNotifier_QueueFullDrops(t *testing.T) {
	t.Parallel()

	w := NewWebhookNotifier(config.NotifyConfig{WebhookURL: "http://127.0.0.1:0", QueueSize: 1})
	w.Notify(NewEvent(EventBidWon, "a", "first"))
	w.Notify(NewEvent(EventBidWon, "b", "second"))
	assert.Len(t, w.queue, 1)
}

func TestWebhookNotifier_BreakerStopsDelivery(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	w := NewWebhookNotifier(config.NotifyConfig{WebhookURL: srv.URL, BreakerThreshold: 2, BreakerResetSecs: 60})
	for range 4 {
		assert.False(t, w.deliver(context.Background(), NewEvent(EventBidWon, "archive.append", "Bid won.")))
	}
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, resilience.CircuitOpen, w.breaker.State())
}

func TestWebhookNotifier_FlushWithoutRun(t *testing.T) {
	t.Parallel()

	var received atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		received.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	w := NewWebhookNotifier(config.NotifyConfig{WebhookURL: srv.URL})
	require.NotNil(t, w)

	w.Notify(NewEvent(EventPriceUpdate, "pricing.sync", "Prices updated."))
	w.Notify(NewEvent(EventBidWon, "archive.append", "Bid won."))

	assert.Equal(t, 2, w.Flush(context.Background()))
	assert.Equal(t, int32(2), received.Load())
	assert.Zero(t, w.Flush(context.Background()))
}
