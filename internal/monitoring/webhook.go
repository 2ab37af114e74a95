package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/bid-cli/internal/config"
	"github.com/sells-group/bid-cli/internal/resilience"
)

// WebhookNotifier queues events and posts them as JSON to an alerting
// webhook from a background worker started with Run.
type WebhookNotifier struct {
	url     string
	client  *http.Client
	queue   chan Event
	limiter *rate.Limiter
	retry   resilience.RetryConfig
	breaker *resilience.Breaker
}

// NewWebhookNotifier creates a notifier for cfg.WebhookURL. Returns nil when
// no URL is configured.
func NewWebhookNotifier(cfg config.NotifyConfig) *WebhookNotifier {
	if cfg.WebhookURL == "" {
		return nil
	}

	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 256
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}

	retry := resilience.DefaultRetryConfig()
	if cfg.MaxAttempts > 0 {
		retry.MaxAttempts = cfg.MaxAttempts
	}

	breaker := resilience.NewBreakerConfig(cfg.BreakerThreshold, cfg.BreakerResetSecs)
	breaker.OnStateChange = func(from, to resilience.CircuitState) {
		zap.L().Warn("monitoring: webhook circuit state changed",
			zap.Stringer("from", from),
			zap.Stringer("to", to),
		)
	}

	return &WebhookNotifier{
		url:     cfg.WebhookURL,
		client:  &http.Client{Timeout: timeout},
		queue:   make(chan Event, queueSize),
		limiter: rate.NewLimiter(limit, 1),
		retry:   retry,
		breaker: resilience.NewBreaker(breaker),
	}
}

// Notify enqueues ev. When the queue is full the event is dropped and logged.
func (w *WebhookNotifier) Notify(ev Event) {
	select {
	case w.queue <- ev:
	default:
		zap.L().Warn("monitoring: webhook queue full, dropping event",
			zap.String("kind", string(ev.Kind)),
		)
	}
}

// Run delivers queued events until ctx is done, then drains what is left
// with a short grace period. Returns the number of events delivered.
func (w *WebhookNotifier) Run(ctx context.Context) int {
	sent := 0
	for {
		select {
		case ev := <-w.queue:
			if w.deliver(ctx, ev) {
				sent++
			}
		case <-ctx.Done():
			return sent + w.drain()
		}
	}
}

func (w *WebhookNotifier) drain() int {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return w.Flush(ctx)
}

// Flush delivers whatever is queued right now and returns the number of
// events delivered. Short-lived commands call it before exiting since they
// never start Run.
func (w *WebhookNotifier) Flush(ctx context.Context) int {
	sent := 0
	for {
		select {
		case ev := <-w.queue:
			if w.deliver(ctx, ev) {
				sent++
			}
		default:
			return sent
		}
	}
}

func (w *WebhookNotifier) deliver(ctx context.Context, ev Event) bool {
	if err := w.limiter.Wait(ctx); err != nil {
		return false
	}

	err := w.breaker.Call(func() error {
		return resilience.Do(ctx, w.retry, func(ctx context.Context) error {
			return w.post(ctx, ev)
		})
	})
	if err != nil {
		zap.L().Error("monitoring: failed to deliver event",
			zap.String("kind", string(ev.Kind)),
			zap.Error(err),
		)
		return false
	}
	zap.L().Debug("monitoring: event delivered", zap.String("kind", string(ev.Kind)))
	return true
}

// post sends a single event to the webhook URL.
func (w *WebhookNotifier) post(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal event")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resilience.IsTransientHTTPStatus(resp.StatusCode) {
		return resilience.NewTransientError(
			eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode), resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
