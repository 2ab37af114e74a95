package fetcher

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/bid-cli/internal/resilience"
)

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent string
	Timeout   time.Duration
	Retry     *resilience.RetryConfig
	Limiter   *rate.Limiter
}

// HTTPFetcher downloads over HTTP with retry on transient failures.
type HTTPFetcher struct {
	client  *http.Client
	opts    HTTPOptions
	retry   resilience.RetryConfig
	limiter *rate.Limiter
}

// NewHTTPFetcher creates a new HTTPFetcher with the given options.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "bid-cli/1.0"
	}
	retry := resilience.DefaultRetryConfig()
	if opts.Retry != nil {
		retry = *opts.Retry
	}
	limiter := opts.Limiter
	if limiter == nil {
		limiter = rate.NewLimiter(5, 5)
	}
	return &HTTPFetcher{
		client:  &http.Client{Timeout: opts.Timeout},
		opts:    opts,
		retry:   retry,
		limiter: limiter,
	}
}

// Download fetches the URL and returns the response body. 5xx and 429
// responses are retried; any other non-200 status fails immediately.
func (f *HTTPFetcher) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)

	var body io.ReadCloser
	err = resilience.Do(ctx, f.retry, func(ctx context.Context) error {
		if err := f.limiter.Wait(ctx); err != nil {
			return eris.Wrap(err, "rate limiter wait")
		}

		resp, err := f.client.Do(req.Clone(ctx))
		if err != nil {
			return resilience.NewTransientError(eris.Wrap(err, "http request"), 0)
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			body = resp.Body
			return nil
		case resilience.IsTransientHTTPStatus(resp.StatusCode):
			_ = resp.Body.Close()
			zap.L().Warn("http: transient status, retrying",
				zap.String("url", rawURL),
				zap.Int("status", resp.StatusCode),
			)
			return resilience.NewTransientError(
				eris.Errorf("http %d from %s", resp.StatusCode, rawURL), resp.StatusCode)
		default:
			_ = resp.Body.Close()
			return eris.Errorf("download: unexpected status %d from %s", resp.StatusCode, rawURL)
		}
	})
	if err != nil {
		return nil, eris.Wrap(err, "download")
	}
	return body, nil
}
