package substack

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/OrelsProjects/articles-generator-sub002/internal/config"
	"github.com/OrelsProjects/articles-generator-sub002/internal/logging"
	"github.com/OrelsProjects/articles-generator-sub002/internal/metrics"
	"golang.org/x/time/rate"
)

// Client talks to the upstream platform's reader API. All calls are
// read-only GETs; transient failures are retried with a fixed delay and
// surface as errors the caller treats as "no data this round".
type Client struct {
	baseURL     string
	cookie      string
	httpClient  *http.Client
	limiter     *rate.Limiter
	maxAttempts int
	backoff     time.Duration
	log         logging.Logger
}

// Default retry policy for endpoints that do not override it.
const (
	defaultMaxAttempts = 3
	defaultBackoff     = 500 * time.Millisecond
)

func NewClient(cfg config.UpstreamConfig) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = "https://substack.com/api/v1"
	}
	return &Client{
		baseURL:     base,
		cookie:      cfg.Cookie,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		limiter:     newLimiter(cfg.RPS, cfg.Burst),
		maxAttempts: defaultMaxAttempts,
		backoff:     defaultBackoff,
		log:         logging.For("substack"),
	}
}

func (c *Client) auth(req *http.Request) {
	if c.cookie != "" {
		req.Header.Set("Cookie", c.cookie)
	}
	req.Header.Set("Accept", "application/json")
}

// fetchJSON GETs url and decodes the body into out. It retries network
// errors, 429s and 5xx responses up to maxAttempts times with a fixed
// backoff. There is no circuit breaker: every call site retries the same way.
func (c *Client) fetchJSON(ctx context.Context, endpoint, url string, maxAttempts int, backoff time.Duration, out any) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			metrics.APIRetries.WithLabelValues(endpoint).Inc()
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		c.auth(req)
		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("upstream status %d", resp.StatusCode)
			continue
		}
		if resp.StatusCode >= 400 {
			_ = resp.Body.Close()
			metrics.APIFailures.WithLabelValues(endpoint).Inc()
			return fmt.Errorf("upstream status %d", resp.StatusCode)
		}
		err = json.NewDecoder(resp.Body).Decode(out)
		_ = resp.Body.Close()
		if err != nil {
			metrics.APIFailures.WithLabelValues(endpoint).Inc()
			return fmt.Errorf("decode %s: %w", endpoint, err)
		}
		return nil
	}
	metrics.APIFailures.WithLabelValues(endpoint).Inc()
	return fmt.Errorf("%s failed after %d attempts: %w", endpoint, maxAttempts, lastErr)
}
