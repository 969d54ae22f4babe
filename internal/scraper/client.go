package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// retryableStatus lists upstream responses worth another attempt.
var retryableStatus = map[int]bool{
	429: true,
	500: true,
	502: true,
	503: true,
	504: true,
}

// ClientConfig controls the fetch client.
type ClientConfig struct {
	UserAgent   string
	Timeout     time.Duration
	MaxRetries  int
	BackoffBase time.Duration
	RequestsPS  float64
}

// Client performs resilient GETs against the VitiBrasil origin. It
// retries transient failures with capped exponential backoff and keeps
// a politeness limiter so concurrent category requests do not hammer
// the origin.
type Client struct {
	cfg       ClientConfig
	collector *colly.Collector
	limiter   *rate.Limiter
	logger    *zap.Logger
}

// NewClient builds a Client with defaults filled in.
func NewClient(cfg ClientConfig, logger *zap.Logger) *Client {
	if cfg.UserAgent == "" {
		cfg.UserAgent = "vitibrasil-api/1.0 (+academic data collection)"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 500 * time.Millisecond
	}
	limit := rate.Limit(cfg.RequestsPS)
	if cfg.RequestsPS <= 0 {
		limit = rate.Inf
	}

	c := colly.NewCollector(colly.Async(false))
	c.UserAgent = cfg.UserAgent
	c.IgnoreRobotsTxt = true
	c.SetRequestTimeout(cfg.Timeout)
	c.AllowURLRevisit = true

	return &Client{
		cfg:       cfg,
		collector: c,
		limiter:   rate.NewLimiter(limit, 1),
		logger:    logger,
	}
}

// Fetch GETs the URL with the given query parameters and returns the
// page HTML. Failures come back as *FetchError so callers can degrade
// to the fallback store without inspecting transport details.
func (c *Client) Fetch(ctx context.Context, rawURL string, params url.Values) (string, error) {
	target := rawURL
	if len(params) > 0 {
		target = rawURL + "?" + params.Encode()
	}

	var lastErr *FetchError
	for attempt := 0; attempt < c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := c.cfg.BackoffBase * (1 << (attempt - 1))
			c.logger.Debug("retrying fetch",
				zap.String("url", target),
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", delay),
			)
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return "", &FetchError{Kind: FetchErrTimeout, URL: target, Err: ctx.Err()}
			case <-timer.C:
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return "", &FetchError{Kind: FetchErrTimeout, URL: target, Err: err}
		}

		body, fetchErr := c.fetchOnce(target)
		if fetchErr == nil {
			return body, nil
		}
		lastErr = fetchErr
		if !retryable(fetchErr) {
			break
		}
	}
	return "", lastErr
}

func (c *Client) fetchOnce(target string) (string, *FetchError) {
	var (
		body     []byte
		status   int
		visitErr error
	)

	collector := c.collector.Clone()
	collector.UserAgent = c.cfg.UserAgent
	collector.SetRequestTimeout(c.cfg.Timeout)
	collector.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = r.Body
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
		visitErr = err
	})

	if err := collector.Visit(target); err != nil {
		visitErr = err
	}
	collector.Wait()

	switch {
	case visitErr != nil && status >= 400:
		return "", &FetchError{Kind: FetchErrStatus, URL: target, StatusCode: status, Err: visitErr}
	case visitErr != nil:
		return "", classifyTransportError(target, visitErr)
	case status >= 400:
		return "", &FetchError{Kind: FetchErrStatus, URL: target, StatusCode: status}
	case len(body) == 0:
		return "", &FetchError{Kind: FetchErrNetwork, URL: target, Err: errors.New("empty response body")}
	}
	return string(body), nil
}

func classifyTransportError(target string, err error) *FetchError {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &FetchError{Kind: FetchErrTimeout, URL: target, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &FetchError{Kind: FetchErrTimeout, URL: target, Err: err}
	}
	return &FetchError{Kind: FetchErrNetwork, URL: target, Err: fmt.Errorf("transport: %w", err)}
}

func retryable(err *FetchError) bool {
	switch err.Kind {
	case FetchErrStatus:
		return retryableStatus[err.StatusCode]
	case FetchErrNetwork, FetchErrTimeout:
		return true
	}
	return false
}
