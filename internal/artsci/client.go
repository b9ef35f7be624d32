// Package artsci is a read-only client for the Arts and Science timetable
// API. It discovers the current academic session by scraping the landing
// page and crawls the organisation and course endpoints.
package artsci

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/sqrlplanner/timetable-sync/pkg/errors"
)

// Browser-parity headers sent with every request. The API is only meant to
// be consumed by the timetable search widget, so requests emulate a Gecko
// client.
var defaultHeaders = map[string]string{
	"Access-Control-Allow-Origin":  "*",
	"Access-Control-Allow-Methods": "GET",
	"Access-Control-Allow-Headers": "Content-Type",
	"Access-Control-Max-Age":       "3600",
	"User-Agent":                   "Mozilla/5.0 (X11; Ubuntu; Linux x86_64; rv:52.0) Gecko/20100101 Firefox/52.0",
}

// ClientConfig configures the remote client.
type ClientConfig struct {
	RootURL       string
	Timeout       time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	ProbeCourse   string
	CrawlWorkers  int
	Logger        *zap.Logger
}

// Client talks to the timetable source over HTTP GET.
type Client struct {
	rootURL       string
	apiURL        string
	http          *http.Client
	retryAttempts int
	retryDelay    time.Duration
	probeCourse   string
	crawlWorkers  int
	logger        *zap.Logger
}

// NewClient constructs a Client with sane defaults.
func NewClient(cfg ClientConfig) *Client {
	if cfg.RootURL == "" {
		cfg.RootURL = "https://timetable.iit.artsci.utoronto.ca"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 1
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.ProbeCourse == "" {
		cfg.ProbeCourse = "MAT137"
	}
	if cfg.CrawlWorkers <= 0 {
		cfg.CrawlWorkers = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Client{
		rootURL:       cfg.RootURL,
		apiURL:        cfg.RootURL + "/api",
		http:          &http.Client{Timeout: cfg.Timeout},
		retryAttempts: cfg.RetryAttempts,
		retryDelay:    cfg.RetryDelay,
		probeCourse:   cfg.ProbeCourse,
		crawlWorkers:  cfg.CrawlWorkers,
		logger:        cfg.Logger,
	}
}

// get issues a GET request with browser-parity headers, retrying transient
// failures (network errors and 5xx responses) before giving up. The source
// is a third-party dependency, so a failed attempt is not immediately fatal.
func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= c.retryAttempts; attempt++ {
		if attempt > 1 {
			timer := time.NewTimer(c.retryDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
			c.logger.Sugar().Warnw("retrying request", "url", url, "attempt", attempt, "error", lastErr)
		}

		body, retryable, err := c.getOnce(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retryable {
			break
		}
	}
	return nil, lastErr
}

func (c *Client) getOnce(ctx context.Context, url string) (body []byte, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, err
	}
	for key, value := range defaultHeaders {
		req.Header.Set(key, value)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, true, fmt.Errorf("get %s: status %d", url, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("get %s: status %d", url, resp.StatusCode)
	}

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("read %s: %w", url, err)
	}
	return body, false, nil
}

// getJSON fetches url and decodes the response body into out.
func (c *Client) getJSON(ctx context.Context, url string, out interface{}) error {
	body, err := c.get(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return apperrors.Wrap(err, apperrors.ErrSourceUnavailable.Code, apperrors.ErrSourceUnavailable.Status,
			fmt.Sprintf("malformed response from %s", url))
	}
	return nil
}
