package rems

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/daisy-gov/daisy/internal/metrics"
)

// RetryPolicy bounds how often a failed request is attempted.
type RetryPolicy struct {
	MaxAttempts int           // total attempts, at least 1
	Delay       time.Duration // fixed wait between attempts
}

// Config holds the REMS API settings.
type Config struct {
	URL        string
	APIKey     string
	User       string // REMS user the API key acts as
	Retry      RetryPolicy
	HTTPClient *http.Client
}

// Client fetches application data from the REMS API.
type Client struct {
	baseURL    string
	apiKey     string
	user       string
	retry      RetryPolicy
	httpClient *http.Client
	metrics    metrics.Recorder
}

type application struct {
	ExternalID string `json:"application/external-id"`
}

// NewClient creates a Client. A nil recorder disables metrics.
func NewClient(cfg Config, rec metrics.Recorder) *Client {
	if rec == nil {
		rec = metrics.Noop{}
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	retry := cfg.Retry
	if retry.MaxAttempts < 1 {
		retry.MaxAttempts = 1
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		user:       cfg.User,
		retry:      retry,
		httpClient: httpClient,
		metrics:    rec,
	}
}

// FetchExternalID returns the external id REMS assigned to an application.
// Every failure counts against the retry policy; the last error is returned
// once attempts are exhausted. An application without an external id yields "".
func (c *Client) FetchExternalID(ctx context.Context, applicationID int64) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		id, err := c.fetchApplication(ctx, applicationID)
		c.metrics.RemsFetchAttempt(err == nil)
		if err == nil {
			return id, nil
		}
		lastErr = err

		slog.Warn("rems: application fetch failed",
			"application", applicationID,
			"attempt", attempt,
			"max_attempts", c.retry.MaxAttempts,
			"error", err,
		)
		if attempt < c.retry.MaxAttempts {
			if waitErr := sleepContext(ctx, c.retry.Delay); waitErr != nil {
				return "", waitErr
			}
		}
	}
	return "", fmt.Errorf("fetching application %d after %d attempts: %w", applicationID, c.retry.MaxAttempts, lastErr)
}

func (c *Client) fetchApplication(ctx context.Context, applicationID int64) (string, error) {
	url := c.baseURL + "/api/applications/" + strconv.FormatInt(applicationID, 10)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-rems-api-key", c.apiKey)
	req.Header.Set("x-rems-user-id", c.user)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("rems returned status %d", resp.StatusCode)
	}

	var app application
	if err := json.NewDecoder(resp.Body).Decode(&app); err != nil {
		return "", fmt.Errorf("decoding application: %w", err)
	}
	return app.ExternalID, nil
}

func sleepContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
