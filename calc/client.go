package calc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jpillora/backoff"
	"golang.org/x/time/rate"

	"github.com/itqwq/stockviz/model"
	"github.com/itqwq/stockviz/tools/log"
)

// CalculatePath is the route of the calculation service.
const CalculatePath = "/api/calculate"

// Client calls a remote calculation service. Transport errors and 5xx answers are retried with
// exponential backoff.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	retries    int
	minBackoff time.Duration
	maxBackoff time.Duration
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithRateLimit caps the requests per second sent to the service.
func WithRateLimit(limit rate.Limit, burst int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(limit, burst)
	}
}

// WithRetries sets how many times a failed call is retried.
func WithRetries(retries int) ClientOption {
	return func(c *Client) {
		c.retries = retries
	}
}

// WithBackoff sets the bounds of the wait between retries.
func WithBackoff(min, max time.Duration) ClientOption {
	return func(c *Client) {
		c.minBackoff = min
		c.maxBackoff = max
	}
}

// NewClient calls the calculation service at baseURL.
func NewClient(baseURL string, options ...ClientOption) *Client {
	client := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(10), 10),
		retries:    3,
		minBackoff: 100 * time.Millisecond,
		maxBackoff: time.Second,
	}
	for _, option := range options {
		option(client)
	}
	return client
}

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

func readError(body io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(body, 4096))
	var response errorResponse
	if err := json.Unmarshal(data, &response); err == nil {
		if response.Error != "" {
			return response.Error
		}
		if response.Detail != "" {
			return response.Detail
		}
	}
	return strings.TrimSpace(string(data))
}

// Calculate posts request and decodes the report, retrying transport errors and 5xx answers.
func (c *Client) Calculate(ctx context.Context, request model.Request) (model.Report, error) {
	payload, err := json.Marshal(request)
	if err != nil {
		return model.Report{}, err
	}

	ba := &backoff.Backoff{
		Min: c.minBackoff,
		Max: c.maxBackoff,
	}

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			wait := ba.Duration()
			log.WithFields(log.Fields{
				"attempt": attempt,
				"wait":    wait,
			}).WithError(lastErr).Warn("calc: retrying calculation request")

			select {
			case <-ctx.Done():
				return model.Report{}, ctx.Err()
			case <-time.After(wait):
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return model.Report{}, err
		}

		report, retry, err := c.do(ctx, payload)
		if err == nil {
			return report, nil
		}
		if !retry {
			return model.Report{}, err
		}
		lastErr = err
	}

	return model.Report{}, fmt.Errorf("%w: %s", ErrUpstream, lastErr)
}

func (c *Client) do(ctx context.Context, payload []byte) (model.Report, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+CalculatePath, bytes.NewReader(payload))
	if err != nil {
		return model.Report{}, false, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return model.Report{}, false, ctx.Err()
		}
		return model.Report{}, true, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var report model.Report
		if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
			return model.Report{}, false, fmt.Errorf("%w: invalid response: %s", ErrUpstream, err)
		}
		return report, false, nil
	case resp.StatusCode == http.StatusNotFound:
		return model.Report{}, false, fmt.Errorf("%w: %s", ErrUnknownTicker, readError(resp.Body))
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		return model.Report{}, false, fmt.Errorf("%w: %s", ErrInvalidRequest, readError(resp.Body))
	case resp.StatusCode >= http.StatusInternalServerError:
		return model.Report{}, true, fmt.Errorf("status %d: %s", resp.StatusCode, readError(resp.Body))
	default:
		return model.Report{}, false, fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, readError(resp.Body))
	}
}
