package driver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/datazip-inc/olake-intercom/constants"
	"github.com/datazip-inc/olake-intercom/utils/logger"
	"github.com/goccy/go-json"
	"golang.org/x/time/rate"
)

const retryInitialInterval = 3 * time.Second

// Client sends authenticated, throttled and retried requests to the Intercom API
type Client struct {
	http      *http.Client
	baseURL   string
	token     string
	userAgent string
	limiter   *rate.Limiter
	retries   int
	interval  time.Duration
}

func NewClient(config *Config) *Client {
	perRequest := constants.RateLimitWindow / time.Duration(config.RateLimit)
	return &Client{
		http:      &http.Client{Timeout: config.Timeout()},
		baseURL:   config.BaseURL,
		token:     config.AccessToken,
		userAgent: config.UserAgent,
		limiter:   rate.NewLimiter(rate.Every(perRequest), config.RateLimit),
		retries:   constants.DefaultRetryCount,
		interval:  retryInitialInterval,
	}
}

func (c *Client) Get(ctx context.Context, path string, params url.Values) (map[string]any, error) {
	return c.request(ctx, http.MethodGet, path, params, nil)
}

func (c *Client) Post(ctx context.Context, path string, body map[string]any) (map[string]any, error) {
	return c.request(ctx, http.MethodPost, path, nil, body)
}

func (c *Client) request(ctx context.Context, method, path string, params url.Values, body map[string]any) (map[string]any, error) {
	endpoint, err := c.resolve(path, params)
	if err != nil {
		return nil, err
	}

	var payload []byte
	if body != nil {
		if payload, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %s", err)
		}
	}

	var result map[string]any
	attempt := 0
	operation := func() error {
		attempt++
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		var err error
		result, err = c.send(ctx, method, endpoint, payload)
		if err == nil {
			return nil
		}

		if errors.Is(err, constants.ErrNonRetryable) {
			return backoff.Permanent(err)
		}
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		if attempt < c.retries {
			logger.Warnf("retry attempt[%d] for %s %s due to err: %s", attempt, method, path, err)
		}
		return err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.interval
	policy.Multiplier = 2
	policy.RandomizationFactor = 0
	policy.MaxElapsedTime = 0

	err = backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, uint64(max(0, c.retries-1))), ctx))
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) send(ctx context.Context, method, endpoint string, payload []byte) (map[string]any, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to build request: %s", err))
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Intercom-Version", constants.APIVersion)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// connection errors and timeouts
		return nil, fmt.Errorf("request failed: %s", err)
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %s", err)
	}

	if resp.StatusCode != http.StatusOK {
		httpErr := newHTTPError(resp.StatusCode, content)
		logger.Errorf("%s %s responded: %s", method, req.URL.Path, httpErr)
		return nil, httpErr
	}

	if len(bytes.TrimSpace(content)) == 0 {
		return nil, newBadResponse(resp.StatusCode, "empty response body")
	}

	var decoded map[string]any
	if err := json.Unmarshal(content, &decoded); err != nil {
		return nil, newBadResponse(resp.StatusCode, fmt.Sprintf("failed to decode response: %s", err))
	}
	return decoded, nil
}

// resolve joins path to the base url; absolute urls are used as they are
func (c *Client) resolve(path string, params url.Values) (string, error) {
	endpoint := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		endpoint = fmt.Sprintf("%s/%s", c.baseURL, strings.TrimPrefix(path, "/"))
	}

	parsed, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid request url[%s]: %s", endpoint, err)
	}

	if len(params) > 0 {
		query := parsed.Query()
		for key, values := range params {
			query[key] = values
		}
		parsed.RawQuery = query.Encode()
	}
	return parsed.String(), nil
}
