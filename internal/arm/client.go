package arm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Azure/cosmos-explorer-sub010/internal/metrics"
)

const (
	defaultTimeout          = 120 * time.Second
	maxRetriesOnThrottle    = 5
	maxErrorBodySize        = 1 << 20 // 1 MiB
	defaultEndpoint         = "https://management.azure.com"
	DefaultAccountAPIVer    = "2024-12-01-preview"
	DataTransferAPIVersion  = "2025-05-01-preview"
	defaultOperationPolling = 2 * time.Second
	userAgent               = "copyjobctl"
)

type Options struct {
	HTTPClient        *http.Client
	Endpoint          string
	APIVersion        string
	OperationInterval time.Duration
	// MaxRetries bounds retries of throttled requests; zero uses the default.
	MaxRetries int
}

// Client talks to the Azure Resource Manager endpoints used by the copy-job panel.
type Client struct {
	tokens TokenProvider

	http              *http.Client
	endpoint          string
	apiVersion        string
	operationInterval time.Duration
	maxRetries        int
}

func New(tokens TokenProvider) (*Client, error) {
	return NewWithOptions(tokens, Options{})
}

func NewWithOptions(tokens TokenProvider, opts Options) (*Client, error) {
	if tokens == nil {
		return nil, errors.New("arm token provider is required")
	}

	endpoint := strings.TrimRight(strings.TrimSpace(opts.Endpoint), "/")
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	apiVersion := strings.TrimSpace(opts.APIVersion)
	if apiVersion == "" {
		apiVersion = DefaultAccountAPIVer
	}
	interval := opts.OperationInterval
	if interval <= 0 {
		interval = defaultOperationPolling
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	retries := opts.MaxRetries
	if retries <= 0 {
		retries = maxRetriesOnThrottle
	}

	return &Client{
		tokens:            tokens,
		maxRetries:        retries,
		http:              httpClient,
		endpoint:          endpoint,
		apiVersion:        apiVersion,
		operationInterval: interval,
	}, nil
}

func (c *Client) resourceURL(path, apiVersion string) (string, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", err
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(path, "/")
	q := url.Values{}
	q.Set("api-version", apiVersion)
	u.RawQuery = q.Encode()
	u.Fragment = ""
	return u.String(), nil
}

type response struct {
	status int
	header http.Header
	body   []byte
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	resp, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	return json.Unmarshal(resp.body, out)
}

// do issues a request, retrying throttled responses. Non-2xx responses are
// returned as *APIError.
func (c *Client) do(ctx context.Context, method, endpoint string, payload any) (*response, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(token) == "" {
		return nil, ErrMissingToken
	}

	var body []byte
	if payload != nil {
		body, err = json.Marshal(payload)
		if err != nil {
			return nil, err
		}
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", userAgent)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			metrics.ARMRequestsTotal.WithLabelValues(method, "transport_error").Inc()
			return nil, err
		}
		metrics.ARMRequestsTotal.WithLabelValues(method, strconv.Itoa(resp.StatusCode)).Inc()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable || resp.StatusCode == http.StatusGatewayTimeout {
			respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
			resp.Body.Close()
			if readErr != nil {
				return nil, readErr
			}
			lastErr = newAPIError("arm api throttled", method, endpoint, resp, respBody)
			if attempt == c.maxRetries {
				return nil, lastErr
			}
			wait, ok := retryAfterDuration(resp.Header.Get("Retry-After"))
			if !ok {
				wait = retryBackoff(attempt)
			}
			if err := sleep(ctx, wait); err != nil {
				return nil, err
			}
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
			resp.Body.Close()
			if readErr != nil {
				return nil, readErr
			}
			return nil, newAPIError("arm api failed", method, endpoint, resp, respBody)
		}
		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, readErr
		}
		return &response{status: resp.StatusCode, header: resp.Header, body: respBody}, nil
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, errors.New("arm request failed")
}

func retryAfterDuration(header string) (time.Duration, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0, false
	}
	secs, err := strconv.Atoi(header)
	if err != nil || secs < 0 {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}

func retryBackoff(attempt int) time.Duration {
	if attempt <= 0 {
		return time.Second
	}
	wait := time.Second * time.Duration(1<<attempt)
	const max = 30 * time.Second
	if wait > max {
		wait = max
	}
	return wait
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
