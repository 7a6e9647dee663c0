package arm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	defaultAuthority  = "https://login.microsoftonline.com"
	managementScope   = "https://management.azure.com/.default"
	tokenExpiryLeeway = 30 * time.Second
)

// TokenProvider supplies the bearer token attached to every management-plane call.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a pre-acquired access token.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) {
	tok := strings.TrimSpace(string(t))
	if tok == "" {
		return "", ErrMissingToken
	}
	return tok, nil
}

type ClientCredentialsOptions struct {
	HTTPClient       *http.Client
	AuthorityBaseURL string
	Scope            string
}

// ClientCredentials acquires and caches app-only tokens from Microsoft Entra ID.
type ClientCredentials struct {
	tenantID     string
	clientID     string
	clientSecret string

	http          *http.Client
	authorityBase string
	scope         string

	mu                sync.Mutex
	cachedToken       string
	cachedTokenExpiry time.Time
}

func NewClientCredentials(tenantID, clientID, clientSecret string, opts ClientCredentialsOptions) (*ClientCredentials, error) {
	tenantID = normalizeGUID(tenantID)
	clientID = normalizeGUID(clientID)
	clientSecret = strings.TrimSpace(clientSecret)

	if tenantID == "" {
		return nil, errors.New("azure tenant id is required")
	}
	if clientID == "" {
		return nil, errors.New("azure client id is required")
	}
	if clientSecret == "" {
		return nil, errors.New("azure client secret is required")
	}

	authorityBase := strings.TrimRight(strings.TrimSpace(opts.AuthorityBaseURL), "/")
	if authorityBase == "" {
		authorityBase = defaultAuthority
	}
	scope := strings.TrimSpace(opts.Scope)
	if scope == "" {
		scope = managementScope
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	return &ClientCredentials{
		tenantID:      tenantID,
		clientID:      clientID,
		clientSecret:  clientSecret,
		http:          httpClient,
		authorityBase: authorityBase,
		scope:         scope,
	}, nil
}

func (c *ClientCredentials) Token(ctx context.Context) (string, error) {
	now := time.Now()

	c.mu.Lock()
	cached := c.cachedToken
	exp := c.cachedTokenExpiry
	c.mu.Unlock()

	if strings.TrimSpace(cached) != "" && exp.After(now.Add(tokenExpiryLeeway)) {
		return cached, nil
	}

	accessToken, expiresAt, err := c.fetchToken(ctx)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.cachedToken = accessToken
	c.cachedTokenExpiry = expiresAt
	c.mu.Unlock()

	return accessToken, nil
}

func (c *ClientCredentials) fetchToken(ctx context.Context) (string, time.Time, error) {
	u, err := url.Parse(c.authorityBase)
	if err != nil {
		return "", time.Time{}, err
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/" + url.PathEscape(c.tenantID) + "/oauth2/v2.0/token"
	u.RawQuery = ""
	u.Fragment = ""

	form := url.Values{}
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)
	form.Set("scope", c.scope)
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), strings.NewReader(form.Encode()))
	if err != nil {
		return "", time.Time{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", time.Time{}, err
	}
	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	resp.Body.Close()
	if readErr != nil {
		return "", time.Time{}, readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", time.Time{}, newAPIError("azure token request failed", http.MethodPost, u.String(), resp, body)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   any    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", time.Time{}, err
	}

	accessToken := strings.TrimSpace(payload.AccessToken)
	if accessToken == "" {
		return "", time.Time{}, ErrMissingToken
	}

	expiresIn, ok := parseExpiresInSeconds(payload.ExpiresIn)
	if !ok {
		expiresIn = 3600
	}
	return accessToken, time.Now().Add(time.Duration(expiresIn) * time.Second), nil
}

func parseExpiresInSeconds(v any) (int, bool) {
	switch t := v.(type) {
	case float64:
		if t <= 0 {
			return 0, false
		}
		return int(t), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil || n <= 0 {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

func normalizeGUID(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "{")
	s = strings.TrimSuffix(s, "}")
	return strings.TrimSpace(s)
}
