package arm

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// ErrMissingToken is returned when the token provider yields an empty token.
var ErrMissingToken = errors.New("arm: missing bearer token")

// APIError is a non-2xx management-plane response.
type APIError struct {
	Prefix     string
	Method     string
	URL        string
	StatusCode int
	Status     string
	Code       string
	Message    string
	RequestID  string
	RetryAfter string
}

func (e *APIError) Error() string {
	var b strings.Builder
	b.WriteString(e.Prefix)
	b.WriteString(": ")
	b.WriteString(e.Status)
	switch {
	case e.Code != "" && e.Message != "":
		b.WriteString(": " + e.Code + ": " + e.Message)
	case e.Message != "":
		b.WriteString(": " + e.Message)
	case e.Code != "":
		b.WriteString(": " + e.Code)
	}
	var parts []string
	if e.Method != "" && e.URL != "" {
		parts = append(parts, "request="+e.Method+" "+e.URL)
	}
	if e.RequestID != "" {
		parts = append(parts, "request_id="+e.RequestID)
	}
	if e.RetryAfter != "" {
		parts = append(parts, "retry_after="+e.RetryAfter)
	}
	if len(parts) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(parts, ", "))
	}
	return b.String()
}

// IsNotFound reports whether err is a 404 from the management plane.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

func newAPIError(prefix, method, reqURL string, resp *http.Response, body []byte) *APIError {
	code, message := extractAPIErrorMessage(body)
	return &APIError{
		Prefix:     prefix,
		Method:     method,
		URL:        safeURL(reqURL),
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Code:       code,
		Message:    message,
		RequestID:  firstHeader(resp.Header, "x-ms-request-id", "x-ms-correlation-request-id"),
		RetryAfter: strings.TrimSpace(resp.Header.Get("Retry-After")),
	}
}

func extractAPIErrorMessage(body []byte) (string, string) {
	var payload struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		code := strings.TrimSpace(payload.Error.Code)
		msg := strings.TrimSpace(payload.Error.Message)
		if code != "" || msg != "" {
			return code, msg
		}
	}

	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return "", ""
	}
	msg = strings.Join(strings.Fields(msg), " ")
	const maxLen = 300
	if len(msg) > maxLen {
		msg = msg[:maxLen] + "…"
	}
	return "", msg
}

func firstHeader(h http.Header, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(h.Get(k)); v != "" {
			return v
		}
	}
	return ""
}

func safeURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if u.RawQuery != "" {
		return u.Scheme + "://" + u.Host + u.Path + "?" + u.RawQuery
	}
	return u.Scheme + "://" + u.Host + u.Path
}
