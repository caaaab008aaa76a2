package ecommerce

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

type httpStatusError struct {
	statusCode int
	status     string
	detail     string
	retryAfter time.Duration
}

func (e *httpStatusError) Error() string {
	if e.detail == "" {
		return fmt.Sprintf("shopify request failed: %s", e.status)
	}
	return fmt.Sprintf("shopify request failed: %s: %s", e.status, e.detail)
}

func newHTTPStatusError(resp *http.Response, body []byte) *httpStatusError {
	return &httpStatusError{
		statusCode: resp.StatusCode,
		status:     resp.Status,
		detail:     extractShopifyErrors(body),
		retryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
	}
}

func isRetryableHTTPError(err error) bool {
	var httpErr *httpStatusError
	if errors.As(err, &httpErr) {
		switch httpErr.statusCode {
		case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
	}
	return false
}

// extractShopifyErrors flattens the {"errors": ...} body Shopify returns on failure.
// The value may be a string, a list, or a map of field to messages.
func extractShopifyErrors(body []byte) string {
	var envelope struct {
		Errors json.RawMessage `json:"errors"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Errors) == 0 {
		return strings.TrimSpace(string(body))
	}

	var s string
	if json.Unmarshal(envelope.Errors, &s) == nil {
		return s
	}
	var list []string
	if json.Unmarshal(envelope.Errors, &list) == nil {
		return strings.Join(list, "; ")
	}
	var fields map[string]json.RawMessage
	if json.Unmarshal(envelope.Errors, &fields) == nil {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			var msgs []string
			if json.Unmarshal(fields[k], &msgs) == nil {
				parts = append(parts, k+": "+strings.Join(msgs, ", "))
				continue
			}
			var msg string
			if json.Unmarshal(fields[k], &msg) == nil {
				parts = append(parts, k+": "+msg)
				continue
			}
			parts = append(parts, k+": "+string(fields[k]))
		}
		return strings.Join(parts, "; ")
	}
	return string(envelope.Errors)
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return -1
	}
	secs, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || secs < 0 {
		return -1
	}
	return time.Duration(secs * float64(time.Second))
}

func (c *ShopifyClient) retryDelay(attempt int, err error) time.Duration {
	var httpErr *httpStatusError
	if errors.As(err, &httpErr) && httpErr.retryAfter >= 0 {
		return min(httpErr.retryAfter, c.config.RetryMaxDelay)
	}
	if attempt < 0 {
		return 0
	}
	delay := c.config.RetryBaseDelay << attempt
	if delay > c.config.RetryMaxDelay || delay <= 0 {
		delay = c.config.RetryMaxDelay
	}
	return delay
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
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

var linkNextPattern = regexp.MustCompile(`<([^>]+)>;\s*rel="next"`)

// nextPageInfo returns the page_info cursor of the rel="next" link, or ""
func nextPageInfo(link string) string {
	m := linkNextPattern.FindStringSubmatch(link)
	if m == nil {
		return ""
	}
	idx := strings.Index(m[1], "page_info=")
	if idx < 0 {
		return ""
	}
	info := m[1][idx+len("page_info="):]
	if amp := strings.IndexByte(info, '&'); amp >= 0 {
		info = info[:amp]
	}
	if unescaped, err := url.QueryUnescape(info); err == nil {
		return unescaped
	}
	return info
}
