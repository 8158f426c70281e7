package cover

import (
	"errors"
	"net/http"
	"time"
)

const (
	defaultTimeout  = 30 * time.Second
	defaultRetryMax = 2
	userAgent       = "autotag/1.0"
)

// retryTransport retries idempotent requests that fail before any response
// arrives. Responses, including error statuses, are returned as-is.
type retryTransport struct {
	Base http.RoundTripper

	// RetryMax excludes the first attempt; 2 means at most 3 attempts.
	RetryMax int
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	max := t.RetryMax
	if max < 0 {
		max = 0
	}
	if (req.Method != http.MethodGet && req.Method != http.MethodHead) || req.Body != nil {
		max = 0
	}

	var lastErr error
	for attempt := 0; attempt <= max; attempt++ {
		r := req.Clone(req.Context())
		if r.Header.Get("User-Agent") == "" {
			r.Header.Set("User-Agent", userAgent)
		}

		resp, err := base.RoundTrip(r)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if req.Context().Err() != nil {
			return nil, lastErr
		}
	}
	return nil, lastErr
}

// NewClient returns an HTTP client for cover downloads with an overall
// timeout and bounded retries. A non-positive timeout selects the default.
func NewClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	base := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
		MaxIdleConnsPerHost:   8,
	}
	return &http.Client{
		Transport: &retryTransport{Base: base, RetryMax: defaultRetryMax},
		Timeout:   timeout,
	}
}
