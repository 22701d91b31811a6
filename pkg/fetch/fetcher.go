// Package fetch retrieves raw page content of monitored sources over http, rotating browser
// identity on every request.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/repeater/v2"
	"golang.org/x/net/html/charset"
)

// ErrClientStatus is returned for 4xx responses, such requests are never retried
var ErrClientStatus = errors.New("client error status")

// ErrServerStatus is returned for non-2xx responses other than 4xx
var ErrServerStatus = errors.New("unexpected status")

// Options for HTTPFetcher, zero values are replaced by defaults
type Options struct {
	Timeout     time.Duration // per request, default 15s
	Retries     int           // extra attempts on network errors and 5xx, default 0
	RetryDelay  time.Duration // initial backoff delay, default 500ms
	MaxBodySize int64         // bytes read from response, default 10MB
}

// HTTPFetcher fetches pages with rotated browser headers
type HTTPFetcher struct {
	client      *http.Client
	retries     int
	retryDelay  time.Duration
	maxBodySize int64
}

// NewHTTPFetcher makes fetcher with the given options
func NewHTTPFetcher(opts Options) *HTTPFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 500 * time.Millisecond
	}
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = 10 * 1024 * 1024
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		retries:     opts.Retries,
		retryDelay:  opts.RetryDelay,
		maxBodySize: opts.MaxBodySize,
	}
}

// Fetch retrieves the page at pageURL and returns its body decoded to utf-8.
// Non-2xx responses and network failures are returned as errors, callers treat them as no content.
func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("invalid url %q", pageURL)
	}

	var body string
	retrier := repeater.NewBackoff(f.retries+1, f.retryDelay, repeater.WithMaxDelay(5*time.Second))
	err = retrier.Do(ctx, func() error {
		b, fetchErr := f.fetchOnce(ctx, pageURL)
		if fetchErr != nil {
			lgr.Printf("[DEBUG] fetch attempt for %s failed: %v", pageURL, fetchErr)
			return fetchErr
		}
		body = b
		return nil
	}, ErrClientStatus)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	return body, nil
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	addBrowserHeaders(req)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return "", fmt.Errorf("%w %d", ErrClientStatus, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return "", fmt.Errorf("%w %d", ErrServerStatus, resp.StatusCode)
	}

	reader, err := charset.NewReader(io.LimitReader(resp.Body, f.maxBodySize), resp.Header.Get("Content-Type"))
	if err != nil {
		return "", fmt.Errorf("detect charset: %w", err)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(data), nil
}
