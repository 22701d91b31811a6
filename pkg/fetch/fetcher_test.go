package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPFetcher_Fetch(t *testing.T) {
	t.Run("ok with browser headers", func(t *testing.T) {
		var ua, lang, ref string
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ua, lang, ref = r.UserAgent(), r.Header.Get("Accept-Language"), r.Referer()
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte("<html><body><h1>Fumata bianca</h1></body></html>"))
		}))
		defer ts.Close()

		f := NewHTTPFetcher(Options{Timeout: time.Second})
		body, err := f.Fetch(context.Background(), ts.URL)
		require.NoError(t, err)
		assert.Contains(t, body, "<h1>Fumata bianca</h1>")
		assert.Contains(t, userAgents, ua)
		assert.Contains(t, acceptLanguages, lang)
		assert.Equal(t, "https://www.google.com/", ref)
	})

	t.Run("latin1 decoded", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
			_, _ = w.Write([]byte("<p>\xc8 stato eletto</p>")) // "È" in latin1
		}))
		defer ts.Close()

		body, err := NewHTTPFetcher(Options{}).Fetch(context.Background(), ts.URL)
		require.NoError(t, err)
		assert.Contains(t, body, "È stato eletto")
	})

	t.Run("client error not retried", func(t *testing.T) {
		var calls int32
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusForbidden)
		}))
		defer ts.Close()

		f := NewHTTPFetcher(Options{Retries: 3, RetryDelay: time.Millisecond})
		body, err := f.Fetch(context.Background(), ts.URL)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrClientStatus)
		assert.Empty(t, body)
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})

	t.Run("server error retried", func(t *testing.T) {
		var calls int32
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&calls, 1) < 3 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			_, _ = w.Write([]byte("finally"))
		}))
		defer ts.Close()

		f := NewHTTPFetcher(Options{Retries: 2, RetryDelay: time.Millisecond})
		body, err := f.Fetch(context.Background(), ts.URL)
		require.NoError(t, err)
		assert.Equal(t, "finally", body)
		assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	})

	t.Run("server error without retries", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer ts.Close()

		_, err := NewHTTPFetcher(Options{}).Fetch(context.Background(), ts.URL)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrServerStatus)
	})

	t.Run("body limited", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			_, _ = w.Write([]byte(strings.Repeat("a", 100)))
		}))
		defer ts.Close()

		body, err := NewHTTPFetcher(Options{MaxBodySize: 10}).Fetch(context.Background(), ts.URL)
		require.NoError(t, err)
		assert.Len(t, body, 10)
	})

	t.Run("timeout", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}))
		defer ts.Close()

		_, err := NewHTTPFetcher(Options{Timeout: 50 * time.Millisecond}).Fetch(context.Background(), ts.URL)
		require.Error(t, err)
	})

	t.Run("invalid url", func(t *testing.T) {
		f := NewHTTPFetcher(Options{})
		for _, u := range []string{"", "not-a-url", "ftp://example.com/x", "http://"} {
			_, err := f.Fetch(context.Background(), u)
			assert.Error(t, err, "url %q", u)
		}
	})
}
