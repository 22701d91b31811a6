package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/habemus/pkg/journal"
	"github.com/umputun/habemus/pkg/monitor"
	"github.com/umputun/habemus/server/mocks"
)

func testConfig(listen string) *mocks.ConfigProviderMock {
	return &mocks.ConfigProviderMock{
		GetServerConfigFunc: func() (string, time.Duration) {
			return listen, 30 * time.Second
		},
	}
}

func TestServer_New(t *testing.T) {
	srv := New(testConfig(":8080"), &mocks.MonitorMock{}, nil, "1.0.0", false)
	assert.NotNil(t, srv)
	assert.Equal(t, "1.0.0", srv.version)
	assert.False(t, srv.debug)
}

func TestServer_Run(t *testing.T) {
	// find free port
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	err = listener.Close()
	require.NoError(t, err)

	srv := New(testConfig(fmt.Sprintf("127.0.0.1:%d", port)), &mocks.MonitorMock{}, nil, "1.0.0", true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	// wait for server to start
	time.Sleep(100 * time.Millisecond)

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/ping", port))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "pong", string(body))
	assert.Equal(t, "habemus", resp.Header.Get("App-Name"))

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServer_statusHandler(t *testing.T) {
	mon := &mocks.MonitorMock{
		LastReportFunc: func() monitor.Report {
			return monitor.Report{Cycle: 7, Sources: 15, Items: 120, Alerts: 1}
		},
	}
	srv := New(testConfig(":8080"), mon, nil, "1.2.3", false)

	req := httptest.NewRequest("GET", "/api/v1/status", http.NoBody)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var status struct {
		Status     string         `json:"status"`
		Version    string         `json:"version"`
		Time       time.Time      `json:"time"`
		Scanning   bool           `json:"scanning"`
		LastReport monitor.Report `json:"last_report"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, "1.2.3", status.Version)
	assert.False(t, status.Time.IsZero())
	assert.False(t, status.Scanning)
	assert.Equal(t, 7, status.LastReport.Cycle)
	assert.Equal(t, 120, status.LastReport.Items)
	assert.Len(t, mon.LastReportCalls(), 1)
}

func TestServer_evidenceHandler(t *testing.T) {
	mon := &mocks.MonitorMock{
		EvidenceFunc: func() map[string][]string {
			return map[string][]string{"Marco Rossi": {"https://example.com::Fumata bianca"}}
		},
	}
	srv := New(testConfig(":8080"), mon, nil, "1.0.0", false)

	req := httptest.NewRequest("GET", "/api/v1/evidence", http.NoBody)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var res map[string][]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, []string{"https://example.com::Fumata bianca"}, res["Marco Rossi"])
}

func TestServer_alertsHandler(t *testing.T) {
	ts := time.Date(2025, 5, 8, 18, 7, 0, 0, time.UTC)

	t.Run("journal entries", func(t *testing.T) {
		jrn := &mocks.JournalMock{
			ListFunc: func(_ context.Context, limit int) ([]journal.Entry, error) {
				return []journal.Entry{{ID: 1, Candidate: "Marco Rossi", MeanScore: 6, Level: "high", Sent: true,
					Recipients: 2, Delivered: 2, CreatedAt: ts}}, nil
			},
		}
		srv := New(testConfig(":8080"), &mocks.MonitorMock{}, jrn, "1.0.0", false)

		req := httptest.NewRequest("GET", "/api/v1/alerts?limit=10", http.NoBody)
		w := httptest.NewRecorder()
		srv.router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var entries []journal.Entry
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
		require.Len(t, entries, 1)
		assert.Equal(t, "Marco Rossi", entries[0].Candidate)
		assert.True(t, entries[0].Sent)
		require.Len(t, jrn.ListCalls(), 1)
		assert.Equal(t, 10, jrn.ListCalls()[0].Limit)
	})

	t.Run("default limit", func(t *testing.T) {
		jrn := &mocks.JournalMock{ListFunc: func(context.Context, int) ([]journal.Entry, error) { return nil, nil }}
		srv := New(testConfig(":8080"), &mocks.MonitorMock{}, jrn, "1.0.0", false)

		req := httptest.NewRequest("GET", "/api/v1/alerts", http.NoBody)
		w := httptest.NewRecorder()
		srv.router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, "[]", w.Body.String())
		assert.Equal(t, 50, jrn.ListCalls()[0].Limit)
	})

	t.Run("invalid limit", func(t *testing.T) {
		jrn := &mocks.JournalMock{}
		srv := New(testConfig(":8080"), &mocks.MonitorMock{}, jrn, "1.0.0", false)

		req := httptest.NewRequest("GET", "/api/v1/alerts?limit=abc", http.NoBody)
		w := httptest.NewRecorder()
		srv.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Empty(t, jrn.ListCalls())
	})

	t.Run("journal error", func(t *testing.T) {
		jrn := &mocks.JournalMock{ListFunc: func(context.Context, int) ([]journal.Entry, error) {
			return nil, errors.New("db closed")
		}}
		srv := New(testConfig(":8080"), &mocks.MonitorMock{}, jrn, "1.0.0", false)

		req := httptest.NewRequest("GET", "/api/v1/alerts", http.NoBody)
		w := httptest.NewRecorder()
		srv.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "db closed")
	})

	t.Run("journal disabled", func(t *testing.T) {
		srv := New(testConfig(":8080"), &mocks.MonitorMock{}, nil, "1.0.0", false)

		req := httptest.NewRequest("GET", "/api/v1/alerts", http.NoBody)
		w := httptest.NewRecorder()
		srv.router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, "[]", w.Body.String())
	})
}

func TestServer_scanHandler(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	mon := &mocks.MonitorMock{
		ScanOnceFunc: func(context.Context) (monitor.Report, error) {
			started <- struct{}{}
			<-release
			return monitor.Report{Cycle: 1}, nil
		},
	}
	srv := New(testConfig(":8080"), mon, nil, "1.0.0", false)

	req := httptest.NewRequest("POST", "/api/v1/scan", http.NoBody)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusAccepted, w.Code)

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("scan not started")
	}

	// second trigger while the first one is running
	w = httptest.NewRecorder()
	srv.router.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/scan", http.NoBody))
	assert.Equal(t, http.StatusConflict, w.Code)

	close(release)
	assert.Eventually(t, func() bool { return !srv.scanning.Load() }, 5*time.Second, 10*time.Millisecond)
	assert.Len(t, mon.ScanOnceCalls(), 1)

	// method not allowed for GET
	w = httptest.NewRecorder()
	srv.router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/scan", http.NoBody))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestRenderJSON(t *testing.T) {
	data := map[string]string{
		"message": "test",
		"status":  "ok",
	}

	req := httptest.NewRequest("GET", "/test", http.NoBody)
	w := httptest.NewRecorder()

	RenderJSON(w, req, http.StatusOK, data)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var result map[string]string
	err := json.Unmarshal(w.Body.Bytes(), &result)
	require.NoError(t, err)
	assert.Equal(t, data, result)
}

func TestRenderError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		exp  string
	}{
		{name: "with error", err: errors.New("boom"), exp: "boom"},
		{name: "nil error", err: nil, exp: "unknown error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			RenderError(w, httptest.NewRequest("GET", "/test", http.NoBody), tt.err, http.StatusBadRequest)
			assert.Equal(t, http.StatusBadRequest, w.Code)

			var result map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
			assert.Equal(t, tt.exp, result["error"])
		})
	}
}
