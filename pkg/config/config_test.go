package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/habemus/pkg/domain"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "test-config.yml")
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o600))
	return configPath
}

func TestLoad(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		configContent := `
sources:
  - url: https://example.com/
  - url: https://example.com/feed.xml
    kind: rss
watchlist:
  candidates: /etc/habemus/candidates.yml
  identifiers: /etc/habemus/ids.json
scan:
  interval: 30s
  error_backoff: 2m
  request_delay: 500ms
  max_workers: 3
  retain_cycles: 100
  rescan_seen: true
fetch:
  timeout: 10s
  max_body: 1024
  retries: 1
matcher:
  indicators: ["fumata bianca", "habemus papam"]
  min_item_score: 3
alert:
  min_notify_score: 2.5
  identifier_min_score: 4
  timezone: UTC
telegram:
  token: secret
  chat_ids: ["100", "200"]
  requeue_undelivered: true
journal:
  dsn: /tmp/habemus.db
server:
  listen: ":9090"
  timeout: 45s
`
		cfg, err := Load(writeConfig(t, configContent))
		require.NoError(t, err)
		require.NotNil(t, cfg)

		require.Len(t, cfg.Sources, 2)
		assert.Equal(t, Source{URL: "https://example.com/", Kind: "html"}, cfg.Sources[0])
		assert.Equal(t, Source{URL: "https://example.com/feed.xml", Kind: "rss"}, cfg.Sources[1])
		assert.Equal(t, "/etc/habemus/candidates.yml", cfg.Watchlist.Candidates)
		assert.Equal(t, "/etc/habemus/ids.json", cfg.Watchlist.Identifiers)

		assert.Equal(t, 30*time.Second, cfg.Scan.Interval)
		assert.Equal(t, 2*time.Minute, cfg.Scan.ErrorBackoff)
		assert.Equal(t, 500*time.Millisecond, cfg.Scan.RequestDelay)
		assert.Equal(t, 3, cfg.Scan.MaxWorkers)
		assert.Equal(t, 100, cfg.Scan.RetainCycles)
		assert.True(t, cfg.Scan.RescanSeen)

		assert.Equal(t, 10*time.Second, cfg.Fetch.Timeout)
		assert.Equal(t, int64(1024), cfg.Fetch.MaxBody)
		assert.Equal(t, 1, cfg.Fetch.Retries)

		assert.Equal(t, []string{"fumata bianca", "habemus papam"}, cfg.Matcher.Indicators)
		assert.Equal(t, 3, cfg.Matcher.MinItemScore)
		assert.InDelta(t, 2.5, cfg.Alert.MinNotifyScore, 0.001)
		assert.InDelta(t, 4.0, cfg.Alert.IdentifierMinScore, 0.001)
		assert.Equal(t, "UTC", cfg.Alert.Timezone)

		assert.Equal(t, "secret", cfg.Telegram.Token)
		assert.Equal(t, []string{"100", "200"}, cfg.Telegram.ChatIDs)
		assert.Equal(t, "https://api.telegram.org", cfg.Telegram.BaseURL)
		assert.True(t, cfg.Telegram.RequeueUndelivered)

		assert.Equal(t, "/tmp/habemus.db", cfg.Journal.DSN)
		assert.Equal(t, ":9090", cfg.Server.Listen)
		assert.Equal(t, 45*time.Second, cfg.Server.Timeout)
	})

	t.Run("defaults", func(t *testing.T) {
		cfg, err := Load(writeConfig(t, "telegram:\n  token: abc\n"))
		require.NoError(t, err)

		assert.Len(t, cfg.Sources, len(DefaultSources))
		assert.Equal(t, "https://www.repubblica.it/", cfg.Sources[0].URL)
		assert.Equal(t, "html", cfg.Sources[0].Kind)
		assert.Equal(t, "candidati.json", cfg.Watchlist.Candidates)
		assert.Equal(t, "token_addresses.json", cfg.Watchlist.Identifiers)
		assert.Equal(t, 60*time.Second, cfg.Scan.Interval)
		assert.Equal(t, 60*time.Second, cfg.Scan.ErrorBackoff)
		assert.Equal(t, 2*time.Second, cfg.Scan.RequestDelay)
		assert.Equal(t, 5, cfg.Scan.MaxWorkers)
		assert.Equal(t, 0, cfg.Scan.RetainCycles)
		assert.Equal(t, 15*time.Second, cfg.Fetch.Timeout)
		assert.Equal(t, 2, cfg.Fetch.Retries)
		assert.Equal(t, 2, cfg.Matcher.MinItemScore)
		assert.InDelta(t, 2.0, cfg.Alert.MinNotifyScore, 0.001)
		assert.InDelta(t, 3.0, cfg.Alert.IdentifierMinScore, 0.001)
		assert.Equal(t, "Europe/Rome", cfg.Alert.Timezone)
		assert.Empty(t, cfg.Journal.DSN)
		assert.Empty(t, cfg.Server.Listen)
		assert.Equal(t, 30*time.Second, cfg.Server.Timeout)
	})

	t.Run("explicit zero kept where meaningful", func(t *testing.T) {
		configContent := `
scan:
  request_delay: 0s
  max_workers: 0
fetch:
  retries: 0
alert:
  min_notify_score: 0
`
		cfg, err := Load(writeConfig(t, configContent))
		require.NoError(t, err)
		assert.Equal(t, time.Duration(0), cfg.Scan.RequestDelay, "pacing disabled")
		assert.Equal(t, 0, cfg.Fetch.Retries, "retries disabled")
		assert.Equal(t, 5, cfg.Scan.MaxWorkers, "zero workers means default")
		assert.InDelta(t, 2.0, cfg.Alert.MinNotifyScore, 0.001, "zero score means default")
	})

	t.Run("env expansion", func(t *testing.T) {
		t.Setenv("HABEMUS_TEST_TOKEN", "from-env")
		cfg, err := Load(writeConfig(t, "telegram:\n  token: ${HABEMUS_TEST_TOKEN}\n"))
		require.NoError(t, err)
		assert.Equal(t, "from-env", cfg.Telegram.Token)
	})

	t.Run("file not found", func(t *testing.T) {
		cfg, err := Load("/non/existent/file.yml")
		require.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "read config file")
	})

	t.Run("invalid yaml", func(t *testing.T) {
		cfg, err := Load(writeConfig(t, "sources: [\n"))
		require.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "parse config")
	})

	t.Run("validation failure", func(t *testing.T) {
		cfg, err := Load(writeConfig(t, "sources:\n  - url: ftp://example.com\n"))
		require.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "validate config")
	})
}

func TestValidate(t *testing.T) {
	tbl := []struct {
		name   string
		modify func(c *Config)
		errMsg string
	}{
		{name: "defaults are valid", modify: func(*Config) {}},
		{name: "relative source url", modify: func(c *Config) { c.Sources = []Source{{URL: "/news", Kind: "html"}} },
			errMsg: "invalid url"},
		{name: "unknown source kind", modify: func(c *Config) { c.Sources[0].Kind = "pdf" }, errMsg: "unknown kind"},
		{name: "short interval", modify: func(c *Config) { c.Scan.Interval = time.Millisecond },
			errMsg: "scan.interval"},
		{name: "short error backoff", modify: func(c *Config) { c.Scan.ErrorBackoff = time.Millisecond },
			errMsg: "scan.error_backoff"},
		{name: "negative request delay", modify: func(c *Config) { c.Scan.RequestDelay = -time.Second },
			errMsg: "scan.request_delay"},
		{name: "no workers", modify: func(c *Config) { c.Scan.MaxWorkers = -1 }, errMsg: "scan.max_workers"},
		{name: "negative retain", modify: func(c *Config) { c.Scan.RetainCycles = -1 }, errMsg: "scan.retain_cycles"},
		{name: "short fetch timeout", modify: func(c *Config) { c.Fetch.Timeout = time.Millisecond },
			errMsg: "fetch.timeout"},
		{name: "negative retries", modify: func(c *Config) { c.Fetch.Retries = -1 }, errMsg: "fetch.retries"},
		{name: "zero item score", modify: func(c *Config) { c.Matcher.MinItemScore = -1 },
			errMsg: "matcher.min_item_score"},
		{name: "low notify score", modify: func(c *Config) { c.Alert.MinNotifyScore = 0.5 },
			errMsg: "alert.min_notify_score"},
		{name: "negative identifier score", modify: func(c *Config) { c.Alert.IdentifierMinScore = -1 },
			errMsg: "alert.identifier_min_score"},
		{name: "bad timezone", modify: func(c *Config) { c.Alert.Timezone = "Mars/Olympus" },
			errMsg: "alert.timezone"},
		{name: "server timeout", modify: func(c *Config) {
			c.Server.Listen = ":8080"
			c.Server.Timeout = time.Millisecond
		},
			errMsg: "server timeout"},
	}

	for _, tt := range tbl {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := validate(cfg)
			if tt.errMsg == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestConfig_DomainSources(t *testing.T) {
	cfg := &Config{Sources: []Source{{URL: "https://a.com", Kind: "html"}, {URL: "https://b.com/rss", Kind: "rss"}}}
	assert.Equal(t, []domain.Source{
		{URL: "https://a.com", Kind: domain.SourceHTML},
		{URL: "https://b.com/rss", Kind: domain.SourceRSS},
	}, cfg.DomainSources())
}

func TestConfig_GetServerConfig(t *testing.T) {
	cfg := Default()
	cfg.Server.Listen = "127.0.0.1:8080"
	listen, timeout := cfg.GetServerConfig()
	assert.Equal(t, "127.0.0.1:8080", listen)
	assert.Equal(t, 30*time.Second, timeout)
}
