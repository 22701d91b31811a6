package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"
	_ "time/tzdata" // alert timezone must load on hosts without zoneinfo

	"gopkg.in/yaml.v3"

	"github.com/umputun/habemus/pkg/domain"
)

//go:generate go run ../../cmd/schema/main.go schema.json

// DefaultSources are the news sites scanned when no sources are configured
var DefaultSources = []string{
	"https://www.repubblica.it/",
	"https://www.corriere.it/",
	"https://www.lastampa.it/",
	"https://www.ilgiornale.it/",
	"https://www.ilsole24ore.com/",
	"https://www.ilfattoquotidiano.it/",
	"https://tg24.sky.it/",
	"https://www.tgcom24.mediaset.it/",
	"https://www.rainews.it/",
	"https://www.adnkronos.com/",
	"https://www.ansa.it/",
	"https://www.vaticannews.va/it.html",
	"https://www.avvenire.it/",
	"https://www.reuters.com/",
	"https://apnews.com/",
}

// Config holds the application configuration
type Config struct {
	Sources   []Source        `yaml:"sources" json:"sources" jsonschema:"description=News sources to scan, default Italian and international sites"`
	Watchlist WatchlistConfig `yaml:"watchlist" json:"watchlist" jsonschema:"description=Watched candidates"`
	Scan      ScanConfig      `yaml:"scan" json:"scan" jsonschema:"description=Scan cycle configuration"`
	Fetch     FetchConfig     `yaml:"fetch" json:"fetch" jsonschema:"description=HTTP fetch configuration"`
	Matcher   MatcherConfig   `yaml:"matcher" json:"matcher" jsonschema:"description=Mention matching configuration"`
	Alert     AlertConfig     `yaml:"alert" json:"alert" jsonschema:"description=Alert formatting and notification gate"`
	Telegram  TelegramConfig  `yaml:"telegram" json:"telegram" jsonschema:"description=Telegram delivery configuration"`

	Journal struct {
		DSN string `yaml:"dsn" json:"dsn" jsonschema:"description=SQLite alert journal, disabled if empty"`
	} `yaml:"journal" json:"journal" jsonschema:"description=Alert journal configuration"`

	Server struct {
		Listen  string        `yaml:"listen" json:"listen" jsonschema:"description=Status API listen address, disabled if empty"`
		Timeout time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=HTTP server timeout"`
	} `yaml:"server" json:"server" jsonschema:"description=Status API configuration"`
}

// Source is a single news source
type Source struct {
	URL  string `yaml:"url" json:"url" jsonschema:"required,description=Source URL"`
	Kind string `yaml:"kind" json:"kind" jsonschema:"enum=html,enum=rss,enum=page,default=html,description=How the source is extracted"`
}

// WatchlistConfig points to candidate files
type WatchlistConfig struct {
	Candidates  string `yaml:"candidates" json:"candidates" jsonschema:"default=candidati.json,description=Candidates file, JSON or YAML"`
	Identifiers string `yaml:"identifiers" json:"identifiers" jsonschema:"default=token_addresses.json,description=Optional external identifiers file"`
}

// ScanConfig holds scan cycle settings
type ScanConfig struct {
	Interval     time.Duration `yaml:"interval" json:"interval" jsonschema:"default=60s,description=Pause between cycles"`
	ErrorBackoff time.Duration `yaml:"error_backoff" json:"error_backoff" jsonschema:"default=60s,description=Pause after a failed cycle"`
	RequestDelay time.Duration `yaml:"request_delay" json:"request_delay" jsonschema:"default=2s,description=Minimal spacing between source fetches, 0 disables pacing"`
	MaxWorkers   int           `yaml:"max_workers" json:"max_workers" jsonschema:"default=5,minimum=1,description=Parallel source fetches"`
	RetainCycles int           `yaml:"retain_cycles" json:"retain_cycles" jsonschema:"default=0,minimum=0,description=Forget surfaced evidence after this many cycles, 0 keeps it forever"`
	RescanSeen   bool          `yaml:"rescan_seen" json:"rescan_seen" jsonschema:"default=false,description=Pass items already extracted in earlier cycles to the matcher again"`
}

// FetchConfig holds HTTP fetch settings
type FetchConfig struct {
	Timeout time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=15s,description=Per request timeout"`
	MaxBody int64         `yaml:"max_body" json:"max_body" jsonschema:"default=10485760,description=Maximum body size in bytes"`
	Retries int           `yaml:"retries" json:"retries" jsonschema:"default=2,minimum=0,description=Retries of transient failures, 0 disables retries"`
}

// MatcherConfig holds mention matching settings
type MatcherConfig struct {
	Indicators   []string `yaml:"indicators" json:"indicators" jsonschema:"description=Strong indicator phrases, built-in list if empty"`
	MinItemScore int      `yaml:"min_item_score" json:"min_item_score" jsonschema:"default=2,minimum=1,description=Minimal score of a single item"`
}

// AlertConfig holds alert settings
type AlertConfig struct {
	MinNotifyScore     float64 `yaml:"min_notify_score" json:"min_notify_score" jsonschema:"default=2,minimum=1,description=Minimal mean score of new items to send an alert, 0 uses the default"`
	IdentifierMinScore float64 `yaml:"identifier_min_score" json:"identifier_min_score" jsonschema:"default=3,minimum=1,description=Minimal mean score to include the external identifier, 0 uses the default"`
	Timezone           string  `yaml:"timezone" json:"timezone" jsonschema:"default=Europe/Rome,description=Timezone of alert timestamps"`
}

// TelegramConfig holds Telegram delivery settings
type TelegramConfig struct {
	Token              string   `yaml:"token" json:"token" jsonschema:"description=Bot token (can use environment variable)"`
	ChatIDs            []string `yaml:"chat_ids" json:"chat_ids" jsonschema:"description=Recipient chat ids"`
	BaseURL            string   `yaml:"base_url" json:"base_url" jsonschema:"default=https://api.telegram.org,description=Telegram API base URL"`
	RequeueUndelivered bool     `yaml:"requeue_undelivered" json:"requeue_undelivered" jsonschema:"default=false,description=Report evidence again next cycle if no recipient got the alert"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // file path comes from CLI flag
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// expand environment variables
	expanded := os.ExpandEnv(string(data))

	// file values override defaults, keys not in the file keep them
	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return finalize(cfg)
}

// Default returns configuration with all defaults applied, used when no config file is given
func Default() *Config {
	cfg := &Config{}
	// zero is a valid value of these, so they are set before the file is read and not by setDefaults
	cfg.Scan.RequestDelay = 2 * time.Second
	cfg.Fetch.Retries = 2
	setDefaults(cfg)
	return cfg
}

func finalize(cfg *Config) (*Config, error) {
	setDefaults(cfg)

	// validate configuration
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	// verify against embedded schema
	if err := VerifyAgainstEmbeddedSchema(cfg); err != nil {
		// log warning but don't fail - schema validation is supplementary
		fmt.Printf("warning: schema validation failed: %v\n", err)
	}
	return cfg, nil
}

func setDefaults(cfg *Config) {
	// sources
	if len(cfg.Sources) == 0 {
		for _, u := range DefaultSources {
			cfg.Sources = append(cfg.Sources, Source{URL: u})
		}
	}
	for i := range cfg.Sources {
		cfg.Sources[i].URL = strings.TrimSpace(cfg.Sources[i].URL)
		if cfg.Sources[i].Kind == "" {
			cfg.Sources[i].Kind = string(domain.SourceHTML)
		}
	}

	// watchlist
	if cfg.Watchlist.Candidates == "" {
		cfg.Watchlist.Candidates = "candidati.json"
	}
	if cfg.Watchlist.Identifiers == "" {
		cfg.Watchlist.Identifiers = "token_addresses.json"
	}

	// scan
	if cfg.Scan.Interval == 0 {
		cfg.Scan.Interval = 60 * time.Second
	}
	if cfg.Scan.ErrorBackoff == 0 {
		cfg.Scan.ErrorBackoff = 60 * time.Second
	}
	if cfg.Scan.MaxWorkers == 0 {
		cfg.Scan.MaxWorkers = 5
	}

	// fetch
	if cfg.Fetch.Timeout == 0 {
		cfg.Fetch.Timeout = 15 * time.Second
	}
	if cfg.Fetch.MaxBody == 0 {
		cfg.Fetch.MaxBody = 10 * 1024 * 1024
	}

	// matcher and alert
	if cfg.Matcher.MinItemScore == 0 {
		cfg.Matcher.MinItemScore = 2
	}
	if cfg.Alert.MinNotifyScore == 0 {
		cfg.Alert.MinNotifyScore = 2
	}
	if cfg.Alert.IdentifierMinScore == 0 {
		cfg.Alert.IdentifierMinScore = 3
	}
	if cfg.Alert.Timezone == "" {
		cfg.Alert.Timezone = "Europe/Rome"
	}

	// telegram
	if cfg.Telegram.BaseURL == "" {
		cfg.Telegram.BaseURL = "https://api.telegram.org"
	}

	// server
	if cfg.Server.Timeout == 0 {
		cfg.Server.Timeout = 30 * time.Second
	}
}

// validate checks configuration for correctness
func validate(cfg *Config) error {
	for i, src := range cfg.Sources {
		u, err := url.Parse(src.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("sources[%d]: invalid url %q", i, src.URL)
		}
		switch domain.SourceKind(src.Kind) {
		case domain.SourceHTML, domain.SourceRSS, domain.SourcePage:
		default:
			return fmt.Errorf("sources[%d]: unknown kind %q", i, src.Kind)
		}
	}

	// validate scan config
	if cfg.Scan.Interval < time.Second {
		return fmt.Errorf("scan.interval must be at least 1 second")
	}
	if cfg.Scan.ErrorBackoff < time.Second {
		return fmt.Errorf("scan.error_backoff must be at least 1 second")
	}
	if cfg.Scan.RequestDelay < 0 {
		return fmt.Errorf("scan.request_delay must be non-negative")
	}
	if cfg.Scan.MaxWorkers < 1 {
		return fmt.Errorf("scan.max_workers must be at least 1")
	}
	if cfg.Scan.RetainCycles < 0 {
		return fmt.Errorf("scan.retain_cycles must be non-negative")
	}

	// validate fetch config
	if cfg.Fetch.Timeout < time.Second {
		return fmt.Errorf("fetch.timeout must be at least 1 second")
	}
	if cfg.Fetch.Retries < 0 {
		return fmt.Errorf("fetch.retries must be non-negative")
	}

	// validate thresholds
	if cfg.Matcher.MinItemScore < 1 {
		return fmt.Errorf("matcher.min_item_score must be at least 1")
	}
	if cfg.Alert.MinNotifyScore < 1 {
		return fmt.Errorf("alert.min_notify_score must be at least 1")
	}
	if cfg.Alert.IdentifierMinScore < 1 {
		return fmt.Errorf("alert.identifier_min_score must be at least 1")
	}
	if _, err := time.LoadLocation(cfg.Alert.Timezone); err != nil {
		return fmt.Errorf("alert.timezone: %w", err)
	}

	// validate server config
	if cfg.Server.Listen != "" && cfg.Server.Timeout < time.Second {
		return fmt.Errorf("server timeout must be at least 1 second")
	}

	return nil
}

// DomainSources returns configured sources
func (c *Config) DomainSources() []domain.Source {
	res := make([]domain.Source, 0, len(c.Sources))
	for _, s := range c.Sources {
		res = append(res, domain.Source{URL: s.URL, Kind: domain.SourceKind(s.Kind)})
	}
	return res
}

// GetServerConfig returns server configuration
func (c *Config) GetServerConfig() (listen string, timeout time.Duration) {
	return c.Server.Listen, c.Server.Timeout
}
