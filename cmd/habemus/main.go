package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/go-pkgz/lgr"
	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"

	"github.com/umputun/habemus/pkg/alert"
	"github.com/umputun/habemus/pkg/config"
	"github.com/umputun/habemus/pkg/dedup"
	"github.com/umputun/habemus/pkg/extract"
	"github.com/umputun/habemus/pkg/fetch"
	"github.com/umputun/habemus/pkg/journal"
	"github.com/umputun/habemus/pkg/matcher"
	"github.com/umputun/habemus/pkg/monitor"
	"github.com/umputun/habemus/pkg/notify"
	"github.com/umputun/habemus/pkg/watchlist"
	"github.com/umputun/habemus/server"
)

// Opts with all CLI options
type Opts struct {
	Config      string   `short:"c" long:"config" env:"CONFIG" description:"configuration file, defaults are used if not set"`
	Token       string   `short:"t" long:"token" env:"TELEGRAM_BOT_TOKEN" description:"telegram bot token, overrides config"`
	ChatIDs     []string `long:"chat-ids" env:"TELEGRAM_CHAT_IDS" env-delim:"," description:"telegram chat ids, overrides config"`
	DryRun      bool     `long:"dry-run" description:"log alerts instead of sending them"`
	Once        bool     `long:"once" description:"run a single scan cycle and exit"`
	TestMessage bool     `long:"test-message" description:"send a test message to all recipients and exit"`

	// Common options
	Debug   bool `long:"dbg" env:"DEBUG" description:"debug mode"`
	Version bool `short:"V" long:"version" description:"show version info"`
	NoColor bool `long:"no-color" env:"NO_COLOR" description:"disable color output"`
}

var revision = "unknown"

// transport is implemented by notify transports
type transport interface {
	Send(ctx context.Context, recipients []string, text string) []notify.Delivery
}

func main() {
	loadEnvFile(".env")

	var opts Opts
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if opts.Version {
		fmt.Printf("Version: %s\nGolang: %s\n", revision, runtime.Version())
		os.Exit(0)
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	setupLog(opts.Debug, opts.NoColor, cfg.Telegram.Token)
	lgr.Printf("[INFO] starting habemus version %s", revision)

	ctx, cancel := context.WithCancel(context.Background())

	// handle termination signals
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		lgr.Printf("[INFO] termination signal received")
		cancel()
	}()

	err = run(ctx, opts, cfg)
	cancel()
	if err != nil && !errors.Is(err, context.Canceled) {
		lgr.Printf("[ERROR] %v", err)
		os.Exit(1)
	}
	lgr.Printf("[INFO] shutdown complete")
}

// run wires components from cfg and runs the monitor until ctx is canceled,
// or a single cycle with --once
func run(ctx context.Context, opts Opts, cfg *config.Config) error {
	recipients := cfg.Telegram.ChatIDs
	var notifier transport = notify.NewTelegram(notify.TelegramParams{Token: cfg.Telegram.Token, BaseURL: cfg.Telegram.BaseURL})
	switch {
	case opts.DryRun:
		lgr.Printf("[INFO] dry run, alerts are logged only")
		notifier = notify.Log{}
	case cfg.Telegram.Token == "":
		lgr.Printf("[WARN] telegram token is not set, alerts are logged only")
		notifier = notify.Log{}
	}
	if len(recipients) == 0 {
		lgr.Printf("[WARN] no telegram chat ids configured")
	}

	if opts.TestMessage {
		return sendTestMessage(ctx, notifier, recipients)
	}

	wl := watchlist.Load(cfg.Watchlist.Candidates, cfg.Watchlist.Identifiers)
	if wl.Len() == 0 {
		lgr.Printf("[WARN] watchlist is empty, no alert will be sent")
	}

	loc, err := time.LoadLocation(cfg.Alert.Timezone)
	if err != nil {
		return fmt.Errorf("failed to load timezone %q: %w", cfg.Alert.Timezone, err)
	}

	var seen *extract.Seen
	if !cfg.Scan.RescanSeen {
		seen = extract.NewSeen()
	}

	params := monitor.Params{
		Sources: cfg.DomainSources(),
		Fetcher: fetch.NewHTTPFetcher(fetch.Options{
			Timeout:     cfg.Fetch.Timeout,
			Retries:     cfg.Fetch.Retries,
			MaxBodySize: cfg.Fetch.MaxBody,
		}),
		Extractor: extract.NewDispatcher(seen),
		Matcher: matcher.New(wl.Candidates(), matcher.Options{
			Indicators:   cfg.Matcher.Indicators,
			MinItemScore: cfg.Matcher.MinItemScore,
		}),
		Registry: dedup.NewRegistry(cfg.Scan.RetainCycles),
		Formatter: alert.NewFormatter(alert.Thresholds{
			MinNotifyScore:     cfg.Alert.MinNotifyScore,
			IdentifierMinScore: cfg.Alert.IdentifierMinScore,
		}, loc),
		Notifier:           notifier,
		Recipients:         recipients,
		Interval:           cfg.Scan.Interval,
		ErrorBackoff:       cfg.Scan.ErrorBackoff,
		RequestDelay:       cfg.Scan.RequestDelay,
		MaxWorkers:         cfg.Scan.MaxWorkers,
		RequeueUndelivered: cfg.Telegram.RequeueUndelivered,
	}

	var jrn *journal.Journal
	if cfg.Journal.DSN != "" {
		if jrn, err = journal.New(ctx, journal.Config{DSN: cfg.Journal.DSN, MaxOpenConns: 1}); err != nil {
			return fmt.Errorf("failed to open journal: %w", err)
		}
		defer func() {
			if err := jrn.Close(); err != nil {
				lgr.Printf("[WARN] failed to close journal: %v", err)
			}
		}()
		params.Journal = jrn
	}

	mon := monitor.New(params)
	lgr.Printf("[INFO] watching %d candidates on %d sources", wl.Len(), len(params.Sources))

	if opts.Once {
		rep, err := mon.ScanOnce(ctx)
		if err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}
		lgr.Printf("[INFO] single scan done, %d alerts", rep.Alerts)
		return nil
	}

	if listen, _ := cfg.GetServerConfig(); listen != "" {
		var srvJournal server.Journal
		if jrn != nil {
			srvJournal = jrn
		}
		srv := server.New(cfg, mon, srvJournal, revision, opts.Debug)
		go func() {
			if err := srv.Run(ctx); err != nil {
				lgr.Printf("[ERROR] server failed: %v", err)
			}
		}()
	}

	return mon.Run(ctx)
}

// loadConfig reads config file if set and applies CLI overrides
func loadConfig(opts Opts) (*config.Config, error) {
	cfg := config.Default()
	if opts.Config != "" {
		var err error
		if cfg, err = config.Load(opts.Config); err != nil {
			return nil, err
		}
	}

	if opts.Token != "" {
		cfg.Telegram.Token = opts.Token
	}
	if ids := splitIDs(opts.ChatIDs); len(ids) > 0 {
		cfg.Telegram.ChatIDs = ids
	}
	return cfg, nil
}

// loadEnvFile sets variables from the env file if it exists, already set variables win
func loadEnvFile(path string) {
	if _, err := os.Stat(path); err != nil {
		return
	}
	if err := godotenv.Load(path); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
	}
}

// splitIDs flattens comma separated ids and drops blanks
func splitIDs(values []string) []string {
	var res []string
	for _, v := range values {
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				res = append(res, id)
			}
		}
	}
	return res
}

func sendTestMessage(ctx context.Context, notifier transport, recipients []string) error {
	msg := fmt.Sprintf("🧪 <b>TEST</b> messaggio di prova da habemus %s\n⏰ %s", revision,
		time.Now().Format("02/01/2006 15:04:05"))
	deliveries := notifier.Send(ctx, recipients, msg)
	for _, d := range deliveries {
		if d.Err != nil {
			lgr.Printf("[WARN] test message to %s failed: %v", d.Recipient, d.Err)
			continue
		}
		lgr.Printf("[INFO] test message sent to %s", d.Recipient)
	}
	if len(deliveries) > 0 && notify.Delivered(deliveries) == 0 {
		return errors.New("test message was not delivered to any recipient")
	}
	return nil
}

func setupLog(dbg, noColor bool, secs ...string) {
	logOpts := []lgr.Option{lgr.Msec, lgr.LevelBraces}
	if dbg {
		logOpts = []lgr.Option{lgr.Debug, lgr.CallerFile, lgr.CallerFunc, lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	}

	if !noColor {
		colorizer := lgr.Mapper{
			ErrorFunc:  func(s string) string { return color.New(color.FgHiRed).Sprint(s) },
			WarnFunc:   func(s string) string { return color.New(color.FgRed).Sprint(s) },
			InfoFunc:   func(s string) string { return color.New(color.FgYellow).Sprint(s) },
			DebugFunc:  func(s string) string { return color.New(color.FgWhite).Sprint(s) },
			CallerFunc: func(s string) string { return color.New(color.FgBlue).Sprint(s) },
			TimeFunc:   func(s string) string { return color.New(color.FgCyan).Sprint(s) },
		}
		logOpts = append(logOpts, lgr.Map(colorizer))
	}

	var secrets []string
	for _, s := range secs {
		if s != "" {
			secrets = append(secrets, s)
		}
	}
	if len(secrets) > 0 {
		logOpts = append(logOpts, lgr.Secret(secrets...))
	}
	lgr.SetupStdLogger(logOpts...)
	lgr.Setup(logOpts...)
}
