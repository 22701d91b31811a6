// Package monitor drives scan cycles: fetch and extract all sources, match candidates,
// keep only new evidence, format and deliver alerts.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/umputun/habemus/pkg/alert"
	"github.com/umputun/habemus/pkg/dedup"
	"github.com/umputun/habemus/pkg/domain"
	"github.com/umputun/habemus/pkg/journal"
	"github.com/umputun/habemus/pkg/matcher"
	"github.com/umputun/habemus/pkg/notify"
)

//go:generate moq -out mocks/fetcher.go -pkg mocks -skip-ensure -fmt goimports . Fetcher
//go:generate moq -out mocks/extractor.go -pkg mocks -skip-ensure -fmt goimports . Extractor
//go:generate moq -out mocks/notifier.go -pkg mocks -skip-ensure -fmt goimports . Notifier
//go:generate moq -out mocks/journal.go -pkg mocks -skip-ensure -fmt goimports . Journal

// DefaultErrorBackoff is the pause after a failed cycle
const DefaultErrorBackoff = 60 * time.Second

// ErrNoContent returned by ScanOnce when every source failed
var ErrNoContent = errors.New("no source returned content")

// Fetcher loads raw content of a source
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Extractor turns raw content of a source into items
type Extractor interface {
	Extract(src domain.Source, raw string) ([]domain.Item, error)
}

// itemMemory is implemented by extractors remembering produced items across cycles
type itemMemory interface {
	Forget(ids []string)
	Len() int
}

// Notifier delivers a message to recipients, one delivery per recipient
type Notifier interface {
	Send(ctx context.Context, recipients []string, text string) []notify.Delivery
}

// Journal records alert decisions
type Journal interface {
	Record(ctx context.Context, e *journal.Entry) error
}

// Params defines monitor dependencies and settings
type Params struct {
	Sources            []domain.Source
	Fetcher            Fetcher
	Extractor          Extractor
	Matcher            *matcher.Matcher
	Registry           *dedup.Registry
	Formatter          *alert.Formatter
	Notifier           Notifier
	Journal            Journal // optional
	Recipients         []string
	Interval           time.Duration // between cycles, 60s if zero
	ErrorBackoff       time.Duration // after a failed cycle, DefaultErrorBackoff if zero
	RequestDelay       time.Duration // minimal spacing between fetch starts across workers
	MaxWorkers         int           // parallel source fetches, 5 if zero
	RequeueUndelivered bool          // forget evidence of alerts not delivered to anyone
}

// Monitor runs scan cycles. Cycles never overlap.
type Monitor struct {
	Params

	cycleMu sync.Mutex // serializes cycles
	limiter *rate.Limiter

	mu     sync.RWMutex
	last   Report
	cycles int
}

// Report describes a completed cycle
type Report struct {
	Cycle         int               `json:"cycle"`
	StartedAt     time.Time         `json:"started_at"`
	FinishedAt    time.Time         `json:"finished_at"`
	Sources       int               `json:"sources"`
	FailedSources int               `json:"failed_sources"`
	Items         int               `json:"items"`
	Stats         matcher.Stats     `json:"stats"`
	Candidates    []CandidateReport `json:"candidates,omitempty"`
	Alerts        int               `json:"alerts"`
	EvidenceIDs   int               `json:"evidence_ids"`  // ids in the evidence registry
	ExtractedIDs  int               `json:"extracted_ids"` // ids remembered by the extractor
	Error         string            `json:"error,omitempty"`
}

// CandidateReport describes the outcome for a candidate with new evidence
type CandidateReport struct {
	Candidate  string              `json:"candidate"`
	Evidence   []domain.ScoredItem `json:"evidence"`
	MeanScore  float64             `json:"mean_score"`
	Level      string              `json:"level"`
	Sent       bool                `json:"sent"`
	Recipients int                 `json:"recipients"`
	Delivered  int                 `json:"delivered"`
	Requeued   bool                `json:"requeued,omitempty"`
	Error      string              `json:"error,omitempty"`
}

// New makes a monitor, applying defaults
func New(p Params) *Monitor {
	if p.Interval <= 0 {
		p.Interval = 60 * time.Second
	}
	if p.ErrorBackoff <= 0 {
		p.ErrorBackoff = DefaultErrorBackoff
	}
	if p.MaxWorkers <= 0 {
		p.MaxWorkers = 5
	}
	if p.Matcher == nil {
		p.Matcher = matcher.New(nil, matcher.Options{})
	}
	if p.Registry == nil {
		p.Registry = dedup.NewRegistry(0)
	}
	if p.Formatter == nil {
		p.Formatter = alert.NewFormatter(alert.DefaultThresholds(), nil)
	}
	if p.Notifier == nil {
		p.Notifier = notify.Log{}
	}
	limit := rate.Inf
	if p.RequestDelay > 0 {
		limit = rate.Every(p.RequestDelay)
	}
	return &Monitor{Params: p, limiter: rate.NewLimiter(limit, 1)}
}

// Run executes the first cycle immediately and then every interval until ctx is canceled.
// A failed cycle is followed by the error backoff instead of the regular interval.
func (m *Monitor) Run(ctx context.Context) error {
	lgr.Printf("[INFO] monitor started, %d sources, interval %v, recipients %d",
		len(m.Sources), m.Interval, len(m.Recipients))
	for {
		wait := m.Interval
		if _, err := m.safeScan(ctx); err != nil {
			if ctx.Err() != nil {
				break
			}
			lgr.Printf("[WARN] scan cycle failed, next attempt in %v: %v", m.ErrorBackoff, err)
			wait = m.ErrorBackoff
		}

		select {
		case <-ctx.Done():
			lgr.Printf("[INFO] monitor stopped")
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	lgr.Printf("[INFO] monitor stopped")
	return ctx.Err()
}

// LastReport returns the report of the most recent cycle
func (m *Monitor) LastReport() Report {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last
}

// Evidence returns ids of surfaced items per candidate
func (m *Monitor) Evidence() map[string][]string {
	return m.Registry.Snapshot()
}

// safeScan runs ScanOnce and turns a panic into an error
func (m *Monitor) safeScan(ctx context.Context) (rep Report, err error) {
	defer func() {
		if r := recover(); r != nil {
			lgr.Printf("[ERROR] scan cycle panic: %v\n%s", r, debug.Stack())
			err = fmt.Errorf("scan panic: %v", r)
		}
	}()
	return m.ScanOnce(ctx)
}

// ScanOnce performs a single cycle and returns its report. Returns an error if the context
// is canceled or no source returned content.
func (m *Monitor) ScanOnce(ctx context.Context) (Report, error) {
	m.cycleMu.Lock()
	defer m.cycleMu.Unlock()

	rep := Report{StartedAt: time.Now(), Sources: len(m.Sources)}
	m.mu.Lock()
	m.cycles++
	rep.Cycle = m.cycles
	m.mu.Unlock()

	items, failed := m.collect(ctx)
	rep.Items, rep.FailedSources = len(items), failed

	var err error
	switch {
	case ctx.Err() != nil:
		err = ctx.Err()
	case len(m.Sources) > 0 && failed == len(m.Sources):
		err = ErrNoContent
	default:
		res := m.Matcher.Match(items)
		rep.Stats = res.Stats
		for _, cm := range res.Matches {
			cr, ok := m.processCandidate(ctx, cm)
			if !ok {
				continue
			}
			if cr.Sent {
				rep.Alerts++
			}
			rep.Candidates = append(rep.Candidates, cr)
		}
		if evicted := m.Registry.NextCycle(); len(evicted) > 0 {
			lgr.Printf("[DEBUG] %d evidence ids expired", len(evicted))
			m.forgetExtracted(evicted)
		}
	}

	rep.EvidenceIDs = m.Registry.Len()
	if mem, ok := m.Extractor.(itemMemory); ok {
		rep.ExtractedIDs = mem.Len()
	}
	rep.FinishedAt = time.Now()
	if err != nil {
		rep.Error = err.Error()
	}
	lgr.Printf("[INFO] cycle %d done in %v: sources %d (failed %d), items %d, hits %d, alerts %d",
		rep.Cycle, rep.FinishedAt.Sub(rep.StartedAt).Round(time.Millisecond), rep.Sources, rep.FailedSources,
		rep.Items, rep.Stats.Hits, rep.Alerts)

	m.mu.Lock()
	m.last = rep
	m.mu.Unlock()
	return rep, err
}

// collect fetches and extracts all sources in parallel, returns items and the number of failed sources
func (m *Monitor) collect(ctx context.Context) (items []domain.Item, failed int) {
	var mu sync.Mutex
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(m.MaxWorkers)

	for _, src := range m.Sources {
		g.Go(func() error {
			srcItems, err := m.collectSource(gCtx, src)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				lgr.Printf("[WARN] source %s skipped: %v", src.URL, err)
				failed++
				return nil // a failed source never aborts others
			}
			lgr.Printf("[DEBUG] source %s: %d items", src.URL, len(srcItems))
			items = append(items, srcItems...)
			return nil
		})
	}
	_ = g.Wait()
	return items, failed
}

// collectSource fetches and extracts a single source, fetches are paced by the request delay
func (m *Monitor) collectSource(ctx context.Context, src domain.Source) (items []domain.Item, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extraction panic: %v", r)
		}
	}()

	if err = m.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	raw, err := m.Fetcher.Fetch(ctx, src.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	if raw == "" {
		return nil, nil
	}
	if items, err = m.Extractor.Extract(src, raw); err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	return items, nil
}

// processCandidate handles a single candidate match. Returns false if nothing new was found.
// A panic is recovered and reported, other candidates are not affected.
func (m *Monitor) processCandidate(ctx context.Context, cm matcher.CandidateMatch) (cr CandidateReport, ok bool) {
	name := cm.Candidate.FullName
	cr.Candidate = name
	defer func() {
		if r := recover(); r != nil {
			lgr.Printf("[ERROR] candidate %s processing panic: %v", name, r)
			cr.Error, ok = fmt.Sprintf("panic: %v", r), true
		}
	}()

	fresh := m.Registry.FilterNew(name, cm.Items)
	if len(fresh) == 0 {
		lgr.Printf("[DEBUG] candidate %s: %d hits, nothing new", name, len(cm.Items))
		return cr, false
	}

	cr.Evidence = fresh
	cr.MeanScore = domain.MeanScore(fresh)
	cr.Level = m.Formatter.Level(cr.MeanScore).String()
	msg := m.Formatter.Format(name, fresh, cm.Candidate.ExternalID)

	if !m.Formatter.ShouldSend(cr.MeanScore) {
		lgr.Printf("[INFO] candidate %s: %d new items, mean score %.2f below threshold, not sent",
			name, len(fresh), cr.MeanScore)
		m.record(ctx, cr, msg)
		return cr, true
	}

	deliveries := m.Notifier.Send(ctx, m.Recipients, msg)
	cr.Sent = true
	cr.Recipients = len(deliveries)
	cr.Delivered = notify.Delivered(deliveries)
	for _, d := range deliveries {
		if d.Err != nil {
			lgr.Printf("[WARN] alert for %s not delivered to %s: %v", name, d.Recipient, d.Err)
		}
	}
	lgr.Printf("[INFO] alert for %s sent: %d new items, mean score %.2f, delivered %d/%d",
		name, len(fresh), cr.MeanScore, cr.Delivered, len(deliveries))

	if m.RequeueUndelivered && len(deliveries) > 0 && cr.Delivered == 0 {
		ids := domain.IDs(fresh)
		m.Registry.Forget(name, ids)
		m.forgetExtracted(ids)
		cr.Requeued = true
		lgr.Printf("[INFO] evidence for %s requeued for the next cycle", name)
	}

	m.record(ctx, cr, msg)
	return cr, true
}

// forgetExtracted lets the extractor produce ids again, so they reach the matcher next cycle
func (m *Monitor) forgetExtracted(ids []string) {
	if mem, ok := m.Extractor.(itemMemory); ok {
		mem.Forget(ids)
	}
}

// record writes the journal entry, failures are logged only
func (m *Monitor) record(ctx context.Context, cr CandidateReport, msg string) {
	if m.Journal == nil {
		return
	}
	entry := &journal.Entry{
		Candidate:  cr.Candidate,
		MeanScore:  cr.MeanScore,
		Level:      cr.Level,
		ItemIDs:    domain.IDs(cr.Evidence),
		Message:    msg,
		Sent:       cr.Sent,
		Recipients: cr.Recipients,
		Delivered:  cr.Delivered,
	}
	if err := m.Journal.Record(ctx, entry); err != nil {
		lgr.Printf("[WARN] failed to record alert for %s: %v", cr.Candidate, err)
	}
}
