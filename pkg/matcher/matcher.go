// Package matcher detects items reporting that a watched candidate was elected.
//
// Matching runs in two stages. A cheap gate keeps only items containing at least one strong
// indicator phrase, then each candidate is tested against an ordered list of proximity rules
// requiring an election phrase and the candidate name inside the same sentence, in either order.
// Every hit is scored and only hits at or above the minimal item score are kept.
package matcher

import (
	"regexp"
	"strings"

	"github.com/go-pkgz/lgr"

	"github.com/umputun/habemus/pkg/domain"
	"github.com/umputun/habemus/pkg/textnorm"
)

// DefaultMinItemScore is the minimal score of a single item to be kept
const DefaultMinItemScore = 2

// headlineBonus is added when the headline alone names the candidate and carries an indicator
const headlineBonus = 5

// gap matches any text inside the same sentence
const gap = `[^.!?]*`

// DefaultIndicators are phrases denoting an actual election rather than a generic mention
var DefaultIndicators = []string{
	"fumata bianca",
	"habemus papam",
	"è il nuovo papa",
	"nuovo pontefice",
	"eletto papa",
	"sarà il prossimo papa",
	"è stato eletto",
	"succederà a francesco",
}

// rule is a proximity rule, the candidate name goes between lead and trail, separated by gap.
// Both fragments are regular expressions over normalized text.
type rule struct {
	lead  string
	trail string
}

// proximityRules is ordered, first satisfied rule wins
var proximityRules = []rule{
	{lead: `(?:nuovo|eletto|proclamato) papa `},
	{trail: ` (?:eletto|scelto|diventa|e il nuovo|nominato) papa`},
	{lead: `fumata bianca`},
	{trail: `fumata bianca`},
	{lead: `(?:conclave|cardinali) `, trail: `(?:eletto|scelto|nominato)`},
	{lead: `successore di (?:papa |francesco)`},
	{trail: `successore di (?:papa |francesco)`},
}

// Options tunes matcher
type Options struct {
	Indicators   []string // strong indicator phrases in any form, DefaultIndicators if empty
	MinItemScore int      // DefaultMinItemScore if zero
}

// Matcher finds scored items per candidate. It is safe for concurrent use.
type Matcher struct {
	candidates   []candidatePatterns
	indicators   []string
	minItemScore int
}

// candidatePatterns keeps normalized name and compiled rules of a candidate
type candidatePatterns struct {
	candidate domain.Candidate
	name      string
	patterns  []*regexp.Regexp
}

// CandidateMatch holds items kept for a candidate, never empty
type CandidateMatch struct {
	Candidate domain.Candidate
	Items     []domain.ScoredItem
}

// Stats counts matcher decisions, for diagnostics only
type Stats struct {
	Items         int // items inspected
	GateMisses    int // items without any strong indicator
	PatternMisses int // item-candidate pairs with no proximity rule satisfied
	LowScore      int // item-candidate hits discarded by the item score threshold
	Hits          int // item-candidate hits kept
}

// Result of a Match call. Matches are ordered as candidates were passed to New.
type Result struct {
	Matches []CandidateMatch
	Stats   Stats
}

// New makes matcher for candidates, patterns are compiled once here
func New(candidates []domain.Candidate, opts Options) *Matcher {
	indicators := opts.Indicators
	if len(indicators) == 0 {
		indicators = DefaultIndicators
	}
	m := &Matcher{
		indicators:   textnorm.NormalizeAll(indicators),
		minItemScore: opts.MinItemScore,
	}
	if m.minItemScore <= 0 {
		m.minItemScore = DefaultMinItemScore
	}

	for _, c := range candidates {
		name := textnorm.Normalize(c.FullName)
		if name == "" {
			lgr.Printf("[WARN] candidate %q has no matchable name, skipped", c.FullName)
			continue
		}
		cp := candidatePatterns{candidate: c, name: name, patterns: make([]*regexp.Regexp, 0, len(proximityRules))}
		for _, r := range proximityRules {
			cp.patterns = append(cp.patterns, compileRule(r, name))
		}
		m.candidates = append(m.candidates, cp)
	}
	return m
}

// Match returns, per candidate, the items reporting the candidate election with enough confidence
func (m *Matcher) Match(items []domain.Item) Result {
	res := Result{Stats: Stats{Items: len(items)}}
	if len(m.candidates) == 0 || len(items) == 0 {
		return res
	}

	hits := make([][]domain.ScoredItem, len(m.candidates))
	for _, item := range items {
		headline := textnorm.Normalize(item.Headline)
		text := headline + " " + textnorm.Normalize(item.Content)

		// gate goes first, no pattern runs for items without any indicator
		if !m.containsIndicator(text) {
			res.Stats.GateMisses++
			continue
		}

		for i, cp := range m.candidates {
			if !cp.matches(text) {
				res.Stats.PatternMisses++
				continue
			}
			score := m.score(cp.name, headline, text)
			if score < m.minItemScore {
				res.Stats.LowScore++
				lgr.Printf("[DEBUG] %s mentioned in %q with low score %d, dropped", cp.candidate.FullName, item.Headline, score)
				continue
			}
			res.Stats.Hits++
			hits[i] = append(hits[i], domain.NewScoredItem(item, score))
		}
	}

	for i, cp := range m.candidates {
		if len(hits[i]) == 0 {
			continue
		}
		res.Matches = append(res.Matches, CandidateMatch{Candidate: cp.candidate, Items: hits[i]})
	}
	return res
}

// score computes confidence of a hit: headline bonus plus one per distinct indicator in text
func (m *Matcher) score(name, headline, text string) int {
	score := 0
	if strings.Contains(headline, name) && m.containsIndicator(headline) {
		score += headlineBonus
	}
	for _, ind := range m.indicators {
		if strings.Contains(text, ind) {
			score++
		}
	}
	return score
}

func (m *Matcher) containsIndicator(text string) bool {
	for _, ind := range m.indicators {
		if strings.Contains(text, ind) {
			return true
		}
	}
	return false
}

func (cp candidatePatterns) matches(text string) bool {
	for _, re := range cp.patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// compileRule builds the regexp of rule r for the normalized name. The name is a literal,
// metacharacters are escaped and word boundaries are set only next to word characters.
func compileRule(r rule, name string) *regexp.Regexp {
	var sb strings.Builder
	if r.lead != "" {
		sb.WriteString(r.lead)
		sb.WriteString(gap)
	}
	sb.WriteString(literalName(name))
	if r.trail != "" {
		sb.WriteString(gap)
		sb.WriteString(r.trail)
	}
	return regexp.MustCompile(sb.String())
}

func literalName(name string) string {
	expr := regexp.QuoteMeta(name)
	if isWordChar(name[0]) {
		expr = `\b` + expr
	}
	if isWordChar(name[len(name)-1]) {
		expr += `\b`
	}
	return expr
}

func isWordChar(b byte) bool {
	return b == '_' || (b >= '0' && b <= '9') || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
