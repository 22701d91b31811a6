// Package alert formats candidate evidence into a telegram-ready html message and decides
// whether the evidence is strong enough to be sent at all.
package alert

import (
	"fmt"
	"html"
	"strings"
	"time"
	_ "time/tzdata" // civil timezone must load on hosts without zoneinfo

	"github.com/umputun/habemus/pkg/domain"
)

// DefaultTimezone is the civil timezone of message timestamps
const DefaultTimezone = "Europe/Rome"

// excerptLen is the max number of characters of content shown per item
const excerptLen = 150

// Level is a traffic-light confidence indicator
type Level int

// enum of levels
const (
	LevelLow Level = iota
	LevelMedium
	LevelHigh
)

// Emoji returns the traffic light of the level
func (l Level) Emoji() string {
	switch l {
	case LevelHigh:
		return "🟢"
	case LevelMedium:
		return "🟡"
	default:
		return "🔴"
	}
}

func (l Level) String() string {
	switch l {
	case LevelHigh:
		return "high"
	case LevelMedium:
		return "medium"
	default:
		return "low"
	}
}

// Thresholds are independent knobs applied to the mean score of new items
type Thresholds struct {
	MinNotifyScore     float64 // send nothing below it
	IdentifierMinScore float64 // external identifier shown only at or above it
	MediumScore        float64 // medium level at or above it, below is low
	HighScore          float64 // high level at or above it
	DisclaimerBelow    float64 // low reliability disclaimer below it
}

// DefaultThresholds returns thresholds used when nothing is configured
func DefaultThresholds() Thresholds {
	return Thresholds{MinNotifyScore: 2, IdentifierMinScore: 3, MediumScore: 3, HighScore: 5, DisclaimerBelow: 3}
}

// Formatter makes alert messages. Zero values of Thresholds fields are replaced by defaults.
type Formatter struct {
	thresholds Thresholds
	location   *time.Location
	now        func() time.Time
}

// NewFormatter makes formatter with timestamps in loc, DefaultTimezone if loc is nil
func NewFormatter(th Thresholds, loc *time.Location) *Formatter {
	def := DefaultThresholds()
	if th.MinNotifyScore <= 0 {
		th.MinNotifyScore = def.MinNotifyScore
	}
	if th.IdentifierMinScore <= 0 {
		th.IdentifierMinScore = def.IdentifierMinScore
	}
	if th.MediumScore <= 0 {
		th.MediumScore = def.MediumScore
	}
	if th.HighScore <= 0 {
		th.HighScore = def.HighScore
	}
	if th.DisclaimerBelow <= 0 {
		th.DisclaimerBelow = def.DisclaimerBelow
	}
	if loc == nil {
		var err error
		if loc, err = time.LoadLocation(DefaultTimezone); err != nil {
			loc = time.UTC
		}
	}
	return &Formatter{thresholds: th, location: loc, now: time.Now}
}

// Thresholds returns effective thresholds
func (f *Formatter) Thresholds() Thresholds {
	return f.thresholds
}

// ShouldSend reports if the mean score of new items is enough to notify
func (f *Formatter) ShouldSend(mean float64) bool {
	return mean >= f.thresholds.MinNotifyScore
}

// Level returns the confidence level of a score
func (f *Formatter) Level(score float64) Level {
	switch {
	case score >= f.thresholds.HighScore:
		return LevelHigh
	case score >= f.thresholds.MediumScore:
		return LevelMedium
	default:
		return LevelLow
	}
}

// Format builds the message for candidate evidence. The output depends only on the inputs
// and the current time. externalID is shown only when not empty and the mean score is high enough.
func (f *Formatter) Format(candidate string, items []domain.ScoredItem, externalID string) string {
	mean := domain.MeanScore(items)
	level := f.Level(mean)
	light := level.Emoji()

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s <b>POSSIBILE ELEZIONE:</b> Menzioni di <b>%s</b> trovate!\n", light, html.EscapeString(candidate))
	fmt.Fprintf(&sb, "⏰ Data e ora: %s\n", f.now().In(f.location).Format("02/01/2006 15:04:05"))
	fmt.Fprintf(&sb, "🔍 <b>Affidabilità:</b> %s %.1f/10\n\n", light, mean)

	if mean < f.thresholds.DisclaimerBelow {
		sb.WriteString("⚠️ <b>ATTENZIONE:</b> Bassa affidabilità della notizia. Potrebbero essere solo menzioni casuali.\n\n")
	}

	articles := make([]domain.ScoredItem, 0, len(items))
	for _, it := range items {
		if it.Kind == domain.KindArticle {
			articles = append(articles, it)
		}
	}
	if len(articles) > 0 {
		fmt.Fprintf(&sb, "📰 <b>ARTICOLI (%d):</b>\n\n", len(articles))
		for i, a := range articles {
			fmt.Fprintf(&sb, "<b>Articolo %d:</b> %s %d/10\n", i+1, f.Level(float64(a.Score)).Emoji(), a.Score)
			fmt.Fprintf(&sb, "📝 <b>Titolo:</b> %s\n", html.EscapeString(a.Headline))
			fmt.Fprintf(&sb, "💬 <b>Estratto:</b> %s\n", html.EscapeString(Excerpt(a.Content)))
			fmt.Fprintf(&sb, "🌐 <b>Fonte:</b> %s\n", html.EscapeString(a.Source))
			if a.Link != "" {
				fmt.Fprintf(&sb, "🔗 <b>Link:</b> %s\n", html.EscapeString(a.Link))
			}
			sb.WriteString("\n")
		}
	}

	if externalID != "" && mean >= f.thresholds.IdentifierMinScore {
		id := html.EscapeString(externalID)
		fmt.Fprintf(&sb, "🪙 <b>TOKEN ADDRESS:</b> <code>%s</code>\n\n", id)
		fmt.Fprintf(&sb, "🔄 <b>PER ACQUISTARE:</b> /buy %s [amount]\n\n", id)
	}

	sb.WriteString("⚠️ Verificare immediatamente queste informazioni!")
	return sb.String()
}

// Excerpt returns the first 150 characters of s, with "..." appended only if s was cut
func Excerpt(s string) string {
	r := []rune(s)
	if len(r) <= excerptLen {
		return s
	}
	return string(r[:excerptLen]) + "..."
}
