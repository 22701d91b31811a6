// Package watchlist loads the static set of watched candidates and their optional external
// identifiers. Loading never fails hard, a broken or missing file degrades to an empty list.
package watchlist

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-pkgz/lgr"
	"gopkg.in/yaml.v3"

	"github.com/umputun/habemus/pkg/domain"
)

// Watchlist is an immutable, ordered set of candidates
type Watchlist struct {
	candidates []domain.Candidate
}

// candidateRecord is a single entry of the candidates file. Legacy files use italian keys.
type candidateRecord struct {
	Name       string `json:"name" yaml:"name"`
	Surname    string `json:"surname" yaml:"surname"`
	Nome       string `json:"nome" yaml:"nome"`
	Cognome    string `json:"cognome" yaml:"cognome"`
	ExternalID string `json:"external_id" yaml:"external_id"`
}

// identifierRecord is a single entry of the identifiers file
type identifierRecord struct {
	Name         string `json:"name" yaml:"name"`
	FullName     string `json:"full_name" yaml:"full_name"`
	TokenAddress string `json:"token_address" yaml:"token_address"`
}

// New makes watchlist from candidates, skipping blank and repeated full names
func New(candidates []domain.Candidate) *Watchlist {
	w := &Watchlist{}
	names := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		c.FullName = strings.TrimSpace(c.FullName)
		if c.FullName == "" {
			continue
		}
		if _, ok := names[c.FullName]; ok {
			lgr.Printf("[DEBUG] duplicate candidate %q ignored", c.FullName)
			continue
		}
		names[c.FullName] = struct{}{}
		w.candidates = append(w.candidates, c)
	}
	return w
}

// Load reads candidates from candidatesPath and, if identifiersPath is not empty, external
// identifiers from identifiersPath. Any failure is logged and results in an empty watchlist
// (or a watchlist without identifiers).
func Load(candidatesPath, identifiersPath string) *Watchlist {
	var records []candidateRecord
	if err := readRecords(candidatesPath, &records); err != nil {
		lgr.Printf("[WARN] failed to load candidates, watchlist is empty: %v", err)
		return New(nil)
	}

	var idents []identifierRecord
	if identifiersPath != "" {
		if err := readRecords(identifiersPath, &idents); err != nil {
			lgr.Printf("[WARN] failed to load external identifiers: %v", err)
			idents = nil
		}
	}

	candidates := make([]domain.Candidate, 0, len(records))
	for _, r := range records {
		name, surname := r.Name, r.Surname
		if name == "" && surname == "" {
			name, surname = r.Nome, r.Cognome
		}
		c := domain.NewCandidate(name, surname, r.ExternalID)
		if c.ExternalID == "" {
			c.ExternalID = lookupIdentifier(idents, c.FullName)
		}
		candidates = append(candidates, c)
	}

	w := New(candidates)
	lgr.Printf("[INFO] loaded %d candidates, %d with external identifier", w.Len(), w.withIdentifiers())
	return w
}

// Candidates returns a copy of the candidates, in load order
func (w *Watchlist) Candidates() []domain.Candidate {
	res := make([]domain.Candidate, len(w.candidates))
	copy(res, w.candidates)
	return res
}

// Len returns number of candidates
func (w *Watchlist) Len() int {
	return len(w.candidates)
}

func (w *Watchlist) withIdentifiers() int {
	n := 0
	for _, c := range w.candidates {
		if c.ExternalID != "" {
			n++
		}
	}
	return n
}

// lookupIdentifier finds the token address whose name or full name equals the candidate full name
func lookupIdentifier(idents []identifierRecord, fullName string) string {
	for _, id := range idents {
		if fullName == id.Name || fullName == id.FullName {
			return strings.TrimSpace(id.TokenAddress)
		}
	}
	return ""
}

// readRecords decodes a json or yaml list from path into dest, format is selected by extension
func readRecords(path string, dest any) error {
	if path == "" {
		return fmt.Errorf("no file set")
	}
	data, err := os.ReadFile(path) //nolint:gosec // path comes from config
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		if err := yaml.Unmarshal(data, dest); err != nil {
			return fmt.Errorf("parse yaml %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, dest); err != nil {
			return fmt.Errorf("parse json %s: %w", path, err)
		}
	}
	return nil
}
