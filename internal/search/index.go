// Package search provides a simple, deterministic, concurrency-safe in-memory
// search index over a day's meal listings. It is intentionally small and
// dependency-free, but engineered with production-grade ergonomics:
//
//   - No logging in the library (callers decide how/what to log)
//   - Clear, documented types and functional options (Option pattern)
//   - Unicode-aware tokenization with optional stop-word removal
//   - Immutable, read-only index after construction (safe for concurrent use)
//   - Deterministic scoring and sorting (stable order for ties)
//
// Scoring uses Jaccard similarity between the query token set and each
// meal's token set: score = |Q ∩ M| / |Q ∪ M|.
package search

import (
	"regexp"
	"sort"
	"strings"

	"github.com/tbourn/go-food-backend/internal/domain"
)

// Result is a ranked meal with its similarity score.
type Result struct {
	MealID   string  `json:"meal_id"`
	VendorID string  `json:"vendor_id"`
	Name     string  `json:"name"`
	Score    float64 `json:"score"`
}

// Index is the minimal interface implemented by all search indices.
type Index interface {
	TopK(query string, k int) []Result
}

// ----------------------------------------------------------------------------
// Options

type Option func(*config)

type config struct {
	stopwords map[string]struct{}
}

func defaultConfig() config {
	return config{stopwords: nil}
}

// WithStopwords removes the given words from both query and meal tokens.
func WithStopwords(words []string) Option {
	return func(c *config) {
		m := make(map[string]struct{}, len(words))
		for _, w := range words {
			w = strings.ToLower(strings.TrimSpace(w))
			if w != "" {
				m[w] = struct{}{}
			}
		}
		if len(m) > 0 {
			c.stopwords = m
		}
	}
}

// ----------------------------------------------------------------------------
// Implementation

type doc struct {
	id       string
	vendorID string
	name     string
	tokens   map[string]struct{}
	tLen     int
}

type index struct {
	cfg  config
	docs []doc
}

// NewMenuIndex builds an immutable Index over the given meal listings,
// tokenizing each meal's name and description. Meals producing no tokens
// (after stop-word removal) are skipped.
func NewMenuIndex(meals []domain.Meal, opts ...Option) Index {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	docs := make([]doc, 0, len(meals))
	for i := range meals {
		m := &meals[i]
		toks := tokenize(m.Name+" "+m.Description, cfg.stopwords)
		if len(toks) == 0 {
			continue
		}
		docs = append(docs, doc{
			id:       m.ID,
			vendorID: m.VendorID,
			name:     m.Name,
			tokens:   toks,
			tLen:     len(toks),
		})
	}
	return &index{cfg: cfg, docs: docs}
}

// TopK returns up to k best-matching meals by Jaccard similarity.
func (i *index) TopK(q string, k int) []Result {
	if len(i.docs) == 0 {
		return nil
	}
	if strings.TrimSpace(q) == "" {
		return nil
	}
	if k <= 0 {
		k = 3
	}
	qTokens := tokenize(q, i.cfg.stopwords)
	if len(qTokens) == 0 {
		return nil
	}
	qLen := len(qTokens)

	type scored struct {
		doc   *doc
		score float64
	}

	buf := make([]scored, 0, len(i.docs))
	for d := range i.docs {
		dd := &i.docs[d]
		over := overlap(qTokens, dd.tokens)
		if over == 0 {
			continue
		}
		union := float64(qLen + dd.tLen - over)
		if union <= 0 {
			continue
		}
		score := float64(over) / union
		if score <= 0 {
			continue
		}
		buf = append(buf, scored{doc: dd, score: score})
	}
	if len(buf) == 0 {
		return nil
	}

	sort.SliceStable(buf, func(a, b int) bool {
		if buf[a].score != buf[b].score {
			return buf[a].score > buf[b].score
		}
		if buf[a].doc.name != buf[b].doc.name {
			return buf[a].doc.name < buf[b].doc.name
		}
		return buf[a].doc.id < buf[b].doc.id
	})

	if k > len(buf) {
		k = len(buf)
	}
	out := make([]Result, k)
	for n := 0; n < k; n++ {
		out[n] = Result{
			MealID:   buf[n].doc.id,
			VendorID: buf[n].doc.vendorID,
			Name:     buf[n].doc.name,
			Score:    buf[n].score,
		}
	}
	return out
}

// ----------------------------------------------------------------------------
// Helpers

var wordRE = regexp.MustCompile(`\p{L}+\p{N}*`)

func tokenize(s string, stop map[string]struct{}) map[string]struct{} {
	s = strings.ToLower(s)
	words := wordRE.FindAllString(s, -1)
	if len(words) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		if w == "" {
			continue
		}
		if stop != nil {
			if _, skip := stop[w]; skip {
				continue
			}
		}
		out[w] = struct{}{}
	}
	return out
}

func overlap(a, b map[string]struct{}) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	n := 0
	if len(a) > len(b) {
		a, b = b, a
	}
	for k := range a {
		if _, ok := b[k]; ok {
			n++
		}
	}
	return n
}
