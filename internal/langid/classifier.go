// Package langid is a rule-based language identifier for short chat input in
// English and the Indian languages the assistant supports. It is the offline
// fallback for remote detection: every call returns a catalog code and never
// fails.
package langid

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// minTextRunes is the shortest trimmed input worth classifying.
	minTextRunes = 2
	// greetingMaxRunes bounds the inputs checked against greeting phrases.
	greetingMaxRunes = 20
)

// Method names the rule that decided a classification.
type Method string

const (
	MethodTooShort  Method = "too-short"
	MethodNoTokens  Method = "no-tokens"
	MethodSingle    Method = "single"
	MethodExclusive Method = "exclusive"
	MethodFrequency Method = "frequency"
	MethodGreeting  Method = "greeting"
	MethodDefault   Method = "default"
)

// delimiterRe splits on runs of whitespace, separators and punctuation.
var delimiterRe = regexp.MustCompile(`[\s\p{Z}\p{P}]+`)

// Match is the per-language evidence collected in one call.
type Match struct {
	Count int      `json:"count"`
	Words []string `json:"words"`
}

// ExclusiveWord is a token that matched exactly one language.
type ExclusiveWord struct {
	Word     string `json:"word"`
	Language string `json:"language"`
}

// Result is the outcome of Analyze.
type Result struct {
	Language   string           `json:"language"`
	Previous   string           `json:"previous,omitempty"`
	Method     Method           `json:"method"`
	Confidence float64          `json:"confidence"`
	Tokens     []string         `json:"tokens,omitempty"`
	Matches    map[string]Match `json:"matches,omitempty"`
	Candidates []string         `json:"candidates,omitempty"`
	Exclusive  []ExclusiveWord  `json:"exclusive,omitempty"`
}

// Switched reports whether the result names a non-default language that
// differs from the caller's previous selection.
func (r *Result) Switched() bool {
	return r.Language != DefaultLanguage && r.Language != r.Previous
}

// Classifier scores text against a Catalog. It holds no mutable state and is
// safe for concurrent use.
type Classifier struct {
	catalog *Catalog
}

// New returns a classifier over catalog.
func New(catalog *Catalog) *Classifier {
	return &Classifier{catalog: catalog}
}

// NewDefault returns a classifier over the embedded catalog.
func NewDefault() *Classifier {
	return New(MustDefaultCatalog())
}

// Catalog returns the profiles the classifier scores against.
func (c *Classifier) Catalog() *Catalog {
	return c.catalog
}

// Classify returns the best-guess language code for text. previous is the
// caller's current selection; it is carried for reporting only and never
// influences scoring.
func (c *Classifier) Classify(text, previous string) string {
	return c.Analyze(text, previous).Language
}

// Analyze classifies text and returns the evidence behind the decision.
func (c *Classifier) Analyze(text, previous string) *Result {
	res := &Result{Previous: previous}

	lower := strings.TrimSpace(strings.ToLower(text))
	if utf8.RuneCountInString(lower) < minTextRunes {
		return res.decide(DefaultLanguage, MethodTooShort, 0)
	}

	tokens := Tokenize(lower)
	if len(tokens) == 0 {
		return res.decide(DefaultLanguage, MethodNoTokens, 0)
	}
	res.Tokens = tokens

	// hits[i] lists the profile indexes token i matched, in catalog order.
	hits := make([][]int, len(tokens))
	counts := make([]int, len(c.catalog.profiles))
	res.Matches = make(map[string]Match)

	for i, tok := range tokens {
		for pi, p := range c.catalog.profiles {
			if !p.Matches(tok) {
				continue
			}
			hits[i] = append(hits[i], pi)
			counts[pi]++
			m := res.Matches[p.Code]
			m.Count++
			m.Words = append(m.Words, tok)
			res.Matches[p.Code] = m
		}
	}

	var candidates []int
	for pi, n := range counts {
		if n > 0 {
			candidates = append(candidates, pi)
			res.Candidates = append(res.Candidates, c.catalog.profiles[pi].Code)
		}
	}

	switch {
	case len(candidates) == 1:
		pi := candidates[0]
		return res.decide(c.catalog.profiles[pi].Code, MethodSingle, 0.5+0.5*share(counts[pi], len(tokens)))
	case len(candidates) > 1:
		return c.disambiguate(res, tokens, hits, counts, candidates)
	}

	// Greetings only break silence; they never override lexical evidence.
	if utf8.RuneCountInString(lower) < greetingMaxRunes {
		for _, p := range c.catalog.profiles {
			for _, g := range p.Greetings {
				if strings.Contains(lower, g) {
					return res.decide(p.Code, MethodGreeting, 0.6)
				}
			}
		}
	}

	return res.decide(DefaultLanguage, MethodDefault, 0)
}

func (c *Classifier) disambiguate(res *Result, tokens []string, hits [][]int, counts []int, candidates []int) *Result {
	exclusive := make([]int, len(c.catalog.profiles))
	total := 0
	for i, h := range hits {
		if len(h) != 1 {
			continue
		}
		exclusive[h[0]]++
		total++
		res.Exclusive = append(res.Exclusive, ExclusiveWord{
			Word:     tokens[i],
			Language: c.catalog.profiles[h[0]].Code,
		})
	}

	if total > 0 {
		best := -1
		for pi, n := range exclusive {
			if n > 0 && (best < 0 || n > exclusive[best]) {
				best = pi
			}
		}
		return res.decide(c.catalog.profiles[best].Code, MethodExclusive, 0.4+0.5*share(exclusive[best], total))
	}

	best := candidates[0]
	bestScript := c.scriptEvidence(best, res)
	for _, pi := range candidates[1:] {
		script := c.scriptEvidence(pi, res)
		if counts[pi] > counts[best] || (counts[pi] == counts[best] && script && !bestScript) {
			best, bestScript = pi, script
		}
	}
	return res.decide(c.catalog.profiles[best].Code, MethodFrequency, 0.3)
}

// scriptEvidence reports whether any word matched for profile pi is written
// in that profile's native script.
func (c *Classifier) scriptEvidence(pi int, res *Result) bool {
	p := c.catalog.profiles[pi]
	for _, w := range res.Matches[p.Code].Words {
		if p.HasScript(w) {
			return true
		}
	}
	return false
}

func (r *Result) decide(code string, m Method, confidence float64) *Result {
	r.Language = code
	r.Method = m
	r.Confidence = confidence
	return r
}

// Tokenize splits lowercased text into candidate words, dropping
// single-character fragments.
func Tokenize(text string) []string {
	var tokens []string
	for _, tok := range delimiterRe.Split(text, -1) {
		if utf8.RuneCountInString(tok) > 1 {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

func share(n, of int) float64 {
	if of == 0 {
		return 0
	}
	return float64(n) / float64(of)
}
