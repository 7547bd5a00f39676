package nlp

import (
	"sort"

	"github.com/joseph-ayodele/legal-ocr/constants"
)

// TokenPattern constrains one token. Empty fields match anything.
type TokenPattern struct {
	Lower    string
	IsPunct  *bool
	EntType  string
	Optional bool // zero or one occurrence
}

func (p TokenPattern) matches(t Token) bool {
	if p.Lower != "" && t.Lower != p.Lower {
		return false
	}
	if p.IsPunct != nil && t.IsPunct != *p.IsPunct {
		return false
	}
	if p.EntType != "" && t.EntType != p.EntType {
		return false
	}
	return true
}

// Pattern is a sequence of token constraints.
type Pattern []TokenPattern

// Match is a matched token range [Start, End).
type Match struct {
	Label string
	Start int
	End   int
}

// Matcher finds every occurrence of its patterns in a Doc.
type Matcher struct {
	label    string
	patterns []Pattern
}

func NewMatcher(label string, patterns ...Pattern) *Matcher {
	return &Matcher{label: label, patterns: patterns}
}

// ClaimantMatcher matches "claimant", an optional punctuation token, then an
// organization-typed token.
func ClaimantMatcher() *Matcher {
	punct := true
	return NewMatcher("CLAIMANT", Pattern{
		{Lower: "claimant"},
		{IsPunct: &punct, Optional: true},
		{EntType: constants.EntityOrg},
	})
}

// Matches returns all distinct matches ordered by start, then end.
func (m *Matcher) Matches(doc *Doc) []Match {
	seen := make(map[[2]int]bool)
	var out []Match
	for start := range doc.Tokens {
		for _, p := range m.patterns {
			for _, end := range matchAt(doc.Tokens, p, start) {
				key := [2]int{start, end}
				if end == start || seen[key] {
					continue
				}
				seen[key] = true
				out = append(out, Match{Label: m.label, Start: start, End: end})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].End < out[j].End
	})
	return out
}

// matchAt returns every end position at which p matches tokens starting at pos.
func matchAt(tokens []Token, p Pattern, pos int) []int {
	if len(p) == 0 {
		return []int{pos}
	}
	var ends []int
	head := p[0]
	if pos < len(tokens) && head.matches(tokens[pos]) {
		ends = append(ends, matchAt(tokens, p[1:], pos+1)...)
	}
	if head.Optional {
		ends = append(ends, matchAt(tokens, p[1:], pos)...)
	}
	return ends
}
