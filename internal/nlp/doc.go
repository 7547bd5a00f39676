// Package nlp defines the linguistic document model returned by the hosted
// models, the collaborator contracts, and local rule-based token matching.
package nlp

import (
	"context"
	"fmt"
	"strings"
)

// Token is one token of a parsed document.
type Token struct {
	Text       string `json:"text"`
	Idx        int    `json:"idx"` // character offset in Doc.Text
	Lower      string `json:"lower"`
	Dep        string `json:"dep"`
	Head       int    `json:"head"` // index of the syntactic head; a root points at itself
	EntType    string `json:"ent_type"`
	IsPunct    bool   `json:"is_punct"`
	Whitespace bool   `json:"whitespace"` // followed by a space
}

// Span is a half-open token range [Start, End).
type Span struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Label string `json:"label,omitempty"`
}

// Doc is a tokenized, tagged and dependency-parsed text.
type Doc struct {
	Text   string  `json:"text"`
	Tokens []Token `json:"tokens"`
	Ents   []Span  `json:"ents"`
	Sents  []Span  `json:"sents"`
}

// Validate checks that heads and spans point inside the token list.
func (d *Doc) Validate() error {
	n := len(d.Tokens)
	for i, t := range d.Tokens {
		if t.Head < 0 || t.Head >= n {
			return fmt.Errorf("token %d: head %d out of range", i, t.Head)
		}
	}
	for _, group := range [][]Span{d.Ents, d.Sents} {
		for _, s := range group {
			if s.Start < 0 || s.End > n || s.Start > s.End {
				return fmt.Errorf("span [%d,%d) out of range", s.Start, s.End)
			}
		}
	}
	return nil
}

// SpanText returns the surface text of tokens [s.Start, s.End).
func (d *Doc) SpanText(s Span) string {
	var b strings.Builder
	for i := s.Start; i < s.End; i++ {
		t := d.Tokens[i]
		b.WriteString(t.Text)
		if i < s.End-1 && t.Whitespace {
			b.WriteByte(' ')
		}
	}
	return b.String()
}

// Children returns the indices of tokens whose head is i, in document order.
func (d *Doc) Children(i int) []int {
	var out []int
	for j, t := range d.Tokens {
		if j != i && t.Head == i {
			out = append(out, j)
		}
	}
	return out
}

// SentenceSpans returns the sentence spans, or one span over the whole doc
// when the model produced none.
func (d *Doc) SentenceSpans() []Span {
	if len(d.Sents) > 0 || len(d.Tokens) == 0 {
		return d.Sents
	}
	return []Span{{Start: 0, End: len(d.Tokens)}}
}

// Entity is one aggregated domain NER result.
type Entity struct {
	Category string  `json:"entity_group"`
	Text     string  `json:"word"`
	Score    float64 `json:"score"`
}

// Classification is the top label for one sentence.
type Classification struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"score"`
}

// LinguisticModel tokenizes, tags, parses and recognizes general entities.
type LinguisticModel interface {
	Parse(ctx context.Context, text string) (*Doc, error)
}

// DomainNER recognizes legal-domain entities.
type DomainNER interface {
	Recognize(ctx context.Context, text string) ([]Entity, error)
}

// ClauseClassifier assigns a clause label to one sentence.
type ClauseClassifier interface {
	Classify(ctx context.Context, sentence string) (Classification, error)
}
