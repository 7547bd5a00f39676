// Package metadata fuses regex, rule matching, dependency parsing, domain NER
// and clause classification into one legal metadata record per page.
package metadata

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/joseph-ayodele/legal-ocr/constants"
	"github.com/joseph-ayodele/legal-ocr/internal/entity"
	"github.com/joseph-ayodele/legal-ocr/internal/nlp"
)

var (
	reDate  = regexp.MustCompile(`\d{2}-[A-Za-z]{3}-\d{2}|\d{2}\.\d{2}\.\d{2}`)
	reParty = regexp.MustCompile(`M/s [A-Za-z\s&-]+(?:Consortium)?`)
)

// PageExtractor produces the metadata record for one page of text.
type PageExtractor interface {
	Extract(ctx context.Context, text string) (entity.Metadata, error)
}

// Extractor is the fusion extractor. Any collaborator may be nil, in which
// case its steps are skipped.
type Extractor struct {
	linguistic nlp.LinguisticModel
	ner        nlp.DomainNER
	classifier nlp.ClauseClassifier
	matcher    *nlp.Matcher
	key        IdentityKey
	logger     *slog.Logger
}

func NewExtractor(linguistic nlp.LinguisticModel, ner nlp.DomainNER, classifier nlp.ClauseClassifier, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		linguistic: linguistic,
		ner:        ner,
		classifier: classifier,
		matcher:    nlp.ClaimantMatcher(),
		key:        ExactText,
		logger:     logger,
	}
}

// Extract runs every step in a fixed order. Collaborator failures are logged
// and skip only the affected steps, marking the record Degraded; only context
// cancellation is returned.
func (e *Extractor) Extract(ctx context.Context, text string) (entity.Metadata, error) {
	r := NewResolver(e.key)
	degraded := false

	r.Merge(FieldDates, reDate.FindAllString(text, -1)...)
	r.Seed(FieldParties, reParty.FindAllString(text, -1)...)

	if e.linguistic != nil {
		doc, err := e.linguistic.Parse(ctx, text)
		if err != nil {
			if ctx.Err() != nil {
				return entity.Metadata{}, ctx.Err()
			}
			e.logger.Warn("metadata.linguistic.failed", "error", err)
			degraded = true
		} else if doc == nil {
			e.logger.Warn("metadata.linguistic.empty_doc")
			degraded = true
		} else {
			e.mergeEntities(r, doc)
			e.mergeClaimants(r, doc)
			e.mergeRelationships(r, doc)
		}
	}

	if e.ner != nil {
		ents, err := e.ner.Recognize(ctx, text)
		if err != nil {
			if ctx.Err() != nil {
				return entity.Metadata{}, ctx.Err()
			}
			e.logger.Warn("metadata.ner.failed", "error", err)
			degraded = true
		}
		for _, ent := range ents {
			switch ent.Category {
			case constants.EntityOrg, constants.EntityParty:
				r.Merge(FieldParties, ent.Text)
			case constants.EntityGPE:
				r.Merge(FieldTribunals, ent.Text)
			}
		}
	}

	if e.classifier != nil {
		ok, err := e.classifyClauses(ctx, r, text)
		if err != nil {
			return entity.Metadata{}, err
		}
		degraded = degraded || !ok
	}

	md := r.Metadata()
	md.Degraded = degraded
	return md, nil
}

func (e *Extractor) mergeEntities(r *Resolver, doc *nlp.Doc) {
	for _, span := range doc.Ents {
		switch span.Label {
		case constants.EntityOrg:
			r.Merge(FieldParties, doc.SpanText(span))
		case constants.EntityGPE:
			r.Merge(FieldTribunals, doc.SpanText(span))
		}
	}
}

func (e *Extractor) mergeClaimants(r *Resolver, doc *nlp.Doc) {
	for _, m := range e.matcher.Matches(doc) {
		r.Merge(FieldClaimants, doc.SpanText(nlp.Span{Start: m.Start, End: m.End}))
	}
}

// mergeRelationships records {claimant, action, object} for every claimant
// subject of "submitted" or "filed" whose head has a direct object.
func (e *Extractor) mergeRelationships(r *Resolver, doc *nlp.Doc) {
	for _, sent := range doc.SentenceSpans() {
		for i := sent.Start; i < sent.End; i++ {
			tok := doc.Tokens[i]
			if tok.Lower != "claimant" || tok.Dep != "nsubj" {
				continue
			}
			head := doc.Tokens[tok.Head]
			if !constants.IsClaimAction(head.Text) {
				continue
			}
			object := directObject(doc, tok.Head)
			if object == "" {
				continue
			}
			r.AddRelationship(entity.Relationship{Claimant: tok.Text, Action: head.Text, Object: object})
		}
	}
}

// directObject returns the last dobj/obj child of head, else the last iobj child.
func directObject(doc *nlp.Doc, head int) string {
	var obj, iobj string
	for _, c := range doc.Children(head) {
		switch doc.Tokens[c].Dep {
		case "dobj", "obj":
			obj = doc.Tokens[c].Text
		case "iobj":
			iobj = doc.Tokens[c].Text
		}
	}
	if obj != "" {
		return obj
	}
	return iobj
}

// classifyClauses reports false when any sentence could not be classified.
func (e *Extractor) classifyClauses(ctx context.Context, r *Resolver, text string) (bool, error) {
	complete := true
	for _, sentence := range strings.Split(text, ". ") {
		if utf8.RuneCountInString(sentence) < constants.MinClauseSentenceLen {
			continue
		}
		c, err := e.classifier.Classify(ctx, sentence)
		if err != nil {
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			e.logger.Warn("metadata.clause.classify_failed", "error", err, "sentence_len", len(sentence))
			complete = false
			continue
		}
		ct, ok := constants.ParseClauseType(c.Label)
		if !ok || c.Confidence <= constants.ClauseConfidenceThreshold {
			continue
		}
		r.AddClause(entity.Clause{Type: string(ct), Text: sentence})
	}
	return complete, nil
}
