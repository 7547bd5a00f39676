package metadata

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/joseph-ayodele/legal-ocr/internal/nlp"
)

type fakeLinguistic struct {
	doc *nlp.Doc
	err error
}

func (f fakeLinguistic) Parse(context.Context, string) (*nlp.Doc, error) { return f.doc, f.err }

type fakeNER struct {
	ents []nlp.Entity
	err  error
}

func (f fakeNER) Recognize(context.Context, string) ([]nlp.Entity, error) { return f.ents, f.err }

// fakeClassifier answers by sentence; unknown sentences fail.
type fakeClassifier map[string]nlp.Classification

func (f fakeClassifier) Classify(_ context.Context, s string) (nlp.Classification, error) {
	c, ok := f[s]
	if !ok {
		return nlp.Classification{}, errors.New("model unavailable")
	}
	return c, nil
}

// claimantDoc is "The Claimant, Acme submitted the claim." with Acme tagged ORG.
func claimantDoc() *nlp.Doc {
	return &nlp.Doc{
		Tokens: []nlp.Token{
			{Text: "The", Lower: "the", Dep: "det", Head: 1, Whitespace: true},
			{Text: "Claimant", Lower: "claimant", Dep: "nsubj", Head: 4},
			{Text: ",", Lower: ",", Dep: "punct", Head: 1, IsPunct: true, Whitespace: true},
			{Text: "Acme", Lower: "acme", Dep: "appos", Head: 1, EntType: "ORG", Whitespace: true},
			{Text: "submitted", Lower: "submitted", Dep: "ROOT", Head: 4, Whitespace: true},
			{Text: "the", Lower: "the", Dep: "det", Head: 6, Whitespace: true},
			{Text: "claim", Lower: "claim", Dep: "dobj", Head: 4},
			{Text: ".", Lower: ".", Dep: "punct", Head: 4, IsPunct: true},
		},
		Ents:  []nlp.Span{{Start: 3, End: 4, Label: "ORG"}},
		Sents: []nlp.Span{{Start: 0, End: 8}},
	}
}

func TestExtract_RegexSources(t *testing.T) {
	text := "Letter dated 12-Mar-15 and 30.06.15, again 30.06.15. From M/s Apex Builders"
	md, err := NewExtractor(nil, nil, nil, nil).Extract(context.Background(), text)
	if err != nil {
		t.Fatalf("Extract() failed: %v", err)
	}
	if want := []string{"12-Mar-15", "30.06.15", "30.06.15"}; !reflect.DeepEqual(md.Dates, want) {
		t.Errorf("Dates = %q, want %q", md.Dates, want)
	}
	if want := []string{"M/s Apex Builders"}; !reflect.DeepEqual(md.Parties, want) {
		t.Errorf("Parties = %q, want %q", md.Parties, want)
	}
	if md.Claimants == nil || md.Clauses == nil {
		t.Error("lists must be initialized")
	}
}

func TestExtract_PartyDedupAcrossSources(t *testing.T) {
	doc := &nlp.Doc{
		Tokens: []nlp.Token{
			{Text: "Acme", Lower: "acme", Head: 0, EntType: "ORG", Whitespace: true},
			{Text: "Delhi", Lower: "delhi", Head: 1, EntType: "GPE"},
		},
		Ents: []nlp.Span{{Start: 0, End: 1, Label: "ORG"}, {Start: 1, End: 2, Label: "GPE"}},
	}
	ner := fakeNER{ents: []nlp.Entity{
		{Category: "ORG", Text: "Acme", Score: 0.9},
		{Category: "PARTY", Text: "acme", Score: 0.8},
		{Category: "PARTY", Text: "M/s Apex", Score: 0.8},
		{Category: "GPE", Text: "Delhi", Score: 0.7},
		{Category: "MISC", Text: "Acme Ltd", Score: 0.7},
	}}
	text := "M/s Apex"
	md, err := NewExtractor(fakeLinguistic{doc: doc}, ner, nil, nil).Extract(context.Background(), text)
	if err != nil {
		t.Fatalf("Extract() failed: %v", err)
	}
	// regex party first, then linguistic ORG, then new NER parties; exact-text identity
	if want := []string{"M/s Apex", "Acme", "acme"}; !reflect.DeepEqual(md.Parties, want) {
		t.Errorf("Parties = %q, want %q", md.Parties, want)
	}
	if want := []string{"Delhi"}; !reflect.DeepEqual(md.Tribunals, want) {
		t.Errorf("Tribunals = %q, want %q", md.Tribunals, want)
	}
}

func TestExtract_RegexPartiesNotDeduplicated(t *testing.T) {
	md, err := NewExtractor(nil, nil, nil, nil).Extract(context.Background(), "M/s Apex. M/s Apex")
	if err != nil {
		t.Fatalf("Extract() failed: %v", err)
	}
	if len(md.Parties) != 2 {
		t.Errorf("Parties = %q, want two regex matches", md.Parties)
	}
}

func TestExtract_ClaimantAndRelationship(t *testing.T) {
	ling := fakeLinguistic{doc: claimantDoc()}
	md, err := NewExtractor(ling, nil, nil, nil).Extract(context.Background(), "The Claimant, Acme submitted the claim.")
	if err != nil {
		t.Fatalf("Extract() failed: %v", err)
	}
	if want := []string{"Claimant, Acme"}; !reflect.DeepEqual(md.Claimants, want) {
		t.Errorf("Claimants = %q, want %q", md.Claimants, want)
	}
	if len(md.Relationships) != 1 {
		t.Fatalf("Relationships = %+v, want 1", md.Relationships)
	}
	rel := md.Relationships[0]
	if rel.Claimant != "Claimant" || rel.Action != "submitted" || rel.Object != "claim" {
		t.Errorf("relationship = %+v", rel)
	}
}

func TestExtract_RelationshipNeedsObjectAndAction(t *testing.T) {
	noObject := claimantDoc()
	noObject.Tokens[6].Dep = "attr"
	otherVerb := claimantDoc()
	otherVerb.Tokens[4].Text = "Submitted"

	for name, doc := range map[string]*nlp.Doc{"no object": noObject, "verb case differs": otherVerb} {
		md, err := NewExtractor(fakeLinguistic{doc: doc}, nil, nil, nil).Extract(context.Background(), "x")
		if err != nil {
			t.Fatalf("%s: Extract() failed: %v", name, err)
		}
		if len(md.Relationships) != 0 {
			t.Errorf("%s: Relationships = %+v, want none", name, md.Relationships)
		}
	}
}

func TestExtract_ClauseThreshold(t *testing.T) {
	arb := "Disputes shall go to arbitration in Delhi"
	ind := "The contractor shall indemnify the employer"
	edge := "Seat of arbitration shall be New Delhi"
	short := "See annex"
	broken := "This sentence makes the classifier fail"
	text := arb + ". " + ind + ". " + edge + ". " + short + ". " + broken

	cls := fakeClassifier{
		arb:  {Label: "arbitration_clause", Confidence: 0.85},
		ind:  {Label: "indemnity_clause", Confidence: 0.65},
		edge: {Label: "arbitration_clause", Confidence: 0.70},
	}
	md, err := NewExtractor(nil, nil, cls, nil).Extract(context.Background(), text)
	if err != nil {
		t.Fatalf("Extract() failed: %v", err)
	}
	if len(md.Clauses) != 1 || md.Clauses[0].Type != "arbitration_clause" || md.Clauses[0].Text != arb {
		t.Errorf("Clauses = %+v, want only the 0.85 arbitration clause", md.Clauses)
	}
}

func TestExtract_CollaboratorFailuresAreIsolated(t *testing.T) {
	ling := fakeLinguistic{err: errors.New("parser down")}
	ner := fakeNER{err: errors.New("ner down")}
	md, err := NewExtractor(ling, ner, nil, nil).Extract(context.Background(), "Dated 01.02.20 M/s Apex")
	if err != nil {
		t.Fatalf("Extract() failed: %v", err)
	}
	if len(md.Dates) != 1 || len(md.Parties) != 1 {
		t.Errorf("regex results lost: %+v", md)
	}
	if !md.Degraded {
		t.Error("Degraded = false, want true after collaborator failures")
	}
}

func TestExtract_Degraded(t *testing.T) {
	tests := []struct {
		name string
		ling nlp.LinguisticModel
		ner  nlp.DomainNER
		cls  nlp.ClauseClassifier
		want bool
	}{
		{name: "all healthy", ling: fakeLinguistic{doc: claimantDoc()}, ner: fakeNER{}, want: false},
		{name: "no collaborators", want: false},
		{name: "nil doc", ling: fakeLinguistic{}, want: true},
		{name: "ner down", ner: fakeNER{err: errors.New("ner down")}, want: true},
		{name: "classifier down", cls: fakeClassifier{}, want: true},
	}
	text := "The Claimant, Acme submitted the claim for delay in completion of works"
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md, err := NewExtractor(tt.ling, tt.ner, tt.cls, nil).Extract(context.Background(), text)
			if err != nil {
				t.Fatalf("Extract() failed: %v", err)
			}
			if md.Degraded != tt.want {
				t.Errorf("Degraded = %v, want %v", md.Degraded, tt.want)
			}
		})
	}
}

func TestExtract_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ling := fakeLinguistic{err: context.Canceled}
	_, err := NewExtractor(ling, nil, nil, nil).Extract(ctx, "x")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestResolver_Policies(t *testing.T) {
	r := NewResolver(nil)
	r.Merge(FieldClaimants, "Claimant Acme", "Claimant Acme")
	r.Merge(FieldTribunals, "Delhi", "Delhi", "delhi")
	r.Seed(FieldParties, "X", "X")
	r.Merge(FieldParties, "X", "Y")
	md := r.Metadata()
	if len(md.Claimants) != 2 {
		t.Errorf("Claimants = %q, want duplicates kept", md.Claimants)
	}
	if want := []string{"Delhi", "delhi"}; !reflect.DeepEqual(md.Tribunals, want) {
		t.Errorf("Tribunals = %q, want %q", md.Tribunals, want)
	}
	if want := []string{"X", "X", "Y"}; !reflect.DeepEqual(md.Parties, want) {
		t.Errorf("Parties = %q, want %q", md.Parties, want)
	}
}
