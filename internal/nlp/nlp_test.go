package nlp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/joseph-ayodele/legal-ocr/internal/inference"
)

// claimantDoc is "The Claimant, Acme submitted the claim." with Acme tagged ORG.
func claimantDoc() *Doc {
	return &Doc{
		Text: "The Claimant, Acme submitted the claim.",
		Tokens: []Token{
			{Text: "The", Lower: "the", Dep: "det", Head: 1, Whitespace: true},
			{Text: "Claimant", Lower: "claimant", Dep: "nsubj", Head: 4},
			{Text: ",", Lower: ",", Dep: "punct", Head: 1, IsPunct: true, Whitespace: true},
			{Text: "Acme", Lower: "acme", Dep: "appos", Head: 1, EntType: "ORG", Whitespace: true},
			{Text: "submitted", Lower: "submitted", Dep: "ROOT", Head: 4, Whitespace: true},
			{Text: "the", Lower: "the", Dep: "det", Head: 6, Whitespace: true},
			{Text: "claim", Lower: "claim", Dep: "dobj", Head: 4},
			{Text: ".", Lower: ".", Dep: "punct", Head: 4, IsPunct: true},
		},
		Ents:  []Span{{Start: 3, End: 4, Label: "ORG"}},
		Sents: []Span{{Start: 0, End: 8}},
	}
}

func TestClaimantMatcher(t *testing.T) {
	doc := claimantDoc()
	matches := ClaimantMatcher().Matches(doc)
	if len(matches) != 1 {
		t.Fatalf("matches = %+v, want 1", matches)
	}
	if got := doc.SpanText(Span{Start: matches[0].Start, End: matches[0].End}); got != "Claimant, Acme" {
		t.Errorf("match text = %q, want %q", got, "Claimant, Acme")
	}
}

func TestMatcher_OptionalToken(t *testing.T) {
	doc := &Doc{Tokens: []Token{
		{Text: "claimant", Lower: "claimant", Whitespace: true},
		{Text: "Acme", Lower: "acme", EntType: "ORG"},
	}}
	matches := ClaimantMatcher().Matches(doc)
	if len(matches) != 1 || matches[0].Start != 0 || matches[0].End != 2 {
		t.Fatalf("matches = %+v, want [0,2)", matches)
	}
	if got := doc.SpanText(Span{Start: 0, End: 2}); got != "claimant Acme" {
		t.Errorf("SpanText = %q", got)
	}
}

func TestDoc_ChildrenAndValidate(t *testing.T) {
	doc := claimantDoc()
	if got, want := doc.Children(4), []int{1, 6, 7}; !reflect.DeepEqual(got, want) {
		t.Errorf("Children(4) = %v, want %v", got, want)
	}
	if err := doc.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
	doc.Tokens[0].Head = 99
	if err := doc.Validate(); err == nil {
		t.Error("Validate() accepted an out-of-range head")
	}
}

func TestRemoteClients(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/parse", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(claimantDoc())
	})
	mux.HandleFunc("/ner", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"entity_group":"PARTY","word":"M/s Apex","score":0.91}]`))
	})
	mux.HandleFunc("/classify", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"label":"arbitration_clause","score":0.85},{"label":"other","score":0.15}]`))
	})
	mux.HandleFunc("/bad", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"label":"arbitration_clause","score":7}]`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	ctx := context.Background()

	doc, err := NewRemoteLinguistic(inference.Endpoint{URL: srv.URL + "/parse"}, nil).Parse(ctx, "x")
	if err != nil || len(doc.Tokens) != 8 {
		t.Fatalf("Parse() = %v, %v", doc, err)
	}

	ents, err := NewRemoteNER(inference.Endpoint{URL: srv.URL + "/ner"}, nil).Recognize(ctx, "x")
	if err != nil || len(ents) != 1 || ents[0].Category != "PARTY" || ents[0].Text != "M/s Apex" {
		t.Fatalf("Recognize() = %+v, %v", ents, err)
	}

	c, err := NewRemoteClassifier(inference.Endpoint{URL: srv.URL + "/classify"}, nil).Classify(ctx, "x")
	if err != nil || c.Label != "arbitration_clause" || c.Confidence != 0.85 {
		t.Fatalf("Classify() = %+v, %v", c, err)
	}

	if _, err := NewRemoteClassifier(inference.Endpoint{URL: srv.URL + "/bad"}, nil).Classify(ctx, "x"); err == nil {
		t.Error("Classify() accepted a score outside [0,1]")
	}
}
