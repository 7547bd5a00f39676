package nlp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/legal-ocr/internal/inference"
)

var (
	docSchema = inference.MustCompileSchema(map[string]any{
		"type":     "object",
		"required": []string{"tokens"},
		"properties": map[string]any{
			"tokens": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":     "object",
					"required": []string{"text", "lower", "dep", "head"},
					"properties": map[string]any{
						"text":     map[string]any{"type": "string"},
						"lower":    map[string]any{"type": "string"},
						"dep":      map[string]any{"type": "string"},
						"head":     map[string]any{"type": "integer", "minimum": 0},
						"ent_type": map[string]any{"type": "string"},
						"is_punct": map[string]any{"type": "boolean"},
					},
				},
			},
			"ents":  spanListSchema(),
			"sents": spanListSchema(),
		},
	})

	entitiesSchema = inference.MustCompileSchema(map[string]any{
		"type": "array",
		"items": map[string]any{
			"type":     "object",
			"required": []string{"entity_group", "word"},
			"properties": map[string]any{
				"entity_group": map[string]any{"type": "string"},
				"word":         map[string]any{"type": "string"},
				"score":        map[string]any{"type": "number"},
			},
		},
	})

	classificationSchema = inference.MustCompileSchema(map[string]any{
		"type":     "array",
		"minItems": 1,
		"items": map[string]any{
			"type":     "object",
			"required": []string{"label", "score"},
			"properties": map[string]any{
				"label": map[string]any{"type": "string"},
				"score": map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
			},
		},
	})
)

func spanListSchema() map[string]any {
	return map[string]any{
		"type": "array",
		"items": map[string]any{
			"type":     "object",
			"required": []string{"start", "end"},
			"properties": map[string]any{
				"start": map[string]any{"type": "integer", "minimum": 0},
				"end":   map[string]any{"type": "integer", "minimum": 0},
				"label": map[string]any{"type": "string"},
			},
		},
	}
}

type textRequest struct {
	Text string `json:"text"`
}

type inputsRequest struct {
	Inputs string `json:"inputs"`
}

// RemoteLinguistic calls a hosted tokenizer/tagger/parser/NER service.
type RemoteLinguistic struct {
	client *inference.Client
}

func NewRemoteLinguistic(ep inference.Endpoint, logger *slog.Logger) *RemoteLinguistic {
	return &RemoteLinguistic{client: inference.NewClient(ep, logger)}
}

func (r *RemoteLinguistic) Parse(ctx context.Context, text string) (*Doc, error) {
	var doc Doc
	if err := r.client.Call(ctx, textRequest{Text: text}, docSchema, &doc); err != nil {
		return nil, fmt.Errorf("linguistic parse: %w", err)
	}
	if doc.Text == "" {
		doc.Text = text
	}
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("linguistic parse: %w", err)
	}
	return &doc, nil
}

// RemoteNER calls a hosted token-classification model with entity aggregation.
type RemoteNER struct {
	client *inference.Client
}

func NewRemoteNER(ep inference.Endpoint, logger *slog.Logger) *RemoteNER {
	return &RemoteNER{client: inference.NewClient(ep, logger)}
}

func (r *RemoteNER) Recognize(ctx context.Context, text string) ([]Entity, error) {
	var ents []Entity
	if err := r.client.Call(ctx, inputsRequest{Inputs: text}, entitiesSchema, &ents); err != nil {
		return nil, fmt.Errorf("domain ner: %w", err)
	}
	return ents, nil
}

// RemoteClassifier calls a hosted text-classification model and keeps its top label.
type RemoteClassifier struct {
	client *inference.Client
}

func NewRemoteClassifier(ep inference.Endpoint, logger *slog.Logger) *RemoteClassifier {
	return &RemoteClassifier{client: inference.NewClient(ep, logger)}
}

func (r *RemoteClassifier) Classify(ctx context.Context, sentence string) (Classification, error) {
	var res []Classification
	if err := r.client.Call(ctx, inputsRequest{Inputs: sentence}, classificationSchema, &res); err != nil {
		return Classification{}, fmt.Errorf("classify clause: %w", err)
	}
	return res[0], nil
}
