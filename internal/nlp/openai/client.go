package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/legal-ocr/constants"
	"github.com/joseph-ayodele/legal-ocr/internal/inference"
	"github.com/joseph-ayodele/legal-ocr/internal/nlp"
)

const otherLabel = "other"

// BuildClauseJSONSchema returns the response schema: a label from the clause
// set (or "other") and a confidence in [0, 1].
func BuildClauseJSONSchema() map[string]any {
	labels := append(constants.ClauseLabels(), otherLabel)
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"label", "confidence"},
		"properties": map[string]any{
			"label":      map[string]any{"type": "string", "enum": labels},
			"confidence": map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
		},
	}
}

var clauseSchema = inference.MustCompileSchema(BuildClauseJSONSchema())

// Classify implements nlp.ClauseClassifier.
func (c *Client) Classify(ctx context.Context, sentence string) (nlp.Classification, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.logger.Debug("openai.classify.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"text_len", len(sentence),
	)

	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": buildSystemPrompt()},
			{"role": "user", "content": sentence},
			{"role": "system", "content": "JSON Schema:\n" + mustJSON(BuildClauseJSONSchema())},
		},
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}
	raw, _, err := inference.SendJSON(ctx, c.http, endpoint, body, headers, c.logger)
	if err != nil {
		c.logger.Error("openai.classify.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nlp.Classification{}, fmt.Errorf("openai: %w", err)
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return nlp.Classification{}, fmt.Errorf("decode openai response: %w", err)
	}
	if len(cc.Choices) == 0 {
		return nlp.Classification{}, fmt.Errorf("no choices in openai response")
	}
	content := []byte(strings.TrimSpace(cc.Choices[0].Message.Content))

	if err := clauseSchema.Validate(content); err != nil {
		c.logger.Warn("openai.classify.schema_validation_failed",
			"req_id", rid, "error", err, "content", string(content),
		)
		return nlp.Classification{}, fmt.Errorf("schema validation failed: %w", err)
	}

	var out struct {
		Label      string  `json:"label"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal(content, &out); err != nil {
		return nlp.Classification{}, fmt.Errorf("unmarshal classification: %w", err)
	}

	c.logger.Debug("openai.classify.ok",
		"req_id", rid,
		"label", out.Label,
		"confidence", out.Confidence,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nlp.Classification{Label: out.Label, Confidence: out.Confidence}, nil
}

func buildSystemPrompt() string {
	parts := []string{
		"You classify single sentences taken from arbitration and claims correspondence.",
		"Answer with exactly one label: " + strings.Join(constants.ClauseLabels(), ", ") + " or " + otherLabel + ".",
		"An arbitration clause refers disputes to arbitration or names an arbitral tribunal.",
		"An indemnity clause obliges one party to hold another harmless or compensate its losses.",
		"Set confidence to your probability that the label is correct.",
		"Return ONLY JSON that matches the provided schema.",
	}
	return strings.Join(parts, " ")
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
