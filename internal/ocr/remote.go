package ocr

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/legal-ocr/internal/inference"
)

var layoutSchema = inference.MustCompileSchema(map[string]any{
	"type":     "object",
	"required": []string{"regions"},
	"properties": map[string]any{
		"regions": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":     "object",
				"required": []string{"type", "res"},
				"properties": map[string]any{
					"type": map[string]any{"type": "string"},
				},
			},
		},
	},
})

// RemoteLayout calls a hosted layout-analysis model with a base64 PNG page.
type RemoteLayout struct {
	client *inference.Client
	logger *slog.Logger
}

func NewRemoteLayout(ep inference.Endpoint, logger *slog.Logger) *RemoteLayout {
	if logger == nil {
		logger = slog.Default()
	}
	return &RemoteLayout{client: inference.NewClient(ep, logger), logger: logger}
}

type layoutRequest struct {
	Page  int    `json:"page"`
	Image string `json:"image"`
}

type layoutResponse struct {
	Regions []Region `json:"regions"`
}

func (l *RemoteLayout) Analyze(ctx context.Context, page PageImage) ([]Region, error) {
	req := layoutRequest{Page: page.Number, Image: base64.StdEncoding.EncodeToString(page.PNG)}
	var resp layoutResponse
	if err := l.client.Call(ctx, req, layoutSchema, &resp); err != nil {
		return nil, fmt.Errorf("layout page %d: %w", page.Number, err)
	}
	l.logger.Debug("ocr.layout.ok", "page", page.Number, "regions", len(resp.Regions))
	return resp.Regions, nil
}
