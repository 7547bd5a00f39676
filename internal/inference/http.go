// Package inference holds the JSON-over-HTTP plumbing shared by the hosted
// model clients (layout, linguistic, NER, clause classification).
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/legal-ocr/internal/common"
)

// SendJSON posts body as JSON to url with optional headers and returns the raw response body.
// It does not assume any provider; callers decide the URL and headers.
func SendJSON(ctx context.Context, client *http.Client, url string, body any, headers map[string]string, logger *slog.Logger) ([]byte, int, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		client = &http.Client{Timeout: 45 * time.Second}
	}
	if runID := common.RunIDFromContext(ctx); runID != "" {
		logger = logger.With("run_id", runID)
	}

	reqID := uuid.New().String()
	start := time.Now()

	bs, err := json.Marshal(body)
	if err != nil {
		logger.Error("inference.http.encode_error", "req_id", reqID, "error", err)
		return nil, 0, fmt.Errorf("encode json: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bs))
	if err != nil {
		logger.Error("inference.http.build_request_error", "req_id", reqID, "error", err)
		return nil, 0, fmt.Errorf("build request: %w", err)
	}

	// Default headers; allow caller overrides.
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	logger.Debug("inference.http.request",
		"req_id", reqID,
		"url", url,
		"content_length", len(bs),
	)

	resp, err := client.Do(req)
	if err != nil {
		logger.Error("inference.http.send_error", "req_id", reqID, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, 0, err
	}
	defer func(Body io.ReadCloser) {
		err := Body.Close()
		if err != nil {
			logger.Warn("inference.http.response_body_close_error", "req_id", reqID, "error", err)
		}
	}(resp.Body)

	raw, _ := io.ReadAll(resp.Body)

	logger.Debug("inference.http.response",
		"req_id", reqID,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode/100 != 2 {
		return raw, resp.StatusCode, fmt.Errorf("non-2xx status: %d", resp.StatusCode)
	}
	return raw, resp.StatusCode, nil
}

// Endpoint is a hosted model reachable over JSON/HTTP.
type Endpoint struct {
	URL     string
	Token   string // sent as a bearer token when set
	Timeout time.Duration
}

// Client posts requests to one Endpoint and decodes schema-validated responses.
type Client struct {
	ep     Endpoint
	http   *http.Client
	logger *slog.Logger
}

func NewClient(ep Endpoint, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if ep.Timeout <= 0 {
		ep.Timeout = 60 * time.Second
	}
	return &Client{ep: ep, http: &http.Client{Timeout: ep.Timeout}, logger: logger}
}

// Call posts body, validates the response against schema (when non-nil) and decodes it into out.
func (c *Client) Call(ctx context.Context, body any, schema *Schema, out any) error {
	var headers map[string]string
	if c.ep.Token != "" {
		headers = map[string]string{"Authorization": "Bearer " + c.ep.Token}
	}
	raw, status, err := SendJSON(ctx, c.http, c.ep.URL, body, headers, c.logger)
	if err != nil {
		if status != 0 {
			return fmt.Errorf("%s: %w: %s", c.ep.URL, err, truncate(string(raw), 256))
		}
		return fmt.Errorf("%s: %w", c.ep.URL, err)
	}
	if schema != nil {
		if err := schema.Validate(raw); err != nil {
			return err
		}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
