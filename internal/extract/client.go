// Package extract is the HTTP client for the external AI document
// extraction service. The service is advisory: a parse that the service
// itself reports as unsuccessful is a normal result, not a transport error.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"leasedesk/internal/config"
	"leasedesk/internal/model"
)

// ParseResult is the extraction service's response envelope. On
// Success=false the Message is surfaced verbatim to the user. The service
// may resolve or create a sub-unit on its side and report it back.
type ParseResult struct {
	Success     bool                      `json:"success"`
	Message     string                    `json:"message,omitempty"`
	Data        *model.AISuggestionBundle `json:"data,omitempty"`
	MatchedUnit *model.PropertyUnit       `json:"matched_property_unit,omitempty"`
	CreatedUnit *model.PropertyUnit       `json:"created_property_unit,omitempty"`
}

// Extractor is the collaborator contract consumed by the ingest service.
type Extractor interface {
	ParsePDFContract(ctx context.Context, r io.Reader, filename string) (*ParseResult, error)
}

// Client calls the extraction service over HTTP with bearer auth.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

var _ Extractor = (*Client)(nil)

// NewClient builds a Client from configuration. The underlying transport
// is instrumented so extraction calls show up in traces.
func NewClient(cfg config.ExtractorConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		token:   cfg.APIToken,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// ParsePDFContract uploads the PDF and returns the extraction envelope.
// Transport and decoding problems are errors; success=false is not.
func (c *Client) ParsePDFContract(ctx context.Context, r io.Reader, filename string) (*ParseResult, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("copy file content: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/parse-pdf-contract", &body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("extraction service returned status %d: %s", resp.StatusCode, string(raw))
	}

	var result ParseResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return &result, nil
}
