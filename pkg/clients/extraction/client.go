// Package extraction talks to the external document extraction service
// that turns uploaded projection spreadsheets into canonical documents.
package extraction

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/aquatrackmx/aquatrack/internal/domain/models"
)

// Client defines the extraction operations the projection flow needs.
type Client interface {
	ExtractProjection(ctx context.Context, fileURL string) (*models.CanonicalDocument, error)
}

type extractRequest struct {
	FileURL string `json:"file_url"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type httpClient struct {
	rest   *resty.Client
	logger *zap.Logger
}

// NewClient creates a configured extraction client.
func NewClient(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	rest := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Authorization", "Bearer "+apiKey).
		SetHeader("content-type", "application/json").
		SetTimeout(timeout)

	return &httpClient{rest: rest, logger: logger}
}

// ExtractProjection asks the extraction service to parse the file into a
// canonical projection document. The document is returned unvalidated;
// normalization happens during ingestion.
func (c *httpClient) ExtractProjection(ctx context.Context, fileURL string) (*models.CanonicalDocument, error) {
	var doc models.CanonicalDocument
	var apiErr apiError

	resp, err := c.rest.R().
		SetContext(ctx).
		SetBody(extractRequest{FileURL: fileURL}).
		SetResult(&doc).
		SetError(&apiErr).
		Post("/v1/extract/projection")
	if err != nil {
		return nil, fmt.Errorf("extraction api call: %w", err)
	}
	if resp.IsError() {
		if apiErr.Message != "" {
			return nil, fmt.Errorf("extraction api error %s: %s", apiErr.Code, apiErr.Message)
		}
		return nil, fmt.Errorf("extraction api error: %s", resp.Status())
	}

	c.logger.Debug("projection document extracted",
		zap.String("file_url", fileURL),
		zap.Int("lines", len(doc.Lines)))
	return &doc, nil
}
