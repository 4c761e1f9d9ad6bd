// Package labeling talks to the shipping-label provider API.
package labeling

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/brandinglab/backend/internal/domain/shipping"
	"github.com/brandinglab/backend/internal/infrastructure/config"
)

// LabelRequest is one label generation request.
type LabelRequest struct {
	Recipient   shipping.Recipient `json:"recipient"`
	ServiceCode string             `json:"serviceCode"`
	Reference   string             `json:"reference"`
	Contents    []string           `json:"contents"`
	Sandbox     bool               `json:"sandbox"`
}

// LabelResponse carries the generated label code.
type LabelResponse struct {
	Code string `json:"code"`
	URL  string `json:"url,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
}

// Client is the label provider HTTP client.
type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

// NewClient creates a label provider client from configuration.
func NewClient(cfg config.LabelingConfig, logger *zap.Logger) *Client {
	http := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Authorization", "Bearer "+cfg.APIKey)
	return &Client{http: http, logger: logger.Named("labeling")}
}

// Generate requests one shipping label.
func (c *Client) Generate(ctx context.Context, req LabelRequest) (*LabelResponse, error) {
	var out LabelResponse
	var apiErr apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		SetError(&apiErr).
		Post("/labels")
	if err != nil {
		return nil, fmt.Errorf("label request: %w", err)
	}
	if !resp.IsSuccess() {
		msg := apiErr.Message
		if msg == "" {
			msg = resp.String()
		}
		return nil, fmt.Errorf("label provider error %d: %s", resp.StatusCode(), msg)
	}
	if out.Code == "" {
		return nil, fmt.Errorf("label provider returned no code for %s", req.Reference)
	}
	return &out, nil
}

// FetchPDF downloads the consolidated PDF covering the given label codes.
func (c *Client) FetchPDF(ctx context.Context, codes []string) ([]byte, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string][]string{"codes": codes}).
		Post("/labels/pdf")
	if err != nil {
		return nil, fmt.Errorf("label pdf request: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("label pdf error %d: %s", resp.StatusCode(), resp.String())
	}
	return resp.Body(), nil
}
