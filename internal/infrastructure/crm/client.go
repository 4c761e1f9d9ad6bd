package crm

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/brandinglab/backend/internal/infrastructure/config"
)

// APIError is a non-2xx response from the CRM.
type APIError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("crm api error %d: %s", e.StatusCode, e.Message)
}

// IsConflict reports whether the error is a duplicate-resource rejection.
func (e *APIError) IsConflict() bool {
	if e.StatusCode == 409 {
		return true
	}
	msg := strings.ToLower(e.Message)
	return strings.Contains(msg, "already exists") || strings.Contains(msg, "já existe")
}

var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

// ConflictEmail extracts the conflicting email the API names in a
// duplicate-lead rejection, so the caller can re-search for it.
func (e *APIError) ConflictEmail() string {
	return strings.ToLower(emailPattern.FindString(e.Message))
}

// Client talks to the CRM REST API. Every call goes through the rate
// limiter first.
type Client struct {
	http    *resty.Client
	limiter *RateLimiter
	logger  *zap.Logger
}

// NewClient creates a CRM client from configuration.
func NewClient(cfg config.CRMConfig, logger *zap.Logger) *Client {
	limiter := NewRateLimiter(cfg.RateLimitCalls, cfg.RateLimitWindow)
	http := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("api-key", cfg.APIKey)
	http.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return limiter.Wait(req.Context())
	})
	return &Client{
		http:    http,
		limiter: limiter,
		logger:  logger.Named("crm"),
	}
}

// SearchLeadsByEmail returns the leads matching an exact email.
func (c *Client) SearchLeadsByEmail(ctx context.Context, email string) ([]Lead, error) {
	var out searchLeadsResponse
	resp, err := c.request(ctx).
		SetQueryParam("email", email).
		SetResult(&out).
		Get("/leads")
	if err := c.check(resp, err); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// CreateLead creates a new lead.
func (c *Client) CreateLead(ctx context.Context, input LeadInput) (*Lead, error) {
	var out Lead
	resp, err := c.request(ctx).
		SetBody(input).
		SetResult(&out).
		Post("/leads")
	if err := c.check(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

// PatchLead updates the given fields of a lead.
func (c *Client) PatchLead(ctx context.Context, leadID string, input LeadInput) error {
	resp, err := c.request(ctx).
		SetBody(input).
		Patch("/leads/" + leadID)
	return c.check(resp, err)
}

// ListBusinesses returns the businesses attached to a lead.
func (c *Client) ListBusinesses(ctx context.Context, leadID string) ([]Business, error) {
	var out listBusinessesResponse
	resp, err := c.request(ctx).
		SetQueryParam("leadId", leadID).
		SetResult(&out).
		Get("/businesses")
	if err := c.check(resp, err); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// CreateBusiness creates a business on a lead.
func (c *Client) CreateBusiness(ctx context.Context, input BusinessInput) (*Business, error) {
	var out Business
	resp, err := c.request(ctx).
		SetBody(input).
		SetResult(&out).
		Post("/businesses")
	if err := c.check(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

// SearchTags returns the tags matching a name.
func (c *Client) SearchTags(ctx context.Context, name string) ([]Tag, error) {
	var out searchTagsResponse
	resp, err := c.request(ctx).
		SetQueryParam("name", name).
		SetResult(&out).
		Get("/tags")
	if err := c.check(resp, err); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// AttachTag attaches an already-existing tag to a lead by id.
func (c *Client) AttachTag(ctx context.Context, leadID, tagID string) error {
	resp, err := c.request(ctx).
		SetBody(map[string]string{"leadId": leadID}).
		Post("/tags/" + tagID + "/attach")
	return c.check(resp, err)
}

// CreateTagAttach creates a tag (when needed) and attaches it to a lead.
func (c *Client) CreateTagAttach(ctx context.Context, leadID, tagName string) (*Tag, error) {
	var out Tag
	resp, err := c.request(ctx).
		SetBody(map[string]string{"leadId": leadID, "name": tagName}).
		SetResult(&out).
		Post("/tags/attach")
	if err := c.check(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) request(ctx context.Context) *resty.Request {
	return c.http.R().SetContext(ctx).SetError(&apiErrorResponse{})
}

func (c *Client) check(resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("crm request: %w", err)
	}
	if resp.IsSuccess() {
		return nil
	}
	msg := resp.String()
	if apiErr, ok := resp.Error().(*apiErrorResponse); ok && apiErr != nil {
		if apiErr.Message != "" {
			msg = apiErr.Message
		} else if apiErr.Error != "" {
			msg = apiErr.Error
		}
	}
	return &APIError{StatusCode: resp.StatusCode(), Message: msg}
}
