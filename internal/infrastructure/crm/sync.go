package crm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/brandinglab/backend/internal/domain/importing"
)

// LeadRef is the cached identity of a lead, kept per email across rows
// of one import.
type LeadRef struct {
	ID   string
	Tags map[string]bool
}

// SyncContext carries the per-job state of a CRM synchronization: the
// lead and tag caches that keep repeat customers from costing extra API
// calls. One SyncContext serves one import run; the queue-backed mode
// creates a fresh one per row and simply gets no cache hits.
type SyncContext struct {
	client  *Client
	logger  *zap.Logger
	stageID string

	leadCache map[string]*LeadRef
	tagCache  map[string]string
}

// NewSyncContext creates the per-import sync state.
func NewSyncContext(client *Client, stageID string, logger *zap.Logger) *SyncContext {
	return &SyncContext{
		client:    client,
		logger:    logger.Named("crm-sync"),
		stageID:   stageID,
		leadCache: make(map[string]*LeadRef),
		tagCache:  make(map[string]string),
	}
}

// SyncRecord pushes one normalized sale into the CRM: lead, product tag,
// business. Rows without an email are skipped. The returned outcome is
// created/existing depending on whether the business already existed.
func (s *SyncContext) SyncRecord(ctx context.Context, rec importing.NormalizedRecord) (importing.RowOutcome, error) {
	if rec.Email == "" {
		return importing.OutcomeSkipped, nil
	}

	lead, err := s.FindOrCreateLead(ctx, rec)
	if err != nil {
		return importing.OutcomeError, err
	}

	// Tag failures never fail the row.
	s.EnsureTag(ctx, lead, rec.Product)

	created, err := s.UpsertBusiness(ctx, lead.ID, rec)
	if err != nil {
		return importing.OutcomeError, err
	}
	if created {
		return importing.OutcomeCreated, nil
	}
	return importing.OutcomeExisting, nil
}

// FindOrCreateLead resolves the lead for a record's email, creating it
// when absent. A duplicate rejection from the API is self-healed by
// re-searching for the email the API names. Existing leads get their
// empty fields patched from the record; values already in the CRM win.
func (s *SyncContext) FindOrCreateLead(ctx context.Context, rec importing.NormalizedRecord) (*LeadRef, error) {
	if lead, ok := s.leadCache[rec.Email]; ok {
		return lead, nil
	}

	leads, err := s.client.SearchLeadsByEmail(ctx, rec.Email)
	if err != nil {
		return nil, fmt.Errorf("search lead %s: %w", rec.Email, err)
	}

	if len(leads) == 0 {
		created, err := s.client.CreateLead(ctx, LeadInput{
			Name:    rec.Name,
			Email:   rec.Email,
			Phone:   rec.Phone,
			TaxID:   rec.TaxID,
			Address: rec.AddressLine(),
		})
		if err == nil {
			entry := s.cache(rec.Email, created)
			return entry, nil
		}
		var apiErr *APIError
		if !errors.As(err, &apiErr) || !apiErr.IsConflict() {
			return nil, fmt.Errorf("create lead %s: %w", rec.Email, err)
		}
		// The CRM knows this lead under an email our search missed.
		// Re-search with the email from the rejection payload.
		email := apiErr.ConflictEmail()
		if email == "" {
			email = rec.Email
		}
		s.logger.Info("lead already exists, re-searching",
			zap.String("email", rec.Email),
			zap.String("conflict_email", email))
		leads, err = s.client.SearchLeadsByEmail(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("re-search lead %s: %w", email, err)
		}
		if len(leads) == 0 {
			return nil, fmt.Errorf("lead %s reported as duplicate but not found", email)
		}
	}

	lead := leads[0]
	s.patchMissingFields(ctx, &lead, rec)
	return s.cache(rec.Email, &lead), nil
}

// patchMissingFields fills only the fields the remote lead is missing.
func (s *SyncContext) patchMissingFields(ctx context.Context, lead *Lead, rec importing.NormalizedRecord) {
	input := LeadInput{}
	patch := false
	if lead.Name == "" && rec.Name != "" {
		input.Name = rec.Name
		patch = true
	}
	if lead.Phone == "" && rec.Phone != "" {
		input.Phone = rec.Phone
		patch = true
	}
	if lead.TaxID == "" && rec.TaxID != "" {
		input.TaxID = rec.TaxID
		patch = true
	}
	if addr := rec.AddressLine(); lead.Address == "" && addr != "" {
		input.Address = addr
		patch = true
	}
	if !patch {
		return
	}
	if err := s.client.PatchLead(ctx, lead.ID, input); err != nil {
		s.logger.Warn("lead patch failed",
			zap.String("lead_id", lead.ID),
			zap.Error(err))
	}
}

// EnsureTag attaches the product tag to the lead, reusing an existing tag
// when the CRM already has one with that name. Best effort: failures are
// logged and swallowed so a tagging hiccup never kills an import.
func (s *SyncContext) EnsureTag(ctx context.Context, lead *LeadRef, product string) {
	if product == "" || lead.Tags[product] {
		return
	}

	tagID, ok := s.tagCache[product]
	if !ok {
		tags, err := s.client.SearchTags(ctx, product)
		if err != nil {
			s.logger.Warn("tag search failed",
				zap.String("tag", product),
				zap.Error(err))
			return
		}
		for _, t := range tags {
			if strings.EqualFold(t.Name, product) {
				tagID = t.ID
				break
			}
		}
	}

	if tagID == "" {
		tag, err := s.client.CreateTagAttach(ctx, lead.ID, product)
		if err != nil {
			s.logger.Warn("tag create failed",
				zap.String("tag", product),
				zap.String("lead_id", lead.ID),
				zap.Error(err))
			return
		}
		tagID = tag.ID
	} else if err := s.client.AttachTag(ctx, lead.ID, tagID); err != nil {
		s.logger.Warn("tag attach failed",
			zap.String("tag_id", tagID),
			zap.String("lead_id", lead.ID),
			zap.Error(err))
		return
	}

	s.tagCache[product] = tagID
	lead.Tags[product] = true
}

// UpsertBusiness creates the business for a transaction unless one with
// the same external id already exists on the lead. This external-id match
// is the import's idempotency mechanism: re-running a file or resuming a
// job cannot duplicate sales.
func (s *SyncContext) UpsertBusiness(ctx context.Context, leadID string, rec importing.NormalizedRecord) (created bool, err error) {
	businesses, err := s.client.ListBusinesses(ctx, leadID)
	if err != nil {
		return false, fmt.Errorf("list businesses for lead %s: %w", leadID, err)
	}
	for _, b := range businesses {
		if b.ExternalID == rec.TransactionID {
			return false, nil
		}
	}
	_, err = s.client.CreateBusiness(ctx, BusinessInput{
		Title:      rec.Product,
		LeadID:     leadID,
		StageID:    s.stageID,
		Value:      rec.Total.String(),
		ExternalID: rec.TransactionID,
	})
	if err != nil {
		return false, fmt.Errorf("create business %s: %w", rec.TransactionID, err)
	}
	return true, nil
}

func (s *SyncContext) cache(email string, lead *Lead) *LeadRef {
	entry := &LeadRef{ID: lead.ID, Tags: make(map[string]bool)}
	for _, t := range lead.Tags {
		entry.Tags[t.Name] = true
	}
	s.leadCache[email] = entry
	return entry
}
