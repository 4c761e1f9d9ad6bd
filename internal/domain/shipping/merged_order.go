package shipping

import (
	"crypto/sha1"
	"encoding/hex"
	"sort"
	"strings"
	"time"

	"github.com/brandinglab/backend/internal/domain/shared"
)

// LabelChoice says what happens to existing labels when orders with mixed
// label state are merged. It is never inferred; the caller must choose.
type LabelChoice string

const (
	LabelChoiceInherit LabelChoice = "inherit"
	LabelChoiceDiscard LabelChoice = "discard"
	labelChoiceNone    LabelChoice = ""
)

// MergeConflictError reports why a set of orders cannot be merged.
type MergeConflictError struct {
	Fields []string
}

// Error implements the error interface
func (e *MergeConflictError) Error() string {
	return strings.Join(e.Fields, "; ")
}

// ErrLabelChoiceRequired is returned when merging orders with mixed label
// state without an explicit choice.
var ErrLabelChoiceRequired = shared.NewDomainError("LABEL_CHOICE_REQUIRED", "Orders have mixed label state; choose inherit or discard")

// MergedOrder groups several orders of the same recipient into a single
// shipment. Member snapshots allow a lossless unmerge.
type MergedOrder struct {
	ID          string          `json:"id"`
	Members     []string        `json:"members"`
	Snapshots   []OrderSnapshot `json:"snapshots"`
	Result      *Order          `json:"result"`
	LabelChoice LabelChoice     `json:"labelChoice,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// MergeID derives the deterministic merge identifier from the member
// transaction ids. Sorting first makes the id independent of selection
// order, so a reimport re-finds the same merge.
func MergeID(transactionIDs []string) string {
	ids := append([]string(nil), transactionIDs...)
	sort.Strings(ids)
	sum := sha1.Sum([]byte(strings.Join(ids, "|")))
	return "merge-" + hex.EncodeToString(sum[:8])
}

// Merge combines two or more orders into one. All orders must share the
// same MergeKey. Field fill rules: base is the first order; phone, taxId
// and complement take the first non-empty value; sale date takes the most
// recent; totals sum; product lists concatenate.
func Merge(orders []*Order, choice LabelChoice) (*MergedOrder, error) {
	if len(orders) < 2 {
		return nil, shared.NewDomainError("INVALID_INPUT", "A merge needs at least two orders")
	}
	for _, o := range orders {
		if o.Merged() {
			return nil, shared.NewDomainError("ALREADY_MERGED", "Order "+o.TransactionID+" is already part of a merge")
		}
	}

	baseKey := MergeKeyOf(orders[0])
	for _, o := range orders[1:] {
		if diff := baseKey.Diff(MergeKeyOf(o)); len(diff) > 0 {
			return nil, &MergeConflictError{Fields: diff}
		}
	}

	hasLabels, hasPending := false, false
	for _, o := range orders {
		if len(o.LabelCodes) > 0 {
			hasLabels = true
		} else {
			hasPending = true
		}
	}
	if hasLabels && hasPending && choice == labelChoiceNone {
		return nil, ErrLabelChoiceRequired
	}

	base := orders[0]
	result := &Order{
		TransactionID:  MergeID(memberIDs(orders)),
		Recipient:      base.Recipient,
		Total:          base.Total,
		SaleDate:       base.SaleDate,
		ServiceCode:    base.ServiceCode,
		ShipmentsTotal: 1,
		LabelStatus:    LabelPending,
	}
	for _, o := range orders {
		result.Products = append(result.Products, o.Products...)
		if o != base {
			result.Total = result.Total.Add(o.Total)
		}
		if result.Recipient.Phone == "" {
			result.Recipient.Phone = o.Recipient.Phone
		}
		if result.Recipient.TaxID == "" {
			result.Recipient.TaxID = o.Recipient.TaxID
		}
		if result.Recipient.Complement == "" {
			result.Recipient.Complement = o.Recipient.Complement
		}
		if o.SaleDate.After(result.SaleDate) {
			result.SaleDate = o.SaleDate
		}
	}

	if hasLabels && choice != LabelChoiceDiscard {
		for _, o := range orders {
			result.LabelCodes = append(result.LabelCodes, o.LabelCodes...)
		}
		if len(result.LabelCodes) > 0 {
			result.ShipmentsDone = result.ShipmentsTotal
			result.LabelStatus = LabelGenerated
		}
	}

	merged := &MergedOrder{
		ID:          result.TransactionID,
		Members:     memberIDs(orders),
		LabelChoice: choice,
		Result:      result,
		CreatedAt:   time.Now(),
	}
	for _, o := range orders {
		merged.Snapshots = append(merged.Snapshots, o.Snapshot())
		o.MergedInto = merged.ID
	}
	return merged, nil
}

// Unmerge restores the member orders from their snapshots. Members without
// a snapshot come back as pending with no label.
func (m *MergedOrder) Unmerge() []*Order {
	bySnapshot := make(map[string]OrderSnapshot, len(m.Snapshots))
	for _, s := range m.Snapshots {
		bySnapshot[s.TransactionID] = s
	}
	restored := make([]*Order, 0, len(m.Members))
	for _, id := range m.Members {
		if s, ok := bySnapshot[id]; ok {
			restored = append(restored, s.Restore())
			continue
		}
		restored = append(restored, &Order{
			TransactionID:  id,
			ShipmentsTotal: 1,
			LabelStatus:    LabelPending,
		})
	}
	return restored
}

// Covers reports whether every member transaction id is present in the
// given set. Saved merges only re-apply when complete.
func (m *MergedOrder) Covers(present map[string]bool) bool {
	for _, id := range m.Members {
		if !present[id] {
			return false
		}
	}
	return true
}

func memberIDs(orders []*Order) []string {
	ids := make([]string, len(orders))
	for i, o := range orders {
		ids[i] = o.TransactionID
	}
	return ids
}
