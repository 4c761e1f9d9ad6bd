package shipping

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/brandinglab/backend/internal/domain/shipping"
)

// trackingCSVHeader is the exact header line the payment platform's
// tracking importer expects. Do not localize or reorder.
var trackingCSVHeader = []string{"Código da Transação", "Código de Rastreamento"}

// utf8BOM makes spreadsheet tools pick up the accented characters.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ExportTrackingCSV renders the generated labels as a CSV ready for
// re-import into the payment platform. One row per label/transaction
// pair; a merged order expands to one row per original transaction id,
// each carrying the same label code.
func (s *WorkstationService) ExportTrackingCSV(ctx context.Context, orders []*shipping.Order) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(utf8BOM)

	w := csv.NewWriter(&buf)
	w.Comma = ';'
	if err := w.Write(trackingCSVHeader); err != nil {
		return nil, err
	}

	for _, order := range orders {
		if len(order.LabelCodes) == 0 {
			continue
		}
		transactions, err := s.exportTransactions(ctx, order)
		if err != nil {
			return nil, err
		}
		for _, code := range order.LabelCodes {
			for _, txn := range transactions {
				if err := w.Write([]string{txn, code}); err != nil {
					return nil, err
				}
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// exportTransactions expands a merge result into its original member
// transaction ids; plain orders map to themselves.
func (s *WorkstationService) exportTransactions(ctx context.Context, order *shipping.Order) ([]string, error) {
	if !strings.HasPrefix(order.TransactionID, "merge-") {
		return []string{order.TransactionID}, nil
	}
	merged, err := s.merges.FindByID(ctx, order.TransactionID)
	if err != nil {
		return nil, fmt.Errorf("expand merge %s: %w", order.TransactionID, err)
	}
	return merged.Members, nil
}
