package importing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	csvimport "github.com/brandinglab/backend/internal/infrastructure/import"
)

// NormalizedRecord is one CSV row after normalization, ready for CRM sync
// and for the shipping workstation.
type NormalizedRecord struct {
	TransactionID string          `json:"transactionId"`
	Email         string          `json:"email"`
	Name          string          `json:"name"`
	Phone         string          `json:"phone"`
	TaxID         string          `json:"taxId"`
	Product       string          `json:"product"`
	Total         decimal.Decimal `json:"total"`
	Status        string          `json:"status"`
	SaleDate      time.Time       `json:"saleDate"`
	Zip           string          `json:"zip"`
	Street        string          `json:"street"`
	Number        string          `json:"number"`
	Complement    string          `json:"complement"`
	Neighborhood  string          `json:"neighborhood"`
	City          string          `json:"city"`
	State         string          `json:"state"`
}

// AddressLine returns the composed single-line address.
func (r NormalizedRecord) AddressLine() string {
	return ComposeAddress(r.Street, r.Number, r.Complement, r.Neighborhood)
}

// Physical reports whether the record's product ships physically.
func (r NormalizedRecord) Physical() bool {
	return IsPhysicalProduct(r.Product)
}

// BuildRecord normalizes one parsed CSV row using the given mapping.
// A missing transaction id is an error; an invalid total is an error; an
// invalid email yields an empty one (the caller decides whether to skip).
func BuildRecord(row csvimport.Row, mapping csvimport.ColumnMapping) (NormalizedRecord, error) {
	rec := NormalizedRecord{
		TransactionID: mapping.Value(row, csvimport.FieldTransactionID),
		Email:         NormalizeEmail(mapping.Value(row, csvimport.FieldEmail)),
		Name:          mapping.Value(row, csvimport.FieldName),
		Phone:         NormalizeBrazilianPhone(mapping.Value(row, csvimport.FieldPhone)),
		TaxID:         digitsOnly(mapping.Value(row, csvimport.FieldTaxID)),
		Product:       mapping.Value(row, csvimport.FieldProduct),
		Status:        mapping.Value(row, csvimport.FieldStatus),
		SaleDate:      ParseFlexibleDate(mapping.Value(row, csvimport.FieldSaleDate)),
		Zip:           mapping.Value(row, csvimport.FieldZip),
		Street:        mapping.Value(row, csvimport.FieldStreet),
		Number:        mapping.Value(row, csvimport.FieldNumber),
		Complement:    mapping.Value(row, csvimport.FieldComplement),
		Neighborhood:  mapping.Value(row, csvimport.FieldNeighborhood),
		City:          mapping.Value(row, csvimport.FieldCity),
		State:         mapping.Value(row, csvimport.FieldState),
	}
	if rec.TransactionID == "" {
		return rec, fmt.Errorf("line %d: missing transaction id", row.Line)
	}
	if raw := mapping.Value(row, csvimport.FieldTotal); raw != "" {
		total, err := ParseTotal(raw)
		if err != nil {
			return rec, fmt.Errorf("line %d: invalid total %q", row.Line, raw)
		}
		rec.Total = total
	}
	return rec, nil
}
