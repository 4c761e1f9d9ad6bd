package csvimport

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// FieldKey identifies a canonical record field a CSV column can map to.
type FieldKey string

const (
	FieldEmail         FieldKey = "email"
	FieldName          FieldKey = "name"
	FieldPhone         FieldKey = "phone"
	FieldTaxID         FieldKey = "taxId"
	FieldProduct       FieldKey = "product"
	FieldTransactionID FieldKey = "transactionId"
	FieldTotal         FieldKey = "total"
	FieldStatus        FieldKey = "status"
	FieldSaleDate      FieldKey = "saleDate"
	FieldZip           FieldKey = "zip"
	FieldStreet        FieldKey = "street"
	FieldNumber        FieldKey = "number"
	FieldComplement    FieldKey = "complement"
	FieldNeighborhood  FieldKey = "neighborhood"
	FieldCity          FieldKey = "city"
	FieldState         FieldKey = "state"
)

// AllFields lists every mappable field in display order.
var AllFields = []FieldKey{
	FieldEmail, FieldName, FieldPhone, FieldTaxID, FieldProduct,
	FieldTransactionID, FieldTotal, FieldStatus, FieldSaleDate,
	FieldZip, FieldStreet, FieldNumber, FieldComplement,
	FieldNeighborhood, FieldCity, FieldState,
}

// ColumnMapping associates field keys with CSV header names.
type ColumnMapping map[FieldKey]string

// Header returns the mapped header for a field, or "" when unmapped.
func (m ColumnMapping) Header(key FieldKey) string {
	return m[key]
}

// Value reads the mapped field value from a row.
func (m ColumnMapping) Value(row Row, key FieldKey) string {
	h, ok := m[key]
	if !ok {
		return ""
	}
	return row.Get(h)
}

// detection keyword lists, matched accent- and case-insensitively as
// substrings of the header. Order within a list matters: more specific
// keywords come first.
var fieldKeywords = map[FieldKey][]string{
	FieldEmail:         {"email", "e-mail"},
	FieldName:          {"nome do comprador", "nome do cliente", "comprador", "cliente", "nome completo", "nome", "buyer", "name"},
	FieldPhone:         {"telefone", "celular", "fone", "whatsapp", "phone"},
	FieldTaxID:         {"cpf", "cnpj", "documento", "doc"},
	FieldProduct:       {"produto", "nome do produto", "oferta", "product"},
	FieldTransactionID: {"transacao", "codigo da transacao", "codigo do pedido", "pedido", "transaction", "order id"},
	FieldTotal:         {"valor total", "valor da compra", "preco", "valor", "total", "price"},
	FieldStatus:        {"status da compra", "status da transacao", "status", "situacao"},
	FieldSaleDate:      {"data da venda", "data da compra", "data da transacao", "data", "date"},
	FieldZip:           {"cep", "codigo postal", "zip"},
	FieldStreet:        {"endereco", "rua", "logradouro", "street", "address"},
	FieldNumber:        {"numero", "number"},
	FieldComplement:    {"complemento", "complement"},
	FieldNeighborhood:  {"bairro", "neighborhood"},
	FieldCity:          {"cidade", "municipio", "city"},
	FieldState:         {"estado", "uf", "state"},
}

// detectionOrder controls which field claims a header first when keyword
// lists overlap (e.g. "numero" vs "numero do pedido").
var detectionOrder = []FieldKey{
	FieldEmail, FieldTransactionID, FieldTaxID, FieldZip, FieldSaleDate,
	FieldStatus, FieldTotal, FieldProduct, FieldPhone, FieldComplement,
	FieldNeighborhood, FieldCity, FieldState, FieldNumber, FieldStreet,
	FieldName,
}

// AutoDetect proposes a ColumnMapping for the given headers. Matching is
// case- and accent-insensitive, each header is claimed at most once, and
// the result is deterministic for a given header list.
func AutoDetect(headers []string) ColumnMapping {
	folded := make([]string, len(headers))
	for i, h := range headers {
		folded[i] = Fold(h)
	}
	claimed := make([]bool, len(headers))
	mapping := ColumnMapping{}
	for _, key := range detectionOrder {
		for _, kw := range fieldKeywords[key] {
			found := false
			for i, fh := range folded {
				if claimed[i] || !strings.Contains(fh, kw) {
					continue
				}
				mapping[key] = headers[i]
				claimed[i] = true
				found = true
				break
			}
			if found {
				break
			}
		}
	}
	return mapping
}

// Validate returns the required field keys that are either unmapped or
// mapped to a header not present in the file.
func Validate(mapping ColumnMapping, required []FieldKey, headers []string) []FieldKey {
	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		present[h] = true
	}
	var missing []FieldKey
	for _, key := range required {
		h, ok := mapping[key]
		if !ok || h == "" || !present[h] {
			missing = append(missing, key)
		}
	}
	return missing
}

// Fold lowercases a string and strips diacritics, so "Número" matches
// "numero". Transformers are stateful, so the chain is built per call.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return strings.ToLower(strings.TrimSpace(s))
	}
	return folded
}
