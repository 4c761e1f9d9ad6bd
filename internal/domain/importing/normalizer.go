package importing

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// NormalizeEmail lowercases and trims an email. Values without both "@"
// and "." are treated as absent and normalize to "".
func NormalizeEmail(raw string) string {
	email := strings.ToLower(strings.TrimSpace(raw))
	if !strings.Contains(email, "@") || !strings.Contains(email, ".") {
		return ""
	}
	return email
}

// NormalizePhone strips the leading "+" and every non-digit character.
func NormalizePhone(raw string) string {
	return digitsOnly(strings.TrimPrefix(strings.TrimSpace(raw), "+"))
}

// NormalizeBrazilianPhone canonicalizes a phone to the 55-prefixed
// international form. Leading zeros are dropped and the country code is
// added to bare 10/11 digit national numbers. Anything that does not end
// up at 12 or 13 digits is rejected as "".
func NormalizeBrazilianPhone(raw string) string {
	digits := digitsOnly(raw)
	for strings.HasPrefix(digits, "0") {
		digits = digits[1:]
	}
	if digits == "" {
		return ""
	}
	if !strings.HasPrefix(digits, "55") || len(digits) <= 11 {
		digits = "55" + digits
	}
	if len(digits) != 12 && len(digits) != 13 {
		return ""
	}
	return digits
}

var flexibleDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02/01/2006",
}

// ParseFlexibleDate accepts ISO-8601 and Brazilian DD/MM/YYYY forms with
// optional time. Unparseable values return the zero epoch so records still
// sort deterministically.
func ParseFlexibleDate(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	for _, layout := range flexibleDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Unix(0, 0).UTC()
}

var physicalMarkers = []string{"físico", "fisico", "kit"}

// IsPhysicalProduct reports whether a product name denotes a shippable
// physical item.
func IsPhysicalProduct(productName string) bool {
	name := strings.ToLower(productName)
	for _, marker := range physicalMarkers {
		if strings.Contains(name, marker) {
			return true
		}
	}
	return false
}

// ComposeAddress joins the street parts into a single display line,
// skipping empty components.
func ComposeAddress(street, number, complement, neighborhood string) string {
	parts := make([]string, 0, 4)
	for _, p := range []string{street, number, complement, neighborhood} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// ParseTotal parses a monetary value in either Brazilian ("1.234,56") or
// plain ("1234.56") notation.
func ParseTotal(raw string) (decimal.Decimal, error) {
	v := strings.TrimSpace(raw)
	v = strings.TrimPrefix(v, "R$")
	v = strings.TrimSpace(v)
	if strings.Contains(v, ",") {
		v = strings.ReplaceAll(v, ".", "")
		v = strings.ReplaceAll(v, ",", ".")
	}
	return decimal.NewFromString(v)
}

func digitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
