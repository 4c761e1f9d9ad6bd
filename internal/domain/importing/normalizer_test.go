package importing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases and trims", "  Ana.Silva@Example.COM  ", "ana.silva@example.com"},
		{"missing at sign", "ana.example.com", ""},
		{"missing dot", "ana@example", ""},
		{"empty", "", ""},
		{"valid", "a@b.co", "a@b.co"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeEmail(tt.in))
		})
	}
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "5511999998888", NormalizePhone("+55 (11) 99999-8888"))
	assert.Equal(t, "1199999", NormalizePhone("11 99999"))
	assert.Equal(t, "", NormalizePhone("abc"))
}

func TestNormalizeBrazilianPhone(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"eleven digit mobile gets country code", "(11) 99999-8888", "5511999998888"},
		{"ten digit landline gets country code", "(11) 3333-4444", "551133334444"},
		{"already prefixed thirteen digits", "5511999998888", "5511999998888"},
		{"already prefixed twelve digits", "551133334444", "551133334444"},
		{"leading zeros dropped", "0 (11) 99999-8888", "5511999998888"},
		{"plus sign form", "+55 11 99999-8888", "5511999998888"},
		{"too short", "99999", ""},
		{"too long", "55119999988881234", ""},
		{"empty", "", ""},
		{"only zeros", "000", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeBrazilianPhone(tt.in))
		})
	}
}

func TestParseFlexibleDate(t *testing.T) {
	t.Run("iso date", func(t *testing.T) {
		got := ParseFlexibleDate("2025-03-10")
		assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), got)
	})

	t.Run("iso datetime", func(t *testing.T) {
		got := ParseFlexibleDate("2025-03-10T14:30:00Z")
		assert.Equal(t, 14, got.Hour())
	})

	t.Run("brazilian date", func(t *testing.T) {
		got := ParseFlexibleDate("10/03/2025")
		assert.Equal(t, time.March, got.Month())
		assert.Equal(t, 10, got.Day())
	})

	t.Run("brazilian datetime with seconds", func(t *testing.T) {
		got := ParseFlexibleDate("10/03/2025 14:30:45")
		assert.Equal(t, 45, got.Second())
	})

	t.Run("brazilian datetime without seconds", func(t *testing.T) {
		got := ParseFlexibleDate("10/03/2025 14:30")
		assert.Equal(t, 30, got.Minute())
	})

	t.Run("garbage falls back to epoch", func(t *testing.T) {
		got := ParseFlexibleDate("not a date")
		assert.Equal(t, time.Unix(0, 0).UTC(), got)
	})
}

func TestIsPhysicalProduct(t *testing.T) {
	assert.True(t, IsPhysicalProduct("Caneca Físico"))
	assert.True(t, IsPhysicalProduct("caneca fisico"))
	assert.True(t, IsPhysicalProduct("KIT Boas-Vindas"))
	assert.False(t, IsPhysicalProduct("Curso Online"))
	assert.False(t, IsPhysicalProduct(""))
}

func TestComposeAddress(t *testing.T) {
	assert.Equal(t, "Rua A, 10, Ap 2, Centro", ComposeAddress("Rua A", "10", "Ap 2", "Centro"))
	assert.Equal(t, "Rua A, 10", ComposeAddress("Rua A", "10", "", " "))
	assert.Equal(t, "", ComposeAddress("", "", "", ""))
}

func TestParseTotal(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"brazilian notation", "1.234,56", "1234.56"},
		{"plain notation", "1234.56", "1234.56"},
		{"comma only", "97,90", "97.9"},
		{"currency prefix", "R$ 97,90", "97.9"},
		{"integer", "100", "100"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTotal(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}

	t.Run("invalid", func(t *testing.T) {
		_, err := ParseTotal("abc")
		assert.Error(t, err)
	})
}
