package importing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	csvimport "github.com/brandinglab/backend/internal/infrastructure/import"
)

func TestNewMappingTemplate(t *testing.T) {
	mapping := csvimport.ColumnMapping{
		csvimport.FieldEmail: "Email",
		csvimport.FieldName:  "Nome",
	}

	tpl, err := NewMappingTemplate("  Hotmart Padrão  ", "flame", mapping)
	require.NoError(t, err)
	assert.Equal(t, "Hotmart Padrão", tpl.Name)
	assert.Equal(t, "flame", tpl.Icon)

	_, err = NewMappingTemplate("", "flame", mapping)
	assert.Error(t, err)

	_, err = NewMappingTemplate("Vazio", "", csvimport.ColumnMapping{})
	assert.Error(t, err)
}

func TestMappingTemplate_Update(t *testing.T) {
	mapping := csvimport.ColumnMapping{csvimport.FieldEmail: "Email"}
	tpl, err := NewMappingTemplate("Antigo", "", mapping)
	require.NoError(t, err)

	newMapping := csvimport.ColumnMapping{csvimport.FieldName: "Nome"}
	require.NoError(t, tpl.Update("Novo", "star", newMapping))
	assert.Equal(t, "Novo", tpl.Name)
	assert.Equal(t, newMapping, tpl.Mapping)

	assert.Error(t, tpl.Update("", "star", newMapping))
}

func TestMappingTemplate_CompatibleWith(t *testing.T) {
	mapping := csvimport.ColumnMapping{
		csvimport.FieldEmail: "Email",
		csvimport.FieldName:  "Nome do Comprador",
	}
	tpl, err := NewMappingTemplate("Hotmart", "", mapping)
	require.NoError(t, err)

	assert.True(t, tpl.CompatibleWith([]string{"Email", "Nome do Comprador", "Extra"}))
	assert.False(t, tpl.CompatibleWith([]string{"Email"}))
	assert.False(t, tpl.CompatibleWith(nil))
}

func TestBuildRecord(t *testing.T) {
	mapping := csvimport.ColumnMapping{
		csvimport.FieldTransactionID: "Transação",
		csvimport.FieldEmail:         "Email",
		csvimport.FieldName:          "Nome",
		csvimport.FieldPhone:         "Telefone",
		csvimport.FieldTaxID:         "CPF",
		csvimport.FieldProduct:       "Produto",
		csvimport.FieldTotal:         "Valor Total",
		csvimport.FieldStatus:        "Status",
		csvimport.FieldSaleDate:      "Data",
		csvimport.FieldStreet:        "Endereço",
		csvimport.FieldNumber:        "Número",
		csvimport.FieldNeighborhood:  "Bairro",
	}
	row := csvimport.NewRow(2, map[string]string{
		"Transação":   "HP123",
		"Email":       "  ANA@Example.com ",
		"Nome":        "Ana Silva",
		"Telefone":    "(11) 99999-8888",
		"CPF":         "123.456.789-00",
		"Produto":     "Caneca Físico",
		"Valor Total": "1.234,56",
		"Status":      "Aprovado",
		"Data":        "10/03/2025",
		"Endereço":    "Rua A",
		"Número":      "10",
		"Bairro":      "Centro",
	})

	rec, err := BuildRecord(row, mapping)
	require.NoError(t, err)

	assert.Equal(t, "HP123", rec.TransactionID)
	assert.Equal(t, "ana@example.com", rec.Email)
	assert.Equal(t, "5511999998888", rec.Phone)
	assert.Equal(t, "12345678900", rec.TaxID)
	assert.Equal(t, "1234.56", rec.Total.String())
	assert.Equal(t, "Rua A, 10, Centro", rec.AddressLine())
	assert.True(t, rec.Physical())
}

func TestBuildRecord_Errors(t *testing.T) {
	mapping := csvimport.ColumnMapping{
		csvimport.FieldTransactionID: "Transação",
		csvimport.FieldTotal:         "Valor",
	}

	t.Run("missing transaction id", func(t *testing.T) {
		row := csvimport.NewRow(3, map[string]string{"Valor": "10"})
		_, err := BuildRecord(row, mapping)
		assert.ErrorContains(t, err, "missing transaction id")
	})

	t.Run("invalid total", func(t *testing.T) {
		row := csvimport.NewRow(3, map[string]string{"Transação": "HP1", "Valor": "abc"})
		_, err := BuildRecord(row, mapping)
		assert.ErrorContains(t, err, "invalid total")
	})

	t.Run("invalid email normalizes to empty", func(t *testing.T) {
		m := csvimport.ColumnMapping{
			csvimport.FieldTransactionID: "Transação",
			csvimport.FieldEmail:         "Email",
		}
		row := csvimport.NewRow(3, map[string]string{"Transação": "HP1", "Email": "not-an-email"})
		rec, err := BuildRecord(row, m)
		require.NoError(t, err)
		assert.Equal(t, "", rec.Email)
	})
}
