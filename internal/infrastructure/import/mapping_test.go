package csvimport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutoDetect_HotmartHeaders(t *testing.T) {
	headers := []string{
		"Código da Transação", "Status da Compra", "Nome do Produto",
		"Nome do Comprador", "Email", "Telefone", "CPF/CNPJ",
		"Valor Total", "Data da Venda", "CEP", "Endereço", "Número",
		"Complemento", "Bairro", "Cidade", "Estado",
	}

	m := AutoDetect(headers)

	assert.Equal(t, "Email", m[FieldEmail])
	assert.Equal(t, "Nome do Comprador", m[FieldName])
	assert.Equal(t, "Telefone", m[FieldPhone])
	assert.Equal(t, "CPF/CNPJ", m[FieldTaxID])
	assert.Equal(t, "Nome do Produto", m[FieldProduct])
	assert.Equal(t, "Código da Transação", m[FieldTransactionID])
	assert.Equal(t, "Valor Total", m[FieldTotal])
	assert.Equal(t, "Status da Compra", m[FieldStatus])
	assert.Equal(t, "Data da Venda", m[FieldSaleDate])
	assert.Equal(t, "CEP", m[FieldZip])
	assert.Equal(t, "Endereço", m[FieldStreet])
	assert.Equal(t, "Número", m[FieldNumber])
	assert.Equal(t, "Complemento", m[FieldComplement])
	assert.Equal(t, "Bairro", m[FieldNeighborhood])
	assert.Equal(t, "Cidade", m[FieldCity])
	assert.Equal(t, "Estado", m[FieldState])
}

func TestAutoDetect_AccentInsensitive(t *testing.T) {
	m := AutoDetect([]string{"E-MAIL", "ENDEREÇO", "NÚMERO"})

	assert.Equal(t, "E-MAIL", m[FieldEmail])
	assert.Equal(t, "ENDEREÇO", m[FieldStreet])
	assert.Equal(t, "NÚMERO", m[FieldNumber])
}

func TestAutoDetect_HeaderClaimedOnce(t *testing.T) {
	// "Número do Pedido" must go to transactionId, leaving "Número" for
	// the address number.
	m := AutoDetect([]string{"Número do Pedido", "Número", "Email"})

	assert.Equal(t, "Número do Pedido", m[FieldTransactionID])
	assert.Equal(t, "Número", m[FieldNumber])
}

func TestAutoDetect_Deterministic(t *testing.T) {
	headers := []string{"Email", "Nome", "Telefone", "Produto"}
	first := AutoDetect(headers)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, AutoDetect(headers))
	}
}

func TestAutoDetect_NoMatches(t *testing.T) {
	m := AutoDetect([]string{"foo", "bar"})
	assert.Empty(t, m)
}

func TestValidate(t *testing.T) {
	headers := []string{"Email", "Nome"}
	required := []FieldKey{FieldEmail, FieldName, FieldProduct}

	t.Run("missing unmapped field", func(t *testing.T) {
		m := ColumnMapping{FieldEmail: "Email", FieldName: "Nome"}
		missing := Validate(m, required, headers)
		assert.Equal(t, []FieldKey{FieldProduct}, missing)
	})

	t.Run("mapped to absent header", func(t *testing.T) {
		m := ColumnMapping{FieldEmail: "Email", FieldName: "Nome", FieldProduct: "Produto"}
		missing := Validate(m, required, headers)
		assert.Equal(t, []FieldKey{FieldProduct}, missing)
	})

	t.Run("all present", func(t *testing.T) {
		m := ColumnMapping{FieldEmail: "Email", FieldName: "Nome", FieldProduct: "Nome"}
		missing := Validate(m, required, headers)
		assert.Empty(t, missing)
	})
}

func TestColumnMapping_Value(t *testing.T) {
	row := NewRow(2, map[string]string{"Email": "a@b.com"})
	m := ColumnMapping{FieldEmail: "Email"}

	assert.Equal(t, "a@b.com", m.Value(row, FieldEmail))
	assert.Equal(t, "", m.Value(row, FieldPhone))
}

func TestFold(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Número", "numero"},
		{"ENDEREÇO", "endereco"},
		{"  Código da Transação  ", "codigo da transacao"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Fold(tt.in))
		})
	}
}

func TestAllFieldsHaveKeywords(t *testing.T) {
	for _, key := range AllFields {
		require.NotEmpty(t, fieldKeywords[key], "field %s has no detection keywords", key)
	}
}
