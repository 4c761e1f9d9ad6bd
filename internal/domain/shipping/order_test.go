package shipping

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecipient() Recipient {
	return Recipient{
		Name:         "Ana Silva",
		Email:        "ana@example.com",
		Phone:        "5511999998888",
		Zip:          "01310-100",
		Street:       "Av Paulista",
		Number:       "1000",
		Neighborhood: "Bela Vista",
		City:         "São Paulo",
		State:        "SP",
	}
}

func testOrder(txn string) *Order {
	return NewOrder(txn, testRecipient(), []string{"Caneca Físico"}, decimal.NewFromInt(97), time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC))
}

func TestNewOrder(t *testing.T) {
	o := testOrder("HP1")
	assert.Equal(t, LabelPending, o.LabelStatus)
	assert.Equal(t, 1, o.ShipmentsTotal)
	assert.Equal(t, 1, o.RemainingShipments())
	assert.False(t, o.Merged())
}

func TestOrder_ApplyLabel(t *testing.T) {
	t.Run("single shipment flips to generated", func(t *testing.T) {
		o := testOrder("HP1")
		require.NoError(t, o.ApplyLabel("BR123"))
		assert.Equal(t, LabelGenerated, o.LabelStatus)
		assert.Equal(t, []string{"BR123"}, o.LabelCodes)
		assert.Equal(t, 0, o.RemainingShipments())
	})

	t.Run("multi shipment goes through partial", func(t *testing.T) {
		o := testOrder("HP1")
		o.ShipmentsTotal = 3
		require.NoError(t, o.ApplyLabel("BR1"))
		assert.Equal(t, LabelPartial, o.LabelStatus)
		require.NoError(t, o.ApplyLabel("BR2"))
		assert.Equal(t, LabelPartial, o.LabelStatus)
		require.NoError(t, o.ApplyLabel("BR3"))
		assert.Equal(t, LabelGenerated, o.LabelStatus)
	})

	t.Run("rejects label past total", func(t *testing.T) {
		o := testOrder("HP1")
		require.NoError(t, o.ApplyLabel("BR1"))
		assert.Error(t, o.ApplyLabel("BR2"))
	})
}

func TestOrder_MarkLabelError(t *testing.T) {
	o := testOrder("HP1")
	o.MarkLabelError()
	assert.Equal(t, LabelError, o.LabelStatus)
	assert.Equal(t, 0, o.ShipmentsDone)
}

func TestOrder_SnapshotRestore(t *testing.T) {
	o := testOrder("HP1")
	o.ShipmentsTotal = 2
	require.NoError(t, o.ApplyLabel("BR1"))

	snap := o.Snapshot()
	o.LabelCodes[0] = "mutated"
	o.Recipient.Name = "changed"

	restored := snap.Restore()
	assert.Equal(t, "HP1", restored.TransactionID)
	assert.Equal(t, "Ana Silva", restored.Recipient.Name)
	assert.Equal(t, []string{"BR1"}, restored.LabelCodes)
	assert.Equal(t, LabelPartial, restored.LabelStatus)
	assert.Equal(t, 1, restored.ShipmentsDone)
}

func TestMergeKeyOf(t *testing.T) {
	a := testOrder("HP1")
	b := testOrder("HP2")
	b.Recipient.Email = "  ANA@Example.com "
	b.Recipient.Name = "ana  silva"
	b.Recipient.Zip = "01310100"

	assert.Equal(t, MergeKeyOf(a), MergeKeyOf(b))
}

func TestMergeKey_Diff(t *testing.T) {
	a := testOrder("HP1")
	b := testOrder("HP2")
	b.Recipient.Email = "outro@example.com"
	b.Recipient.Number = "2000"

	diff := MergeKeyOf(a).Diff(MergeKeyOf(b))
	assert.Contains(t, diff, "Emails diferentes")
	assert.Contains(t, diff, "Endereços diferentes")
}

func TestMergeKey_DiffZipOnly(t *testing.T) {
	a := testOrder("HP1")
	b := testOrder("HP2")
	b.Recipient.Zip = "02000-000"

	diff := MergeKeyOf(a).Diff(MergeKeyOf(b))
	assert.Equal(t, []string{"Endereços diferentes"}, diff)
}
