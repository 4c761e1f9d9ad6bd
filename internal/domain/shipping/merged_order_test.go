package shipping

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeID_Deterministic(t *testing.T) {
	a := MergeID([]string{"HP2", "HP1", "HP3"})
	b := MergeID([]string{"HP3", "HP1", "HP2"})
	c := MergeID([]string{"HP1", "HP2"})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Contains(t, a, "merge-")
}

func TestMerge(t *testing.T) {
	a := testOrder("HP1")
	b := testOrder("HP2")
	b.Products = []string{"Kit Adesivos"}
	b.Total = decimal.NewFromInt(50)
	b.SaleDate = a.SaleDate.Add(48 * time.Hour)
	b.Recipient.Phone = ""
	b.Recipient.Complement = "Ap 42"
	a.Recipient.Complement = ""

	m, err := Merge([]*Order{a, b}, "")
	require.NoError(t, err)

	assert.Equal(t, MergeID([]string{"HP1", "HP2"}), m.ID)
	assert.Equal(t, []string{"HP1", "HP2"}, m.Members)
	require.Len(t, m.Snapshots, 2)

	r := m.Result
	assert.Equal(t, []string{"Caneca Físico", "Kit Adesivos"}, r.Products)
	assert.Equal(t, "147", r.Total.String())
	assert.Equal(t, b.SaleDate, r.SaleDate)
	assert.Equal(t, "5511999998888", r.Recipient.Phone)
	assert.Equal(t, "Ap 42", r.Recipient.Complement)
	assert.Equal(t, LabelPending, r.LabelStatus)

	assert.Equal(t, m.ID, a.MergedInto)
	assert.Equal(t, m.ID, b.MergedInto)
}

func TestMerge_Rejections(t *testing.T) {
	t.Run("needs two orders", func(t *testing.T) {
		_, err := Merge([]*Order{testOrder("HP1")}, "")
		assert.Error(t, err)
	})

	t.Run("different recipients", func(t *testing.T) {
		a := testOrder("HP1")
		b := testOrder("HP2")
		b.Recipient.Street = "Rua Augusta"

		_, err := Merge([]*Order{a, b}, "")
		var conflict *MergeConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Contains(t, conflict.Fields, "Endereços diferentes")
	})

	t.Run("already merged member", func(t *testing.T) {
		a := testOrder("HP1")
		a.MergedInto = "merge-x"
		_, err := Merge([]*Order{a, testOrder("HP2")}, "")
		assert.Error(t, err)
	})
}

func TestMerge_MixedLabelState(t *testing.T) {
	withLabel := func() *Order {
		o := testOrder("HP1")
		require.NoError(t, o.ApplyLabel("BR1"))
		return o
	}

	t.Run("requires explicit choice", func(t *testing.T) {
		_, err := Merge([]*Order{withLabel(), testOrder("HP2")}, "")
		assert.ErrorIs(t, err, ErrLabelChoiceRequired)
	})

	t.Run("inherit keeps label codes", func(t *testing.T) {
		m, err := Merge([]*Order{withLabel(), testOrder("HP2")}, LabelChoiceInherit)
		require.NoError(t, err)
		assert.Equal(t, []string{"BR1"}, m.Result.LabelCodes)
		assert.Equal(t, LabelGenerated, m.Result.LabelStatus)
	})

	t.Run("discard starts pending", func(t *testing.T) {
		m, err := Merge([]*Order{withLabel(), testOrder("HP2")}, LabelChoiceDiscard)
		require.NoError(t, err)
		assert.Empty(t, m.Result.LabelCodes)
		assert.Equal(t, LabelPending, m.Result.LabelStatus)
	})

	t.Run("no choice needed when all labelled", func(t *testing.T) {
		a := withLabel()
		b := testOrder("HP2")
		require.NoError(t, b.ApplyLabel("BR2"))
		m, err := Merge([]*Order{a, b}, "")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"BR1", "BR2"}, m.Result.LabelCodes)
	})
}

func TestMergedOrder_Unmerge(t *testing.T) {
	a := testOrder("HP1")
	require.NoError(t, a.ApplyLabel("BR1"))
	b := testOrder("HP2")

	m, err := Merge([]*Order{a, b}, LabelChoiceInherit)
	require.NoError(t, err)

	restored := m.Unmerge()
	require.Len(t, restored, 2)
	assert.Equal(t, "HP1", restored[0].TransactionID)
	assert.Equal(t, []string{"BR1"}, restored[0].LabelCodes)
	assert.Equal(t, LabelGenerated, restored[0].LabelStatus)
	assert.Equal(t, LabelPending, restored[1].LabelStatus)
	assert.False(t, restored[0].Merged())
}

func TestMergedOrder_UnmergeWithoutSnapshot(t *testing.T) {
	m := &MergedOrder{ID: "merge-x", Members: []string{"HP1"}}
	restored := m.Unmerge()
	require.Len(t, restored, 1)
	assert.Equal(t, LabelPending, restored[0].LabelStatus)
	assert.Empty(t, restored[0].LabelCodes)
	assert.Equal(t, 1, restored[0].ShipmentsTotal)
}

func TestMergedOrder_Covers(t *testing.T) {
	m := &MergedOrder{Members: []string{"HP1", "HP2"}}
	assert.True(t, m.Covers(map[string]bool{"HP1": true, "HP2": true, "HP3": true}))
	assert.False(t, m.Covers(map[string]bool{"HP1": true}))
}
