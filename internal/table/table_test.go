package table

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotel-kitchen-backend/internal/dbtest"
	"hotel-kitchen-backend/internal/model"
	"hotel-kitchen-backend/internal/store"
)

func TestDerive(t *testing.T) {
	tbl := model.Table{ID: 3, Title: "Patio 3"}
	items := []model.OrderItem{
		{Status: model.ItemDone},
		{Status: model.ItemDone},
		{Status: model.ItemPreparing},
		{Status: model.ItemServed},
		{Status: model.ItemRejected},
	}

	testCases := []struct {
		name     string
		order    *model.Order
		expected Status
	}{
		{
			name:     "no order",
			order:    nil,
			expected: Status{TableID: 3, Title: "Patio 3", Availability: Available},
		},
		{
			name:     "paid order frees the table",
			order:    &model.Order{ID: 8, PaymentStatus: model.PaymentPaid, Items: items},
			expected: Status{TableID: 3, Title: "Patio 3", Availability: Available},
		},
		{
			name:  "unpaid order counts ready items",
			order: &model.Order{ID: 9, PaymentStatus: model.PaymentUnpaid, Items: items},
			expected: Status{
				TableID: 3, Title: "Patio 3", Availability: Occupied,
				UnservedCount: 2, CurrentOrderID: 9,
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Derive(tbl, tc.order))
		})
	}
}

func TestAggregator_Recompute(t *testing.T) {
	ctx := context.Background()
	gormDB := dbtest.Open(t)
	fx := dbtest.Seed(t, gormDB)
	s := store.NewGormStore(gormDB)
	agg := NewAggregator(s)

	st, flipped, err := agg.Recompute(ctx, fx.Table.ID)
	require.NoError(t, err)
	assert.False(t, flipped)
	assert.Equal(t, Available, st.Availability)

	order := &model.Order{TableID: fx.Table.ID, Channel: "cafe", DepartmentID: 1,
		Items: []model.OrderItem{{ProductID: 1, ProductName: "Latte", Quantity: 2}}}
	require.NoError(t, s.CreateOrder(ctx, order))

	st, flipped, err = agg.Recompute(ctx, fx.Table.ID)
	require.NoError(t, err)
	assert.True(t, flipped, "opening an order occupies the table")
	assert.Equal(t, Occupied, st.Availability)
	assert.Equal(t, order.ID, st.CurrentOrderID)

	_, flipped, err = agg.Recompute(ctx, fx.Table.ID)
	require.NoError(t, err)
	assert.False(t, flipped, "recompute is idempotent")

	_, err = s.MarkOrderPaid(ctx, order.ID, order.OrderedAt)
	require.NoError(t, err)

	st, flipped, err = agg.Recompute(ctx, fx.Table.ID)
	require.NoError(t, err)
	assert.True(t, flipped)
	assert.Equal(t, Available, st.Availability)

	stored, err := s.GetTable(ctx, fx.Table.ID)
	require.NoError(t, err)
	assert.True(t, stored.Available)

	_, err = agg.Status(ctx, 404)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
