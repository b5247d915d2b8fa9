package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zaiko-kanri/zaiko/internal/shared"
)

func TestNewSampleStoreLoadsEmbeddedData(t *testing.T) {
	store, err := NewSampleStore()
	require.NoError(t, err)
	ctx := context.Background()

	product, err := store.Product(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "コーヒー豆 200g", product.Name)

	history, err := store.History(ctx, 1)
	require.NoError(t, err)
	require.NotEmpty(t, history)
	for _, evt := range history {
		require.Equal(t, int64(1), evt.ProductID, "history must only contain the requested product")
		require.Equal(t, evt.Unit*evt.Quantity, evt.Price)
	}
	require.Equal(t, int64(35), history[len(history)-1].Inventory)

	_, err = store.Product(ctx, 999)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestSampleStoreRejectsOverselling(t *testing.T) {
	store, err := newSampleStore(
		[]Product{{ID: 7, Name: "ノート", Price: 300}},
		[]sampleEvent{{ID: 1, ProductID: 7, Type: EventPurchase, Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Quantity: 5}},
	)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.Apply(ctx, Sell{ProductID: 7, Quantity: 6})
	require.ErrorIs(t, err, ErrInsufficientStock)

	history, err := store.History(ctx, 7)
	require.NoError(t, err)
	require.Len(t, history, 1, "rejected sell must not append history")

	evt, err := store.Apply(ctx, Sell{ProductID: 7, Quantity: 5})
	require.NoError(t, err)
	require.Equal(t, int64(0), evt.Inventory)
	require.Equal(t, int64(2), evt.ID)
	require.Equal(t, int64(1500), evt.Price)
}

func TestSampleStoreRejectsInconsistentSeed(t *testing.T) {
	_, err := newSampleStore(
		[]Product{{ID: 1, Price: 10}},
		[]sampleEvent{{ID: 1, ProductID: 1, Type: EventSell, Quantity: 1}},
	)
	require.ErrorIs(t, err, ErrInsufficientStock)

	_, err = newSampleStore(nil, []sampleEvent{{ID: 1, ProductID: 2, Type: EventPurchase, Quantity: 1}})
	require.Error(t, err)
}

func TestSampleStoreHonoursCancelledContext(t *testing.T) {
	store, err := newSampleStore([]Product{{ID: 1, Price: 10}}, nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = store.Apply(ctx, Purchase{ProductID: 1, Quantity: 1})
	require.ErrorIs(t, err, context.Canceled)
}
