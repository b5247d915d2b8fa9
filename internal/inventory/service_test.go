package inventory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zaiko-kanri/zaiko/internal/shared"
)

type recordingChanges struct {
	events []StockChangedEvent
	err    error
}

func (r *recordingChanges) HandleStockChanged(ctx context.Context, evt StockChangedEvent) error {
	r.events = append(r.events, evt)
	return r.err
}

type failingCatalog struct {
	err error
}

func (f failingCatalog) Product(ctx context.Context, id int64) (Product, error) {
	return Product{}, f.err
}

func (f failingCatalog) History(ctx context.Context, productID int64) ([]InventoryEvent, error) {
	return nil, f.err
}

func (f failingCatalog) Apply(ctx context.Context, adj Adjustment) (InventoryEvent, error) {
	return InventoryEvent{}, f.err
}

func newTestStore(t *testing.T) *SampleStore {
	t.Helper()
	store, err := newSampleStore([]Product{{ID: 1, Name: "コーヒー豆", Price: 1200}}, nil)
	require.NoError(t, err)
	return store
}

func TestLoadProductPageFallsBackToPlaceholder(t *testing.T) {
	svc := NewService(newTestStore(t), nil, nil)
	ctx := context.Background()

	page, err := svc.LoadProductPage(ctx, 1)
	require.NoError(t, err)
	require.True(t, page.Found)
	require.Equal(t, "コーヒー豆", page.Product.Name)

	for _, id := range []int64{0, -3, 42} {
		page, err = svc.LoadProductPage(ctx, id)
		require.NoError(t, err)
		require.False(t, page.Found)
		require.Equal(t, PlaceholderProduct(), page.Product)
		require.Empty(t, page.Events)
	}
}

func TestLoadProductPageSurfacesCatalogFailure(t *testing.T) {
	svc := NewService(failingCatalog{err: errors.New("connection refused")}, nil, nil)
	page, err := svc.LoadProductPage(context.Background(), 1)
	require.Error(t, err)
	require.Equal(t, PlaceholderProduct(), page.Product)
}

func TestApplyPurchaseThenSell(t *testing.T) {
	changes := &recordingChanges{}
	svc := NewService(newTestStore(t), changes, nil)
	ctx := context.Background()

	outcome := svc.Apply(ctx, Purchase{ProductID: 1, Quantity: 10})
	require.Equal(t, StateApplied, outcome.State)
	require.Equal(t, int64(10), outcome.Event.Inventory)

	outcome = svc.Apply(ctx, Sell{ProductID: 1, Quantity: 4})
	require.Equal(t, StateApplied, outcome.State)
	require.Equal(t, int64(6), outcome.Event.Inventory)

	require.Len(t, changes.events, 2)
	require.Equal(t, EventSell, changes.events[1].Kind)
	require.Equal(t, int64(6), changes.events[1].Inventory)
}

func TestApplyRejectsWithoutSignal(t *testing.T) {
	changes := &recordingChanges{}
	svc := NewService(newTestStore(t), changes, nil)
	ctx := context.Background()

	cases := []struct {
		name string
		adj  Adjustment
		want error
	}{
		{"oversell", Sell{ProductID: 1, Quantity: 1}, ErrInsufficientStock},
		{"zero quantity", Purchase{ProductID: 1, Quantity: 0}, ErrInvalidQuantity},
		{"too large", Purchase{ProductID: 1, Quantity: MaxQuantity + 1}, ErrInvalidQuantity},
		{"placeholder", Purchase{ProductID: 0, Quantity: 1}, ErrUnknownProduct},
		{"missing product", Sell{ProductID: 99, Quantity: 1}, ErrUnknownProduct},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			outcome := svc.Apply(ctx, tc.adj)
			require.Equal(t, StateRejected, outcome.State)
			require.ErrorIs(t, outcome.Err, tc.want)
		})
	}
	require.Empty(t, changes.events)

	history, err := svc.catalog.History(ctx, 1)
	require.NoError(t, err)
	require.Empty(t, history)
}

func TestApplyRejectedMessages(t *testing.T) {
	svc := NewService(newTestStore(t), nil, nil)
	outcome := svc.Apply(context.Background(), Sell{ProductID: 1, Quantity: 1})
	require.Equal(t, MsgInsufficientStock, shared.UserSafeMessage(outcome.Err))

	outcome = svc.Apply(context.Background(), Sell{ProductID: 99, Quantity: 1})
	require.Equal(t, MsgProductNotFound, shared.UserSafeMessage(outcome.Err))
}

func TestApplyKeepsAppliedWhenSignalFails(t *testing.T) {
	changes := &recordingChanges{err: errors.New("redis down")}
	svc := NewService(newTestStore(t), changes, nil)

	outcome := svc.Apply(context.Background(), Purchase{ProductID: 1, Quantity: 3})
	require.Equal(t, StateApplied, outcome.State)
	require.Len(t, changes.events, 1)
}

func TestApplyNilIsIdle(t *testing.T) {
	svc := NewService(newTestStore(t), nil, nil)
	require.Equal(t, StateIdle, svc.Apply(context.Background(), nil).State)
}
