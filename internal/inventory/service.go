package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/zaiko-kanri/zaiko/internal/shared"
)

// Catalog is the source of products and inventory history and the target
// of adjustments.
type Catalog interface {
	Product(ctx context.Context, id int64) (Product, error)
	History(ctx context.Context, productID int64) ([]InventoryEvent, error)
	Apply(ctx context.Context, adj Adjustment) (InventoryEvent, error)
}

// ProductPage is the data behind the product inventory screen.
type ProductPage struct {
	Product Product
	Events  []InventoryEvent
	Found   bool
}

// Service coordinates product lookups and adjustments.
type Service struct {
	catalog Catalog
	changes ChangeHandler
	logger  *slog.Logger
}

// NewService builds Service. changes may be nil.
func NewService(catalog Catalog, changes ChangeHandler, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{catalog: catalog, changes: changes, logger: logger}
}

// LoadProductPage resolves the product and its history. A missing product
// yields the placeholder without error.
func (s *Service) LoadProductPage(ctx context.Context, id int64) (ProductPage, error) {
	page := ProductPage{Product: PlaceholderProduct()}
	if id <= 0 {
		return page, nil
	}
	product, err := s.catalog.Product(ctx, id)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		return page, nil
	case err != nil:
		return page, fmt.Errorf("inventory: load product %d: %w", id, err)
	}
	page.Product = product
	page.Found = true

	events, err := s.catalog.History(ctx, id)
	if err != nil {
		return page, fmt.Errorf("inventory: load history %d: %w", id, err)
	}
	page.Events = events
	return page, nil
}

// Apply runs one submission through Submitting to Applied or Rejected.
func (s *Service) Apply(ctx context.Context, adj Adjustment) Outcome {
	if adj == nil {
		return Outcome{State: StateIdle}
	}
	if !ValidQuantity(adj.Qty()) {
		return Outcome{State: StateRejected, Err: ErrInvalidQuantity}
	}
	if adj.Product() <= 0 {
		return Outcome{State: StateRejected, Err: ErrUnknownProduct}
	}

	evt, err := s.catalog.Apply(ctx, adj)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) && !errors.Is(err, ErrUnknownProduct) {
			err = fmt.Errorf("%w: %w", ErrUnknownProduct, err)
		}
		return Outcome{State: StateRejected, Err: err}
	}

	if s.changes != nil {
		changed := StockChangedEvent{
			ProductID: adj.Product(),
			Kind:      adj.Kind(),
			Quantity:  adj.Qty(),
			Inventory: evt.Inventory,
			AppliedAt: evt.Date,
		}
		if err := s.changes.HandleStockChanged(ctx, changed); err != nil {
			s.logger.Warn("stock changed signal", slog.Int64("product_id", adj.Product()), slog.Any("error", err))
		}
	}
	return Outcome{State: StateApplied, Event: evt}
}
