package inventory

import (
	"context"
	"time"
)

// StockChangedEvent is emitted once per applied adjustment.
type StockChangedEvent struct {
	ProductID int64
	Kind      EventType
	Quantity  int64
	Inventory int64
	AppliedAt time.Time
}

// ChangeHandler receives the data-changed signal after a confirmed mutation.
type ChangeHandler interface {
	HandleStockChanged(ctx context.Context, evt StockChangedEvent) error
}
