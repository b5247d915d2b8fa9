package backend

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/zaiko-kanri/zaiko/internal/inventory"
)

type historyRow struct {
	ID       int64  `json:"id"`
	Type     string `json:"type"`
	Date     string `json:"date"`
	Unit     int64  `json:"unit"`
	Quantity int64  `json:"quantity"`
}

type purchaseBody struct {
	Product      int64  `json:"product"`
	Quantity     int64  `json:"quantity"`
	PurchaseDate string `json:"purchase_date"`
}

type salesBody struct {
	Product   int64  `json:"product"`
	Quantity  int64  `json:"quantity"`
	SalesDate string `json:"sales_date"`
}

type createdBody struct {
	ID int64 `json:"id"`
}

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"}

// Product fetches one product. A 404 wraps shared.ErrNotFound.
func (c *Client) Product(ctx context.Context, id int64) (inventory.Product, error) {
	path := fmt.Sprintf(PathProducts, id)
	resp, err := c.request(ctx).Get(path)
	if err := c.check(path, resp, err); err != nil {
		return inventory.Product{}, err
	}
	var p inventory.Product
	if err := decode(path, resp, &p); err != nil {
		return inventory.Product{}, err
	}
	return p, nil
}

// Products lists every product, ordered by id.
func (c *Client) Products(ctx context.Context) ([]inventory.Product, error) {
	resp, err := c.request(ctx).Get(PathProductList)
	if err := c.check(PathProductList, resp, err); err != nil {
		return nil, err
	}
	var products []inventory.Product
	if err := decode(PathProductList, resp, &products); err != nil {
		return nil, err
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products, nil
}

// History fetches the purchases and sales of one product and derives line
// price and running inventory.
func (c *Client) History(ctx context.Context, productID int64) ([]inventory.InventoryEvent, error) {
	path := fmt.Sprintf(PathHistory, productID)
	resp, err := c.request(ctx).Get(path)
	if err := c.check(path, resp, err); err != nil {
		return nil, err
	}
	var rows []historyRow
	if err := decode(path, resp, &rows); err != nil {
		return nil, err
	}

	events := make([]inventory.InventoryEvent, 0, len(rows))
	for _, row := range rows {
		kind, err := parseEventType(row.Type)
		if err != nil {
			return nil, err
		}
		date, err := parseDate(row.Date)
		if err != nil {
			return nil, err
		}
		events = append(events, inventory.InventoryEvent{
			ID:        row.ID,
			ProductID: productID,
			Type:      kind,
			Date:      date,
			Unit:      row.Unit,
			Quantity:  row.Quantity,
			Price:     row.Unit * row.Quantity,
		})
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].Date.Before(events[j].Date) })
	var balance int64
	for i := range events {
		if events[i].Type == inventory.EventPurchase {
			balance += events[i].Quantity
		} else {
			balance -= events[i].Quantity
		}
		events[i].Inventory = balance
	}
	return events, nil
}

// Apply posts a purchase or a sale. The backend rejects sales beyond stock
// with a 400 that becomes a *BusinessError.
func (c *Client) Apply(ctx context.Context, adj inventory.Adjustment) (inventory.InventoryEvent, error) {
	today := time.Now().Format("2006-01-02")
	var path string
	var body any
	switch a := adj.(type) {
	case inventory.Purchase:
		path = PathPurchases
		body = purchaseBody{Product: a.ProductID, Quantity: a.Quantity, PurchaseDate: today}
	case inventory.Sell:
		path = PathSales
		body = salesBody{Product: a.ProductID, Quantity: a.Quantity, SalesDate: today}
	default:
		return inventory.InventoryEvent{}, fmt.Errorf("backend: unsupported adjustment %T", adj)
	}

	resp, err := c.request(ctx).
		SetHeader("Idempotency-Key", newIdempotencyKey()).
		SetBody(body).
		Post(path)
	if err := c.check(path, resp, err); err != nil {
		return inventory.InventoryEvent{}, err
	}

	applied := inventory.InventoryEvent{
		ProductID: adj.Product(),
		Type:      adj.Kind(),
		Date:      time.Now(),
		Quantity:  adj.Qty(),
	}
	// The backend accepted the mutation; an unreadable body must not turn it into a rejection.
	var created createdBody
	if err := decode(path, resp, &created); err != nil {
		c.logger.Warn("decode created adjustment", slog.String("path", path), slog.Any("error", err))
		return applied, nil
	}
	applied.ID = created.ID
	// The created row carries no running balance; read it back from history.
	history, err := c.History(ctx, adj.Product())
	if err != nil {
		c.logger.Warn("reload history after adjustment", slog.Int64("product_id", adj.Product()), slog.Any("error", err))
		return applied, nil
	}
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].ID == created.ID && history[i].Type == adj.Kind() {
			return history[i], nil
		}
	}
	return applied, nil
}

func parseEventType(raw string) (inventory.EventType, error) {
	switch raw {
	case "1", string(inventory.EventPurchase):
		return inventory.EventPurchase, nil
	case "2", string(inventory.EventSell):
		return inventory.EventSell, nil
	default:
		return "", fmt.Errorf("backend: unknown inventory type %q", raw)
	}
}

func parseDate(raw string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("backend: invalid date %q", raw)
}
