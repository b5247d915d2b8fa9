package inventory

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/zaiko-kanri/zaiko/internal/shared"
)

//go:embed sample/*.json
var sampleFS embed.FS

type sampleEvent struct {
	ID        int64     `json:"id"`
	ProductID int64     `json:"product_id"`
	Type      EventType `json:"type"`
	Date      time.Time `json:"date"`
	Quantity  int64     `json:"quantity"`
}

// SampleStore is an in-memory Catalog seeded from the embedded sample data.
type SampleStore struct {
	mu       sync.RWMutex
	products map[int64]Product
	events   []InventoryEvent
	balances map[int64]int64
	nextID   int64
	now      func() time.Time
}

// NewSampleStore loads the embedded sample products and inventory history.
func NewSampleStore() (*SampleStore, error) {
	var products []Product
	if err := readSample("sample/products.json", &products); err != nil {
		return nil, err
	}
	var seeds []sampleEvent
	if err := readSample("sample/inventories.json", &seeds); err != nil {
		return nil, err
	}
	return newSampleStore(products, seeds)
}

func readSample(name string, dest any) error {
	raw, err := sampleFS.ReadFile(name)
	if err != nil {
		return fmt.Errorf("inventory: read %s: %w", name, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("inventory: decode %s: %w", name, err)
	}
	return nil
}

func newSampleStore(products []Product, seeds []sampleEvent) (*SampleStore, error) {
	s := &SampleStore{
		products: make(map[int64]Product, len(products)),
		balances: make(map[int64]int64),
		now:      time.Now,
	}
	for _, p := range products {
		s.products[p.ID] = p
	}
	sorted := append([]sampleEvent(nil), seeds...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })
	for _, seed := range sorted {
		product, ok := s.products[seed.ProductID]
		if !ok {
			return nil, fmt.Errorf("inventory: sample event %d references unknown product %d", seed.ID, seed.ProductID)
		}
		if _, err := s.append(product, seed.Type, seed.Quantity, seed.Date); err != nil {
			return nil, fmt.Errorf("inventory: sample event %d: %w", seed.ID, err)
		}
		if seed.ID > 0 {
			s.events[len(s.events)-1].ID = seed.ID
			s.nextID = max(s.nextID, seed.ID)
		}
	}
	return s, nil
}

// Product returns the sample product with id.
func (s *SampleStore) Product(ctx context.Context, id int64) (Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return Product{}, fmt.Errorf("inventory: product %d: %w", id, shared.ErrNotFound)
	}
	return p, nil
}

// Products lists sample products ordered by id.
func (s *SampleStore) Products(ctx context.Context) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// History returns the events of one product in chronological order.
func (s *SampleStore) History(ctx context.Context, productID int64) ([]InventoryEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []InventoryEvent
	for _, evt := range s.events {
		if evt.ProductID == productID {
			out = append(out, evt)
		}
	}
	return out, nil
}

// Apply records a purchase or sell. Sells beyond the current balance are rejected.
func (s *SampleStore) Apply(ctx context.Context, adj Adjustment) (InventoryEvent, error) {
	if err := ctx.Err(); err != nil {
		return InventoryEvent{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	product, ok := s.products[adj.Product()]
	if !ok {
		return InventoryEvent{}, fmt.Errorf("inventory: product %d: %w", adj.Product(), shared.ErrNotFound)
	}
	return s.append(product, adj.Kind(), adj.Qty(), s.now())
}

// append must be called with mu held (or during construction).
func (s *SampleStore) append(product Product, kind EventType, qty int64, at time.Time) (InventoryEvent, error) {
	if !ValidQuantity(qty) {
		return InventoryEvent{}, ErrInvalidQuantity
	}
	balance := s.balances[product.ID]
	switch kind {
	case EventPurchase:
		balance += qty
	case EventSell:
		if balance < qty {
			return InventoryEvent{}, ErrInsufficientStock
		}
		balance -= qty
	default:
		return InventoryEvent{}, fmt.Errorf("inventory: unknown event type %q", kind)
	}
	s.nextID++
	evt := InventoryEvent{
		ID:        s.nextID,
		ProductID: product.ID,
		Type:      kind,
		Date:      at,
		Unit:      product.Price,
		Quantity:  qty,
		Price:     product.Price * qty,
		Inventory: balance,
	}
	s.balances[product.ID] = balance
	s.events = append(s.events, evt)
	return evt, nil
}
