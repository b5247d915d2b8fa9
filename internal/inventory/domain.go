package inventory

import (
	"errors"
	"time"

	"github.com/zaiko-kanri/zaiko/internal/shared"
)

// Quantity bounds accepted by the adjustment form.
const (
	MinQuantity = 1
	MaxQuantity = 99_999_999
)

// Messages shown by the product inventory screen.
const (
	MsgInvalidQuantity   = "1から99999999の数値を入力してください"
	MsgPurchased         = "商品を仕入れました"
	MsgSold              = "商品を卸しました"
	MsgInsufficientStock = "在庫数量を超過することはできません"
	MsgProductNotFound   = "商品が見つかりません"
	MsgHistoryFailed     = "在庫履歴の取得に失敗しました"
)

// Product is the catalog record shown above the adjustment form.
type Product struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Price       int64  `json:"price"`
	Description string `json:"description"`
}

// PlaceholderProduct is displayed when the route id matches no product.
func PlaceholderProduct() Product {
	return Product{}
}

// EventType tags an InventoryEvent.
type EventType string

const (
	// EventPurchase adds stock.
	EventPurchase EventType = "purchase"
	// EventSell removes stock.
	EventSell EventType = "sell"
)

// Label returns the display name of the event type.
func (t EventType) Label() string {
	switch t {
	case EventPurchase:
		return "仕入"
	case EventSell:
		return "卸し"
	default:
		return string(t)
	}
}

// InventoryEvent is one row of the append-only inventory history.
type InventoryEvent struct {
	ID        int64     `json:"id"`
	ProductID int64     `json:"product_id"`
	Type      EventType `json:"type"`
	Date      time.Time `json:"date"`
	Unit      int64     `json:"unit"`
	Quantity  int64     `json:"quantity"`
	Price     int64     `json:"price"`
	Inventory int64     `json:"inventory"`
}

// Adjustment is a purchase or a sell of one product. The set of
// implementations is closed: Purchase and Sell.
type Adjustment interface {
	Product() int64
	Qty() int64
	Kind() EventType
	sealed()
}

// Purchase adds Quantity units of ProductID to stock.
type Purchase struct {
	ProductID int64
	Quantity  int64
}

// Sell removes Quantity units of ProductID from stock.
type Sell struct {
	ProductID int64
	Quantity  int64
}

func (p Purchase) Product() int64  { return p.ProductID }
func (p Purchase) Qty() int64      { return p.Quantity }
func (p Purchase) Kind() EventType { return EventPurchase }
func (Purchase) sealed()           {}

func (s Sell) Product() int64  { return s.ProductID }
func (s Sell) Qty() int64      { return s.Quantity }
func (s Sell) Kind() EventType { return EventSell }
func (Sell) sealed()           {}

// State is the lifecycle of a single adjustment submission.
type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
	StateApplied    State = "applied"
	StateRejected   State = "rejected"
)

// Outcome reports how a submission finished.
type Outcome struct {
	State State
	Event InventoryEvent
	Err   error
}

var (
	// ErrInvalidQuantity indicates a quantity outside [MinQuantity, MaxQuantity].
	ErrInvalidQuantity = shared.NewUserError(errors.New("inventory: quantity out of range"), MsgInvalidQuantity)
	// ErrInsufficientStock is returned when a sell exceeds the purchased balance.
	ErrInsufficientStock = shared.NewUserError(errors.New("inventory: insufficient stock"), MsgInsufficientStock)
	// ErrUnknownProduct is returned when adjusting the placeholder or a missing product.
	ErrUnknownProduct = shared.NewUserError(shared.ErrNotFound, MsgProductNotFound)
)

// ValidQuantity reports whether q is inside the accepted bounds.
func ValidQuantity(q int64) bool {
	return q >= MinQuantity && q <= MaxQuantity
}
