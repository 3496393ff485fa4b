package carts

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidQuantity    = errors.New("quantity must be greater than zero")
	ErrItemNotFound       = errors.New("item not found in cart")
	ErrProductUnavailable = errors.New("product not found or not published")
	QueryTimeoutDuration  = time.Second * 5
)

// Line is one product in a cart. UnitPrice is the product's current sell price.
type Line struct {
	ProductID    int64           `json:"product_id" db:"product_id"`
	Name         string          `json:"name" db:"name"`
	SKU          string          `json:"sku" db:"sku"`
	Image        *string         `json:"image,omitempty" db:"image"`
	UnitPrice    decimal.Decimal `json:"unit_price" db:"unit_price"`
	Quantity     int             `json:"quantity" db:"quantity"`
	Availability bool            `json:"availability" db:"availability"`
	LineTotal    decimal.Decimal `json:"line_total" db:"-"`
}

type View struct {
	Items      []Line          `json:"items"`
	TotalItems int             `json:"total_items"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

// Summarize fills line totals and the cart totals.
func Summarize(lines []Line) *View {
	v := &View{Items: lines, TotalPrice: decimal.Zero}
	if v.Items == nil {
		v.Items = []Line{}
	}
	for i := range v.Items {
		line := &v.Items[i]
		line.LineTotal = line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
		v.TotalItems += line.Quantity
		v.TotalPrice = v.TotalPrice.Add(line.LineTotal)
	}
	return v
}

type Store interface {
	View(ctx context.Context, userID int64) (*View, error)
	AddItem(ctx context.Context, userID, productID int64, qty int) error
	SetQuantity(ctx context.Context, userID, productID int64, qty int) error
	RemoveItem(ctx context.Context, userID, productID int64) error
	Clear(ctx context.Context, userID int64) error
}
