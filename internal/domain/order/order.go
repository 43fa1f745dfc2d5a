// Package order holds the order aggregate and its placement/editing rules.
//
// An order owns a collection of lines, each referencing one catalog item
// with a quantity. All lines must share one currency, there is at most one
// line per item, and the total applies an optional discount before an
// optional tax with whole-unit truncation at each step.
package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/avelles/store-backend/internal/domain/catalog"
	"github.com/avelles/store-backend/internal/domain/pricing"
)

// Sentinel errors for order mutation and pricing.
var (
	// ErrCurrencyMismatch is returned when a line's item currency differs
	// from the rest of the order, or when stored lines turn out to mix
	// currencies at read time.
	ErrCurrencyMismatch = errors.New("all items in an order must have the same currency")
	// ErrLineNotFound is returned by RemoveLine for an item that has no line.
	ErrLineNotFound = errors.New("order line not found")
	// ErrNotFound is returned when an order does not exist.
	ErrNotFound = errors.New("order not found")
	// ErrEmptyLines is returned when an operation requires at least one line.
	ErrEmptyLines = errors.New("order has no lines")
)

// InvalidQuantityError indicates a line with a non-positive quantity.
type InvalidQuantityError struct {
	ItemID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for item %s", e.ItemID)
}

// ItemNotFoundError indicates a referenced catalog item does not exist.
type ItemNotFoundError struct {
	ItemID string
}

func (e *ItemNotFoundError) Error() string {
	return fmt.Sprintf("item %s not found", e.ItemID)
}

// Line is one (item, quantity) entry of an order.
type Line struct {
	Item     catalog.Item
	Quantity int
}

// Subtotal returns price * quantity for this line.
func (l Line) Subtotal() decimal.Decimal {
	return l.Item.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Order aggregates lines with an optional discount and tax. Lines keep
// insertion order for display; the order of lines never affects the total.
type Order struct {
	ID        string
	Lines     []Line
	Discount  *pricing.Discount
	Tax       *pricing.Tax
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AddLine appends a line for item, or merges into the existing line for the
// same item by increasing its quantity. It rejects the line before any
// mutation when the quantity is not positive or the item's currency differs
// from the order's existing lines.
func (o *Order) AddLine(item catalog.Item, quantity int) error {
	if quantity < 1 {
		return &InvalidQuantityError{ItemID: item.ID}
	}
	for _, l := range o.Lines {
		if l.Item.Currency != item.Currency {
			return ErrCurrencyMismatch
		}
	}
	for i := range o.Lines {
		if o.Lines[i].Item.ID == item.ID {
			o.Lines[i].Quantity += quantity
			o.touch()
			return nil
		}
	}
	o.Lines = append(o.Lines, Line{Item: item, Quantity: quantity})
	o.touch()
	return nil
}

// RemoveLine deletes the line referencing itemID. It returns ErrLineNotFound
// when no such line exists; callers wanting no-op semantics can ignore it.
func (o *Order) RemoveLine(itemID string) error {
	for i := range o.Lines {
		if o.Lines[i].Item.ID == itemID {
			o.Lines = append(o.Lines[:i], o.Lines[i+1:]...)
			o.touch()
			return nil
		}
	}
	return ErrLineNotFound
}

// Currency returns the single currency shared by every line. An empty order
// reports the system default currency rather than failing. AddLine keeps
// mixed currencies out, but rows loaded from storage are re-verified here.
func (o *Order) Currency() (catalog.Currency, error) {
	if len(o.Lines) == 0 {
		return catalog.DefaultCurrency, nil
	}
	currency := o.Lines[0].Item.Currency
	for _, l := range o.Lines[1:] {
		if l.Item.Currency != currency {
			return "", ErrCurrencyMismatch
		}
	}
	return currency, nil
}

// Subtotal returns the exact decimal sum of line subtotals.
func (o *Order) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range o.Lines {
		sum = sum.Add(l.Subtotal())
	}
	return sum
}

// Total computes the order price: subtotal, minus the discount, plus the
// tax, in that order. Reversing discount and tax changes the result and
// must not be done.
//
// Both the discount amount and the tax amount are truncated to whole
// currency units before being applied (floor(x * percent / 100)), so
// sub-unit cents of the adjustments are discarded. The result can still
// carry the subtotal's own fractional part. A discount over 100% clamps
// the total at zero.
func (o *Order) Total() decimal.Decimal {
	total := o.Subtotal()
	if o.Discount != nil {
		total = total.Sub(pricing.PercentagePart(total, o.Discount.PercentOff))
		if total.IsNegative() {
			total = decimal.Zero
		}
	}
	if o.Tax != nil {
		total = total.Add(pricing.PercentagePart(total, o.Tax.Percent))
	}
	return total
}

func (o *Order) touch() {
	o.UpdatedAt = time.Now().UTC()
}

// Repository defines persistence operations for orders. Update replaces the
// line collection and pricing references atomically, so concurrent edits of
// one order resolve at the storage layer's transaction boundary.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	List(ctx context.Context) ([]Order, error)
	Update(ctx context.Context, o *Order) error
	Delete(ctx context.Context, id string) error
}
