// Package pricing holds the order-level price modifiers: percentage
// discounts and percentage taxes.
package pricing

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors for pricing policy lookups.
var (
	ErrDiscountNotFound = errors.New("discount not found")
	ErrTaxNotFound      = errors.New("tax not found")
)

// Discount reduces an order's subtotal by a whole percentage. PercentOff is
// intended to stay within 1..100 but the upper bound is not enforced;
// callers clamp the resulting total at zero instead.
type Discount struct {
	ID         string
	Name       string
	PercentOff int
}

// Validate checks entity-level constraints.
func (d Discount) Validate() error {
	if d.Name == "" {
		return errors.New("discount name required")
	}
	if d.PercentOff < 1 {
		return errors.Errorf("discount percent_off must be at least 1, got %d", d.PercentOff)
	}
	return nil
}

// Tax increases an order's post-discount total by a whole percentage.
// Percent is unbounded above.
type Tax struct {
	ID      string
	Name    string
	Percent int
}

// Validate checks entity-level constraints.
func (t Tax) Validate() error {
	if t.Name == "" {
		return errors.New("tax name required")
	}
	if t.Percent < 1 {
		return errors.Errorf("tax percent must be at least 1, got %d", t.Percent)
	}
	return nil
}

var hundred = decimal.NewFromInt(100)

// PercentagePart returns floor(amount * percent / 100): the whole-unit part
// of a percentage of amount. Fractional units of a discount or tax amount
// are dropped before the adjustment is applied.
func PercentagePart(amount decimal.Decimal, percent int) decimal.Decimal {
	return amount.Mul(decimal.NewFromInt(int64(percent))).Div(hundred).Floor()
}

// Repository defines lookup operations for pricing policies.
type Repository interface {
	GetDiscount(ctx context.Context, id string) (*Discount, error)
	GetTax(ctx context.Context, id string) (*Tax, error)
	CreateDiscount(ctx context.Context, d *Discount) error
	CreateTax(ctx context.Context, t *Tax) error
}
