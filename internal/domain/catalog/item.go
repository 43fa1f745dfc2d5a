// Package catalog holds the purchasable item entity and its repository
// contract.
package catalog

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Currency is an ISO 4217 code in lowercase, as the payment processor
// expects it. Only two-decimal currencies are supported, so minor-unit
// conversion is a flat x100.
type Currency string

const (
	USD Currency = "usd"
	EUR Currency = "eur"
)

// DefaultCurrency is used for orders that have no lines yet.
const DefaultCurrency = USD

// ParseCurrency validates and normalizes a currency code.
func ParseCurrency(s string) (Currency, error) {
	switch Currency(s) {
	case USD:
		return USD, nil
	case EUR:
		return EUR, nil
	default:
		return "", errors.Errorf("unsupported currency %q", s)
	}
}

// ErrNotFound is returned when an item does not exist.
var ErrNotFound = errors.New("item not found")

var minPrice = decimal.NewFromInt(1)

// Item is a purchasable catalog record. Price is a decimal amount in major
// units of Currency.
type Item struct {
	ID          string
	Name        string
	Description string
	Price       decimal.Decimal
	Currency    Currency
}

// Validate checks the entity-level constraints: non-empty name, price >= 1,
// known currency.
func (i Item) Validate() error {
	if i.Name == "" {
		return errors.New("item name required")
	}
	if i.Price.LessThan(minPrice) {
		return errors.Errorf("item price must be at least 1, got %s", i.Price)
	}
	if _, err := ParseCurrency(string(i.Currency)); err != nil {
		return err
	}
	return nil
}

// DisplayPrice formats the price with two decimal places.
func (i Item) DisplayPrice() string {
	return i.Price.StringFixed(2)
}

// Repository defines persistence operations for catalog items.
type Repository interface {
	List(ctx context.Context) ([]Item, error)
	GetByID(ctx context.Context, id string) (*Item, error)
	GetByIDs(ctx context.Context, ids []string) ([]Item, error)
	Create(ctx context.Context, item *Item) error
	Delete(ctx context.Context, id string) error
}
