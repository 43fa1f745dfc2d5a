// Package checkout translates catalog items and orders into normalized
// payment-processor requests: checkout sessions and payment intents.
//
// The processor itself is consumed through the Processor interface; every
// processor failure is wrapped into a client-facing error type and never
// escapes as a fatal request error.
package checkout

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/avelles/store-backend/internal/domain/catalog"
	"github.com/avelles/store-backend/internal/domain/order"
)

// LineItem is one entry of a checkout session, priced in minor units.
type LineItem struct {
	Currency    catalog.Currency
	UnitAmount  int64
	Quantity    int64
	Name        string
	Description string
	TaxRateIDs  []string
}

// SessionRequest is a normalized create-checkout-session request.
type SessionRequest struct {
	PaymentMethodTypes []string
	Mode               string
	LineItems          []LineItem
	CouponID           string
	SuccessURL         string
	CancelURL          string
	Metadata           map[string]string
}

// IntentRequest is a normalized create-payment-intent request.
type IntentRequest struct {
	Amount   int64
	Currency catalog.Currency
	Metadata map[string]string
}

// CouponRequest registers a one-time percentage coupon with the processor.
type CouponRequest struct {
	Name       string
	PercentOff int
	// Duration is always "once": each coupon artifact backs a single session.
	Duration string
}

// TaxRateRequest registers an exclusive-of-price tax rate with the processor.
type TaxRateRequest struct {
	DisplayName string
	Percent     int
	Inclusive   bool
}

// Processor is the external payment service. Each call is blocking,
// single-shot and not retried; errors surface to the caller unchanged.
type Processor interface {
	CreateCheckoutSession(ctx context.Context, req SessionRequest) (sessionID string, err error)
	CreatePaymentIntent(ctx context.Context, req IntentRequest) (clientSecret string, err error)
	CreateCoupon(ctx context.Context, req CouponRequest) (couponID string, err error)
	CreateTaxRate(ctx context.Context, req TaxRateRequest) (taxRateID string, err error)
}

// Error wraps any failure while building or submitting a checkout session:
// currency mismatch, processor rejection, or validation. Callers report it
// as a client-facing error payload.
type Error struct {
	Err error
}

func (e *Error) Error() string { return "checkout: " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// IntentError is the payment-intent counterpart of Error.
type IntentError struct {
	Err error
}

func (e *IntentError) Error() string { return "payment intent: " + e.Err.Error() }
func (e *IntentError) Unwrap() error { return e.Err }

// RedirectURLs carries the caller-supplied redirect targets for a session,
// built from the inbound request context.
type RedirectURLs struct {
	SuccessURL string
	CancelURL  string
}

const (
	modePayment       = "payment"
	paymentMethodCard = "card"
	durationOnce      = "once"
)

var hundred = decimal.NewFromInt(100)

// Builder constructs processor requests. It holds no per-request state and
// is safe for concurrent use.
type Builder struct {
	processor Processor
}

// NewBuilder creates a Builder using the given processor client.
func NewBuilder(processor Processor) *Builder {
	return &Builder{processor: processor}
}

// ItemSession creates a checkout session for a single item with quantity 1.
// No discount or tax applies in this flow.
func (b *Builder) ItemSession(ctx context.Context, item catalog.Item, urls RedirectURLs) (string, error) {
	req := SessionRequest{
		PaymentMethodTypes: []string{paymentMethodCard},
		Mode:               modePayment,
		LineItems: []LineItem{{
			Currency:    item.Currency,
			UnitAmount:  minorUnits(item.Price),
			Quantity:    1,
			Name:        item.Name,
			Description: item.Description,
		}},
		SuccessURL: urls.SuccessURL,
		CancelURL:  urls.CancelURL,
		Metadata:   map[string]string{"item_id": item.ID, "item_name": item.Name},
	}

	id, err := b.processor.CreateCheckoutSession(ctx, req)
	if err != nil {
		return "", &Error{Err: err}
	}
	return id, nil
}

// OrderSession creates a checkout session for an order with at least one
// line. The order's currency is resolved first, so a mixed-currency order
// fails before any processor call. A discount registers exactly one one-time
// coupon; a tax registers one tax rate attached to every line item.
func (b *Builder) OrderSession(ctx context.Context, o *order.Order, urls RedirectURLs) (string, error) {
	if len(o.Lines) == 0 {
		return "", &Error{Err: order.ErrEmptyLines}
	}
	currency, err := o.Currency()
	if err != nil {
		return "", &Error{Err: err}
	}

	lineItems := make([]LineItem, len(o.Lines))
	for i, l := range o.Lines {
		lineItems[i] = LineItem{
			Currency:    currency,
			UnitAmount:  minorUnits(l.Item.Price),
			Quantity:    int64(l.Quantity),
			Name:        l.Item.Name,
			Description: l.Item.Description,
		}
	}

	req := SessionRequest{
		PaymentMethodTypes: []string{paymentMethodCard},
		Mode:               modePayment,
		LineItems:          lineItems,
		SuccessURL:         urls.SuccessURL,
		CancelURL:          urls.CancelURL,
		Metadata:           map[string]string{"order_id": o.ID},
	}

	if o.Discount != nil {
		couponID, err := b.processor.CreateCoupon(ctx, CouponRequest{
			Name:       o.Discount.Name,
			PercentOff: o.Discount.PercentOff,
			Duration:   durationOnce,
		})
		if err != nil {
			return "", &Error{Err: errors.Wrap(err, "create coupon")}
		}
		req.CouponID = couponID
	}

	if o.Tax != nil {
		taxRateID, err := b.processor.CreateTaxRate(ctx, TaxRateRequest{
			DisplayName: o.Tax.Name,
			Percent:     o.Tax.Percent,
			Inclusive:   false,
		})
		if err != nil {
			return "", &Error{Err: errors.Wrap(err, "create tax rate")}
		}
		for i := range req.LineItems {
			req.LineItems[i].TaxRateIDs = []string{taxRateID}
		}
	}

	id, err := b.processor.CreateCheckoutSession(ctx, req)
	if err != nil {
		return "", &Error{Err: err}
	}
	return id, nil
}

// ItemIntent creates a payment intent for a single item.
func (b *Builder) ItemIntent(ctx context.Context, item catalog.Item) (string, error) {
	secret, err := b.processor.CreatePaymentIntent(ctx, IntentRequest{
		Amount:   minorUnits(item.Price),
		Currency: item.Currency,
		Metadata: map[string]string{"item_id": item.ID, "item_name": item.Name},
	})
	if err != nil {
		return "", &IntentError{Err: err}
	}
	return secret, nil
}

// OrderIntent creates a payment intent for an order's total. The total is
// truncated to whole currency units before minor-unit conversion, so the
// charged amount is int(total) * 100.
func (b *Builder) OrderIntent(ctx context.Context, o *order.Order) (string, error) {
	currency, err := o.Currency()
	if err != nil {
		return "", &IntentError{Err: err}
	}

	amount := o.Total().Floor().Mul(hundred).IntPart()
	secret, err := b.processor.CreatePaymentIntent(ctx, IntentRequest{
		Amount:   amount,
		Currency: currency,
		Metadata: map[string]string{"order_id": o.ID},
	})
	if err != nil {
		return "", &IntentError{Err: err}
	}
	return secret, nil
}

// minorUnits converts a major-unit decimal price to processor minor units.
// Only two-decimal currencies (usd, eur) are modeled, so the exponent is a
// constant x100; prices are stored with at most two decimal places, making
// the conversion exact.
func minorUnits(price decimal.Decimal) int64 {
	return price.Mul(hundred).IntPart()
}
