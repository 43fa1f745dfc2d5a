// Package stripe implements the checkout.Processor interface against the
// Stripe API. The client is constructed explicitly from configuration and
// injected where needed; there is no process-wide API key.
package stripe

import (
	"context"

	"github.com/go-faster/errors"
	stripesdk "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"

	"github.com/avelles/store-backend/internal/checkout"
)

var _ checkout.Processor = (*Client)(nil)

// Client wraps a Stripe API client.
type Client struct {
	api *client.API
}

// New creates a Client authenticated with the given secret API key.
func New(apiKey string) *Client {
	api := &client.API{}
	api.Init(apiKey, nil)
	return &Client{api: api}
}

// CreateCheckoutSession submits a checkout session and returns its ID.
func (c *Client) CreateCheckoutSession(ctx context.Context, req checkout.SessionRequest) (string, error) {
	lineItems := make([]*stripesdk.CheckoutSessionLineItemParams, len(req.LineItems))
	for i, li := range req.LineItems {
		productData := &stripesdk.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripesdk.String(li.Name),
		}
		if li.Description != "" {
			productData.Description = stripesdk.String(li.Description)
		}

		params := &stripesdk.CheckoutSessionLineItemParams{
			PriceData: &stripesdk.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripesdk.String(string(li.Currency)),
				UnitAmount:  stripesdk.Int64(li.UnitAmount),
				ProductData: productData,
			},
			Quantity: stripesdk.Int64(li.Quantity),
		}
		if len(li.TaxRateIDs) > 0 {
			params.TaxRates = stripesdk.StringSlice(li.TaxRateIDs)
		}
		lineItems[i] = params
	}

	params := &stripesdk.CheckoutSessionParams{
		PaymentMethodTypes: stripesdk.StringSlice(req.PaymentMethodTypes),
		LineItems:          lineItems,
		Mode:               stripesdk.String(req.Mode),
		SuccessURL:         stripesdk.String(req.SuccessURL),
		CancelURL:          stripesdk.String(req.CancelURL),
	}
	params.Context = ctx
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	if req.CouponID != "" {
		params.Discounts = []*stripesdk.CheckoutSessionDiscountParams{
			{Coupon: stripesdk.String(req.CouponID)},
		}
	}

	sess, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return "", errors.Wrap(err, "create checkout session")
	}
	return sess.ID, nil
}

// CreatePaymentIntent submits a payment intent and returns its client secret.
func (c *Client) CreatePaymentIntent(ctx context.Context, req checkout.IntentRequest) (string, error) {
	params := &stripesdk.PaymentIntentParams{
		Amount:   stripesdk.Int64(req.Amount),
		Currency: stripesdk.String(string(req.Currency)),
	}
	params.Context = ctx
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	intent, err := c.api.PaymentIntents.New(params)
	if err != nil {
		return "", errors.Wrap(err, "create payment intent")
	}
	return intent.ClientSecret, nil
}

// CreateCoupon registers a percentage coupon and returns its ID.
func (c *Client) CreateCoupon(ctx context.Context, req checkout.CouponRequest) (string, error) {
	params := &stripesdk.CouponParams{
		Name:       stripesdk.String(req.Name),
		PercentOff: stripesdk.Float64(float64(req.PercentOff)),
		Duration:   stripesdk.String(req.Duration),
	}
	params.Context = ctx

	coupon, err := c.api.Coupons.New(params)
	if err != nil {
		return "", errors.Wrap(err, "create coupon")
	}
	return coupon.ID, nil
}

// CreateTaxRate registers a tax rate and returns its ID.
func (c *Client) CreateTaxRate(ctx context.Context, req checkout.TaxRateRequest) (string, error) {
	params := &stripesdk.TaxRateParams{
		DisplayName: stripesdk.String(req.DisplayName),
		Percentage:  stripesdk.Float64(float64(req.Percent)),
		Inclusive:   stripesdk.Bool(req.Inclusive),
	}
	params.Context = ctx

	rate, err := c.api.TaxRates.New(params)
	if err != nil {
		return "", errors.Wrap(err, "create tax rate")
	}
	return rate.ID, nil
}
