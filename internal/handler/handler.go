// Package handler exposes the JSON API: catalog reads, order CRUD, and the
// buy / payment_intent actions on both.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/avelles/store-backend/internal/checkout"
	"github.com/avelles/store-backend/internal/domain/catalog"
	"github.com/avelles/store-backend/internal/domain/order"
)

// Handler wires the domain services to HTTP routes.
type Handler struct {
	items   catalog.Repository
	orders  *order.Service
	builder *checkout.Builder
}

// New constructs a Handler with the required domain dependencies.
func New(items catalog.Repository, orders *order.Service, builder *checkout.Builder) *Handler {
	return &Handler{
		items:   items,
		orders:  orders,
		builder: builder,
	}
}

// Routes returns the API router.
//
// The buy and payment_intent actions are GETs: the storefront navigates to
// them directly and follows the redirect into checkout.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/items", func(r chi.Router) {
		r.Get("/", h.listItems)
		r.Get("/{itemID}", h.getItem)
		r.Get("/{itemID}/buy", h.buyItem)
		r.Get("/{itemID}/payment_intent", h.itemPaymentIntent)
	})

	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.listOrders)
		r.Post("/", h.createOrder)
		r.Get("/{orderID}", h.getOrder)
		r.Put("/{orderID}", h.updateOrder)
		r.Delete("/{orderID}", h.deleteOrder)
		r.Get("/{orderID}/buy", h.buyOrder)
		r.Get("/{orderID}/payment_intent", h.orderPaymentIntent)
	})

	return r
}

// redirectURLs builds the session redirect targets from the inbound request,
// so the processor sends the customer back to the host that initiated the
// checkout.
func redirectURLs(r *http.Request, cancelPath string) checkout.RedirectURLs {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	base := scheme + "://" + r.Host
	return checkout.RedirectURLs{
		SuccessURL: base + "/success",
		CancelURL:  base + cancelPath,
	}
}
