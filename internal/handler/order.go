package handler

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/avelles/store-backend/internal/domain/order"
	"github.com/avelles/store-backend/internal/domain/pricing"
)

const maxBodySize = 1 << 20

// listOrders returns every order with its lines.
func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.List(r.Context())
	if err != nil {
		h.serverError(w, r, errors.Wrap(err, "list orders"))
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for i := range orders {
			encodeOrder(e, &orders[i])
		}
		e.ArrEnd()
	})
}

// createOrder creates an order from the request body and returns it.
func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	payload, ok := h.readOrderPayload(w, r)
	if !ok {
		return
	}

	o, err := h.orders.Create(r.Context(), order.CreateRequest{
		Lines:      payload.Lines,
		DiscountID: payload.DiscountID,
		TaxID:      payload.TaxID,
	})
	if err != nil {
		h.orderError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		encodeOrder(e, o)
	})
}

// getOrder returns an order by ID.
func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, ok := h.fetchOrder(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeOrder(e, o)
	})
}

// updateOrder replaces an order's lines and pricing references.
func (h *Handler) updateOrder(w http.ResponseWriter, r *http.Request) {
	payload, ok := h.readOrderPayload(w, r)
	if !ok {
		return
	}

	o, err := h.orders.Update(r.Context(), chi.URLParam(r, "orderID"), order.UpdateRequest{
		Lines:      payload.Lines,
		DiscountID: payload.DiscountID,
		TaxID:      payload.TaxID,
	})
	if err != nil {
		h.orderError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeOrder(e, o)
	})
}

// deleteOrder removes an order together with its lines.
func (h *Handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	err := h.orders.Delete(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		h.orderError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// buyOrder creates a checkout session for the order and returns its session
// ID. Any construction or processor failure becomes a client-facing error.
func (h *Handler) buyOrder(w http.ResponseWriter, r *http.Request) {
	o, ok := h.fetchOrder(w, r)
	if !ok {
		return
	}

	sessionID, err := h.builder.OrderSession(r.Context(), o, redirectURLs(r, "/order/"+o.ID))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("sessionId")
		e.Str(sessionID)
		e.ObjEnd()
	})
}

// orderPaymentIntent creates a payment intent for the order's total.
func (h *Handler) orderPaymentIntent(w http.ResponseWriter, r *http.Request) {
	o, ok := h.fetchOrder(w, r)
	if !ok {
		return
	}

	secret, err := h.builder.OrderIntent(r.Context(), o)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("clientSecret")
		e.Str(secret)
		e.ObjEnd()
	})
}

func (h *Handler) fetchOrder(w http.ResponseWriter, r *http.Request) (*order.Order, bool) {
	o, err := h.orders.Get(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return nil, false
		}
		h.serverError(w, r, errors.Wrap(err, "get order"))
		return nil, false
	}
	return o, true
}

func (h *Handler) readOrderPayload(w http.ResponseWriter, r *http.Request) (orderPayload, bool) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "cannot read request body")
		return orderPayload{}, false
	}
	payload, err := decodeOrderPayload(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return orderPayload{}, false
	}
	return payload, true
}

// orderError maps domain errors to client responses. Anything unrecognized
// is a server error.
func (h *Handler) orderError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		iq *order.InvalidQuantityError
		nf *order.ItemNotFoundError
	)
	switch {
	case errors.Is(err, order.ErrNotFound):
		writeError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, order.ErrEmptyLines):
		writeError(w, http.StatusBadRequest, "items required")
	case errors.Is(err, order.ErrCurrencyMismatch):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &iq):
		writeError(w, http.StatusBadRequest, iq.Error())
	case errors.As(err, &nf):
		writeError(w, http.StatusBadRequest, nf.Error())
	case errors.Is(err, pricing.ErrDiscountNotFound):
		writeError(w, http.StatusBadRequest, "discount not found")
	case errors.Is(err, pricing.ErrTaxNotFound):
		writeError(w, http.StatusBadRequest, "tax not found")
	default:
		h.serverError(w, r, err)
	}
}

func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, err error) {
	zctx.From(r.Context()).Error("request failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}
