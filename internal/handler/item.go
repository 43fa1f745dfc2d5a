package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/avelles/store-backend/internal/domain/catalog"
)

// listItems returns every item in the catalog.
func (h *Handler) listItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.items.List(r.Context())
	if err != nil {
		h.serverError(w, r, errors.Wrap(err, "list items"))
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for _, it := range items {
			encodeItem(e, it)
		}
		e.ArrEnd()
	})
}

// getItem returns a single item by ID.
func (h *Handler) getItem(w http.ResponseWriter, r *http.Request) {
	it, ok := h.fetchItem(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeItem(e, *it)
	})
}

// buyItem creates a checkout session for one unit of the item and returns
// its session ID. Processor failures come back as a client-facing error.
func (h *Handler) buyItem(w http.ResponseWriter, r *http.Request) {
	it, ok := h.fetchItem(w, r)
	if !ok {
		return
	}

	sessionID, err := h.builder.ItemSession(r.Context(), *it, redirectURLs(r, "/item/"+it.ID))
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

// itemPaymentIntent creates a payment intent for the item and returns its
// client secret.
func (h *Handler) itemPaymentIntent(w http.ResponseWriter, r *http.Request) {
	it, ok := h.fetchItem(w, r)
	if !ok {
		return
	}

	secret, err := h.builder.ItemIntent(r.Context(), *it)
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

func (h *Handler) fetchItem(w http.ResponseWriter, r *http.Request) (*catalog.Item, bool) {
	it, err := h.items.GetByID(r.Context(), chi.URLParam(r, "itemID"))
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeError(w, http.StatusNotFound, "item not found")
			return nil, false
		}
		h.serverError(w, r, errors.Wrap(err, "get item"))
		return nil, false
	}
	return it, true
}
