package order

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/avelles/store-backend/internal/domain/catalog"
	"github.com/avelles/store-backend/internal/domain/pricing"
)

// LineInput references an item by ID with a requested quantity.
type LineInput struct {
	ItemID   string
	Quantity int
}

// CreateRequest holds the input for creating an order. DiscountID and TaxID
// are optional references to pricing policies.
type CreateRequest struct {
	Lines      []LineInput
	DiscountID string
	TaxID      string
}

// UpdateRequest replaces an order's line collection and pricing references.
// Empty DiscountID/TaxID clear the corresponding reference.
type UpdateRequest struct {
	Lines      []LineInput
	DiscountID string
	TaxID      string
}

// Service encapsulates order lifecycle logic. All line validation goes
// through the aggregate's AddLine, so the currency-homogeneity and quantity
// rules live in exactly one place.
type Service struct {
	items    catalog.Repository
	policies pricing.Repository
	orders   Repository
}

// NewService creates an order Service with the required domain dependencies.
func NewService(items catalog.Repository, policies pricing.Repository, orders Repository) *Service {
	return &Service{
		items:    items,
		policies: policies,
		orders:   orders,
	}
}

// Create builds an order aggregate from the request, validating every line
// through AddLine, resolves the optional discount and tax, and persists the
// result. Nothing is persisted when any line is rejected.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Order, error) {
	now := time.Now().UTC()
	o := &Order{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now}

	if err := s.applyLines(ctx, o, req.Lines); err != nil {
		return nil, err
	}
	if err := s.applyPolicies(ctx, o, req.DiscountID, req.TaxID); err != nil {
		return nil, err
	}

	if err := s.orders.Create(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// Get returns an order with its lines.
func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	return s.orders.GetByID(ctx, id)
}

// List returns all orders with their lines.
func (s *Service) List(ctx context.Context) ([]Order, error) {
	return s.orders.List(ctx)
}

// Update replaces the order's lines and pricing references. The new line set
// is validated through a fresh aggregate before anything is written, so a
// rejected line leaves the stored order untouched.
func (s *Service) Update(ctx context.Context, id string, req UpdateRequest) (*Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	next := &Order{ID: o.ID, CreatedAt: o.CreatedAt, UpdatedAt: time.Now().UTC()}
	if err := s.applyLines(ctx, next, req.Lines); err != nil {
		return nil, err
	}
	if err := s.applyPolicies(ctx, next, req.DiscountID, req.TaxID); err != nil {
		return nil, err
	}

	if err := s.orders.Update(ctx, next); err != nil {
		return nil, err
	}
	return next, nil
}

// Delete removes the order together with its lines.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.orders.Delete(ctx, id)
}

// applyLines batch-fetches the referenced items and feeds them through the
// aggregate one by one. Duplicate item references merge quantities.
func (s *Service) applyLines(ctx context.Context, o *Order, lines []LineInput) error {
	if len(lines) == 0 {
		return ErrEmptyLines
	}

	ids := make([]string, len(lines))
	for i, l := range lines {
		if l.Quantity < 1 {
			return &InvalidQuantityError{ItemID: l.ItemID}
		}
		ids[i] = l.ItemID
	}

	fetched, err := s.items.GetByIDs(ctx, ids)
	if err != nil {
		return err
	}
	byID := make(map[string]catalog.Item, len(fetched))
	for _, it := range fetched {
		byID[it.ID] = it
	}

	for _, l := range lines {
		item, ok := byID[l.ItemID]
		if !ok {
			return &ItemNotFoundError{ItemID: l.ItemID}
		}
		if err := o.AddLine(item, l.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) applyPolicies(ctx context.Context, o *Order, discountID, taxID string) error {
	if discountID != "" {
		d, err := s.policies.GetDiscount(ctx, discountID)
		if err != nil {
			return err
		}
		o.Discount = d
	}
	if taxID != "" {
		t, err := s.policies.GetTax(ctx, taxID)
		if err != nil {
			return err
		}
		o.Tax = t
	}
	return nil
}
