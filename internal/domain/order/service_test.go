package order

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelles/store-backend/internal/domain/catalog"
	"github.com/avelles/store-backend/internal/domain/pricing"
)

// --- Mock repositories ---

type mockItemRepo struct {
	items map[string]catalog.Item
}

func (m *mockItemRepo) List(context.Context) ([]catalog.Item, error) { return nil, nil }

func (m *mockItemRepo) GetByID(_ context.Context, id string) (*catalog.Item, error) {
	it, ok := m.items[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return &it, nil
}

func (m *mockItemRepo) GetByIDs(_ context.Context, ids []string) ([]catalog.Item, error) {
	var out []catalog.Item
	seen := make(map[string]bool)
	for _, id := range ids {
		if it, ok := m.items[id]; ok && !seen[id] {
			out = append(out, it)
			seen[id] = true
		}
	}
	return out, nil
}

func (m *mockItemRepo) Create(context.Context, *catalog.Item) error { return nil }
func (m *mockItemRepo) Delete(context.Context, string) error        { return nil }

type mockPricingRepo struct {
	discounts map[string]pricing.Discount
	taxes     map[string]pricing.Tax
}

func (m *mockPricingRepo) GetDiscount(_ context.Context, id string) (*pricing.Discount, error) {
	d, ok := m.discounts[id]
	if !ok {
		return nil, pricing.ErrDiscountNotFound
	}
	return &d, nil
}

func (m *mockPricingRepo) GetTax(_ context.Context, id string) (*pricing.Tax, error) {
	t, ok := m.taxes[id]
	if !ok {
		return nil, pricing.ErrTaxNotFound
	}
	return &t, nil
}

func (m *mockPricingRepo) CreateDiscount(context.Context, *pricing.Discount) error { return nil }
func (m *mockPricingRepo) CreateTax(context.Context, *pricing.Tax) error           { return nil }

type mockOrderRepo struct {
	stored map[string]*Order
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{stored: make(map[string]*Order)}
}

func (m *mockOrderRepo) Create(_ context.Context, o *Order) error {
	m.stored[o.ID] = o
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id string) (*Order, error) {
	o, ok := m.stored[id]
	if !ok {
		return nil, ErrNotFound
	}
	return o, nil
}

func (m *mockOrderRepo) List(context.Context) ([]Order, error) {
	var out []Order
	for _, o := range m.stored {
		out = append(out, *o)
	}
	return out, nil
}

func (m *mockOrderRepo) Update(_ context.Context, o *Order) error {
	if _, ok := m.stored[o.ID]; !ok {
		return ErrNotFound
	}
	m.stored[o.ID] = o
	return nil
}

func (m *mockOrderRepo) Delete(_ context.Context, id string) error {
	delete(m.stored, id)
	return nil
}

func newTestService() (*Service, *mockOrderRepo) {
	items := &mockItemRepo{items: map[string]catalog.Item{
		"a": item("a", "usd", "19.99"),
		"b": item("b", "usd", "5.00"),
		"e": item("e", "eur", "7.50"),
	}}
	policies := &mockPricingRepo{
		discounts: map[string]pricing.Discount{
			"half": {ID: "half", Name: "50% off", PercentOff: 50},
		},
		taxes: map[string]pricing.Tax{
			"vat": {ID: "vat", Name: "VAT", Percent: 20},
		},
	}
	orders := newMockOrderRepo()
	return NewService(items, policies, orders), orders
}

func TestServiceCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("creates order with lines and policies", func(t *testing.T) {
		svc, repo := newTestService()

		o, err := svc.Create(ctx, CreateRequest{
			Lines: []LineInput{
				{ItemID: "a", Quantity: 2},
				{ItemID: "b", Quantity: 1},
			},
			DiscountID: "half",
			TaxID:      "vat",
		})
		require.NoError(t, err)
		require.NotEmpty(t, o.ID)
		require.Len(t, o.Lines, 2)
		require.NotNil(t, o.Discount)
		require.NotNil(t, o.Tax)
		assert.Contains(t, repo.stored, o.ID)
		assert.False(t, o.CreatedAt.IsZero())
		assert.False(t, o.UpdatedAt.IsZero())
		// 44.98 - 22, then +floor(22.98*20/100)=4: 26.98
		assert.True(t, d("26.98").Equal(o.Total()), "got %s", o.Total())
	})

	t.Run("duplicate item references merge quantities", func(t *testing.T) {
		svc, _ := newTestService()

		o, err := svc.Create(ctx, CreateRequest{
			Lines: []LineInput{
				{ItemID: "a", Quantity: 1},
				{ItemID: "a", Quantity: 2},
			},
		})
		require.NoError(t, err)
		require.Len(t, o.Lines, 1)
		assert.Equal(t, 3, o.Lines[0].Quantity)
	})

	t.Run("no lines", func(t *testing.T) {
		svc, repo := newTestService()
		_, err := svc.Create(ctx, CreateRequest{})
		assert.ErrorIs(t, err, ErrEmptyLines)
		assert.Empty(t, repo.stored)
	})

	t.Run("unknown item blocks creation", func(t *testing.T) {
		svc, repo := newTestService()
		_, err := svc.Create(ctx, CreateRequest{
			Lines: []LineInput{{ItemID: "nope", Quantity: 1}},
		})
		var nf *ItemNotFoundError
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, "nope", nf.ItemID)
		assert.Empty(t, repo.stored)
	})

	t.Run("mixed currencies block creation", func(t *testing.T) {
		svc, repo := newTestService()
		_, err := svc.Create(ctx, CreateRequest{
			Lines: []LineInput{
				{ItemID: "a", Quantity: 1},
				{ItemID: "e", Quantity: 1},
			},
		})
		assert.ErrorIs(t, err, ErrCurrencyMismatch)
		assert.Empty(t, repo.stored)
	})

	t.Run("unknown discount blocks creation", func(t *testing.T) {
		svc, repo := newTestService()
		_, err := svc.Create(ctx, CreateRequest{
			Lines:      []LineInput{{ItemID: "a", Quantity: 1}},
			DiscountID: "nope",
		})
		assert.ErrorIs(t, err, pricing.ErrDiscountNotFound)
		assert.Empty(t, repo.stored)
	})
}

func TestServiceUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("replaces lines and clears policies", func(t *testing.T) {
		svc, _ := newTestService()
		o, err := svc.Create(ctx, CreateRequest{
			Lines:      []LineInput{{ItemID: "a", Quantity: 2}},
			DiscountID: "half",
		})
		require.NoError(t, err)

		updated, err := svc.Update(ctx, o.ID, UpdateRequest{
			Lines: []LineInput{{ItemID: "b", Quantity: 4}},
		})
		require.NoError(t, err)
		require.Len(t, updated.Lines, 1)
		assert.Equal(t, "b", updated.Lines[0].Item.ID)
		assert.Nil(t, updated.Discount)
		assert.True(t, d("20").Equal(updated.Total()))
		assert.Equal(t, o.CreatedAt, updated.CreatedAt)
		assert.False(t, updated.UpdatedAt.Before(o.UpdatedAt))
	})

	t.Run("invalid new lines leave stored order untouched", func(t *testing.T) {
		svc, repo := newTestService()
		o, err := svc.Create(ctx, CreateRequest{
			Lines: []LineInput{{ItemID: "a", Quantity: 2}},
		})
		require.NoError(t, err)

		_, err = svc.Update(ctx, o.ID, UpdateRequest{
			Lines: []LineInput{
				{ItemID: "a", Quantity: 1},
				{ItemID: "e", Quantity: 1},
			},
		})
		require.ErrorIs(t, err, ErrCurrencyMismatch)

		stored := repo.stored[o.ID]
		require.Len(t, stored.Lines, 1)
		assert.Equal(t, 2, stored.Lines[0].Quantity)
	})

	t.Run("missing order", func(t *testing.T) {
		svc, _ := newTestService()
		_, err := svc.Update(ctx, "missing", UpdateRequest{
			Lines: []LineInput{{ItemID: "a", Quantity: 1}},
		})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
