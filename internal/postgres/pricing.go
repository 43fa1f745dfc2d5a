package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avelles/store-backend/internal/domain/pricing"
)

const (
	getDiscountSQL    = `SELECT id, name, percent_off FROM discounts WHERE id = $1`
	insertDiscountSQL = `INSERT INTO discounts (id, name, percent_off) VALUES ($1, $2, $3)`
	getTaxSQL         = `SELECT id, name, percent FROM taxes WHERE id = $1`
	insertTaxSQL      = `INSERT INTO taxes (id, name, percent) VALUES ($1, $2, $3)`
)

var _ pricing.Repository = (*PricingRepository)(nil)

// PricingRepository implements pricing.Repository backed by PostgreSQL.
type PricingRepository struct {
	pool *pgxpool.Pool
}

// NewPricingRepository returns a PricingRepository using the given pool.
func NewPricingRepository(pool *pgxpool.Pool) *PricingRepository {
	return &PricingRepository{pool: pool}
}

// GetDiscount returns a discount by ID.
func (r *PricingRepository) GetDiscount(ctx context.Context, id string) (*pricing.Discount, error) {
	var d pricing.Discount
	err := r.pool.QueryRow(ctx, getDiscountSQL, id).Scan(&d.ID, &d.Name, &d.PercentOff)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pricing.ErrDiscountNotFound
		}
		return nil, errors.Wrapf(err, "get discount %q", id)
	}
	return &d, nil
}

// GetTax returns a tax by ID.
func (r *PricingRepository) GetTax(ctx context.Context, id string) (*pricing.Tax, error) {
	var t pricing.Tax
	err := r.pool.QueryRow(ctx, getTaxSQL, id).Scan(&t.ID, &t.Name, &t.Percent)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pricing.ErrTaxNotFound
		}
		return nil, errors.Wrapf(err, "get tax %q", id)
	}
	return &t, nil
}

// CreateDiscount inserts a new discount after entity validation.
func (r *PricingRepository) CreateDiscount(ctx context.Context, d *pricing.Discount) error {
	if err := d.Validate(); err != nil {
		return err
	}
	if _, err := r.pool.Exec(ctx, insertDiscountSQL, d.ID, d.Name, d.PercentOff); err != nil {
		return errors.Wrapf(err, "create discount %q", d.ID)
	}
	return nil
}

// CreateTax inserts a new tax after entity validation.
func (r *PricingRepository) CreateTax(ctx context.Context, t *pricing.Tax) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if _, err := r.pool.Exec(ctx, insertTaxSQL, t.ID, t.Name, t.Percent); err != nil {
		return errors.Wrapf(err, "create tax %q", t.ID)
	}
	return nil
}
