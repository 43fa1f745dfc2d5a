package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avelles/store-backend/internal/domain/catalog"
)

const (
	listItemsSQL = `SELECT id, name, description, price, currency
		FROM items ORDER BY name, id`

	getItemByIDSQL = `SELECT id, name, description, price, currency
		FROM items WHERE id = $1`

	getItemsByIDsSQL = `SELECT id, name, description, price, currency
		FROM items WHERE id = ANY($1)`

	insertItemSQL = `INSERT INTO items (id, name, description, price, currency)
		VALUES ($1, $2, $3, $4, $5)`

	deleteItemSQL = `DELETE FROM items WHERE id = $1`
)

var _ catalog.Repository = (*ItemRepository)(nil)

// ItemRepository implements catalog.Repository backed by PostgreSQL.
type ItemRepository struct {
	pool *pgxpool.Pool
}

// NewItemRepository returns an ItemRepository using the given pool.
func NewItemRepository(pool *pgxpool.Pool) *ItemRepository {
	return &ItemRepository{pool: pool}
}

// List returns every catalog item ordered by name.
func (r *ItemRepository) List(ctx context.Context) ([]catalog.Item, error) {
	rows, err := r.pool.Query(ctx, listItemsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list items")
	}
	return pgx.CollectRows(rows, scanItem)
}

// GetByID returns a single item by its identifier.
func (r *ItemRepository) GetByID(ctx context.Context, id string) (*catalog.Item, error) {
	rows, err := r.pool.Query(ctx, getItemByIDSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get item %q", id)
	}

	item, err := pgx.CollectExactlyOneRow(rows, scanItem)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get item %q", id)
	}
	return &item, nil
}

// GetByIDs returns items matching any of the given IDs.
func (r *ItemRepository) GetByIDs(ctx context.Context, ids []string) ([]catalog.Item, error) {
	rows, err := r.pool.Query(ctx, getItemsByIDsSQL, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get items by ids")
	}
	return pgx.CollectRows(rows, scanItem)
}

// Create inserts a new item after entity validation.
func (r *ItemRepository) Create(ctx context.Context, item *catalog.Item) error {
	if err := item.Validate(); err != nil {
		return err
	}
	_, err := r.pool.Exec(ctx, insertItemSQL,
		item.ID, item.Name, item.Description, item.Price, string(item.Currency),
	)
	if err != nil {
		return errors.Wrapf(err, "create item %q", item.ID)
	}
	return nil
}

// Delete removes an item. Order lines referencing it are dropped by the
// ON DELETE CASCADE constraint; their orders survive.
func (r *ItemRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteItemSQL, id)
	if err != nil {
		return errors.Wrapf(err, "delete item %q", id)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

func scanItem(row pgx.CollectableRow) (catalog.Item, error) {
	var (
		it       catalog.Item
		currency string
	)
	err := row.Scan(&it.ID, &it.Name, &it.Description, &it.Price, &currency)
	it.Currency = catalog.Currency(currency)
	return it, err
}
