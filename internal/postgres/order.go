package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avelles/store-backend/internal/domain/catalog"
	"github.com/avelles/store-backend/internal/domain/order"
	"github.com/avelles/store-backend/internal/domain/pricing"
)

const (
	insertOrderSQL = `INSERT INTO orders (id, discount_id, tax_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`

	updateOrderSQL = `UPDATE orders SET discount_id = $2, tax_id = $3, updated_at = $4
		WHERE id = $1`

	insertLineSQL = `INSERT INTO order_lines (order_id, item_id, quantity, position)
		VALUES ($1, $2, $3, $4)`

	deleteLinesSQL = `DELETE FROM order_lines WHERE order_id = $1`

	deleteOrderSQL = `DELETE FROM orders WHERE id = $1`

	getOrderSQL = `SELECT o.id, o.created_at, o.updated_at,
			d.id, d.name, d.percent_off,
			t.id, t.name, t.percent
		FROM orders o
		LEFT JOIN discounts d ON d.id = o.discount_id
		LEFT JOIN taxes t ON t.id = o.tax_id
		WHERE o.id = $1`

	listOrdersSQL = `SELECT o.id, o.created_at, o.updated_at,
			d.id, d.name, d.percent_off,
			t.id, t.name, t.percent
		FROM orders o
		LEFT JOIN discounts d ON d.id = o.discount_id
		LEFT JOIN taxes t ON t.id = o.tax_id
		ORDER BY o.created_at, o.id`

	getLinesSQL = `SELECT l.order_id, l.quantity,
			i.id, i.name, i.description, i.price, i.currency
		FROM order_lines l
		JOIN items i ON i.id = l.item_id
		WHERE l.order_id = ANY($1)
		ORDER BY l.order_id, l.position`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. Line
// collection changes run inside one transaction per order, which is the
// atomicity boundary for concurrent edits.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository using the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists an order and its lines in one transaction.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, insertOrderSQL, o.ID, discountID(o), taxID(o), o.CreatedAt, o.UpdatedAt); err != nil {
		return errors.Wrapf(err, "create order %q", o.ID)
	}
	if err := insertLines(ctx, tx, o); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Update replaces the order's pricing references and line collection in one
// transaction.
func (r *OrderRepository) Update(ctx context.Context, o *order.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, updateOrderSQL, o.ID, discountID(o), taxID(o), o.UpdatedAt)
	if err != nil {
		return errors.Wrapf(err, "update order %q", o.ID)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}

	if _, err := tx.Exec(ctx, deleteLinesSQL, o.ID); err != nil {
		return errors.Wrapf(err, "clear lines of order %q", o.ID)
	}
	if err := insertLines(ctx, tx, o); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// GetByID returns an order with its lines in insertion order.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	o, err := scanOrderRow(r.pool.QueryRow(ctx, getOrderSQL, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get order %q", id)
	}

	lines, err := r.linesFor(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	o.Lines = lines[id]
	return o, nil
}

// List returns every order with its lines.
func (r *OrderRepository) List(ctx context.Context) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	defer rows.Close()

	var (
		out []order.Order
		ids []string
	)
	for rows.Next() {
		o, err := scanOrderRow(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan order")
		}
		out = append(out, *o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "list orders")
	}

	if len(ids) == 0 {
		return out, nil
	}
	lines, err := r.linesFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Lines = lines[out[i].ID]
	}
	return out, nil
}

// Delete removes an order; its lines go with it via ON DELETE CASCADE.
func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteOrderSQL, id)
	if err != nil {
		return errors.Wrapf(err, "delete order %q", id)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

func (r *OrderRepository) linesFor(ctx context.Context, orderIDs []string) (map[string][]order.Line, error) {
	rows, err := r.pool.Query(ctx, getLinesSQL, orderIDs)
	if err != nil {
		return nil, errors.Wrap(err, "get order lines")
	}
	defer rows.Close()

	lines := make(map[string][]order.Line, len(orderIDs))
	for rows.Next() {
		var (
			orderID  string
			l        order.Line
			currency string
		)
		err := rows.Scan(&orderID, &l.Quantity,
			&l.Item.ID, &l.Item.Name, &l.Item.Description, &l.Item.Price, &currency)
		if err != nil {
			return nil, errors.Wrap(err, "scan order line")
		}
		l.Item.Currency = catalog.Currency(currency)
		lines[orderID] = append(lines[orderID], l)
	}
	return lines, rows.Err()
}

func insertLines(ctx context.Context, tx pgx.Tx, o *order.Order) error {
	for pos, l := range o.Lines {
		if _, err := tx.Exec(ctx, insertLineSQL, o.ID, l.Item.ID, l.Quantity, pos); err != nil {
			return errors.Wrapf(err, "insert line %q of order %q", l.Item.ID, o.ID)
		}
	}
	return nil
}

func scanOrderRow(row pgx.Row) (*order.Order, error) {
	var (
		o           order.Order
		dID, dName  *string
		dPercentOff *int
		tID, tName  *string
		tPercent    *int
	)
	err := row.Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt,
		&dID, &dName, &dPercentOff,
		&tID, &tName, &tPercent)
	if err != nil {
		return nil, err
	}
	if dID != nil {
		o.Discount = &pricing.Discount{ID: *dID, Name: *dName, PercentOff: *dPercentOff}
	}
	if tID != nil {
		o.Tax = &pricing.Tax{ID: *tID, Name: *tName, Percent: *tPercent}
	}
	return &o, nil
}

func discountID(o *order.Order) *string {
	if o.Discount == nil {
		return nil
	}
	return &o.Discount.ID
}

func taxID(o *order.Order) *string {
	if o.Tax == nil {
		return nil
	}
	return &o.Tax.ID
}
