package orders

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository is the one shared mutable resource: all order state lives
// behind it and all mutation goes through it.
type Repository interface {
	Insert(ctx context.Context, o Order) (Order, error)
	Get(ctx context.Context, id string) (Order, error)
	// ListActive returns pending and preparing orders ascending by
	// creation key. One call is one consistent read of the active set.
	ListActive(ctx context.Context) ([]Order, error)
	ListByOwner(ctx context.Context, ownerRef string, status *Status) ([]Order, error)
	ListHistory(ctx context.Context, f HistoryFilter) ([]Order, error)
	// UpdateStatus applies a compare-and-swap on status: it succeeds only
	// if the stored status still equals expected, otherwise ErrConflict.
	UpdateStatus(ctx context.Context, id string, expected, next Status) (Order, error)
}

type HistoryFilter struct {
	Status *Status
	From   *time.Time
	To     *time.Time
}

type PostgresRepo struct{ DB *pgxpool.Pool }

const orderCols = `id, COALESCE(owner_ref, ''), display_name, status, total_cents, creation_key, created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.OwnerRef, &o.DisplayName, &o.Status, &o.TotalCents, &o.CreationKey, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

func (r *PostgresRepo) Insert(ctx context.Context, o Order) (Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var ownerRef any
	if o.OwnerRef != "" {
		ownerRef = o.OwnerRef
	}
	row := tx.QueryRow(ctx, `
		INSERT INTO orders(id, owner_ref, display_name, status, total_cents, creation_key)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		o.ID, ownerRef, o.DisplayName, o.Status, o.TotalCents, o.CreationKey,
	)
	if err := row.Scan(&o.CreatedAt, &o.UpdatedAt); err != nil {
		return Order{}, err
	}

	for _, it := range o.Items {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items(order_id, catalog_ref, name, qty, unit_cents)
			VALUES ($1, $2, $3, $4, $5)`,
			o.ID, it.CatalogRef, it.Name, it.Qty, it.UnitCents,
		); err != nil {
			return Order{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Order{}, err
	}
	return o, nil
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (Order, error) {
	o, err := scanOrder(r.DB.QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, err
	}
	o.Items, err = r.loadItems(ctx, id)
	if err != nil {
		return Order{}, err
	}
	return o, nil
}

func (r *PostgresRepo) loadItems(ctx context.Context, orderID string) ([]LineItem, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT catalog_ref, name, qty, unit_cents
		FROM order_items WHERE order_id=$1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LineItem
	for rows.Next() {
		var it LineItem
		if err := rows.Scan(&it.CatalogRef, &it.Name, &it.Qty, &it.UnitCents); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) ListActive(ctx context.Context) ([]Order, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT `+orderCols+` FROM orders
		WHERE status IN ($1, $2)
		ORDER BY creation_key`, StatusPending, StatusPreparing)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows)
}

func (r *PostgresRepo) ListByOwner(ctx context.Context, ownerRef string, status *Status) ([]Order, error) {
	q := `SELECT ` + orderCols + ` FROM orders WHERE owner_ref=$1`
	args := []any{ownerRef}
	if status != nil {
		q += ` AND status=$2`
		args = append(args, *status)
	}
	q += ` ORDER BY creation_key DESC`

	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows)
}

func (r *PostgresRepo) ListHistory(ctx context.Context, f HistoryFilter) ([]Order, error) {
	q := `SELECT ` + orderCols + ` FROM orders WHERE 1=1`
	var args []any
	if f.Status != nil {
		args = append(args, *f.Status)
		q += ` AND status=$` + strconv.Itoa(len(args))
	}
	if f.From != nil {
		args = append(args, *f.From)
		q += ` AND created_at >= $` + strconv.Itoa(len(args))
	}
	if f.To != nil {
		args = append(args, *f.To)
		q += ` AND created_at <= $` + strconv.Itoa(len(args))
	}
	q += ` ORDER BY creation_key DESC`

	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows)
}

func (r *PostgresRepo) UpdateStatus(ctx context.Context, id string, expected, next Status) (Order, error) {
	row := r.DB.QueryRow(ctx, `
		UPDATE orders SET status=$3, updated_at=now()
		WHERE id=$1 AND status=$2
		RETURNING `+orderCols, id, expected, next)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		// Either the order is gone or its status moved under us.
		var n int
		if err2 := r.DB.QueryRow(ctx, `SELECT 1 FROM orders WHERE id=$1`, id).Scan(&n); err2 != nil {
			if errors.Is(err2, pgx.ErrNoRows) {
				return Order{}, ErrNotFound
			}
			return Order{}, err2
		}
		return Order{}, ErrConflict
	}
	if err != nil {
		return Order{}, err
	}
	return o, nil
}

func collectOrders(rows pgx.Rows) ([]Order, error) {
	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
