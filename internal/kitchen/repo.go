package kitchen

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quickserve/walkup-orders/internal/orders"
)

type Ticket struct {
	OrderID     string            `json:"order_id"`
	DisplayName string            `json:"display_name"`
	Items       []orders.LineItem `json:"items"`
	State       string            `json:"state"` // OPEN | DONE
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

type PostgresRepo struct{ DB *pgxpool.Pool }

func (r *PostgresRepo) Open(ctx context.Context, t Ticket) error {
	items, err := json.Marshal(t.Items)
	if err != nil {
		return err
	}
	_, err = r.DB.Exec(ctx, `
		INSERT INTO kitchen_tickets(order_id, display_name, items, state)
		VALUES ($1, $2, $3, 'OPEN')
		ON CONFLICT (order_id) DO NOTHING`,
		t.OrderID, t.DisplayName, items)
	return err
}

func (r *PostgresRepo) Close(ctx context.Context, orderID string) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE kitchen_tickets SET state='DONE', updated_at=now()
		WHERE order_id=$1 AND state='OPEN'`, orderID)
	return err
}

// ListOpen feeds the printable ticket rail, oldest first.
func (r *PostgresRepo) ListOpen(ctx context.Context) ([]Ticket, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT order_id, display_name, items, state, created_at, updated_at
		FROM kitchen_tickets WHERE state='OPEN' ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Ticket
	for rows.Next() {
		var t Ticket
		var items []byte
		if err := rows.Scan(&t.OrderID, &t.DisplayName, &items, &t.State, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(items, &t.Items); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
