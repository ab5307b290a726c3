package catalog

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("menu item not found")

// Item is a menu entry as it stands right now. Orders copy what they need
// out of it at creation time and never look back.
type Item struct {
	Ref       string `json:"ref"`
	Name      string `json:"name"`
	UnitCents int    `json:"unit_cents"`
	Available bool   `json:"available"`
}

type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) Lookup(ctx context.Context, ref string) (Item, error) {
	var it Item
	err := r.DB.QueryRow(ctx, `
		SELECT id, name, price_cents, is_available
		FROM menu_items WHERE id=$1`, ref,
	).Scan(&it.Ref, &it.Name, &it.UnitCents, &it.Available)
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, ErrNotFound
	}
	if err != nil {
		return Item{}, err
	}
	return it, nil
}

func (r *Repo) List(ctx context.Context) ([]Item, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, name, price_cents, is_available
		FROM menu_items ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.Ref, &it.Name, &it.UnitCents, &it.Available); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
