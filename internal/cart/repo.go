package cart

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Line is one accumulated cart entry. Prices are not stored here; the
// order snapshot prices items at placement time.
type Line struct {
	CatalogRef string `json:"catalog_ref"`
	Qty        int    `json:"qty"`
}

type Repo struct{ DB *pgxpool.Pool }

// Drain reads the owner's cart in insertion order. The cart itself is left
// untouched; Clear runs only after the order commits.
func (r *Repo) Drain(ctx context.Context, ownerRef string) ([]Line, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT catalog_ref, qty FROM cart_items
		WHERE owner_ref=$1 ORDER BY added_at`, ownerRef)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.CatalogRef, &l.Qty); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *Repo) Clear(ctx context.Context, ownerRef string) error {
	_, err := r.DB.Exec(ctx, `DELETE FROM cart_items WHERE owner_ref=$1`, ownerRef)
	return err
}
