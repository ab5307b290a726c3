package orders

import "time"

// LineItem is a snapshot of a menu item taken at order creation. Later
// catalog edits (price change, removal) never touch it.
type LineItem struct {
	CatalogRef string `json:"catalog_ref"`
	Name       string `json:"name"`
	Qty        int    `json:"qty"`
	UnitCents  int    `json:"unit_cents"`
}

type Order struct {
	ID          string     `json:"id"`
	OwnerRef    string     `json:"owner_ref,omitempty"` // empty for guest orders
	DisplayName string     `json:"display_name"`
	Items       []LineItem `json:"items"`
	TotalCents  int        `json:"total_cents"`
	Status      Status     `json:"status"`
	CreationKey int64      `json:"creation_key"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Active reports whether the order occupies a queue position.
func (o Order) Active() bool {
	return o.Status == StatusPending || o.Status == StatusPreparing
}

// QueuedOrder is an order annotated with its live queue position.
// Position is nil when the order is not active.
type QueuedOrder struct {
	Order
	Position *int `json:"position"`
}
