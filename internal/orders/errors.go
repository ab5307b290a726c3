package orders

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound covers missing orders and missing menu items alike.
	ErrNotFound = errors.New("not found")

	// ErrEmptyOrder rejects creation with zero line items, including
	// create-from-cart against an empty cart.
	ErrEmptyOrder = errors.New("order has no items")

	ErrInvalidQuantity = errors.New("quantity must be positive")

	// ErrConflict is returned by the repository when a status CAS lost a
	// race. Always retried inside the machine, never surfaced as-is.
	ErrConflict = errors.New("status changed concurrently")
)

// InvalidTransitionError rejects a status move not reachable from the
// order's current status. Allowed carries the legal next statuses so the
// caller can explain the rejection.
type InvalidTransitionError struct {
	Current Status
	Allowed []Status
}

func (e *InvalidTransitionError) Error() string {
	if len(e.Allowed) == 0 {
		return fmt.Sprintf("order is %s, a terminal status", e.Current)
	}
	next := make([]string, len(e.Allowed))
	for i, s := range e.Allowed {
		next[i] = string(s)
	}
	return fmt.Sprintf("order is %s, can only move to %s", e.Current, strings.Join(next, ", "))
}

// UnavailableItemError rejects an order wholesale when any referenced menu
// item is currently marked unavailable.
type UnavailableItemError struct {
	CatalogRef string
}

func (e *UnavailableItemError) Error() string {
	return fmt.Sprintf("menu item %s is unavailable", e.CatalogRef)
}
