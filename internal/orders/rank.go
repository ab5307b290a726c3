package orders

import "sort"

// Rank returns the 1-based queue position of ord among the given active
// orders: one plus the number of active orders with a smaller creation key.
// ok is false when ord is not active; inactive orders have no position.
// Positions are derived on every call, nothing is stored.
func Rank(ord Order, active []Order) (pos int, ok bool) {
	if !ord.Active() {
		return 0, false
	}
	pos = 1
	for _, o := range active {
		if o.ID == ord.ID || !o.Active() {
			continue
		}
		if o.CreationKey < ord.CreationKey {
			pos++
		}
	}
	return pos, true
}

// SortByCreationKey returns a copy of the given orders sorted ascending by
// creation key. With keys unique by construction the result is a total
// order: index i holds the order at position i+1.
func SortByCreationKey(list []Order) []Order {
	out := make([]Order, len(list))
	copy(out, list)
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreationKey < out[j].CreationKey
	})
	return out
}
