package orders

import "strings"

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusPreparing Status = "PREPARING"
	StatusReady     Status = "READY"
	StatusCompleted Status = "COMPLETED"
)

// Single forward lane, no skips, no reversals. COMPLETED is terminal.
var validNext = map[Status]map[Status]bool{
	StatusPending:   {StatusPreparing: true},
	StatusPreparing: {StatusReady: true},
	StatusReady:     {StatusCompleted: true},
	StatusCompleted: {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// NextStatuses lists the statuses reachable from `from` in one step.
// Empty for terminal statuses.
func NextStatuses(from Status) []Status {
	out := make([]Status, 0, len(validNext[from]))
	for s := range validNext[from] {
		out = append(out, s)
	}
	return out
}

// ParseStatus accepts status names case-insensitively ("ready" == "READY").
func ParseStatus(s string) (Status, bool) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case StatusPending, StatusPreparing, StatusReady, StatusCompleted:
		return st, true
	}
	return "", false
}
