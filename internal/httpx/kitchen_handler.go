package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/quickserve/walkup-orders/internal/kitchen"
)

// TicketLister is the read side of the kitchen ticket store.
type TicketLister interface {
	ListOpen(ctx context.Context) ([]kitchen.Ticket, error)
}

// KitchenHandler serves the printable ticket rail for the kitchen display.
type KitchenHandler struct {
	Tickets TicketLister
}

func (h *KitchenHandler) Register(r *chi.Mux) {
	r.Get("/kitchen/tickets", h.list)
}

func (h *KitchenHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	tickets, err := h.Tickets.ListOpen(ctx)
	if err != nil {
		writeErr(w, err)
		return
	}
	if tickets == nil {
		tickets = []kitchen.Ticket{}
	}
	writeJSON(w, http.StatusOK, tickets)
}
