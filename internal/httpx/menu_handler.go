package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/quickserve/walkup-orders/internal/catalog"
)

type MenuLister interface {
	List(ctx context.Context) ([]catalog.Item, error)
}

// MenuHandler serves the current menu for the ordering front-ends.
type MenuHandler struct {
	Menu MenuLister
}

func (h *MenuHandler) Register(r *chi.Mux) {
	r.Get("/menu", h.list)
}

func (h *MenuHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	items, err := h.Menu.List(ctx)
	if err != nil {
		writeErr(w, err)
		return
	}
	if items == nil {
		items = []catalog.Item{}
	}
	writeJSON(w, http.StatusOK, items)
}
