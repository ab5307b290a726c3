package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/quickserve/walkup-orders/internal/orders"
)

// StatusCache is the fast path for point status reads, kept warm on every
// create and transition. Implemented by redisx.StatusCache; optional,
// Postgres stays authoritative.
type StatusCache interface {
	Get(ctx context.Context, orderID string) (string, bool)
	Set(ctx context.Context, orderID, status string)
}

type OrdersHandler struct {
	Svc   *orders.Service
	Cache StatusCache
}

type createOrderReq struct {
	OwnerRef    string             `json:"owner_ref"`
	DisplayName string             `json:"display_name"`
	Items       []orders.LineInput `json:"items"`
}

type createFromCartReq struct {
	OwnerRef    string `json:"owner_ref"`
	DisplayName string `json:"display_name"`
}

type transitionReq struct {
	Status string `json:"status"`
}

type placedResp struct {
	Order    orders.Order `json:"order"`
	Position int          `json:"position"`
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Post("/orders", h.create)
	r.Post("/orders/from-cart", h.createFromCart)
	r.Get("/orders", h.history)
	r.Get("/orders/{id}", h.get)
	r.Get("/orders/{id}/status", h.status)
	r.Post("/orders/{id}/status", h.transition)
	r.Get("/queue", h.queue)
	r.Get("/owners/{ownerRef}/orders", h.ownerOrders)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, err error) {
	var inv *orders.InvalidTransitionError
	var unav *orders.UnavailableItemError
	switch {
	case errors.As(err, &inv):
		allowed := make([]string, len(inv.Allowed))
		for i, s := range inv.Allowed {
			allowed[i] = string(s)
		}
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":   "invalid_transition",
			"current": inv.Current,
			"allowed": allowed,
		})
	case errors.As(err, &unav):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":       "unavailable_item",
			"catalog_ref": unav.CatalogRef,
		})
	case errors.Is(err, orders.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found"})
	case errors.Is(err, orders.ErrEmptyOrder):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "empty_order"})
	case errors.Is(err, orders.ErrInvalidQuantity):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "invalid_quantity"})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal"})
	}
}

func (h *OrdersHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.DisplayName == "" {
		req.DisplayName = "Guest"
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, pos, err := h.Svc.Place(ctx, orders.PlaceRequest{
		OwnerRef:    req.OwnerRef,
		DisplayName: req.DisplayName,
		Lines:       req.Items,
		TraceID:     r.Header.Get("X-Request-Id"),
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	h.cacheStatus(ctx, o)
	writeJSON(w, http.StatusCreated, placedResp{Order: o, Position: pos})
}

func (h *OrdersHandler) createFromCart(w http.ResponseWriter, r *http.Request) {
	var req createFromCartReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.OwnerRef == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing owner_ref"})
		return
	}
	if req.DisplayName == "" {
		req.DisplayName = "Guest"
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, pos, err := h.Svc.PlaceFromCart(ctx, req.OwnerRef, req.DisplayName, r.Header.Get("X-Request-Id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	h.cacheStatus(ctx, o)
	writeJSON(w, http.StatusCreated, placedResp{Order: o, Position: pos})
}

func (h *OrdersHandler) get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	q, err := h.Svc.Get(ctx, id)
	if err != nil {
		writeErr(w, err)
		return
	}
	h.cacheStatus(ctx, q.Order)
	writeJSON(w, http.StatusOK, q)
}

// status serves the point read from the cache when it can; a miss reads
// Postgres and re-warms the cache.
func (h *OrdersHandler) status(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if h.Cache != nil {
		if st, ok := h.Cache.Get(ctx, id); ok {
			writeJSON(w, http.StatusOK, map[string]string{"order_id": id, "status": st})
			return
		}
	}
	st, err := h.Svc.Status(ctx, id)
	if err != nil {
		writeErr(w, err)
		return
	}
	if h.Cache != nil {
		h.Cache.Set(ctx, id, string(st))
	}
	writeJSON(w, http.StatusOK, map[string]string{"order_id": id, "status": string(st)})
}

func (h *OrdersHandler) queue(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	list, err := h.Svc.ActiveQueue(ctx)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *OrdersHandler) history(w http.ResponseWriter, r *http.Request) {
	var f orders.HistoryFilter
	if s := r.URL.Query().Get("status"); s != "" {
		st, ok := orders.ParseStatus(s)
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown status"})
			return
		}
		f.Status = &st
	}
	if s := r.URL.Query().Get("from"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad from timestamp"})
			return
		}
		f.From = &t
	}
	if s := r.URL.Query().Get("to"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad to timestamp"})
			return
		}
		f.To = &t
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	list, err := h.Svc.History(ctx, f)
	if err != nil {
		writeErr(w, err)
		return
	}
	if list == nil {
		list = []orders.Order{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *OrdersHandler) ownerOrders(w http.ResponseWriter, r *http.Request) {
	ownerRef := chi.URLParam(r, "ownerRef")

	var status *orders.Status
	if s := r.URL.Query().Get("status"); s != "" {
		st, ok := orders.ParseStatus(s)
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown status"})
			return
		}
		status = &st
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	list, err := h.Svc.OwnerOrders(ctx, ownerRef, status)
	if err != nil {
		writeErr(w, err)
		return
	}
	if list == nil {
		list = []orders.QueuedOrder{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *OrdersHandler) transition(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req transitionReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	to, ok := orders.ParseStatus(req.Status)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown status"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Svc.Transition(ctx, id, to, r.Header.Get("X-Request-Id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	h.cacheStatus(ctx, o)
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) cacheStatus(ctx context.Context, o orders.Order) {
	if h.Cache == nil {
		return
	}
	h.Cache.Set(ctx, o.ID, string(o.Status))
}
