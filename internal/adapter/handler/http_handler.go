package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"stockroom/internal/core/domain"
	"stockroom/internal/core/service"
)

type HTTPHandler struct {
	orders  *service.OrderService
	ledger  *service.StockLedger
	catalog *service.CatalogService
}

func NewHTTPHandler(orders *service.OrderService, ledger *service.StockLedger, catalog *service.CatalogService) *HTTPHandler {
	return &HTTPHandler{orders: orders, ledger: ledger, catalog: catalog}
}

// Router wires the public HTTP surface.
func (h *HTTPHandler) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)

	s := r.PathPrefix("/api/v1").Subrouter()
	s.HandleFunc("/orders/{order_id}/items", h.AddItemToOrder).Methods(http.MethodPost)
	s.HandleFunc("/orders/{order_id}/items/{item_id}", h.RemoveItemFromOrder).Methods(http.MethodDelete)
	s.HandleFunc("/orders/{order_id}/finalize", h.FinalizeOrder).Methods(http.MethodPost)
	s.HandleFunc("/orders/{order_id}", h.GetOrder).Methods(http.MethodGet)
	s.HandleFunc("/items", h.ListItems).Methods(http.MethodGet)
	s.HandleFunc("/items/{item_id}", h.GetItem).Methods(http.MethodGet)
	s.HandleFunc("/categories", h.ListCategories).Methods(http.MethodGet)
	s.HandleFunc("/categories/{category_id}/children", h.CategoryChildren).Methods(http.MethodGet)

	return logMiddleware(r)
}

func logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.WithFields(log.Fields{
			"request_id": uuid.NewString(),
			"method":     r.Method,
			"url":        r.URL.Path,
			"remoteAddr": r.RemoteAddr,
		}).Info("request received")
		next.ServeHTTP(w, r)
	})
}

type addItemRequest struct {
	OrderID  int64 `json:"order_id"`
	ItemID   int64 `json:"item_id"`
	Quantity int   `json:"quantity"`
}

type lineResponse struct {
	ID             int64 `json:"id"`
	OrderID        int64 `json:"order_id"`
	ItemID         int64 `json:"item_id"`
	Quantity       int   `json:"quantity"`
	UnitPriceCents int64 `json:"unit_price_cents"`
}

type orderResponse struct {
	ID       int64          `json:"id"`
	ClientID int64          `json:"client_id"`
	Status   string         `json:"status"`
	Lines    []lineResponse `json:"lines"`
}

type itemResponse struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	CategoryID *int64 `json:"category_id"`
	PriceCents int64  `json:"price_cents"`
	OnHand     int    `json:"on_hand"`
	Reserved   int    `json:"reserved"`
	Available  int    `json:"available"`
}

type categoryResponse struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	ParentID *int64 `json:"parent_id"`
}

type errorResponse struct {
	Error     string `json:"error"`
	Requested int    `json:"requested,omitempty"`
	Available int    `json:"available,omitempty"`
}

func (h *HTTPHandler) AddItemToOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathID(w, r, "order_id")
	if !ok {
		return
	}

	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.OrderID != orderID {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "order id mismatch between path and body"})
		return
	}
	if req.ItemID <= 0 || req.Quantity <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "item_id and quantity must be positive"})
		return
	}

	line, err := h.orders.AddItemToOrder(r.Context(), orderID, req.ItemID, req.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, lineResponse{
		ID:             line.ID,
		OrderID:        line.OrderID,
		ItemID:         line.ItemID,
		Quantity:       line.Quantity,
		UnitPriceCents: line.UnitPriceCents,
	})
}

func (h *HTTPHandler) RemoveItemFromOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathID(w, r, "order_id")
	if !ok {
		return
	}
	itemID, ok := pathID(w, r, "item_id")
	if !ok {
		return
	}

	if err := h.orders.RemoveItemFromOrder(r.Context(), orderID, itemID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) FinalizeOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathID(w, r, "order_id")
	if !ok {
		return
	}

	if err := h.orders.FinalizeOrder(r.Context(), orderID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(domain.OrderStatusFinalized)})
}

func (h *HTTPHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathID(w, r, "order_id")
	if !ok {
		return
	}

	order, err := h.orders.GetOrder(r.Context(), orderID)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := orderResponse{
		ID:       order.ID,
		ClientID: order.ClientID,
		Status:   string(order.Status),
		Lines:    make([]lineResponse, 0, len(order.Lines)),
	}
	for _, line := range order.Lines {
		resp.Lines = append(resp.Lines, lineResponse{
			ID:             line.ID,
			OrderID:        line.OrderID,
			ItemID:         line.ItemID,
			Quantity:       line.Quantity,
			UnitPriceCents: line.UnitPriceCents,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	itemID, ok := pathID(w, r, "item_id")
	if !ok {
		return
	}

	item, err := h.ledger.GetItem(r.Context(), itemID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toItemResponse(item))
}

func (h *HTTPHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	var rootID int64
	if raw := r.URL.Query().Get("category_id"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid category_id"})
			return
		}
		rootID = parsed
	}

	items, err := h.catalog.ItemsUnder(r.Context(), rootID)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]itemResponse, 0, len(items))
	for i := range items {
		resp = append(resp, toItemResponse(&items[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.ListCategories(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCategoryResponses(categories))
}

func (h *HTTPHandler) CategoryChildren(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := pathID(w, r, "category_id")
	if !ok {
		return
	}

	children, err := h.catalog.ChildrenOf(r.Context(), categoryID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCategoryResponses(children))
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func toItemResponse(item *domain.Item) itemResponse {
	return itemResponse{
		ID:         item.ID,
		Name:       item.Name,
		CategoryID: item.CategoryID,
		PriceCents: item.PriceCents,
		OnHand:     item.OnHand,
		Reserved:   item.Reserved,
		Available:  item.Available(),
	}
}

func toCategoryResponses(categories []domain.Category) []categoryResponse {
	resp := make([]categoryResponse, 0, len(categories))
	for _, c := range categories {
		resp = append(resp, categoryResponse{ID: c.ID, Name: c.Name, ParentID: c.ParentID})
	}
	return resp
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid " + name})
		return 0, false
	}
	return id, true
}

// writeError maps the domain error taxonomy to HTTP statuses. Unmatched
// errors, including the internal-invariant sentinels, become 500s.
func writeError(w http.ResponseWriter, err error) {
	var stockErr *domain.InsufficientStockError
	if errors.As(err, &stockErr) {
		writeJSON(w, http.StatusConflict, errorResponse{
			Error:     stockErr.Error(),
			Requested: stockErr.Requested,
			Available: stockErr.Available,
		})
		return
	}

	switch {
	case errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, domain.ErrItemNotFound),
		errors.Is(err, domain.ErrCategoryNotFound),
		errors.Is(err, domain.ErrLineNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrOrderFinalized):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrInvalidQuantity), errors.Is(err, domain.ErrInvalidRelease):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		log.WithError(err).Error("request failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
