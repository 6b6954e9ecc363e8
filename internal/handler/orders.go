package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"smartline-backend/internal/domain"
	"smartline-backend/internal/repository"

	"github.com/go-chi/chi/v5"
)

type OrderStore interface {
	List(ctx context.Context) ([]domain.Order, error)
	Create(ctx context.Context, in repository.CreateOrderInput) (*domain.Order, error)
	UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) error
}

type OrderHandler struct {
	Store OrderStore
}

func (h OrderHandler) RegisterRoutes(r chi.Router) {
	r.Get("/orders", h.list)
	r.Post("/orders", h.dispatch)
}

type orderRequest struct {
	Action   string `json:"action"`
	OrderID  int64  `json:"order_id"`
	ClientID *int64 `json:"client_id"`
	Client   string `json:"client"`
	Phone    string `json:"phone"`
	Car      string `json:"car"`
	Service  string `json:"service"`
	Comment  string `json:"comment"`
	Status   string `json:"status"`
}

func (h OrderHandler) list(w http.ResponseWriter, r *http.Request) {
	orders, err := h.Store.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]map[string]any, 0, len(orders))
	for _, o := range orders {
		out = append(out, orderJSON(o))
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": out})
}

func (h OrderHandler) dispatch(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	switch req.Action {
	case "create":
		h.create(w, r, req)
	case "update_status":
		h.updateStatus(w, r, req)
	default:
		writeError(w, http.StatusBadRequest, "Unknown action")
	}
}

func (h OrderHandler) create(w http.ResponseWriter, r *http.Request, req orderRequest) {
	client := strings.TrimSpace(req.Client)
	phone := strings.TrimSpace(req.Phone)
	if client == "" || phone == "" {
		writeError(w, http.StatusBadRequest, "client and phone are required")
		return
	}
	o, err := h.Store.Create(r.Context(), repository.CreateOrderInput{
		ClientID:   req.ClientID,
		ClientName: client,
		Phone:      phone,
		CarInfo:    strings.TrimSpace(req.Car),
		Service:    strings.TrimSpace(req.Service),
		Comment:    strings.TrimSpace(req.Comment),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"order": orderJSON(*o)})
}

func (h OrderHandler) updateStatus(w http.ResponseWriter, r *http.Request, req orderRequest) {
	status := domain.OrderStatus(req.Status)
	if req.OrderID == 0 || !domain.ValidOrderStatus(status) {
		writeError(w, http.StatusBadRequest, "order_id and valid status are required")
		return
	}
	if err := h.Store.UpdateStatus(r.Context(), req.OrderID, status); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Order not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func orderJSON(o domain.Order) map[string]any {
	return map[string]any{
		"id":        o.ID,
		"number":    domain.OrderNumber(o.ID),
		"date":      o.CreatedAt.Format("02.01.2006"),
		"client":    o.ClientName,
		"client_id": o.ClientID,
		"phone":     o.Phone,
		"car":       o.CarInfo,
		"service":   o.Service,
		"status":    string(o.Status),
		"comment":   o.Comment,
	}
}
