package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"smartline-backend/internal/domain"
	"smartline-backend/internal/repository"

	"github.com/go-chi/chi/v5"
)

type fakeOrderStore struct {
	orders []domain.Order
	nextID int64
}

func (s *fakeOrderStore) List(ctx context.Context) ([]domain.Order, error) {
	out := make([]domain.Order, len(s.orders))
	copy(out, s.orders)
	return out, nil
}

func (s *fakeOrderStore) Create(ctx context.Context, in repository.CreateOrderInput) (*domain.Order, error) {
	s.nextID++
	o := domain.Order{
		ID:         s.nextID,
		ClientID:   in.ClientID,
		ClientName: in.ClientName,
		Phone:      in.Phone,
		CarInfo:    in.CarInfo,
		Service:    in.Service,
		Comment:    in.Comment,
		Source:     in.Source,
		Status:     domain.OrderNew,
		CreatedAt:  time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC),
	}
	s.orders = append(s.orders, o)
	return &o, nil
}

func (s *fakeOrderStore) UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) error {
	for i := range s.orders {
		if s.orders[i].ID == id {
			s.orders[i].Status = status
			return nil
		}
	}
	return repository.ErrNotFound
}

func newOrderRouter(store OrderStore) http.Handler {
	r := chi.NewRouter()
	OrderHandler{Store: store}.RegisterRoutes(r)
	return r
}

func TestCreateOrder(t *testing.T) {
	h := newOrderRouter(&fakeOrderStore{})

	rec := postJSON(t, h, "/orders", map[string]any{
		"action":  "create",
		"client":  "Пётр",
		"phone":   "+79261234567",
		"car":     "Kia Rio 2019",
		"service": "Сигнализация",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	order := decodeBody(t, rec)["order"].(map[string]any)
	if order["number"] != "З-0001" {
		t.Errorf("number = %q, want З-0001", order["number"])
	}
	if order["status"] != "new" {
		t.Errorf("status = %q, want new", order["status"])
	}
	if order["date"] != "14.03.2025" {
		t.Errorf("date = %q, want 14.03.2025", order["date"])
	}
}

func TestCreateOrderValidation(t *testing.T) {
	h := newOrderRouter(&fakeOrderStore{})

	rec := postJSON(t, h, "/orders", map[string]any{"action": "create", "client": "Пётр"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if decodeBody(t, rec)["error"] != "client and phone are required" {
		t.Errorf("unexpected error body: %s", rec.Body.String())
	}
}

func TestUpdateOrderStatus(t *testing.T) {
	store := &fakeOrderStore{}
	h := newOrderRouter(store)
	postJSON(t, h, "/orders", map[string]any{"action": "create", "client": "A", "phone": "1"})

	rec := postJSON(t, h, "/orders", map[string]any{
		"action": "update_status", "order_id": 1, "status": "approved",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	if store.orders[0].Status != domain.OrderApproved {
		t.Errorf("status = %q, want approved", store.orders[0].Status)
	}
}

func TestUpdateOrderStatusInvalid(t *testing.T) {
	h := newOrderRouter(&fakeOrderStore{})

	rec := postJSON(t, h, "/orders", map[string]any{
		"action": "update_status", "order_id": 1, "status": "finished",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad status, got %d", rec.Code)
	}

	rec = postJSON(t, h, "/orders", map[string]any{
		"action": "update_status", "order_id": 99, "status": "rejected",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing order, got %d", rec.Code)
	}
}
