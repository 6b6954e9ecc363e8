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

type fakeFinanceStore struct {
	cashboxes []domain.Cashbox
	payments  []domain.Payment
	groups    []domain.ExpenseGroup
	expenses  []domain.Expense
	nextID    int64
}

func (s *fakeFinanceStore) Cashboxes(ctx context.Context) ([]domain.Cashbox, error) {
	return s.cashboxes, nil
}

func (s *fakeFinanceStore) CreateCashbox(ctx context.Context, name string, typ domain.CashboxType) (*domain.Cashbox, error) {
	s.nextID++
	c := domain.Cashbox{ID: s.nextID, Name: name, Type: typ, Active: true, CreatedAt: time.Now()}
	s.cashboxes = append(s.cashboxes, c)
	return &c, nil
}

func (s *fakeFinanceStore) UpdateCashbox(ctx context.Context, id int64, in repository.UpdateCashboxInput) (*domain.Cashbox, error) {
	for i := range s.cashboxes {
		if s.cashboxes[i].ID == id {
			if in.Name != nil {
				s.cashboxes[i].Name = *in.Name
			}
			if in.Type != nil {
				s.cashboxes[i].Type = *in.Type
			}
			if in.Active != nil {
				s.cashboxes[i].Active = *in.Active
			}
			c := s.cashboxes[i]
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *fakeFinanceStore) DeleteCashbox(ctx context.Context, id int64) (int64, error) {
	var count int64
	for _, p := range s.payments {
		if p.CashboxID == id {
			count++
		}
	}
	if count > 0 {
		return count, repository.ErrConflict
	}
	for i := range s.cashboxes {
		if s.cashboxes[i].ID == id {
			s.cashboxes = append(s.cashboxes[:i], s.cashboxes[i+1:]...)
			return 0, nil
		}
	}
	return 0, repository.ErrNotFound
}

func (s *fakeFinanceStore) Payments(ctx context.Context, f repository.PaymentFilter) ([]domain.Payment, error) {
	var out []domain.Payment
	for _, p := range s.payments {
		if f.WorkOrderID != nil && p.WorkOrderID != *f.WorkOrderID {
			continue
		}
		if f.CashboxID != nil && p.CashboxID != *f.CashboxID {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *fakeFinanceStore) CreatePayment(ctx context.Context, in repository.CreatePaymentInput) (*domain.Payment, error) {
	var found bool
	for i := range s.cashboxes {
		if s.cashboxes[i].ID == in.CashboxID {
			s.cashboxes[i].Balance += in.Amount
			found = true
		}
	}
	if !found {
		return nil, repository.ErrNotFound
	}
	s.nextID++
	p := domain.Payment{
		ID: s.nextID, WorkOrderID: in.WorkOrderID, CashboxID: in.CashboxID,
		Amount: in.Amount, Method: in.Method, Comment: in.Comment, CreatedAt: time.Now(),
	}
	s.payments = append(s.payments, p)
	return &p, nil
}

func (s *fakeFinanceStore) ExpenseGroups(ctx context.Context) ([]domain.ExpenseGroup, error) {
	return s.groups, nil
}

func (s *fakeFinanceStore) CreateExpenseGroup(ctx context.Context, name, description string) (*domain.ExpenseGroup, error) {
	s.nextID++
	g := domain.ExpenseGroup{ID: s.nextID, Name: name, Description: description, Active: true}
	s.groups = append(s.groups, g)
	return &g, nil
}

func (s *fakeFinanceStore) UpdateExpenseGroup(ctx context.Context, id int64, in repository.UpdateExpenseGroupInput) (*domain.ExpenseGroup, error) {
	for i := range s.groups {
		if s.groups[i].ID == id {
			if in.Name != nil {
				s.groups[i].Name = *in.Name
			}
			g := s.groups[i]
			return &g, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *fakeFinanceStore) Expenses(ctx context.Context) ([]domain.Expense, error) {
	return s.expenses, nil
}

func (s *fakeFinanceStore) CreateExpense(ctx context.Context, in repository.CreateExpenseInput) (*domain.Expense, error) {
	var found bool
	for i := range s.cashboxes {
		if s.cashboxes[i].ID == in.CashboxID {
			s.cashboxes[i].Balance -= in.Amount
			found = true
		}
	}
	if !found {
		return nil, repository.ErrNotFound
	}
	s.nextID++
	e := domain.Expense{
		ID: s.nextID, ExpenseGroupID: in.ExpenseGroupID, CashboxID: in.CashboxID,
		Amount: in.Amount, Comment: in.Comment, CreatedAt: time.Now(),
	}
	s.expenses = append(s.expenses, e)
	return &e, nil
}

func (s *fakeFinanceStore) Dashboard(ctx context.Context) (*repository.FinanceDashboard, error) {
	d := &repository.FinanceDashboard{ByMethod: map[string]float64{}}
	for _, p := range s.payments {
		d.TotalRevenue += p.Amount
		d.TotalPayments++
		d.ByMethod[string(p.Method)] += p.Amount
	}
	for _, e := range s.expenses {
		d.TotalExpenses += e.Amount
	}
	for _, c := range s.cashboxes {
		d.Cashboxes = append(d.Cashboxes, repository.CashboxTotal{
			ID: c.ID, Name: c.Name, Type: c.Type, Active: c.Active, Balance: c.Balance,
		})
	}
	return d, nil
}

func newFinanceRouter(store FinanceStore) http.Handler {
	r := chi.NewRouter()
	FinanceHandler{Store: store}.RegisterRoutes(r)
	return r
}

func TestCreatePaymentDefaultsToCash(t *testing.T) {
	store := &fakeFinanceStore{}
	h := newFinanceRouter(store)
	postJSON(t, h, "/finance", map[string]any{"action": "create_cashbox", "name": "Основная"})

	rec := postJSON(t, h, "/finance", map[string]any{
		"action": "create_payment", "work_order_id": 1, "cashbox_id": 1, "amount": 5000,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	p := decodeBody(t, rec)["payment"].(map[string]any)
	if p["payment_method"] != "cash" {
		t.Errorf("payment_method = %q, want cash", p["payment_method"])
	}
	if store.cashboxes[0].Balance != 5000 {
		t.Errorf("cashbox balance = %v, want 5000", store.cashboxes[0].Balance)
	}
}

func TestCreatePaymentValidation(t *testing.T) {
	h := newFinanceRouter(&fakeFinanceStore{})

	rec := postJSON(t, h, "/finance", map[string]any{
		"action": "create_payment", "work_order_id": 1,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	rec = postJSON(t, h, "/finance", map[string]any{
		"action": "create_payment", "work_order_id": 1, "cashbox_id": 1,
		"amount": 100, "payment_method": "crypto",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad method, got %d", rec.Code)
	}
	if decodeBody(t, rec)["error"] != "Invalid payment method" {
		t.Errorf("unexpected error body: %s", rec.Body.String())
	}
}

func TestDeleteCashboxWithPayments(t *testing.T) {
	store := &fakeFinanceStore{}
	h := newFinanceRouter(store)
	postJSON(t, h, "/finance", map[string]any{"action": "create_cashbox", "name": "Основная"})
	postJSON(t, h, "/finance", map[string]any{
		"action": "create_payment", "work_order_id": 1, "cashbox_id": 1, "amount": 100,
	})
	postJSON(t, h, "/finance", map[string]any{
		"action": "create_payment", "work_order_id": 2, "cashbox_id": 1, "amount": 200,
	})

	rec := postJSON(t, h, "/finance", map[string]any{"action": "delete_cashbox", "cashbox_id": 1})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	if decodeBody(t, rec)["error"] != "Нельзя удалить кассу — есть 2 платежей" {
		t.Errorf("unexpected error body: %s", rec.Body.String())
	}
	if len(store.cashboxes) != 1 {
		t.Error("cashbox deleted despite payments")
	}
}

func TestDeleteEmptyCashbox(t *testing.T) {
	store := &fakeFinanceStore{}
	h := newFinanceRouter(store)
	postJSON(t, h, "/finance", map[string]any{"action": "create_cashbox", "name": "Пустая"})

	rec := postJSON(t, h, "/finance", map[string]any{"action": "delete_cashbox", "cashbox_id": 1})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	if len(store.cashboxes) != 0 {
		t.Error("cashbox not deleted")
	}
}

func TestCreateExpenseDecreasesBalance(t *testing.T) {
	store := &fakeFinanceStore{}
	h := newFinanceRouter(store)
	postJSON(t, h, "/finance", map[string]any{"action": "create_cashbox", "name": "Основная"})
	postJSON(t, h, "/finance", map[string]any{
		"action": "create_payment", "work_order_id": 1, "cashbox_id": 1, "amount": 1000,
	})

	rec := postJSON(t, h, "/finance", map[string]any{
		"action": "create_expense", "cashbox_id": 1, "amount": 300, "comment": "Аренда",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	if store.cashboxes[0].Balance != 700 {
		t.Errorf("balance = %v, want 700", store.cashboxes[0].Balance)
	}
}

func TestCreateCashboxInvalidType(t *testing.T) {
	h := newFinanceRouter(&fakeFinanceStore{})
	rec := postJSON(t, h, "/finance", map[string]any{
		"action": "create_cashbox", "name": "Касса", "type": "crypto",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if decodeBody(t, rec)["error"] != "Invalid cashbox type" {
		t.Errorf("unexpected error body: %s", rec.Body.String())
	}
}

func TestFinanceDashboard(t *testing.T) {
	store := &fakeFinanceStore{}
	h := newFinanceRouter(store)
	postJSON(t, h, "/finance", map[string]any{"action": "create_cashbox", "name": "Основная"})
	postJSON(t, h, "/finance", map[string]any{
		"action": "create_payment", "work_order_id": 1, "cashbox_id": 1, "amount": 1500, "payment_method": "card",
	})

	rec := getPath(t, h, "/finance?section=dashboard")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["total_revenue"].(float64) != 1500 {
		t.Errorf("total_revenue = %v", body["total_revenue"])
	}
	byMethod := body["by_method"].(map[string]any)
	if byMethod["card"].(float64) != 1500 {
		t.Errorf("by_method = %v", byMethod)
	}
}
