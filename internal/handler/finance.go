package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"smartline-backend/internal/domain"
	"smartline-backend/internal/repository"

	"github.com/go-chi/chi/v5"
)

type FinanceStore interface {
	Cashboxes(ctx context.Context) ([]domain.Cashbox, error)
	CreateCashbox(ctx context.Context, name string, typ domain.CashboxType) (*domain.Cashbox, error)
	UpdateCashbox(ctx context.Context, id int64, in repository.UpdateCashboxInput) (*domain.Cashbox, error)
	DeleteCashbox(ctx context.Context, id int64) (int64, error)
	Payments(ctx context.Context, f repository.PaymentFilter) ([]domain.Payment, error)
	CreatePayment(ctx context.Context, in repository.CreatePaymentInput) (*domain.Payment, error)
	ExpenseGroups(ctx context.Context) ([]domain.ExpenseGroup, error)
	CreateExpenseGroup(ctx context.Context, name, description string) (*domain.ExpenseGroup, error)
	UpdateExpenseGroup(ctx context.Context, id int64, in repository.UpdateExpenseGroupInput) (*domain.ExpenseGroup, error)
	Expenses(ctx context.Context) ([]domain.Expense, error)
	CreateExpense(ctx context.Context, in repository.CreateExpenseInput) (*domain.Expense, error)
	Dashboard(ctx context.Context) (*repository.FinanceDashboard, error)
}

type FinanceHandler struct {
	Store FinanceStore
}

func (h FinanceHandler) RegisterRoutes(r chi.Router) {
	r.Get("/finance", h.get)
	r.Post("/finance", h.dispatch)
}

func (h FinanceHandler) get(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	section := q.Get("section")
	if section == "" {
		section = "dashboard"
	}
	switch section {
	case "dashboard":
		h.dashboard(w, r)
	case "cashboxes":
		h.listCashboxes(w, r)
	case "payments":
		h.listPayments(w, r)
	case "expenses":
		h.listExpenses(w, r)
	case "expense_groups":
		h.listExpenseGroups(w, r)
	default:
		writeError(w, http.StatusBadRequest, "Unknown section")
	}
}

func (h FinanceHandler) dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.Store.Dashboard(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	cashboxes := make([]map[string]any, 0, len(d.Cashboxes))
	for _, cb := range d.Cashboxes {
		cashboxes = append(cashboxes, map[string]any{
			"id":             cb.ID,
			"name":           cb.Name,
			"type":           string(cb.Type),
			"is_active":      cb.Active,
			"balance":        cb.Balance,
			"total_received": cb.TotalReceived,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total_revenue":      d.TotalRevenue,
		"month_revenue":      d.MonthRevenue,
		"today_revenue":      d.TodayRevenue,
		"prev_month_revenue": d.PrevMonthRevenue,
		"total_payments":     d.TotalPayments,
		"total_expenses":     d.TotalExpenses,
		"month_expenses":     d.MonthExpenses,
		"completed_orders":   d.CompletedOrders,
		"total_works":        d.TotalWorks,
		"total_parts":        d.TotalParts,
		"by_method":          d.ByMethod,
		"cashboxes":          cashboxes,
	})
}

func (h FinanceHandler) listCashboxes(w http.ResponseWriter, r *http.Request) {
	items, err := h.Store.Cashboxes(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]map[string]any, 0, len(items))
	for _, c := range items {
		out = append(out, cashboxJSON(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{"cashboxes": out})
}

func (h FinanceHandler) listPayments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f repository.PaymentFilter
	if v := q.Get("work_order_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			f.WorkOrderID = &id
		}
	}
	if v := q.Get("cashbox_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			f.CashboxID = &id
		}
	}
	from, err := parseDateQuery(r, "date_from")
	if err != nil {
		writeError(w, http.StatusBadRequest, "date_from must be YYYY-MM-DD")
		return
	}
	to, err := parseDateQuery(r, "date_to")
	if err != nil {
		writeError(w, http.StatusBadRequest, "date_to must be YYYY-MM-DD")
		return
	}
	if from != nil {
		f.DateFrom = from.Format(dateLayout)
	}
	if to != nil {
		f.DateTo = to.Format(dateLayout)
	}

	items, err := h.Store.Payments(r.Context(), f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]map[string]any, 0, len(items))
	for _, p := range items {
		out = append(out, map[string]any{
			"id":                p.ID,
			"work_order_id":     p.WorkOrderID,
			"work_order_number": p.WorkOrderNumber,
			"cashbox_id":        p.CashboxID,
			"cashbox_name":      p.CashboxName,
			"cashbox_type":      string(p.CashboxType),
			"client_name":       p.ClientName,
			"amount":            p.Amount,
			"payment_method":    string(p.Method),
			"comment":           p.Comment,
			"created_at":        p.CreatedAt.String(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"payments": out})
}

func (h FinanceHandler) listExpenses(w http.ResponseWriter, r *http.Request) {
	items, err := h.Store.Expenses(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]map[string]any, 0, len(items))
	for _, e := range items {
		out = append(out, map[string]any{
			"id":               e.ID,
			"expense_group_id": e.ExpenseGroupID,
			"group_name":       e.GroupName,
			"cashbox_id":       e.CashboxID,
			"cashbox_name":     e.CashboxName,
			"amount":           e.Amount,
			"comment":          e.Comment,
			"created_at":       e.CreatedAt.String(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"expenses": out})
}

func (h FinanceHandler) listExpenseGroups(w http.ResponseWriter, r *http.Request) {
	items, err := h.Store.ExpenseGroups(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]map[string]any, 0, len(items))
	for _, g := range items {
		out = append(out, expenseGroupJSON(g))
	}
	writeJSON(w, http.StatusOK, map[string]any{"expense_groups": out})
}

type financeRequest struct {
	Action         string   `json:"action"`
	CashboxID      int64    `json:"cashbox_id"`
	WorkOrderID    int64    `json:"work_order_id"`
	ExpenseGroupID *int64   `json:"expense_group_id"`
	GroupID        int64    `json:"group_id"`
	Amount         float64  `json:"amount"`
	PaymentMethod  string   `json:"payment_method"`
	Comment        string   `json:"comment"`
	Name           *string  `json:"name"`
	Type           *string  `json:"type"`
	Description    *string  `json:"description"`
	Active         *bool    `json:"is_active"`
}

func (h FinanceHandler) dispatch(w http.ResponseWriter, r *http.Request) {
	var req financeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	switch req.Action {
	case "create_payment":
		h.createPayment(w, r, req)
	case "create_cashbox":
		h.createCashbox(w, r, req)
	case "update_cashbox":
		h.updateCashbox(w, r, req)
	case "delete_cashbox":
		h.deleteCashbox(w, r, req)
	case "create_expense":
		h.createExpense(w, r, req)
	case "create_expense_group":
		h.createExpenseGroup(w, r, req)
	case "update_expense_group":
		h.updateExpenseGroup(w, r, req)
	default:
		writeError(w, http.StatusBadRequest, "Unknown action")
	}
}

func (h FinanceHandler) createPayment(w http.ResponseWriter, r *http.Request, req financeRequest) {
	if req.WorkOrderID == 0 || req.CashboxID == 0 || req.Amount == 0 {
		writeError(w, http.StatusBadRequest, "work_order_id, cashbox_id and amount are required")
		return
	}
	method := domain.PaymentMethod(req.PaymentMethod)
	if req.PaymentMethod == "" {
		method = domain.PayCash
	}
	if !domain.ValidPaymentMethod(method) {
		writeError(w, http.StatusBadRequest, "Invalid payment method")
		return
	}
	p, err := h.Store.CreatePayment(r.Context(), repository.CreatePaymentInput{
		WorkOrderID: req.WorkOrderID,
		CashboxID:   req.CashboxID,
		Amount:      req.Amount,
		Method:      method,
		Comment:     req.Comment,
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Cashbox not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"payment": map[string]any{
		"id":             p.ID,
		"work_order_id":  p.WorkOrderID,
		"cashbox_id":     p.CashboxID,
		"amount":         p.Amount,
		"payment_method": string(p.Method),
		"comment":        p.Comment,
		"created_at":     p.CreatedAt.String(),
	}})
}

func (h FinanceHandler) createCashbox(w http.ResponseWriter, r *http.Request, req financeRequest) {
	name := strings.TrimSpace(strDeref(req.Name))
	if name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	typ := domain.CashboxType(strDeref(req.Type))
	if typ == "" {
		typ = domain.CashboxCash
	}
	if !domain.ValidCashboxType(typ) {
		writeError(w, http.StatusBadRequest, "Invalid cashbox type")
		return
	}
	c, err := h.Store.CreateCashbox(r.Context(), name, typ)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"cashbox": cashboxJSON(*c)})
}

func (h FinanceHandler) updateCashbox(w http.ResponseWriter, r *http.Request, req financeRequest) {
	if req.CashboxID == 0 {
		writeError(w, http.StatusBadRequest, "cashbox_id is required")
		return
	}
	var in repository.UpdateCashboxInput
	if req.Name != nil {
		if s := strings.TrimSpace(*req.Name); s != "" {
			in.Name = &s
		}
	}
	if req.Type != nil {
		typ := domain.CashboxType(*req.Type)
		if !domain.ValidCashboxType(typ) {
			writeError(w, http.StatusBadRequest, "Invalid type")
			return
		}
		in.Type = &typ
	}
	in.Active = req.Active
	if in.Empty() {
		writeError(w, http.StatusBadRequest, "Nothing to update")
		return
	}
	c, err := h.Store.UpdateCashbox(r.Context(), req.CashboxID, in)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Cashbox not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cashbox": cashboxJSON(*c)})
}

func (h FinanceHandler) deleteCashbox(w http.ResponseWriter, r *http.Request, req financeRequest) {
	if req.CashboxID == 0 {
		writeError(w, http.StatusBadRequest, "cashbox_id is required")
		return
	}
	cnt, err := h.Store.DeleteCashbox(r.Context(), req.CashboxID)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Нельзя удалить кассу — есть %d платежей", cnt))
			return
		}
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Cashbox not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h FinanceHandler) createExpense(w http.ResponseWriter, r *http.Request, req financeRequest) {
	if req.CashboxID == 0 || req.Amount == 0 {
		writeError(w, http.StatusBadRequest, "cashbox_id and amount are required")
		return
	}
	e, err := h.Store.CreateExpense(r.Context(), repository.CreateExpenseInput{
		ExpenseGroupID: req.ExpenseGroupID,
		CashboxID:      req.CashboxID,
		Amount:         req.Amount,
		Comment:        req.Comment,
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Cashbox not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"expense": map[string]any{
		"id":               e.ID,
		"expense_group_id": e.ExpenseGroupID,
		"cashbox_id":       e.CashboxID,
		"amount":           e.Amount,
		"comment":          e.Comment,
		"created_at":       e.CreatedAt.String(),
	}})
}

func (h FinanceHandler) createExpenseGroup(w http.ResponseWriter, r *http.Request, req financeRequest) {
	name := strings.TrimSpace(strDeref(req.Name))
	if name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	g, err := h.Store.CreateExpenseGroup(r.Context(), name, strings.TrimSpace(strDeref(req.Description)))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"expense_group": expenseGroupJSON(*g)})
}

func (h FinanceHandler) updateExpenseGroup(w http.ResponseWriter, r *http.Request, req financeRequest) {
	if req.GroupID == 0 {
		writeError(w, http.StatusBadRequest, "group_id is required")
		return
	}
	var in repository.UpdateExpenseGroupInput
	if req.Name != nil {
		if s := strings.TrimSpace(*req.Name); s != "" {
			in.Name = &s
		}
	}
	if req.Description != nil {
		s := strings.TrimSpace(*req.Description)
		in.Description = &s
	}
	in.Active = req.Active
	if in.Empty() {
		writeError(w, http.StatusBadRequest, "Nothing to update")
		return
	}
	g, err := h.Store.UpdateExpenseGroup(r.Context(), req.GroupID, in)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Expense group not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"expense_group": expenseGroupJSON(*g)})
}

func cashboxJSON(c domain.Cashbox) map[string]any {
	return map[string]any{
		"id":         c.ID,
		"name":       c.Name,
		"type":       string(c.Type),
		"balance":    c.Balance,
		"is_active":  c.Active,
		"created_at": c.CreatedAt.String(),
	}
}

func expenseGroupJSON(g domain.ExpenseGroup) map[string]any {
	return map[string]any{
		"id":          g.ID,
		"name":        g.Name,
		"description": g.Description,
		"is_active":   g.Active,
		"created_at":  g.CreatedAt.String(),
	}
}
