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

type EmployeeStore interface {
	List(ctx context.Context) ([]domain.Employee, error)
	Create(ctx context.Context, in repository.CreateEmployeeInput) (*domain.Employee, error)
	Update(ctx context.Context, id int64, in repository.UpdateEmployeeInput) (*domain.Employee, error)
	Delete(ctx context.Context, id int64) (*domain.Employee, bool, error)
}

type EmployeeHandler struct {
	Store EmployeeStore
}

func (h EmployeeHandler) RegisterRoutes(r chi.Router) {
	r.Get("/employees", h.list)
	r.Post("/employees", h.dispatch)
}

type employeeRequest struct {
	Action     string  `json:"action"`
	EmployeeID int64   `json:"employee_id"`
	Name       *string `json:"name"`
	Role       *string `json:"role"`
	Phone      *string `json:"phone"`
	Email      *string `json:"email"`
	Active     *bool   `json:"is_active"`
}

func (h EmployeeHandler) list(w http.ResponseWriter, r *http.Request) {
	items, err := h.Store.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]map[string]any, 0, len(items))
	for _, e := range items {
		out = append(out, employeeJSON(e))
	}
	roles := make([]map[string]string, 0, len(domain.EmployeeRoles))
	for _, role := range domain.EmployeeRoles {
		roles = append(roles, map[string]string{"value": string(role.Value), "label": role.Label})
	}
	writeJSON(w, http.StatusOK, map[string]any{"employees": out, "roles": roles})
}

func (h EmployeeHandler) dispatch(w http.ResponseWriter, r *http.Request) {
	var req employeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	action := req.Action
	if action == "" {
		action = "create"
	}
	switch action {
	case "create":
		h.create(w, r, req)
	case "update":
		h.update(w, r, req)
	case "delete":
		h.delete(w, r, req)
	default:
		writeError(w, http.StatusBadRequest, "Неизвестное действие: "+action)
	}
}

func (h EmployeeHandler) create(w http.ResponseWriter, r *http.Request, req employeeRequest) {
	name := strings.TrimSpace(strDeref(req.Name))
	if name == "" {
		writeError(w, http.StatusBadRequest, "Имя сотрудника обязательно")
		return
	}
	role := domain.EmployeeRole(strDeref(req.Role))
	if role == "" {
		role = domain.RoleMechanic
	}
	if !domain.ValidEmployeeRole(role) {
		writeError(w, http.StatusBadRequest, "Недопустимая роль")
		return
	}
	e, err := h.Store.Create(r.Context(), repository.CreateEmployeeInput{
		Name:  name,
		Role:  role,
		Phone: strings.TrimSpace(strDeref(req.Phone)),
		Email: strings.TrimSpace(strDeref(req.Email)),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"employee": employeeJSON(*e)})
}

func (h EmployeeHandler) update(w http.ResponseWriter, r *http.Request, req employeeRequest) {
	if req.EmployeeID == 0 {
		writeError(w, http.StatusBadRequest, "employee_id обязателен")
		return
	}
	var in repository.UpdateEmployeeInput
	if req.Name != nil {
		s := strings.TrimSpace(*req.Name)
		if s == "" {
			writeError(w, http.StatusBadRequest, "Имя не может быть пустым")
			return
		}
		in.Name = &s
	}
	if req.Role != nil {
		role := domain.EmployeeRole(*req.Role)
		if !domain.ValidEmployeeRole(role) {
			writeError(w, http.StatusBadRequest, "Недопустимая роль")
			return
		}
		in.Role = &role
	}
	if req.Phone != nil {
		s := strings.TrimSpace(*req.Phone)
		in.Phone = &s
	}
	if req.Email != nil {
		s := strings.TrimSpace(*req.Email)
		in.Email = &s
	}
	in.Active = req.Active
	if in.Empty() {
		writeError(w, http.StatusBadRequest, "Нечего обновлять")
		return
	}
	e, err := h.Store.Update(r.Context(), req.EmployeeID, in)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Сотрудник не найден")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"employee": employeeJSON(*e)})
}

func (h EmployeeHandler) delete(w http.ResponseWriter, r *http.Request, req employeeRequest) {
	if req.EmployeeID == 0 {
		writeError(w, http.StatusBadRequest, "employee_id обязателен")
		return
	}
	emp, deactivated, err := h.Store.Delete(r.Context(), req.EmployeeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Сотрудник не найден")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if deactivated {
		writeJSON(w, http.StatusOK, map[string]any{"employee": employeeJSON(*emp), "deactivated": true})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

func employeeJSON(e domain.Employee) map[string]any {
	return map[string]any{
		"id":         e.ID,
		"name":       e.Name,
		"role":       string(e.Role),
		"role_label": domain.RoleLabel(e.Role),
		"phone":      e.Phone,
		"email":      e.Email,
		"is_active":  e.Active,
		"created_at": e.CreatedAt.String(),
	}
}
