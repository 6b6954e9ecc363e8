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

// ClientStore is the persistence surface the client handler needs.
type ClientStore interface {
	List(ctx context.Context) ([]domain.Client, error)
	Create(ctx context.Context, c domain.Client) (*domain.Client, error)
	Update(ctx context.Context, id int64, in repository.UpdateClientInput) (*domain.Client, error)
	AddCar(ctx context.Context, car domain.Car) (*domain.Car, error)
	DeleteCar(ctx context.Context, carID int64) error
}

type ClientHandler struct {
	Store ClientStore
}

func (h ClientHandler) RegisterRoutes(r chi.Router) {
	r.Get("/clients", h.list)
	r.Post("/clients", h.dispatch)
}

type clientRequest struct {
	Action   string  `json:"action"`
	ClientID int64   `json:"client_id"`
	CarID    int64   `json:"car_id"`
	Name     *string `json:"name"`
	Phone    *string `json:"phone"`
	Email    *string `json:"email"`
	Comment  *string `json:"comment"`
	Brand    string  `json:"brand"`
	Model    string  `json:"model"`
	Year     string  `json:"year"`
	VIN      string  `json:"vin"`
}

func (h ClientHandler) list(w http.ResponseWriter, r *http.Request) {
	clients, err := h.Store.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]map[string]any, 0, len(clients))
	for _, c := range clients {
		out = append(out, clientJSON(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{"clients": out})
}

func (h ClientHandler) dispatch(w http.ResponseWriter, r *http.Request) {
	var req clientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	switch req.Action {
	case "create_client":
		h.createClient(w, r, req)
	case "update_client":
		h.updateClient(w, r, req)
	case "add_car":
		h.addCar(w, r, req)
	case "delete_car":
		h.deleteCar(w, r, req)
	default:
		writeError(w, http.StatusBadRequest, "Unknown action")
	}
}

func (h ClientHandler) createClient(w http.ResponseWriter, r *http.Request, req clientRequest) {
	name := strings.TrimSpace(strDeref(req.Name))
	phone := strings.TrimSpace(strDeref(req.Phone))
	if name == "" || phone == "" {
		writeError(w, http.StatusBadRequest, "name and phone are required")
		return
	}
	c, err := h.Store.Create(r.Context(), domain.Client{
		Name:    name,
		Phone:   domain.NormalizePhone(phone),
		Email:   strings.TrimSpace(strDeref(req.Email)),
		Comment: strings.TrimSpace(strDeref(req.Comment)),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"client": clientJSON(*c)})
}

func (h ClientHandler) updateClient(w http.ResponseWriter, r *http.Request, req clientRequest) {
	if req.ClientID == 0 {
		writeError(w, http.StatusBadRequest, "client_id is required")
		return
	}
	var in repository.UpdateClientInput
	if req.Name != nil {
		if s := strings.TrimSpace(*req.Name); s != "" {
			in.Name = &s
		}
	}
	if req.Phone != nil {
		if s := strings.TrimSpace(*req.Phone); s != "" {
			s = domain.NormalizePhone(s)
			in.Phone = &s
		}
	}
	if req.Email != nil {
		s := strings.TrimSpace(*req.Email)
		in.Email = &s
	}
	if req.Comment != nil {
		s := strings.TrimSpace(*req.Comment)
		in.Comment = &s
	}
	if in.Empty() {
		writeError(w, http.StatusBadRequest, "Nothing to update")
		return
	}
	c, err := h.Store.Update(r.Context(), req.ClientID, in)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Client not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"client": clientJSON(*c)})
}

func (h ClientHandler) addCar(w http.ResponseWriter, r *http.Request, req clientRequest) {
	brand := strings.TrimSpace(req.Brand)
	model := strings.TrimSpace(req.Model)
	vin := strings.ToUpper(strings.TrimSpace(req.VIN))
	if req.ClientID == 0 || brand == "" || model == "" {
		writeError(w, http.StatusBadRequest, "client_id, brand and model are required")
		return
	}
	if vin != "" && len(vin) != 17 {
		writeError(w, http.StatusBadRequest, "VIN must be exactly 17 characters")
		return
	}
	car, err := h.Store.AddCar(r.Context(), domain.Car{
		ClientID: req.ClientID,
		Brand:    brand,
		Model:    model,
		Year:     strings.TrimSpace(req.Year),
		VIN:      vin,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"car": carJSON(*car)})
}

func (h ClientHandler) deleteCar(w http.ResponseWriter, r *http.Request, req clientRequest) {
	if req.CarID == 0 {
		writeError(w, http.StatusBadRequest, "car_id is required")
		return
	}
	if err := h.Store.DeleteCar(r.Context(), req.CarID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Car not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func strDeref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func clientJSON(c domain.Client) map[string]any {
	cars := make([]map[string]any, 0, len(c.Cars))
	for _, car := range c.Cars {
		cars = append(cars, carJSON(car))
	}
	return map[string]any{
		"id":         c.ID,
		"name":       c.Name,
		"phone":      c.Phone,
		"email":      c.Email,
		"comment":    c.Comment,
		"created_at": c.CreatedAt.String(),
		"cars":       cars,
	}
}

func carJSON(car domain.Car) map[string]any {
	return map[string]any{
		"id":    car.ID,
		"brand": car.Brand,
		"model": car.Model,
		"year":  car.Year,
		"vin":   car.VIN,
	}
}
