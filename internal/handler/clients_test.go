package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"smartline-backend/internal/domain"
	"smartline-backend/internal/repository"

	"github.com/go-chi/chi/v5"
)

type fakeClientStore struct {
	clients []domain.Client
	cars    []domain.Car
	nextID  int64
}

func (s *fakeClientStore) List(ctx context.Context) ([]domain.Client, error) {
	out := make([]domain.Client, len(s.clients))
	copy(out, s.clients)
	for i := range out {
		for _, car := range s.cars {
			if car.ClientID == out[i].ID && car.Active {
				out[i].Cars = append(out[i].Cars, car)
			}
		}
	}
	return out, nil
}

func (s *fakeClientStore) Create(ctx context.Context, c domain.Client) (*domain.Client, error) {
	s.nextID++
	c.ID = s.nextID
	c.CreatedAt = time.Now()
	c.Cars = []domain.Car{}
	s.clients = append(s.clients, c)
	return &c, nil
}

func (s *fakeClientStore) Update(ctx context.Context, id int64, in repository.UpdateClientInput) (*domain.Client, error) {
	for i := range s.clients {
		if s.clients[i].ID == id {
			if in.Name != nil {
				s.clients[i].Name = *in.Name
			}
			if in.Phone != nil {
				s.clients[i].Phone = *in.Phone
			}
			if in.Email != nil {
				s.clients[i].Email = *in.Email
			}
			if in.Comment != nil {
				s.clients[i].Comment = *in.Comment
			}
			c := s.clients[i]
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *fakeClientStore) AddCar(ctx context.Context, car domain.Car) (*domain.Car, error) {
	s.nextID++
	car.ID = s.nextID
	car.Active = true
	s.cars = append(s.cars, car)
	return &car, nil
}

func (s *fakeClientStore) DeleteCar(ctx context.Context, carID int64) error {
	for i := range s.cars {
		if s.cars[i].ID == carID {
			s.cars[i].Active = false
			return nil
		}
	}
	return repository.ErrNotFound
}

func newClientRouter(store ClientStore) http.Handler {
	r := chi.NewRouter()
	ClientHandler{Store: store}.RegisterRoutes(r)
	return r
}

func postJSON(t *testing.T, h http.Handler, path string, payload map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return out
}

func TestCreateClient(t *testing.T) {
	h := newClientRouter(&fakeClientStore{})

	rec := postJSON(t, h, "/clients", map[string]any{
		"action": "create_client",
		"name":   "  Иван Петров ",
		"phone":  "89261234567",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	client, ok := body["client"].(map[string]any)
	if !ok {
		t.Fatalf("expected client object, got %v", body)
	}
	if client["name"] != "Иван Петров" {
		t.Errorf("name not trimmed: %q", client["name"])
	}
	if client["phone"] != "+7 (926) 123-45-67" {
		t.Errorf("phone not normalized: %q", client["phone"])
	}
	if cars, ok := client["cars"].([]any); !ok || len(cars) != 0 {
		t.Errorf("expected empty cars array, got %v", client["cars"])
	}
}

func TestCreateClientValidation(t *testing.T) {
	h := newClientRouter(&fakeClientStore{})

	rec := postJSON(t, h, "/clients", map[string]any{
		"action": "create_client",
		"name":   "Иван",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if decodeBody(t, rec)["error"] != "name and phone are required" {
		t.Errorf("unexpected error body: %s", rec.Body.String())
	}
}

func TestAddCarVINValidation(t *testing.T) {
	store := &fakeClientStore{}
	h := newClientRouter(store)

	rec := postJSON(t, h, "/clients", map[string]any{
		"action":    "add_car",
		"client_id": 1,
		"brand":     "Toyota",
		"model":     "Camry",
		"vin":       "short",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for short VIN, got %d", rec.Code)
	}

	rec = postJSON(t, h, "/clients", map[string]any{
		"action":    "add_car",
		"client_id": 1,
		"brand":     "Toyota",
		"model":     "Camry",
		"vin":       "jtdbt923771012345",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	car := decodeBody(t, rec)["car"].(map[string]any)
	if car["vin"] != "JTDBT923771012345" {
		t.Errorf("VIN not uppercased: %q", car["vin"])
	}
}

func TestDeleteCarSoftHidesFromList(t *testing.T) {
	store := &fakeClientStore{}
	h := newClientRouter(store)

	postJSON(t, h, "/clients", map[string]any{"action": "create_client", "name": "A", "phone": "1"})
	rec := postJSON(t, h, "/clients", map[string]any{
		"action": "add_car", "client_id": 1, "brand": "Lada", "model": "Vesta",
	})
	car := decodeBody(t, rec)["car"].(map[string]any)

	rec = postJSON(t, h, "/clients", map[string]any{"action": "delete_car", "car_id": car["id"]})
	if rec.Code != http.StatusOK {
		t.Fatalf("delete_car: expected 200, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/clients", nil)
	list := httptest.NewRecorder()
	h.ServeHTTP(list, req)
	body := decodeBody(t, list)
	clients := body["clients"].([]any)
	if len(clients) != 1 {
		t.Fatalf("expected 1 client, got %d", len(clients))
	}
	cars := clients[0].(map[string]any)["cars"].([]any)
	if len(cars) != 0 {
		t.Errorf("deleted car still listed: %v", cars)
	}
}

func TestClientUnknownAction(t *testing.T) {
	h := newClientRouter(&fakeClientStore{})
	rec := postJSON(t, h, "/clients", map[string]any{"action": "explode"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if decodeBody(t, rec)["error"] != "Unknown action" {
		t.Errorf("unexpected error body: %s", rec.Body.String())
	}
}

func TestUpdateClientNotFound(t *testing.T) {
	h := newClientRouter(&fakeClientStore{})
	rec := postJSON(t, h, "/clients", map[string]any{
		"action": "update_client", "client_id": 42, "name": "Новое имя",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
