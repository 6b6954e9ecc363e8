package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"smartline-backend/internal/domain"
	"smartline-backend/internal/repository"

	"github.com/go-chi/chi/v5"
)

type fakeProductStore struct {
	products []domain.Product
	nextID   int64
}

func (s *fakeProductStore) List(ctx context.Context, f repository.ProductFilter) ([]domain.Product, error) {
	var out []domain.Product
	for _, p := range s.products {
		if f.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.Search)) &&
			!strings.Contains(strings.ToLower(p.SKU), strings.ToLower(f.Search)) {
			continue
		}
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if f.LowStock && p.Quantity > p.MinQuantity {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *fakeProductStore) Get(ctx context.Context, id int64) (*domain.Product, error) {
	for _, p := range s.products {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *fakeProductStore) Create(ctx context.Context, p domain.Product) (*domain.Product, error) {
	for _, existing := range s.products {
		if existing.SKU == p.SKU {
			return nil, repository.ErrConflict
		}
	}
	s.nextID++
	p.ID = s.nextID
	p.Active = true
	s.products = append(s.products, p)
	return &p, nil
}

func (s *fakeProductStore) Update(ctx context.Context, id int64, in repository.UpdateProductInput) (*domain.Product, error) {
	for i := range s.products {
		if s.products[i].ID == id {
			if in.Name != nil {
				s.products[i].Name = *in.Name
			}
			if in.Quantity != nil {
				s.products[i].Quantity = *in.Quantity
			}
			if in.Active != nil {
				s.products[i].Active = *in.Active
			}
			p := s.products[i]
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *fakeProductStore) Categories(ctx context.Context) ([]repository.ProductCategory, error) {
	counts := map[string]int64{}
	for _, p := range s.products {
		if p.Category != "" {
			counts[p.Category]++
		}
	}
	var out []repository.ProductCategory
	for name, n := range counts {
		out = append(out, repository.ProductCategory{Name: name, Count: n})
	}
	return out, nil
}

func (s *fakeProductStore) Dashboard(ctx context.Context) (repository.WarehouseSummary, error) {
	sum := repository.WarehouseSummary{TotalProducts: int64(len(s.products))}
	for _, p := range s.products {
		sum.TotalQuantity += int64(p.Quantity)
		sum.TotalValue += p.PurchasePrice * float64(p.Quantity)
		if p.Quantity <= p.MinQuantity {
			sum.LowStock++
		}
	}
	return sum, nil
}

type fakeSupplierStore struct{ suppliers []domain.Supplier }

func (s *fakeSupplierStore) List(ctx context.Context) ([]domain.Supplier, error) {
	return s.suppliers, nil
}

func (s *fakeSupplierStore) Create(ctx context.Context, sup domain.Supplier) (*domain.Supplier, error) {
	sup.ID = int64(len(s.suppliers) + 1)
	sup.Active = true
	s.suppliers = append(s.suppliers, sup)
	return &sup, nil
}

func (s *fakeSupplierStore) Update(ctx context.Context, id int64, in repository.UpdateSupplierInput) (*domain.Supplier, error) {
	for i := range s.suppliers {
		if s.suppliers[i].ID == id {
			if in.Name != nil {
				s.suppliers[i].Name = *in.Name
			}
			sup := s.suppliers[i]
			return &sup, nil
		}
	}
	return nil, repository.ErrNotFound
}

type fakeReceiptStore struct{ receipts []domain.StockReceipt }

func (s *fakeReceiptStore) List(ctx context.Context) ([]domain.StockReceipt, error) {
	return s.receipts, nil
}

func (s *fakeReceiptStore) Get(ctx context.Context, id int64) (*domain.StockReceipt, error) {
	for _, rc := range s.receipts {
		if rc.ID == id {
			return &rc, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *fakeReceiptStore) Create(ctx context.Context, in repository.CreateReceiptInput) (*domain.StockReceipt, error) {
	id := int64(len(s.receipts) + 1)
	rc := domain.StockReceipt{
		ID:             id,
		ReceiptNumber:  domain.ReceiptNumber(id),
		SupplierID:     in.SupplierID,
		DocumentNumber: in.DocumentNumber,
		Notes:          in.Notes,
	}
	for _, it := range in.Items {
		rc.TotalAmount += float64(it.Quantity) * it.Price
		if it.ProductID == 0 || it.Quantity <= 0 {
			continue
		}
		rc.ItemCount++
	}
	s.receipts = append(s.receipts, rc)
	return &rc, nil
}

func newWarehouseRouter(p ProductStore, s SupplierStore, rc ReceiptStore) http.Handler {
	r := chi.NewRouter()
	WarehouseHandler{Products: p, Suppliers: s, Receipts: rc}.RegisterRoutes(r)
	return r
}

func getPath(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestWarehouseDashboardDefaultSection(t *testing.T) {
	products := &fakeProductStore{products: []domain.Product{
		{ID: 1, SKU: "A-1", Name: "Сигнализация", Quantity: 10, MinQuantity: 2, PurchasePrice: 100},
		{ID: 2, SKU: "A-2", Name: "Брелок", Quantity: 1, MinQuantity: 3, PurchasePrice: 50},
	}}
	h := newWarehouseRouter(products, &fakeSupplierStore{}, &fakeReceiptStore{})

	rec := getPath(t, h, "/warehouse")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["total_products"].(float64) != 2 {
		t.Errorf("total_products = %v", body["total_products"])
	}
	if body["low_stock"].(float64) != 1 {
		t.Errorf("low_stock = %v", body["low_stock"])
	}
	if body["total_value"].(float64) != 1050 {
		t.Errorf("total_value = %v", body["total_value"])
	}
}

func TestWarehouseProductFilters(t *testing.T) {
	products := &fakeProductStore{products: []domain.Product{
		{ID: 1, SKU: "SIG-1", Name: "StarLine A93", Category: "Сигнализации", Quantity: 5, MinQuantity: 1},
		{ID: 2, SKU: "CAM-1", Name: "Камера заднего вида", Category: "Камеры", Quantity: 0, MinQuantity: 1},
	}}
	h := newWarehouseRouter(products, &fakeSupplierStore{}, &fakeReceiptStore{})

	rec := getPath(t, h, "/warehouse?section=products&search=starline")
	list := decodeBody(t, rec)["products"].([]any)
	if len(list) != 1 {
		t.Fatalf("search: expected 1 product, got %d", len(list))
	}

	rec = getPath(t, h, "/warehouse?section=products&low_stock=1")
	list = decodeBody(t, rec)["products"].([]any)
	if len(list) != 1 || list[0].(map[string]any)["sku"] != "CAM-1" {
		t.Fatalf("low_stock filter wrong: %v", list)
	}
}

func TestWarehouseUnknownSection(t *testing.T) {
	h := newWarehouseRouter(&fakeProductStore{}, &fakeSupplierStore{}, &fakeReceiptStore{})
	rec := getPath(t, h, "/warehouse?section=nope")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if decodeBody(t, rec)["error"] != "Unknown section" {
		t.Errorf("unexpected error body: %s", rec.Body.String())
	}
}

func TestCreateProduct(t *testing.T) {
	h := newWarehouseRouter(&fakeProductStore{}, &fakeSupplierStore{}, &fakeReceiptStore{})

	rec := postJSON(t, h, "/warehouse", map[string]any{
		"action": "create_product", "sku": "SIG-1", "name": "StarLine A93",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	p := decodeBody(t, rec)["product"].(map[string]any)
	if p["unit"] != "шт" {
		t.Errorf("unit default = %q, want шт", p["unit"])
	}

	// same SKU again
	rec = postJSON(t, h, "/warehouse", map[string]any{
		"action": "create_product", "sku": "SIG-1", "name": "Другой товар",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on duplicate SKU, got %d", rec.Code)
	}
	if decodeBody(t, rec)["error"] != "Товар с артикулом SIG-1 уже существует" {
		t.Errorf("unexpected error body: %s", rec.Body.String())
	}
}

func TestCreateReceipt(t *testing.T) {
	h := newWarehouseRouter(&fakeProductStore{}, &fakeSupplierStore{}, &fakeReceiptStore{})

	rec := postJSON(t, h, "/warehouse", map[string]any{
		"action": "create_receipt",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without items, got %d", rec.Code)
	}

	rec = postJSON(t, h, "/warehouse", map[string]any{
		"action": "create_receipt",
		"items": []map[string]any{
			{"product_id": 1, "quantity": 3, "price": 100},
			{"product_id": 2, "quantity": 2, "price": 250},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	receipt := decodeBody(t, rec)["receipt"].(map[string]any)
	if receipt["receipt_number"] != "ПН-0001" {
		t.Errorf("receipt_number = %q", receipt["receipt_number"])
	}
	if receipt["total_amount"].(float64) != 800 {
		t.Errorf("total_amount = %v, want 800", receipt["total_amount"])
	}
}
