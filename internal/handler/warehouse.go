package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"smartline-backend/internal/domain"
	"smartline-backend/internal/repository"

	"github.com/go-chi/chi/v5"
)

type ProductStore interface {
	List(ctx context.Context, f repository.ProductFilter) ([]domain.Product, error)
	Get(ctx context.Context, id int64) (*domain.Product, error)
	Create(ctx context.Context, p domain.Product) (*domain.Product, error)
	Update(ctx context.Context, id int64, in repository.UpdateProductInput) (*domain.Product, error)
	Categories(ctx context.Context) ([]repository.ProductCategory, error)
	Dashboard(ctx context.Context) (repository.WarehouseSummary, error)
}

type SupplierStore interface {
	List(ctx context.Context) ([]domain.Supplier, error)
	Create(ctx context.Context, s domain.Supplier) (*domain.Supplier, error)
	Update(ctx context.Context, id int64, in repository.UpdateSupplierInput) (*domain.Supplier, error)
}

type ReceiptStore interface {
	List(ctx context.Context) ([]domain.StockReceipt, error)
	Get(ctx context.Context, id int64) (*domain.StockReceipt, error)
	Create(ctx context.Context, in repository.CreateReceiptInput) (*domain.StockReceipt, error)
}

// WarehouseHandler serves stock: products, suppliers and incoming receipts.
type WarehouseHandler struct {
	Products  ProductStore
	Suppliers SupplierStore
	Receipts  ReceiptStore
}

func (h WarehouseHandler) RegisterRoutes(r chi.Router) {
	r.Get("/warehouse", h.get)
	r.Post("/warehouse", h.dispatch)
}

func (h WarehouseHandler) get(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	section := q.Get("section")
	if section == "" {
		section = "dashboard"
	}
	switch section {
	case "dashboard":
		h.dashboard(w, r)
	case "products":
		h.listProducts(w, r)
	case "product":
		h.getProduct(w, r, q.Get("id"))
	case "suppliers":
		h.listSuppliers(w, r)
	case "receipts":
		h.listReceipts(w, r)
	case "receipt":
		h.getReceipt(w, r, q.Get("id"))
	case "categories":
		h.listCategories(w, r)
	default:
		writeError(w, http.StatusBadRequest, "Unknown section")
	}
}

func (h WarehouseHandler) dashboard(w http.ResponseWriter, r *http.Request) {
	s, err := h.Products.Dashboard(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total_products":  s.TotalProducts,
		"total_quantity":  s.TotalQuantity,
		"total_value":     s.TotalValue,
		"low_stock":       s.LowStock,
		"total_suppliers": s.TotalSuppliers,
		"total_receipts":  s.TotalReceipts,
	})
}

func (h WarehouseHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, err := h.Products.List(r.Context(), repository.ProductFilter{
		Search:   q.Get("search"),
		Category: q.Get("category"),
		LowStock: q.Get("low_stock") == "1",
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]map[string]any, 0, len(items))
	for _, p := range items {
		out = append(out, productJSON(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": out})
}

func (h WarehouseHandler) getProduct(w http.ResponseWriter, r *http.Request, idStr string) {
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id == 0 {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	p, err := h.Products.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Product not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"product": productJSON(*p)})
}

func (h WarehouseHandler) listSuppliers(w http.ResponseWriter, r *http.Request) {
	items, err := h.Suppliers.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]map[string]any, 0, len(items))
	for _, s := range items {
		out = append(out, supplierJSON(s))
	}
	writeJSON(w, http.StatusOK, map[string]any{"suppliers": out})
}

func (h WarehouseHandler) listReceipts(w http.ResponseWriter, r *http.Request) {
	items, err := h.Receipts.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]map[string]any, 0, len(items))
	for _, rc := range items {
		out = append(out, receiptJSON(rc, false))
	}
	writeJSON(w, http.StatusOK, map[string]any{"receipts": out})
}

func (h WarehouseHandler) getReceipt(w http.ResponseWriter, r *http.Request, idStr string) {
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id == 0 {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	rc, err := h.Receipts.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Receipt not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"receipt": receiptJSON(*rc, true)})
}

func (h WarehouseHandler) listCategories(w http.ResponseWriter, r *http.Request) {
	items, err := h.Products.Categories(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]map[string]any, 0, len(items))
	for _, c := range items {
		out = append(out, map[string]any{"category": c.Name, "count": c.Count})
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": out})
}

type warehouseRequest struct {
	Action     string `json:"action"`
	ProductID  int64  `json:"product_id"`
	SupplierID int64  `json:"supplier_id"`

	SKU           *string  `json:"sku"`
	Name          *string  `json:"name"`
	Description   *string  `json:"description"`
	Category      *string  `json:"category"`
	Unit          *string  `json:"unit"`
	PurchasePrice *float64 `json:"purchase_price"`
	Quantity      *int     `json:"quantity"`
	MinQuantity   *int     `json:"min_quantity"`
	Active        *bool    `json:"is_active"`

	ContactPerson *string `json:"contact_person"`
	Phone         *string `json:"phone"`
	Email         *string `json:"email"`
	INN           *string `json:"inn"`
	Address       *string `json:"address"`
	Notes         *string `json:"notes"`

	DocumentNumber string  `json:"document_number"`
	DocumentDate   *string `json:"document_date"`
	Items          []struct {
		ProductID int64   `json:"product_id"`
		Quantity  int     `json:"quantity"`
		Price     float64 `json:"price"`
	} `json:"items"`
}

func (h WarehouseHandler) dispatch(w http.ResponseWriter, r *http.Request) {
	var req warehouseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	switch req.Action {
	case "create_product":
		h.createProduct(w, r, req)
	case "update_product":
		h.updateProduct(w, r, req)
	case "create_supplier":
		h.createSupplier(w, r, req)
	case "update_supplier":
		h.updateSupplier(w, r, req)
	case "create_receipt":
		h.createReceipt(w, r, req)
	default:
		writeError(w, http.StatusBadRequest, "Unknown action")
	}
}

func (h WarehouseHandler) createProduct(w http.ResponseWriter, r *http.Request, req warehouseRequest) {
	sku := strings.TrimSpace(strDeref(req.SKU))
	name := strings.TrimSpace(strDeref(req.Name))
	if sku == "" || name == "" {
		writeError(w, http.StatusBadRequest, "sku and name are required")
		return
	}
	unit := strings.TrimSpace(strDeref(req.Unit))
	if unit == "" {
		unit = "шт"
	}
	p := domain.Product{
		SKU:         sku,
		Name:        name,
		Description: strings.TrimSpace(strDeref(req.Description)),
		Category:    strings.TrimSpace(strDeref(req.Category)),
		Unit:        unit,
	}
	if req.PurchasePrice != nil {
		p.PurchasePrice = *req.PurchasePrice
	}
	if req.Quantity != nil {
		p.Quantity = *req.Quantity
	}
	if req.MinQuantity != nil {
		p.MinQuantity = *req.MinQuantity
	}
	created, err := h.Products.Create(r.Context(), p)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			writeError(w, http.StatusBadRequest, "Товар с артикулом "+sku+" уже существует")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"product": productJSON(*created)})
}

func (h WarehouseHandler) updateProduct(w http.ResponseWriter, r *http.Request, req warehouseRequest) {
	if req.ProductID == 0 {
		writeError(w, http.StatusBadRequest, "product_id is required")
		return
	}
	var in repository.UpdateProductInput
	if req.SKU != nil {
		if s := strings.TrimSpace(*req.SKU); s != "" {
			in.SKU = &s
		}
	}
	if req.Name != nil {
		if s := strings.TrimSpace(*req.Name); s != "" {
			in.Name = &s
		}
	}
	if req.Description != nil {
		s := strings.TrimSpace(*req.Description)
		in.Description = &s
	}
	if req.Category != nil {
		s := strings.TrimSpace(*req.Category)
		in.Category = &s
	}
	if req.Unit != nil {
		s := strings.TrimSpace(*req.Unit)
		in.Unit = &s
	}
	in.PurchasePrice = req.PurchasePrice
	in.Quantity = req.Quantity
	in.MinQuantity = req.MinQuantity
	in.Active = req.Active
	if in.Empty() {
		writeError(w, http.StatusBadRequest, "Nothing to update")
		return
	}
	p, err := h.Products.Update(r.Context(), req.ProductID, in)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Product not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"product": productJSON(*p)})
}

func (h WarehouseHandler) createSupplier(w http.ResponseWriter, r *http.Request, req warehouseRequest) {
	name := strings.TrimSpace(strDeref(req.Name))
	if name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	s, err := h.Suppliers.Create(r.Context(), domain.Supplier{
		Name:          name,
		ContactPerson: strings.TrimSpace(strDeref(req.ContactPerson)),
		Phone:         strings.TrimSpace(strDeref(req.Phone)),
		Email:         strings.TrimSpace(strDeref(req.Email)),
		INN:           strings.TrimSpace(strDeref(req.INN)),
		Address:       strings.TrimSpace(strDeref(req.Address)),
		Notes:         strings.TrimSpace(strDeref(req.Notes)),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"supplier": supplierJSON(*s)})
}

func (h WarehouseHandler) updateSupplier(w http.ResponseWriter, r *http.Request, req warehouseRequest) {
	if req.SupplierID == 0 {
		writeError(w, http.StatusBadRequest, "supplier_id is required")
		return
	}
	var in repository.UpdateSupplierInput
	if req.Name != nil {
		if s := strings.TrimSpace(*req.Name); s != "" {
			in.Name = &s
		}
	}
	trimmed := func(v *string) *string {
		if v == nil {
			return nil
		}
		s := strings.TrimSpace(*v)
		return &s
	}
	in.ContactPerson = trimmed(req.ContactPerson)
	in.Phone = trimmed(req.Phone)
	in.Email = trimmed(req.Email)
	in.INN = trimmed(req.INN)
	in.Address = trimmed(req.Address)
	in.Notes = trimmed(req.Notes)
	in.Active = req.Active
	if in.Empty() {
		writeError(w, http.StatusBadRequest, "Nothing to update")
		return
	}
	s, err := h.Suppliers.Update(r.Context(), req.SupplierID, in)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Supplier not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"supplier": supplierJSON(*s)})
}

func (h WarehouseHandler) createReceipt(w http.ResponseWriter, r *http.Request, req warehouseRequest) {
	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "Items are required")
		return
	}
	in := repository.CreateReceiptInput{
		DocumentNumber: strings.TrimSpace(req.DocumentNumber),
		DocumentDate:   req.DocumentDate,
		Notes:          strDeref(req.Notes),
	}
	if req.SupplierID != 0 {
		in.SupplierID = &req.SupplierID
	}
	for _, it := range req.Items {
		in.Items = append(in.Items, repository.CreateReceiptItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     it.Price,
		})
	}
	rc, err := h.Receipts.Create(r.Context(), in)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"receipt": receiptJSON(*rc, false)})
}

func productJSON(p domain.Product) map[string]any {
	return map[string]any{
		"id":             p.ID,
		"sku":            p.SKU,
		"name":           p.Name,
		"description":    p.Description,
		"category":       p.Category,
		"unit":           p.Unit,
		"purchase_price": p.PurchasePrice,
		"quantity":       p.Quantity,
		"min_quantity":   p.MinQuantity,
		"is_active":      p.Active,
		"created_at":     p.CreatedAt.String(),
		"updated_at":     p.UpdatedAt.String(),
	}
}

func supplierJSON(s domain.Supplier) map[string]any {
	return map[string]any{
		"id":             s.ID,
		"name":           s.Name,
		"contact_person": s.ContactPerson,
		"phone":          s.Phone,
		"email":          s.Email,
		"inn":            s.INN,
		"address":        s.Address,
		"notes":          s.Notes,
		"is_active":      s.Active,
		"receipt_count":  s.ReceiptCount,
		"total_supplied": s.TotalSupplied,
	}
}

func receiptJSON(rc domain.StockReceipt, withItems bool) map[string]any {
	out := map[string]any{
		"id":              rc.ID,
		"receipt_number":  rc.ReceiptNumber,
		"supplier_id":     rc.SupplierID,
		"supplier_name":   rc.SupplierName,
		"document_number": rc.DocumentNumber,
		"total_amount":    rc.TotalAmount,
		"notes":           rc.Notes,
		"created_at":      rc.CreatedAt.String(),
		"item_count":      rc.ItemCount,
	}
	if rc.DocumentDate != nil {
		out["document_date"] = rc.DocumentDate.Format("2006-01-02")
	} else {
		out["document_date"] = nil
	}
	if withItems {
		items := make([]map[string]any, 0, len(rc.Items))
		for _, it := range rc.Items {
			items = append(items, map[string]any{
				"id":           it.ID,
				"product_id":   it.ProductID,
				"sku":          it.ProductSKU,
				"product_name": it.ProductName,
				"unit":         it.Unit,
				"quantity":     it.Quantity,
				"price":        it.Price,
			})
		}
		out["items"] = items
	}
	return out
}
