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

type WorkOrderStore interface {
	List(ctx context.Context) ([]domain.WorkOrder, error)
	Get(ctx context.Context, id int64) (*domain.WorkOrder, error)
	Create(ctx context.Context, in repository.CreateWorkOrderInput) (*domain.WorkOrder, error)
	Update(ctx context.Context, id int64, in repository.UpdateWorkOrderInput) (*domain.WorkOrder, error)
	AddWork(ctx context.Context, in repository.AddWorkInput) (*domain.WorkItem, error)
	UpdateWork(ctx context.Context, workID int64, in repository.UpdateWorkInput) (*domain.WorkItem, error)
	DeleteWork(ctx context.Context, workID int64) error
	AddPart(ctx context.Context, in repository.AddPartInput) (*domain.PartItem, error)
	UpdatePart(ctx context.Context, partID int64, in repository.UpdatePartInput) (*domain.PartItem, error)
	DeletePart(ctx context.Context, partID int64) error
}

type WorkOrderHandler struct {
	Store WorkOrderStore
}

func (h WorkOrderHandler) RegisterRoutes(r chi.Router) {
	r.Get("/work-orders", h.list)
	r.Post("/work-orders", h.dispatch)
}

type workItemRequest struct {
	Name          string   `json:"name"`
	Price         float64  `json:"price"`
	Qty           *float64 `json:"qty"`
	NormHours     float64  `json:"norm_hours"`
	NormHourPrice float64  `json:"norm_hour_price"`
	Discount      float64  `json:"discount"`
}

type partItemRequest struct {
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	Qty           *int    `json:"qty"`
	PurchasePrice float64 `json:"purchase_price"`
	ProductID     *int64  `json:"product_id"`
}

type workOrderRequest struct {
	Action      string `json:"action"`
	WorkOrderID int64  `json:"work_order_id"`
	WorkID      int64  `json:"work_id"`
	PartID      int64  `json:"part_id"`

	Client        string            `json:"client"`
	Car           string            `json:"car"`
	ClientID      *int64            `json:"client_id"`
	CarID         *int64            `json:"car_id"`
	OrderID       *int64            `json:"order_id"`
	EmployeeID    *int64            `json:"employee_id"`
	PayerClientID *int64            `json:"payer_client_id"`
	Works         []workItemRequest `json:"works"`
	Parts         []partItemRequest `json:"parts"`

	Status        *string  `json:"status"`
	Master        *string  `json:"master"`
	PayerName     *string  `json:"payer_name"`
	Name          *string  `json:"name"`
	Price         *float64 `json:"price"`
	Qty           *float64 `json:"qty"`
	NormHours     *float64 `json:"norm_hours"`
	NormHourPrice *float64 `json:"norm_hour_price"`
	Discount      *float64 `json:"discount"`
	PurchasePrice *float64 `json:"purchase_price"`
	ProductID     *int64   `json:"product_id"`

	raw map[string]json.RawMessage
}

// decode keeps the raw field set so sparse updates can tell "absent" from
// "present with zero value" for keys like payer_client_id and employee_id.
func (req *workOrderRequest) decode(r *http.Request) error {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return err
	}
	buf, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(buf, req); err != nil {
		return err
	}
	req.raw = raw
	return nil
}

func (req *workOrderRequest) has(key string) bool {
	_, ok := req.raw[key]
	return ok
}

func (h WorkOrderHandler) list(w http.ResponseWriter, r *http.Request) {
	items, err := h.Store.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]map[string]any, 0, len(items))
	for _, wo := range items {
		j := workOrderJSON(wo)
		j["car_vin"] = wo.CarVIN
		j["client_phone"] = wo.ClientPhone
		out = append(out, j)
	}
	writeJSON(w, http.StatusOK, map[string]any{"work_orders": out})
}

func (h WorkOrderHandler) dispatch(w http.ResponseWriter, r *http.Request) {
	var req workOrderRequest
	if err := req.decode(r); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	switch req.Action {
	case "create":
		h.create(w, r, req)
	case "update":
		h.update(w, r, req)
	case "add_work":
		h.addWork(w, r, req)
	case "add_part":
		h.addPart(w, r, req)
	case "update_work":
		h.updateWork(w, r, req)
	case "delete_work":
		h.deleteWork(w, r, req)
	case "update_part":
		h.updatePart(w, r, req)
	case "delete_part":
		h.deletePart(w, r, req)
	default:
		writeError(w, http.StatusBadRequest, "Unknown action")
	}
}

func (h WorkOrderHandler) create(w http.ResponseWriter, r *http.Request, req workOrderRequest) {
	client := strings.TrimSpace(req.Client)
	if client == "" {
		writeError(w, http.StatusBadRequest, "client is required")
		return
	}
	in := repository.CreateWorkOrderInput{
		OrderID:       req.OrderID,
		ClientID:      req.ClientID,
		CarID:         req.CarID,
		ClientName:    client,
		CarInfo:       strings.TrimSpace(req.Car),
		Master:        strings.TrimSpace(strDeref(req.Master)),
		PayerClientID: req.PayerClientID,
		PayerName:     strings.TrimSpace(strDeref(req.PayerName)),
		EmployeeID:    req.EmployeeID,
	}
	for _, wi := range req.Works {
		in.Works = append(in.Works, repository.AddWorkInput{
			Name:          strings.TrimSpace(wi.Name),
			Price:         wi.Price,
			Qty:           floatOr(wi.Qty, 1),
			NormHours:     wi.NormHours,
			NormHourPrice: wi.NormHourPrice,
			Discount:      wi.Discount,
		})
	}
	for _, pi := range req.Parts {
		in.Parts = append(in.Parts, repository.AddPartInput{
			Name:          strings.TrimSpace(pi.Name),
			Qty:           intOr(pi.Qty, 1),
			SellPrice:     pi.Price,
			PurchasePrice: pi.PurchasePrice,
			ProductID:     pi.ProductID,
		})
	}
	wo, err := h.Store.Create(r.Context(), in)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"work_order": workOrderJSON(*wo)})
}

func (h WorkOrderHandler) update(w http.ResponseWriter, r *http.Request, req workOrderRequest) {
	if req.WorkOrderID == 0 {
		writeError(w, http.StatusBadRequest, "work_order_id is required")
		return
	}
	var in repository.UpdateWorkOrderInput
	if req.Status != nil {
		st := domain.WorkOrderStatus(*req.Status)
		if !domain.ValidWorkOrderStatus(st) {
			writeError(w, http.StatusBadRequest, "status must be one of (new, in-progress, done, issued)")
			return
		}
		in.Status = &st
	}
	if req.Master != nil {
		s := strings.TrimSpace(*req.Master)
		in.Master = &s
	}
	if req.has("payer_client_id") {
		in.PayerSet = true
		in.PayerClientID = req.PayerClientID
	}
	if req.PayerName != nil {
		s := strings.TrimSpace(*req.PayerName)
		in.PayerName = &s
	}
	if req.has("employee_id") {
		in.EmployeeSet = true
		in.EmployeeID = req.EmployeeID
	}
	if in.Empty() {
		writeError(w, http.StatusBadRequest, "Nothing to update")
		return
	}
	wo, err := h.Store.Update(r.Context(), req.WorkOrderID, in)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Work order not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"work_order": workOrderJSON(*wo)})
}

func (h WorkOrderHandler) addWork(w http.ResponseWriter, r *http.Request, req workOrderRequest) {
	name := strings.TrimSpace(strDeref(req.Name))
	if req.WorkOrderID == 0 || name == "" {
		writeError(w, http.StatusBadRequest, "work_order_id and name are required")
		return
	}
	item, err := h.Store.AddWork(r.Context(), repository.AddWorkInput{
		WorkOrderID:   req.WorkOrderID,
		Name:          name,
		Price:         floatDeref(req.Price),
		Qty:           floatOr(req.Qty, 1),
		NormHours:     floatDeref(req.NormHours),
		NormHourPrice: floatDeref(req.NormHourPrice),
		Discount:      floatDeref(req.Discount),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"work": workItemJSON(*item)})
}

func (h WorkOrderHandler) addPart(w http.ResponseWriter, r *http.Request, req workOrderRequest) {
	if req.WorkOrderID == 0 {
		writeError(w, http.StatusBadRequest, "work_order_id is required")
		return
	}
	name := strings.TrimSpace(strDeref(req.Name))
	if name == "" && req.ProductID == nil {
		writeError(w, http.StatusBadRequest, "name or product_id is required")
		return
	}
	qty := 1
	if req.Qty != nil {
		qty = int(*req.Qty)
	}
	item, err := h.Store.AddPart(r.Context(), repository.AddPartInput{
		WorkOrderID:   req.WorkOrderID,
		Name:          name,
		Qty:           qty,
		SellPrice:     floatDeref(req.Price),
		PurchasePrice: floatDeref(req.PurchasePrice),
		ProductID:     req.ProductID,
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Product not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"part": partItemJSON(*item)})
}

func (h WorkOrderHandler) updateWork(w http.ResponseWriter, r *http.Request, req workOrderRequest) {
	if req.WorkID == 0 {
		writeError(w, http.StatusBadRequest, "work_id is required")
		return
	}
	var in repository.UpdateWorkInput
	if req.Name != nil {
		if s := strings.TrimSpace(*req.Name); s != "" {
			in.Name = &s
		}
	}
	in.Price = req.Price
	in.Qty = req.Qty
	in.NormHours = req.NormHours
	in.NormHourPrice = req.NormHourPrice
	in.Discount = req.Discount
	if in.Empty() {
		writeError(w, http.StatusBadRequest, "Nothing to update")
		return
	}
	item, err := h.Store.UpdateWork(r.Context(), req.WorkID, in)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Work not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"work": workItemJSON(*item)})
}

func (h WorkOrderHandler) deleteWork(w http.ResponseWriter, r *http.Request, req workOrderRequest) {
	if req.WorkID == 0 {
		writeError(w, http.StatusBadRequest, "work_id is required")
		return
	}
	if err := h.Store.DeleteWork(r.Context(), req.WorkID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h WorkOrderHandler) updatePart(w http.ResponseWriter, r *http.Request, req workOrderRequest) {
	if req.PartID == 0 {
		writeError(w, http.StatusBadRequest, "part_id is required")
		return
	}
	var in repository.UpdatePartInput
	if req.Name != nil {
		if s := strings.TrimSpace(*req.Name); s != "" {
			in.Name = &s
		}
	}
	if req.Qty != nil {
		q := int(*req.Qty)
		in.Qty = &q
	}
	in.SellPrice = req.Price
	in.PurchasePrice = req.PurchasePrice
	if in.Empty() {
		writeError(w, http.StatusBadRequest, "Nothing to update")
		return
	}
	item, err := h.Store.UpdatePart(r.Context(), req.PartID, in)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Part not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"part": partItemJSON(*item)})
}

func (h WorkOrderHandler) deletePart(w http.ResponseWriter, r *http.Request, req workOrderRequest) {
	if req.PartID == 0 {
		writeError(w, http.StatusBadRequest, "part_id is required")
		return
	}
	if err := h.Store.DeletePart(r.Context(), req.PartID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func workOrderJSON(wo domain.WorkOrder) map[string]any {
	works := make([]map[string]any, 0, len(wo.Works))
	for _, item := range wo.Works {
		works = append(works, workItemJSON(item))
	}
	parts := make([]map[string]any, 0, len(wo.Parts))
	for _, item := range wo.Parts {
		parts = append(parts, partItemJSON(item))
	}
	issuedAt := ""
	if wo.IssuedAt != nil {
		issuedAt = wo.IssuedAt.String()
	}
	return map[string]any{
		"id":              wo.ID,
		"number":          domain.WorkOrderNumber(wo.ID),
		"date":            wo.CreatedAt.Format("02.01.2006"),
		"created_at":      wo.CreatedAt.String(),
		"issued_at":       issuedAt,
		"client":          wo.ClientName,
		"client_id":       wo.ClientID,
		"car_id":          wo.CarID,
		"car":             wo.CarInfo,
		"status":          string(wo.Status),
		"master":          wo.Master,
		"order_id":        wo.OrderID,
		"payer_client_id": wo.PayerClientID,
		"payer_name":      wo.PayerName,
		"employee_id":     wo.EmployeeID,
		"employee_name":   wo.EmployeeName,
		"works":           works,
		"parts":           parts,
	}
}

func workItemJSON(w domain.WorkItem) map[string]any {
	return map[string]any{
		"id":              w.ID,
		"name":            w.Name,
		"price":           w.Price,
		"qty":             w.Qty,
		"norm_hours":      w.NormHours,
		"norm_hour_price": w.NormHourPrice,
		"discount":        w.Discount,
	}
}

func partItemJSON(p domain.PartItem) map[string]any {
	return map[string]any{
		"id":             p.ID,
		"name":           p.Name,
		"qty":            p.Qty,
		"price":          p.SellPrice,
		"purchase_price": p.PurchasePrice,
		"product_id":     p.ProductID,
	}
}

func floatOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

func floatDeref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
