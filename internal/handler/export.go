package handler

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"smartline-backend/internal/domain"
	"smartline-backend/internal/repository"

	"github.com/go-chi/chi/v5"
	"github.com/xuri/excelize/v2"
)

// ExportHandler streams the product catalog as a CSV or XLSX download.
type ExportHandler struct {
	Products ProductStore
}

func (h ExportHandler) RegisterRoutes(r chi.Router) {
	r.Get("/warehouse/export", h.export)
}

func (h ExportHandler) export(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format := q.Get("format")
	if format == "" {
		format = "xlsx"
	}

	items, err := h.Products.List(r.Context(), repository.ProductFilter{
		Search:   q.Get("search"),
		Category: q.Get("category"),
		LowStock: q.Get("low_stock") == "1",
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	suffix := time.Now().Format("20060102_150405")
	switch format {
	case "csv":
		data, err := exportProductsCSV(items)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"products_%s.csv\"", suffix))
		_, _ = w.Write(data)
	case "xlsx", "excel":
		data, err := exportProductsXLSX(items)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"products_%s.xlsx\"", suffix))
		_, _ = w.Write(data)
	default:
		writeError(w, http.StatusBadRequest, "invalid format (use csv or xlsx)")
	}
}

func exportProductsCSV(items []domain.Product) ([]byte, error) {
	buf := new(bytes.Buffer)
	w := csv.NewWriter(buf)
	_ = w.Write([]string{"id", "sku", "name", "category", "unit", "purchase_price", "quantity", "min_quantity", "is_active"})
	for _, p := range items {
		_ = w.Write([]string{
			strconv.FormatInt(p.ID, 10),
			p.SKU,
			p.Name,
			p.Category,
			p.Unit,
			strconv.FormatFloat(p.PurchasePrice, 'f', 2, 64),
			strconv.Itoa(p.Quantity),
			strconv.Itoa(p.MinQuantity),
			strconv.FormatBool(p.Active),
		})
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func exportProductsXLSX(items []domain.Product) ([]byte, error) {
	f := excelize.NewFile()
	sheet := "Products"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	header := []string{"ID", "Артикул", "Наименование", "Категория", "Ед.", "Закупочная цена", "Остаток", "Мин. остаток", "Активен"}
	for c, v := range header {
		cell, _ := excelize.CoordinatesToCellName(c+1, 1)
		_ = f.SetCellValue(sheet, cell, v)
	}
	for r, p := range items {
		row := r + 2
		values := []any{
			p.ID,
			p.SKU,
			p.Name,
			p.Category,
			p.Unit,
			p.PurchasePrice,
			p.Quantity,
			p.MinQuantity,
			p.Active,
		}
		for c, v := range values {
			cell, _ := excelize.CoordinatesToCellName(c+1, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}

	_ = f.SetColWidth(sheet, "A", "A", 8)
	_ = f.SetColWidth(sheet, "B", "B", 16)
	_ = f.SetColWidth(sheet, "C", "C", 40)
	_ = f.SetColWidth(sheet, "D", "D", 20)
	_ = f.SetColWidth(sheet, "E", "E", 8)
	_ = f.SetColWidth(sheet, "F", "F", 16)
	_ = f.SetColWidth(sheet, "G", "H", 12)
	_ = f.SetColWidth(sheet, "I", "I", 10)

	style, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#1F2937"}, Pattern: 1},
	})
	_ = f.SetCellStyle(sheet, "A1", "I1", style)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
