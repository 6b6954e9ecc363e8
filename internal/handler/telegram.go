package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"smartline-backend/internal/repository"
	"smartline-backend/internal/service"
	"smartline-backend/internal/telegram"

	"github.com/go-chi/chi/v5"
)

type WorkOrderNotifier interface {
	SendWorkOrder(ctx context.Context, workOrderID int64, chatID string) error
}

type TelegramHandler struct {
	Service WorkOrderNotifier
}

func (h TelegramHandler) RegisterRoutes(r chi.Router) {
	r.Post("/tg-send", h.send)
}

func (h TelegramHandler) send(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WorkOrderID int64  `json:"work_order_id"`
		TelegramID  string `json:"telegram_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	chatID := strings.TrimSpace(req.TelegramID)
	if req.WorkOrderID == 0 {
		writeError(w, http.StatusBadRequest, "work_order_id is required")
		return
	}
	if chatID == "" {
		writeError(w, http.StatusBadRequest, "telegram_id is required")
		return
	}

	err := h.Service.SendWorkOrder(r.Context(), req.WorkOrderID, chatID)
	if err != nil {
		if errors.Is(err, service.ErrTelegramNotConfigured) {
			writeError(w, http.StatusInternalServerError, "TELEGRAM_BOT_TOKEN not configured")
			return
		}
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Not found")
			return
		}
		var sendErr *telegram.SendError
		if errors.As(err, &sendErr) {
			writeError(w, http.StatusBadRequest, sendErr.Description)
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
