package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"smartline-backend/internal/avito"
	"smartline-backend/internal/repository"
	"smartline-backend/internal/service"

	"github.com/go-chi/chi/v5"
)

type AvitoSyncer interface {
	Sync(ctx context.Context) (*service.SyncResult, error)
	Stats(ctx context.Context) (*repository.SyncStats, error)
}

type AvitoHandler struct {
	Service AvitoSyncer
}

func (h AvitoHandler) RegisterRoutes(r chi.Router) {
	r.Get("/avito-sync", h.stats)
	r.Post("/avito-sync", h.sync)
}

func (h AvitoHandler) sync(w http.ResponseWriter, r *http.Request) {
	res, err := h.Service.Sync(r.Context())
	if err != nil {
		if errors.Is(err, service.ErrAvitoNotConfigured) {
			writeError(w, http.StatusBadRequest, "Не удалось получить токен Авито. Проверьте ключи AVITO_CLIENT_ID и AVITO_CLIENT_SECRET.")
			return
		}
		var apiErr *avito.APIError
		if errors.As(err, &apiErr) {
			writeError(w, apiErr.StatusCode, "Ошибка Авито API: "+apiErr.Body)
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"created": res.Created,
		"skipped": res.Skipped,
		"message": fmt.Sprintf("Создано %d новых заявок, %d чатов уже были обработаны", res.Created, res.Skipped),
	})
}

func (h AvitoHandler) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Service.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := map[string]any{
		"total_synced": stats.TotalSynced,
		"last_sync":    nil,
	}
	if stats.LastSync != nil {
		out["last_sync"] = stats.LastSync.String()
	}
	writeJSON(w, http.StatusOK, out)
}
