package main

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"agent-arena-go/internal/models"
)

// APIHandler holds dependencies for the API endpoints.
type APIHandler struct {
	log *zap.Logger
	db  *gorm.DB
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(log *zap.Logger, db *gorm.DB) *APIHandler {
	return &APIHandler{log: log, db: db}
}

// StatusHandler reports whether any run has been persisted yet.
func (h *APIHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	var trades, performances int64
	h.db.Model(&models.TradeRecord{}).Count(&trades)
	h.db.Model(&models.PerformanceRecord{}).Count(&performances)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"trades":       trades,
		"performances": performances,
	})
}

// TradesHandler returns all recorded trades, most recent first. An optional
// ?agent= query filters to one competitor.
func (h *APIHandler) TradesHandler(w http.ResponseWriter, r *http.Request) {
	query := h.db.Order("timestamp desc")
	if agent := r.URL.Query().Get("agent"); agent != "" {
		query = query.Where("agent_name = ?", agent)
	}

	var trades []models.TradeRecord
	if err := query.Find(&trades).Error; err != nil {
		h.log.Error("Failed to get trades from database", zap.Error(err))
		http.Error(w, "Failed to get trades", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(trades)
}

// PerformanceHandler returns the final per-agent scores, best first.
func (h *APIHandler) PerformanceHandler(w http.ResponseWriter, r *http.Request) {
	var records []models.PerformanceRecord
	if err := h.db.Order("total_score desc").Find(&records).Error; err != nil {
		h.log.Error("Failed to get performance records", zap.Error(err))
		http.Error(w, "Failed to get performance records", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(records)
}
