package availability_api

import (
	"errors"
	"fmt"
	"net/http"

	"ms-booking/internal/availability"
	"ms-booking/internal/logger"
	seatdb "ms-booking/internal/seats/db"
	"ms-booking/internal/utils"

	"github.com/go-chi/chi/v5"
)

// Handler serves the public, read-only event endpoints.
type Handler struct {
	Service *availability.Service
	Logger  *logger.Logger
}

func NewHandler(service *availability.Service, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Discard()
	}
	return &Handler{Service: service, Logger: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/events/{eventId}/stats", h.GetStats)
	r.Get("/api/events/{eventId}/seats", h.ListSeats)
	r.Get("/api/events/{eventId}/seats/available", h.ListAvailableSeats)
	r.Get("/api/events/{eventId}/sold-out", h.GetSoldOut)
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	eventID, ok := h.eventID(w, r)
	if !ok {
		return
	}
	stats, err := h.Service.Stats(r.Context(), eventID)
	if err != nil {
		h.writeError(w, "GetStats", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Event statistics", stats)
}

func (h *Handler) ListSeats(w http.ResponseWriter, r *http.Request) {
	eventID, ok := h.eventID(w, r)
	if !ok {
		return
	}
	seats, err := h.Service.ListSeats(r.Context(), eventID)
	if err != nil {
		h.writeError(w, "ListSeats", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Seats", seats)
}

func (h *Handler) ListAvailableSeats(w http.ResponseWriter, r *http.Request) {
	eventID, ok := h.eventID(w, r)
	if !ok {
		return
	}
	seats, err := h.Service.ListAvailableSeats(r.Context(), eventID)
	if err != nil {
		h.writeError(w, "ListAvailableSeats", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Available seats", seats)
}

func (h *Handler) GetSoldOut(w http.ResponseWriter, r *http.Request) {
	eventID, ok := h.eventID(w, r)
	if !ok {
		return
	}
	soldOut, err := h.Service.IsSoldOut(r.Context(), eventID)
	if err != nil {
		h.writeError(w, "GetSoldOut", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Sold out status", map[string]interface{}{
		"event_id":    eventID,
		"is_sold_out": soldOut,
	})
}

func (h *Handler) eventID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := utils.URLIDParam(r, "eventId")
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid event id", err)
		return 0, false
	}
	return id, true
}

func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, seatdb.ErrEventNotFound) {
		utils.WriteError(w, http.StatusNotFound, "Event not found", err)
		return
	}
	h.Logger.Error("API", fmt.Sprintf("%s: %v", op, err))
	utils.WriteError(w, http.StatusInternalServerError, "Internal error", nil)
}
