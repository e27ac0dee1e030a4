package seat_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"ms-booking/internal/auth"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/seats"
	seatdb "ms-booking/internal/seats/db"
	"ms-booking/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	Service *seats.Service
	Logger  *logger.Logger
}

func NewHandler(service *seats.Service, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Discard()
	}
	return &Handler{Service: service, Logger: log}
}

type statusRequest struct {
	Status string `json:"status"`
}

type priceRequest struct {
	Price models.Money `json:"price"`
}

// RegisterRoutes mounts the provisioning routes under /api/admin. Every
// route requires the admin role.
func (h *Handler) RegisterRoutes(r chi.Router, authn func(http.Handler) http.Handler) {
	r.Route("/api/admin", func(r chi.Router) {
		r.Use(authn, auth.RequireRole(auth.RoleAdmin))

		r.Post("/events", h.CreateEvent)
		r.Patch("/events/{eventId}/status", h.UpdateEventStatus)
		r.Patch("/seats/{seatId}/price", h.UpdateSeatPrice)
		r.Delete("/seats/{seatId}", h.DeleteSeat)
	})
}

func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req seats.CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	event, err := h.Service.CreateEvent(r.Context(), req)
	if err != nil {
		h.writeError(w, "CreateEvent", err)
		return
	}
	h.Logger.Info("API", fmt.Sprintf("Event %d created by %s with %d seats", event.ID, auth.UserID(r.Context()), event.Capacity))
	utils.WriteSuccess(w, http.StatusCreated, "Event created", event)
}

func (h *Handler) UpdateEventStatus(w http.ResponseWriter, r *http.Request) {
	eventID, err := utils.URLIDParam(r, "eventId")
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid event id", err)
		return
	}
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.Service.UpdateEventStatus(r.Context(), eventID, req.Status); err != nil {
		h.writeError(w, "UpdateEventStatus", err)
		return
	}
	event, err := h.Service.GetEvent(r.Context(), eventID)
	if err != nil {
		h.writeError(w, "UpdateEventStatus", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Event status updated", event)
}

func (h *Handler) UpdateSeatPrice(w http.ResponseWriter, r *http.Request) {
	seatID, err := utils.URLIDParam(r, "seatId")
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid seat id", err)
		return
	}
	var req priceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.Service.UpdateSeatPrice(r.Context(), seatID, req.Price); err != nil {
		h.writeError(w, "UpdateSeatPrice", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Seat price updated", map[string]interface{}{
		"seat_id": seatID,
		"price":   req.Price,
	})
}

func (h *Handler) DeleteSeat(w http.ResponseWriter, r *http.Request) {
	seatID, err := utils.URLIDParam(r, "seatId")
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid seat id", err)
		return
	}

	if err := h.Service.DeleteSeat(r.Context(), seatID); err != nil {
		h.writeError(w, "DeleteSeat", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, seats.ErrInvalidEvent):
		utils.WriteError(w, http.StatusBadRequest, "Invalid request", err)
	case errors.Is(err, seatdb.ErrEventNotFound), errors.Is(err, seatdb.ErrSeatNotFound):
		utils.WriteError(w, http.StatusNotFound, "Not found", err)
	case errors.Is(err, seats.ErrSeatSold), errors.Is(err, seats.ErrSeatInUse):
		utils.WriteError(w, http.StatusConflict, "Seat cannot be removed", err)
	default:
		h.Logger.Error("API", fmt.Sprintf("%s failed: %v", op, err))
		utils.WriteError(w, http.StatusInternalServerError, "Internal server error", nil)
	}
}
