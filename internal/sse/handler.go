package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"ms-booking/internal/auth"
	"ms-booking/internal/logger"
	"ms-booking/internal/utils"

	"github.com/go-chi/chi/v5"
)

// Handler serves the server-sent event streams.
type Handler struct {
	Emitter *BookingEventEmitter
	Logger  *logger.Logger
}

func NewHandler(emitter *BookingEventEmitter, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Discard()
	}
	return &Handler{Emitter: emitter, Logger: log}
}

func (h *Handler) RegisterRoutes(r chi.Router, authn func(http.Handler) http.Handler) {
	r.Get("/api/events/{eventId}/seats/stream", h.HandleSeatStream)
	r.With(authn, auth.RequireRole(auth.RoleAdmin)).Get("/api/events/{eventId}/bookings/stream", h.HandleBookingStream)
}

// HandleSeatStream streams seat status changes of one event. It is public,
// like the seat listing.
func (h *Handler) HandleSeatStream(w http.ResponseWriter, r *http.Request) {
	eventID, err := utils.URLIDParam(r, "eventId")
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid event id", err)
		return
	}
	h.stream(w, r, eventID, h.Emitter.SubscribeToSeats(r.Context(), eventID))
}

// HandleBookingStream streams booking lifecycle events of one event to
// admins.
func (h *Handler) HandleBookingStream(w http.ResponseWriter, r *http.Request) {
	eventID, err := utils.URLIDParam(r, "eventId")
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid event id", err)
		return
	}
	h.stream(w, r, eventID, h.Emitter.SubscribeToBookings(r.Context(), eventID))
}

func (h *Handler) stream(w http.ResponseWriter, r *http.Request, eventID int64, messages chan Message) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.WriteError(w, http.StatusInternalServerError, "Streaming unsupported", nil)
		return
	}
	// streams outlive the server write timeout
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		h.Logger.Warn("SSE", fmt.Sprintf("Cannot clear write deadline on %s, stream ends at the server write timeout: %v", r.URL.Path, err))
	}
	setupSSEHeaders(w)

	fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"connected\",\"event_id\":%d}\n\n", eventID)
	flusher.Flush()
	h.Logger.Info("SSE", fmt.Sprintf("Client connected to %s for event %d", r.URL.Path, eventID))

	ctx := r.Context()
	for {
		select {
		case msg, ok := <-messages:
			if !ok {
				return
			}
			jsonData, err := json.Marshal(msg.Data)
			if err != nil {
				h.Logger.Error("SSE", fmt.Sprintf("Failed to serialize %s message: %v", msg.Name, err))
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Name, jsonData)
			flusher.Flush()

		case <-ctx.Done():
			h.Logger.Debug("SSE", fmt.Sprintf("Client disconnected from %s", r.URL.Path))
			return
		}
	}
}

func setupSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream;charset=UTF-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, max-age=0, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Content-Type-Options", "nosniff")
}
