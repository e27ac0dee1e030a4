package booking_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"ms-booking/internal/auth"
	"ms-booking/internal/booking"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/tickets/pdf"
	"ms-booking/internal/tickets/qr"
	"ms-booking/internal/utils"
	"ms-booking/internal/validation"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	Service     *booking.Service
	QRGenerator *qr.QRGenerator
	Logger      *logger.Logger
}

func NewHandler(service *booking.Service, qrGen *qr.QRGenerator, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Discard()
	}
	return &Handler{Service: service, QRGenerator: qrGen, Logger: log}
}

// RegisterRoutes mounts the authenticated booking routes. authn must put
// the caller's identity in the request context.
func (h *Handler) RegisterRoutes(r chi.Router, authn func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(authn)

		r.Post("/api/events/{eventId}/bookings", h.Reserve)
		r.Post("/api/events/{eventId}/seats/{seatId}/book", h.QuickBook)

		r.Get("/api/bookings", h.ListBookings)
		r.Get("/api/bookings/{bookingId}", h.GetBooking)
		r.Post("/api/bookings/{bookingId}/confirm", h.Confirm)
		r.Post("/api/bookings/{bookingId}/cancel", h.Cancel)
		r.Post("/api/bookings/{bookingId}/tickets/{ticketId}/use", h.UseTicket)
		r.Get("/api/bookings/{bookingId}/tickets/{ticketId}/qr", h.TicketQR)
		r.Get("/api/bookings/{bookingId}/tickets/{ticketId}/pdf", h.TicketPDF)

		r.With(auth.RequireRole(auth.RoleStaff, auth.RoleAdmin)).Post("/api/tickets/validate", h.ValidateTicket)
	})
}

func (h *Handler) Reserve(w http.ResponseWriter, r *http.Request) {
	eventID, err := utils.URLIDParam(r, "eventId")
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid event id", err)
		return
	}

	var req models.ReserveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := validation.ValidateStruct(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request", err)
		return
	}

	userID := auth.UserID(r.Context())
	b, err := h.Service.Reserve(r.Context(), booking.ReserveRequest{
		UserID:  userID,
		EventID: eventID,
		SeatIDs: req.SeatIDs,
	})
	if err != nil {
		writeServiceError(w, h.Logger, "Reserve", err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Seats reserved", b)
}

func (h *Handler) QuickBook(w http.ResponseWriter, r *http.Request) {
	eventID, err := utils.URLIDParam(r, "eventId")
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid event id", err)
		return
	}
	seatID, err := utils.URLIDParam(r, "seatId")
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid seat id", err)
		return
	}

	b, err := h.Service.QuickBook(r.Context(), auth.UserID(r.Context()), eventID, seatID)
	if err != nil {
		writeServiceError(w, h.Logger, "QuickBook", err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Seat booked", b)
}

func (h *Handler) ListBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.Service.ListBookings(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeServiceError(w, h.Logger, "ListBookings", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Bookings", bookings)
}

func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	b, err := h.Service.GetBooking(r.Context(), chi.URLParam(r, "bookingId"), auth.UserID(r.Context()))
	if err != nil {
		writeServiceError(w, h.Logger, "GetBooking", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Booking", b)
}

func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	b, err := h.Service.Confirm(r.Context(), chi.URLParam(r, "bookingId"), auth.UserID(r.Context()))
	if err != nil {
		writeServiceError(w, h.Logger, "Confirm", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Booking confirmed", b)
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	b, err := h.Service.Cancel(r.Context(), chi.URLParam(r, "bookingId"), auth.UserID(r.Context()))
	if err != nil {
		writeServiceError(w, h.Logger, "Cancel", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Booking cancelled", b)
}

func (h *Handler) UseTicket(w http.ResponseWriter, r *http.Request) {
	ticket, err := h.Service.UseTicket(r.Context(),
		chi.URLParam(r, "bookingId"), chi.URLParam(r, "ticketId"), auth.UserID(r.Context()))
	if err != nil {
		writeServiceError(w, h.Logger, "UseTicket", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Ticket used", ticket)
}

// TicketQR renders the owner's ticket as a PNG QR code. Cancelled tickets
// have no code.
func (h *Handler) TicketQR(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticketId")
	b, err := h.Service.GetBooking(r.Context(), chi.URLParam(r, "bookingId"), auth.UserID(r.Context()))
	if err != nil {
		writeServiceError(w, h.Logger, "TicketQR", err)
		return
	}

	var ticket *models.Ticket
	for i := range b.Tickets {
		if b.Tickets[i].ID == ticketID {
			ticket = &b.Tickets[i]
		}
	}
	if ticket == nil || !ticket.IsActive() {
		writeServiceError(w, h.Logger, "TicketQR", fmt.Errorf("%w: %s", booking.ErrTicketNotFound, ticketID))
		return
	}

	png, err := h.QRGenerator.GenerateEncryptedQR(*ticket, ticket.CreatedAt)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("TicketQR: generate for ticket %s: %v", ticketID, err))
		utils.WriteError(w, http.StatusInternalServerError, "Internal error", nil)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// TicketPDF renders the owner's active ticket as a printable document
// carrying the same QR code.
func (h *Handler) TicketPDF(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticketId")
	details, err := h.Service.GetTicketDetails(r.Context(), chi.URLParam(r, "bookingId"), ticketID, auth.UserID(r.Context()))
	if err != nil {
		writeServiceError(w, h.Logger, "TicketPDF", err)
		return
	}

	png, err := h.QRGenerator.GenerateEncryptedQR(details.Ticket, details.Ticket.CreatedAt)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("TicketPDF: generate QR for ticket %s: %v", ticketID, err))
		utils.WriteError(w, http.StatusInternalServerError, "Internal error", nil)
		return
	}
	doc, err := pdf.GenerateTicketPDF(pdf.NewTicketData(details.Ticket, details.Event, details.Seat, png))
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("TicketPDF: render ticket %s: %v", ticketID, err))
		utils.WriteError(w, http.StatusInternalServerError, "Internal error", nil)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="ticket-%s.pdf"`, ticketID))
	w.WriteHeader(http.StatusOK)
	w.Write(doc)
}

type validateRequest struct {
	Token string `json:"token" validate:"required"`
}

// ValidateTicket redeems a scanned QR token at the gate.
func (h *Handler) ValidateTicket(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := validation.ValidateStruct(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request", err)
		return
	}

	token, err := h.QRGenerator.Decode(req.Token)
	if err != nil {
		h.Logger.LogSecurity("QR_REJECTED", fmt.Sprintf("scanner %s: %v", auth.UserID(r.Context()), err))
		if errors.Is(err, qr.ErrInvalidToken) {
			utils.WriteError(w, http.StatusBadRequest, "Invalid ticket code", err)
			return
		}
		utils.WriteError(w, http.StatusInternalServerError, "Internal error", nil)
		return
	}

	ticket, err := h.Service.RedeemTicket(r.Context(), token.TicketID)
	if err != nil {
		writeServiceError(w, h.Logger, "ValidateTicket", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Ticket admitted", ticket)
}
