package booking_api

import (
	"errors"
	"fmt"
	"net/http"

	"ms-booking/internal/booking"
	"ms-booking/internal/logger"
	"ms-booking/internal/utils"
)

// StatusFor maps an engine error to its HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, booking.ErrSeatsUnavailable):
		return http.StatusConflict
	case errors.Is(err, booking.ErrInvalidTransition), errors.Is(err, booking.ErrEventNotOpen):
		return http.StatusUnprocessableEntity
	case errors.Is(err, booking.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, booking.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, booking.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, booking.ErrTransactionFailure):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError renders an engine error. Unavailable seats are listed
// in the response data so the client can pick others.
func writeServiceError(w http.ResponseWriter, log *logger.Logger, op string, err error) {
	status := StatusFor(err)

	var unavailable *booking.SeatsUnavailableError
	switch {
	case errors.As(err, &unavailable):
		resp := utils.ErrorResponse("Seats unavailable", err.Error())
		resp.Data = map[string]interface{}{"unavailable_seat_ids": unavailable.SeatIDs}
		utils.WriteJSON(w, status, resp)
		return
	case status == http.StatusServiceUnavailable:
		log.Error("API", fmt.Sprintf("%s: %v", op, err))
		w.Header().Set("Retry-After", "1")
		utils.WriteError(w, status, "Temporarily unavailable, retry", nil)
		return
	case status == http.StatusInternalServerError:
		log.Error("API", fmt.Sprintf("%s: %v", op, err))
		utils.WriteError(w, status, "Internal error", nil)
		return
	}

	log.Debug("API", fmt.Sprintf("%s rejected: %v", op, err))
	utils.WriteError(w, status, http.StatusText(status), err)
}
