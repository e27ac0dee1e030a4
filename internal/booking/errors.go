package booking

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrNotFound is matched by every not-found error below.
	ErrNotFound = errors.New("not found")

	ErrBookingNotFound = fmt.Errorf("booking %w", ErrNotFound)
	ErrTicketNotFound  = fmt.Errorf("ticket %w", ErrNotFound)
	ErrEventNotFound   = fmt.Errorf("event %w", ErrNotFound)

	ErrSeatsUnavailable   = errors.New("seats unavailable")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrUnauthorized       = errors.New("requester does not own this booking")
	ErrTransactionFailure = errors.New("transaction failed")
	ErrInvalidRequest     = errors.New("invalid request")
	ErrEventNotOpen       = errors.New("event is not open for booking")
)

// SeatsUnavailableError lists the requested seats that could not be
// locked as available. It matches ErrSeatsUnavailable.
type SeatsUnavailableError struct {
	SeatIDs []int64
}

func (e *SeatsUnavailableError) Error() string {
	ids := make([]string, len(e.SeatIDs))
	for i, id := range e.SeatIDs {
		ids[i] = strconv.FormatInt(id, 10)
	}
	return fmt.Sprintf("seats unavailable: [%s]", strings.Join(ids, ", "))
}

func (e *SeatsUnavailableError) Is(target error) bool {
	return target == ErrSeatsUnavailable
}

func transitionError(what, from, to string) error {
	return fmt.Errorf("%w: %s %s -> %s", ErrInvalidTransition, what, from, to)
}

// storageError marks an unexpected database failure as retryable while
// keeping the cause in the chain. Domain errors pass through unchanged.
func storageError(err error) error {
	if err == nil || isDomainError(err) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrTransactionFailure, err)
}

func isDomainError(err error) bool {
	for _, target := range []error{
		ErrNotFound,
		ErrSeatsUnavailable,
		ErrInvalidTransition,
		ErrUnauthorized,
		ErrTransactionFailure,
		ErrInvalidRequest,
		ErrEventNotOpen,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
