package reservations

import (
	"fmt"
	"time"
)

type ReservationNotFoundError struct {
	ReservationID int64
}

func (e ReservationNotFoundError) Error() string {
	return fmt.Sprintf("Reservation id %d does not exist.", e.ReservationID)
}

type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e RateLimitedError) Error() string {
	return fmt.Sprintf("too many reservations, retry in %s", e.RetryAfter)
}
