package httpgin

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/kirinyoku/periodic-tables/internal/domain"
)

// CreateTableRequest keeps data untyped so the table validator can tell
// a missing capacity from a non-numeric one.
type CreateTableRequest struct {
	Data map[string]any `json:"data"`
}

type SeatRequest struct {
	Data *SeatData `json:"data"`
}

type SeatData struct {
	ReservationID *int64 `json:"reservation_id"`
}

type ReservationRequest struct {
	Data *ReservationData `json:"data"`
}

// ReservationData accepts people as a number or a numeric string, the way
// HTML forms submit it.
type ReservationData struct {
	FirstName       string      `json:"first_name"`
	LastName        string      `json:"last_name"`
	MobileNumber    string      `json:"mobile_number"`
	ReservationDate string      `json:"reservation_date"`
	ReservationTime string      `json:"reservation_time"`
	People          json.Number `json:"people" swaggertype:"integer"`
	Status          string      `json:"status,omitempty"`
}

func (d *ReservationData) toDomain() (*domain.Reservation, error) {
	if d == nil {
		return nil, nil
	}

	var people int64
	if d.People != "" {
		n, err := d.People.Int64()
		if err != nil || n > math.MaxInt32 {
			return nil, fmt.Errorf("people must be a number greater than 0")
		}
		people = n
	}

	return &domain.Reservation{
		FirstName:       d.FirstName,
		LastName:        d.LastName,
		MobileNumber:    d.MobileNumber,
		ReservationDate: d.ReservationDate,
		ReservationTime: d.ReservationTime,
		People:          int(people),
		Status:          domain.ReservationStatus(d.Status),
	}, nil
}

type StatusRequest struct {
	Data *StatusData `json:"data"`
}

type StatusData struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type TableResponse struct {
	Data domain.Table `json:"data"`
}

type TablesResponse struct {
	Data []domain.Table `json:"data"`
}

type ReservationResponse struct {
	Data domain.Reservation `json:"data"`
}

type ReservationsResponse struct {
	Data []domain.Reservation `json:"data"`
}

type ConsistencyResponse struct {
	Data domain.ConsistencyReport `json:"data"`
}
