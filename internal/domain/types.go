package domain

import (
	"fmt"
	"time"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

type ReservationStatus string

const (
	StatusBooked    ReservationStatus = "booked"
	StatusSeated    ReservationStatus = "seated"
	StatusFinished  ReservationStatus = "finished"
	StatusCancelled ReservationStatus = "cancelled"
)

// ParseReservationStatus maps a wire value onto the closed set of statuses.
func ParseReservationStatus(s string) (ReservationStatus, error) {
	switch st := ReservationStatus(s); st {
	case StatusBooked, StatusSeated, StatusFinished, StatusCancelled:
		return st, nil
	default:
		return "", fmt.Errorf("unknown reservation status %q", s)
	}
}

// Terminal reports whether no transition leaves the status.
func (s ReservationStatus) Terminal() bool {
	switch s {
	case StatusFinished, StatusCancelled:
		return true
	case StatusBooked, StatusSeated:
		return false
	default:
		return false
	}
}

// CanTransitionTo is the reservation state machine:
// booked -> seated -> finished, booked -> cancelled.
func (s ReservationStatus) CanTransitionTo(next ReservationStatus) bool {
	switch s {
	case StatusBooked:
		return next == StatusSeated || next == StatusCancelled
	case StatusSeated:
		return next == StatusFinished
	case StatusFinished, StatusCancelled:
		return false
	default:
		return false
	}
}

type TableStatus string

const (
	TableFree     TableStatus = "free"
	TableOccupied TableStatus = "occupied"
)

type Reservation struct {
	ID              int64             `json:"reservation_id"`
	FirstName       string            `json:"first_name"`
	LastName        string            `json:"last_name"`
	MobileNumber    string            `json:"mobile_number"`
	ReservationDate string            `json:"reservation_date"`
	ReservationTime string            `json:"reservation_time"`
	People          int               `json:"people"`
	Status          ReservationStatus `json:"status"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// StartsAt resolves the reservation date and time in loc.
func (r Reservation) StartsAt(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(
		DateLayout+" "+TimeLayout,
		r.ReservationDate+" "+r.ReservationTime,
		loc,
	)
}

type Table struct {
	ID            int64       `json:"table_id"`
	Name          string      `json:"table_name"`
	Capacity      int         `json:"capacity"`
	ReservationID *int64      `json:"reservation_id"`
	Status        TableStatus `json:"status"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

func (t Table) Occupied() bool {
	return t.ReservationID != nil
}

// WithStatus fills the derived free/occupied status.
func (t Table) WithStatus() Table {
	if t.Occupied() {
		t.Status = TableOccupied
	} else {
		t.Status = TableFree
	}
	return t
}

type InconsistencyKind string

const (
	// table points at a reservation that is not seated
	StaleAssignment InconsistencyKind = "stale_assignment"
	// reservation is seated but no table points at it
	OrphanedSeating InconsistencyKind = "orphaned_seating"
)

type Inconsistency struct {
	Kind          InconsistencyKind `json:"kind"`
	TableID       *int64            `json:"table_id,omitempty"`
	ReservationID int64             `json:"reservation_id"`
	Status        ReservationStatus `json:"status"`
}

type ConsistencyReport struct {
	Issues   []Inconsistency `json:"issues"`
	Repaired int             `json:"repaired"`
}

type ChangeKind string

const (
	ChangeTableCreated        ChangeKind = "table_created"
	ChangeTableSeated         ChangeKind = "table_seated"
	ChangeTableFreed          ChangeKind = "table_freed"
	ChangeReservationCreated  ChangeKind = "reservation_created"
	ChangeReservationUpdated  ChangeKind = "reservation_updated"
	ChangeReservationStatus   ChangeKind = "reservation_status"
	ChangeConsistencyRepaired ChangeKind = "consistency_repaired"
)

// Change describes a committed mutation for listeners.
type Change struct {
	Kind          ChangeKind        `json:"kind"`
	TableID       int64             `json:"table_id,omitempty"`
	ReservationID int64             `json:"reservation_id,omitempty"`
	Date          string            `json:"date,omitempty"`
	Status        ReservationStatus `json:"status,omitempty"`
}
