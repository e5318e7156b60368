// Package validate holds the request filters that run before any mutation.
// Every filter stops at the first failing rule; only missing required
// fields are collected and reported together.
package validate

import (
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kirinyoku/periodic-tables/internal/domain"
)

// Error is a client-facing validation failure.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func badRequest(format string, args ...any) *Error {
	return &Error{Status: http.StatusBadRequest, Message: fmt.Sprintf(format, args...)}
}

func notFound(format string, args ...any) *Error {
	return &Error{Status: http.StatusNotFound, Message: fmt.Sprintf(format, args...)}
}

func missing(fields []string) *Error {
	return badRequest("%s is required.", strings.Join(fields, ", "))
}

func isBlank(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	default:
		return false
	}
}

// TableCreate checks the decoded "data" object of a create-table request
// and converts it to a table. A nil map means the body had no data.
func TableCreate(data map[string]any) (domain.Table, error) {
	if data == nil {
		return domain.Table{}, badRequest("data is required.")
	}

	var absent []string
	for _, field := range []string{"table_name", "capacity"} {
		if isBlank(data[field]) {
			absent = append(absent, field)
		}
	}
	if len(absent) > 0 {
		return domain.Table{}, missing(absent)
	}

	name, ok := data["table_name"].(string)
	if !ok || utf8.RuneCountInString(name) < 2 {
		return domain.Table{}, badRequest("table_name property must be more than 2 characters")
	}

	capacity, ok := data["capacity"].(float64)
	if !ok || capacity != math.Trunc(capacity) || capacity > math.MaxInt32 {
		return domain.Table{}, badRequest("capacity property should be a number")
	}

	if capacity <= 0 {
		return domain.Table{}, badRequest("capacity field must be greater than 0")
	}

	return domain.Table{Name: name, Capacity: int(capacity)}, nil
}

// SeatInput is what the coordinator managed to load for a seat request.
// Table and Reservation are nil when the referenced row does not exist.
type SeatInput struct {
	TableID       int64
	ReservationID *int64
	Table         *domain.Table
	Reservation   *domain.Reservation
}

func Seat(in SeatInput) error {
	if in.ReservationID == nil {
		return badRequest("reservation_id is required.")
	}

	if in.Table == nil {
		return notFound("Table id %d does not exist.", in.TableID)
	}

	if in.Reservation == nil {
		return notFound("Reservation id %d does not exist.", *in.ReservationID)
	}

	if in.Table.Occupied() {
		return badRequest("Table %s is occupied.", in.Table.Name)
	}

	if in.Reservation.Status != domain.StatusBooked {
		return badRequest("Reservation %d is already %s.", in.Reservation.ID, in.Reservation.Status)
	}

	if in.Reservation.People > in.Table.Capacity {
		return badRequest("Table %s does not have sufficient capacity.", in.Table.Name)
	}

	return nil
}

func Unseat(tableID int64, table *domain.Table) error {
	if table == nil {
		return notFound("Table id %d does not exist.", tableID)
	}

	if !table.Occupied() {
		return badRequest("Table %s is not occupied.", table.Name)
	}

	return nil
}

const (
	opensAt  = 10*60 + 30
	closesAt = 21*60 + 30
)

// Rules carries the clock and timezone the business rules are judged in.
type Rules struct {
	Now      time.Time
	Location *time.Location
}

func (r Rules) location() *time.Location {
	if r.Location == nil {
		return time.UTC
	}
	return r.Location
}

// Reservation checks the editable fields of a reservation and the
// restaurant's booking rules. It returns the reservation with the time
// normalised to HH:MM.
func Reservation(in *domain.Reservation, rules Rules) (domain.Reservation, error) {
	if in == nil {
		return domain.Reservation{}, badRequest("data is required.")
	}

	out := *in

	fields := []struct {
		name  string
		value string
	}{
		{"first_name", out.FirstName},
		{"last_name", out.LastName},
		{"mobile_number", out.MobileNumber},
		{"reservation_date", out.ReservationDate},
		{"reservation_time", out.ReservationTime},
	}

	var absent []string
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			absent = append(absent, f.name)
		}
	}
	if len(absent) > 0 {
		return domain.Reservation{}, missing(absent)
	}

	if _, err := time.Parse(domain.DateLayout, out.ReservationDate); err != nil {
		return domain.Reservation{}, badRequest("reservation_date must be a date formatted as YYYY-MM-DD")
	}

	clock, ok := parseClock(out.ReservationTime)
	if !ok {
		return domain.Reservation{}, badRequest("reservation_time must be a time formatted as HH:MM")
	}
	out.ReservationTime = clock.Format(domain.TimeLayout)

	if out.People <= 0 || out.People > math.MaxInt32 {
		return domain.Reservation{}, badRequest("people must be a number greater than 0")
	}

	startsAt, err := out.StartsAt(rules.location())
	if err != nil {
		return domain.Reservation{}, badRequest("reservation_date must be a date formatted as YYYY-MM-DD")
	}

	if !startsAt.After(rules.Now) {
		return domain.Reservation{}, badRequest("Reservation must be set in the future. Please select another date or time.")
	}

	if startsAt.Weekday() == time.Tuesday {
		return domain.Reservation{}, badRequest("The restaurant is closed on Tuesdays. Please select another day.")
	}

	minute := startsAt.Hour()*60 + startsAt.Minute()
	if minute < opensAt {
		return domain.Reservation{}, badRequest("The restaurant opens at 10:30 AM. Please select another time.")
	}
	if minute >= closesAt {
		return domain.Reservation{}, badRequest("The restaurant closes at 10:30 PM. Please select a time before 9:30 PM.")
	}

	return out, nil
}

// ReservationCreate is Reservation plus the rule that new reservations
// start out booked.
func ReservationCreate(in *domain.Reservation, rules Rules) (domain.Reservation, error) {
	out, err := Reservation(in, rules)
	if err != nil {
		return domain.Reservation{}, err
	}

	if out.Status != "" && out.Status != domain.StatusBooked {
		return domain.Reservation{}, badRequest("status %s is not allowed for a new reservation.", out.Status)
	}
	out.Status = domain.StatusBooked

	return out, nil
}

// Editable reports whether the stored reservation may still be changed.
func Editable(current *domain.Reservation) error {
	if current.Status != domain.StatusBooked {
		return badRequest("Only booked reservations can be edited.")
	}
	return nil
}

// Date checks a date query parameter.
func Date(field, value string) error {
	if _, err := time.Parse(domain.DateLayout, value); err != nil {
		return badRequest("%s must be a date formatted as YYYY-MM-DD", field)
	}
	return nil
}

// StatusChange parses the requested status and checks it against the
// state machine. Seated and finished are only reachable through the
// table seat endpoints.
func StatusChange(current domain.ReservationStatus, raw string) (domain.ReservationStatus, error) {
	if raw == "" {
		return "", badRequest("status is required.")
	}

	next, err := domain.ParseReservationStatus(raw)
	if err != nil {
		return "", badRequest("status %s is unknown.", raw)
	}

	if current.Terminal() {
		return "", badRequest("a %s reservation cannot be updated.", current)
	}

	switch next {
	case domain.StatusSeated, domain.StatusFinished:
		return "", badRequest("status %s is set by seating or freeing a table.", next)
	case domain.StatusBooked, domain.StatusCancelled:
	}

	if !current.CanTransitionTo(next) {
		return "", badRequest("status cannot change from %s to %s.", current, next)
	}

	return next, nil
}

func parseClock(s string) (time.Time, bool) {
	for _, layout := range []string{domain.TimeLayout, "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
