package postgresrepo

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/periodic-tables/internal/domain"
	"github.com/kirinyoku/periodic-tables/internal/repository"
)

const reservationColumns = `reservation_id, first_name, last_name, mobile_number,
	to_char(reservation_date, 'YYYY-MM-DD'), to_char(reservation_time, 'HH24:MI'),
	people, status, created_at, updated_at`

type ReservationRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *ReservationRepo) With(db DB) *ReservationRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *ReservationRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// List returns reservations ordered by date then time.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//   - f: optional date and mobile number filters; both may be combined.
//
// Returns:
//   - []domain.Reservation: possibly empty list.
//   - error: on query failure.
func (r *ReservationRepo) List(ctx context.Context, f repository.ReservationFilter) ([]domain.Reservation, error) {
	const op = "postgresrepo.ReservationRepo.List"

	var (
		where []string
		args  []any
	)

	if f.Date != "" {
		args = append(args, f.Date)
		where = append(where, fmt.Sprintf("reservation_date = $%d::date", len(args)))
	}

	if f.MobileNumber != "" {
		args = append(args, f.MobileNumber)
		where = append(where, fmt.Sprintf(
			`regexp_replace(mobile_number, '\D', '', 'g') LIKE '%%' || $%d || '%%'`,
			len(args),
		))
	}

	q := `SELECT ` + reservationColumns + ` FROM reservations`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, ` AND `)
	}
	q += ` ORDER BY reservation_date, reservation_time, reservation_id`

	rows, err := r.handle().Query(ctx, q, args...)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	out, err := collectReservations(rows)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// ListByStatus returns every reservation currently in status.
func (r *ReservationRepo) ListByStatus(ctx context.Context, status domain.ReservationStatus) ([]domain.Reservation, error) {
	const op = "postgresrepo.ReservationRepo.ListByStatus"

	rows, err := r.handle().Query(ctx,
		`SELECT `+reservationColumns+`
		 FROM reservations
		 WHERE status = $1
		 ORDER BY reservation_date, reservation_time, reservation_id`,
		string(status),
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	out, err := collectReservations(rows)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// Get retrieves a reservation by its ID.
//
// Returns:
//   - *domain.Reservation: the reservation when found.
//   - error: repository.ErrNotFound if the reservation does not exist.
func (r *ReservationRepo) Get(ctx context.Context, id int64) (*domain.Reservation, error) {
	const op = "postgresrepo.ReservationRepo.Get"

	res, err := scanReservation(r.handle().QueryRow(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE reservation_id = $1`,
		id,
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return res, nil
}

// GetForUpdate is Get with a row lock held until the transaction ends.
func (r *ReservationRepo) GetForUpdate(ctx context.Context, id int64) (*domain.Reservation, error) {
	const op = "postgresrepo.ReservationRepo.GetForUpdate"

	res, err := scanReservation(r.handle().QueryRow(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE reservation_id = $1 FOR UPDATE`,
		id,
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return res, nil
}

// Create inserts a reservation. An empty status is stored as booked.
func (r *ReservationRepo) Create(ctx context.Context, in domain.Reservation) (*domain.Reservation, error) {
	const op = "postgresrepo.ReservationRepo.Create"

	if in.Status == "" {
		in.Status = domain.StatusBooked
	}

	res, err := scanReservation(r.handle().QueryRow(ctx,
		`INSERT INTO reservations
		 	(first_name, last_name, mobile_number, reservation_date, reservation_time, people, status)
		 VALUES ($1, $2, $3, $4::date, $5::time, $6, $7)
		 RETURNING `+reservationColumns,
		in.FirstName, in.LastName, in.MobileNumber,
		in.ReservationDate, in.ReservationTime, in.People, string(in.Status),
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return res, nil
}

// Update replaces the editable fields of an existing reservation.
func (r *ReservationRepo) Update(ctx context.Context, in domain.Reservation) (*domain.Reservation, error) {
	const op = "postgresrepo.ReservationRepo.Update"

	res, err := scanReservation(r.handle().QueryRow(ctx,
		`UPDATE reservations
		 SET first_name = $2, last_name = $3, mobile_number = $4,
		 	reservation_date = $5::date, reservation_time = $6::time,
		 	people = $7, updated_at = now()
		 WHERE reservation_id = $1
		 RETURNING `+reservationColumns,
		in.ID, in.FirstName, in.LastName, in.MobileNumber,
		in.ReservationDate, in.ReservationTime, in.People,
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return res, nil
}

// UpdateStatus writes status without checking the transition; callers own
// the state machine.
func (r *ReservationRepo) UpdateStatus(
	ctx context.Context,
	id int64,
	status domain.ReservationStatus,
) (*domain.Reservation, error) {
	const op = "postgresrepo.ReservationRepo.UpdateStatus"

	res, err := scanReservation(r.handle().QueryRow(ctx,
		`UPDATE reservations
		 SET status = $2, updated_at = now()
		 WHERE reservation_id = $1
		 RETURNING `+reservationColumns,
		id, string(status),
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return res, nil
}

func scanReservation(row pgx.Row) (*domain.Reservation, error) {
	var (
		res    domain.Reservation
		status string
	)

	if err := row.Scan(
		&res.ID,
		&res.FirstName,
		&res.LastName,
		&res.MobileNumber,
		&res.ReservationDate,
		&res.ReservationTime,
		&res.People,
		&status,
		&res.CreatedAt,
		&res.UpdatedAt,
	); err != nil {
		return nil, err
	}

	res.Status = domain.ReservationStatus(status)

	return &res, nil
}

func collectReservations(rows pgx.Rows) ([]domain.Reservation, error) {
	defer rows.Close()

	out := []domain.Reservation{}
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, *res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return out, nil
}
