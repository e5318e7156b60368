package postgresrepo

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/periodic-tables/internal/domain"
)

const tableColumns = `table_id, table_name, capacity, reservation_id, created_at, updated_at`

type TableRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *TableRepo) With(db DB) *TableRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *TableRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// List returns all tables ordered by name.
func (r *TableRepo) List(ctx context.Context) ([]domain.Table, error) {
	const op = "postgresrepo.TableRepo.List"

	rows, err := r.handle().Query(ctx,
		`SELECT `+tableColumns+` FROM tables ORDER BY table_name, table_id`,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	out := []domain.Table{}
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, wrapDBErr(op, err)
		}

		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// Get retrieves a table by its ID.
//
// Returns:
//   - *domain.Table: the table when found.
//   - error: repository.ErrNotFound if the table does not exist.
func (r *TableRepo) Get(ctx context.Context, id int64) (*domain.Table, error) {
	const op = "postgresrepo.TableRepo.Get"

	t, err := scanTable(r.handle().QueryRow(ctx,
		`SELECT `+tableColumns+` FROM tables WHERE table_id = $1`,
		id,
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return t, nil
}

// GetForUpdate locks the table row so concurrent seatings on the same
// table are serialized.
func (r *TableRepo) GetForUpdate(ctx context.Context, id int64) (*domain.Table, error) {
	const op = "postgresrepo.TableRepo.GetForUpdate"

	t, err := scanTable(r.handle().QueryRow(ctx,
		`SELECT `+tableColumns+` FROM tables WHERE table_id = $1 FOR UPDATE`,
		id,
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return t, nil
}

func (r *TableRepo) Create(ctx context.Context, in domain.Table) (*domain.Table, error) {
	const op = "postgresrepo.TableRepo.Create"

	t, err := scanTable(r.handle().QueryRow(ctx,
		`INSERT INTO tables (table_name, capacity, reservation_id)
		 VALUES ($1, $2, $3)
		 RETURNING `+tableColumns,
		in.Name, in.Capacity, in.ReservationID,
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return t, nil
}

// SetAssignment points the table at reservationID, or frees it when nil.
//
// Returns:
//   - error: repository.ErrNotFound if the table does not exist.
//   - error: repository.ErrConflict if the reservation is already seated elsewhere.
func (r *TableRepo) SetAssignment(ctx context.Context, tableID int64, reservationID *int64) (*domain.Table, error) {
	const op = "postgresrepo.TableRepo.SetAssignment"

	t, err := scanTable(r.handle().QueryRow(ctx,
		`UPDATE tables
		 SET reservation_id = $2, updated_at = now()
		 WHERE table_id = $1
		 RETURNING `+tableColumns,
		tableID, reservationID,
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return t, nil
}

// FindByReservation returns the table a reservation is assigned to.
func (r *TableRepo) FindByReservation(ctx context.Context, reservationID int64) (*domain.Table, error) {
	const op = "postgresrepo.TableRepo.FindByReservation"

	t, err := scanTable(r.handle().QueryRow(ctx,
		`SELECT `+tableColumns+` FROM tables WHERE reservation_id = $1`,
		reservationID,
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return t, nil
}

func scanTable(row pgx.Row) (*domain.Table, error) {
	var t domain.Table

	if err := row.Scan(
		&t.ID,
		&t.Name,
		&t.Capacity,
		&t.ReservationID,
		&t.CreatedAt,
		&t.UpdatedAt,
	); err != nil {
		return nil, err
	}

	out := t.WithStatus()

	return &out, nil
}
