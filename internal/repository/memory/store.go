// Package memory is an in-process repository.Store. Transactions copy the
// current state, run against the copy and swap it in on success, so a
// failed transaction leaves no partial writes behind.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/kirinyoku/periodic-tables/internal/domain"
	"github.com/kirinyoku/periodic-tables/internal/repository"
)

type state struct {
	reservations      map[int64]domain.Reservation
	tables            map[int64]domain.Table
	nextReservationID int64
	nextTableID       int64
}

func (s *state) clone() *state {
	cp := &state{
		reservations:      make(map[int64]domain.Reservation, len(s.reservations)),
		tables:            make(map[int64]domain.Table, len(s.tables)),
		nextReservationID: s.nextReservationID,
		nextTableID:       s.nextTableID,
	}

	for id, r := range s.reservations {
		cp.reservations[id] = r
	}

	for id, t := range s.tables {
		t.ReservationID = copyID(t.ReservationID)
		cp.tables[id] = t
	}

	return cp
}

type Store struct {
	mu  sync.Mutex
	st  *state
	now func() time.Time
}

var _ repository.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		st: &state{
			reservations: make(map[int64]domain.Reservation),
			tables:       make(map[int64]domain.Table),
		},
		now: time.Now,
	}
}

func (s *Store) RunTx(
	ctx context.Context,
	fn func(ctx context.Context, tx repository.Repos) error,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	snapshot := s.st.clone()
	if err := fn(ctx, txRepos{store: s, st: snapshot}); err != nil {
		return err
	}

	s.st = snapshot

	return nil
}

func (s *Store) Reservations() repository.Reservations { return &reservationRepo{store: s} }
func (s *Store) Tables() repository.Tables             { return &tableRepo{store: s} }

type txRepos struct {
	store *Store
	st    *state
}

func (r txRepos) Reservations() repository.Reservations {
	return &reservationRepo{store: r.store, st: r.st}
}

func (r txRepos) Tables() repository.Tables {
	return &tableRepo{store: r.store, st: r.st}
}

// with runs fn against the transaction snapshot, or against the live
// state under the store lock outside a transaction.
func with(s *Store, st *state, fn func(st *state) error) error {
	if st != nil {
		return fn(st)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return fn(s.st)
}

type reservationRepo struct {
	store *Store
	st    *state
}

func (r *reservationRepo) List(ctx context.Context, f repository.ReservationFilter) ([]domain.Reservation, error) {
	out := []domain.Reservation{}

	err := with(r.store, r.st, func(st *state) error {
		for _, res := range st.reservations {
			if f.Date != "" && res.ReservationDate != f.Date {
				continue
			}
			if f.MobileNumber != "" && !strings.Contains(digits(res.MobileNumber), f.MobileNumber) {
				continue
			}
			out = append(out, res)
		}
		return nil
	})

	sortReservations(out)

	return out, err
}

func (r *reservationRepo) ListByStatus(ctx context.Context, status domain.ReservationStatus) ([]domain.Reservation, error) {
	out := []domain.Reservation{}

	err := with(r.store, r.st, func(st *state) error {
		for _, res := range st.reservations {
			if res.Status == status {
				out = append(out, res)
			}
		}
		return nil
	})

	sortReservations(out)

	return out, err
}

func (r *reservationRepo) Get(ctx context.Context, id int64) (*domain.Reservation, error) {
	var out *domain.Reservation

	err := with(r.store, r.st, func(st *state) error {
		res, ok := st.reservations[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = &res
		return nil
	})

	return out, err
}

// GetForUpdate needs no extra locking: transactions already hold the
// store lock for their whole duration.
func (r *reservationRepo) GetForUpdate(ctx context.Context, id int64) (*domain.Reservation, error) {
	return r.Get(ctx, id)
}

func (r *reservationRepo) Create(ctx context.Context, in domain.Reservation) (*domain.Reservation, error) {
	var out *domain.Reservation

	err := with(r.store, r.st, func(st *state) error {
		st.nextReservationID++
		now := r.store.now()

		in.ID = st.nextReservationID
		if in.Status == "" {
			in.Status = domain.StatusBooked
		}
		in.CreatedAt = now
		in.UpdatedAt = now

		st.reservations[in.ID] = in
		out = &in
		return nil
	})

	return out, err
}

func (r *reservationRepo) Update(ctx context.Context, in domain.Reservation) (*domain.Reservation, error) {
	var out *domain.Reservation

	err := with(r.store, r.st, func(st *state) error {
		cur, ok := st.reservations[in.ID]
		if !ok {
			return repository.ErrNotFound
		}

		cur.FirstName = in.FirstName
		cur.LastName = in.LastName
		cur.MobileNumber = in.MobileNumber
		cur.ReservationDate = in.ReservationDate
		cur.ReservationTime = in.ReservationTime
		cur.People = in.People
		cur.UpdatedAt = r.store.now()

		st.reservations[cur.ID] = cur
		out = &cur
		return nil
	})

	return out, err
}

func (r *reservationRepo) UpdateStatus(
	ctx context.Context,
	id int64,
	status domain.ReservationStatus,
) (*domain.Reservation, error) {
	var out *domain.Reservation

	err := with(r.store, r.st, func(st *state) error {
		cur, ok := st.reservations[id]
		if !ok {
			return repository.ErrNotFound
		}

		cur.Status = status
		cur.UpdatedAt = r.store.now()

		st.reservations[id] = cur
		out = &cur
		return nil
	})

	return out, err
}

type tableRepo struct {
	store *Store
	st    *state
}

func (r *tableRepo) List(ctx context.Context) ([]domain.Table, error) {
	out := []domain.Table{}

	err := with(r.store, r.st, func(st *state) error {
		for _, t := range st.tables {
			out = append(out, exportTable(t))
		}
		return nil
	})

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})

	return out, err
}

func (r *tableRepo) Get(ctx context.Context, id int64) (*domain.Table, error) {
	var out *domain.Table

	err := with(r.store, r.st, func(st *state) error {
		t, ok := st.tables[id]
		if !ok {
			return repository.ErrNotFound
		}
		t = exportTable(t)
		out = &t
		return nil
	})

	return out, err
}

func (r *tableRepo) GetForUpdate(ctx context.Context, id int64) (*domain.Table, error) {
	return r.Get(ctx, id)
}

func (r *tableRepo) Create(ctx context.Context, in domain.Table) (*domain.Table, error) {
	var out *domain.Table

	err := with(r.store, r.st, func(st *state) error {
		st.nextTableID++
		now := r.store.now()

		in.ID = st.nextTableID
		in.ReservationID = copyID(in.ReservationID)
		in.CreatedAt = now
		in.UpdatedAt = now

		st.tables[in.ID] = in
		t := exportTable(in)
		out = &t
		return nil
	})

	return out, err
}

func (r *tableRepo) SetAssignment(ctx context.Context, tableID int64, reservationID *int64) (*domain.Table, error) {
	var out *domain.Table

	err := with(r.store, r.st, func(st *state) error {
		cur, ok := st.tables[tableID]
		if !ok {
			return repository.ErrNotFound
		}

		if reservationID != nil {
			for id, t := range st.tables {
				if id != tableID && t.ReservationID != nil && *t.ReservationID == *reservationID {
					return repository.ErrConflict
				}
			}
		}

		cur.ReservationID = copyID(reservationID)
		cur.UpdatedAt = r.store.now()

		st.tables[tableID] = cur
		t := exportTable(cur)
		out = &t
		return nil
	})

	return out, err
}

func (r *tableRepo) FindByReservation(ctx context.Context, reservationID int64) (*domain.Table, error) {
	var out *domain.Table

	err := with(r.store, r.st, func(st *state) error {
		for _, t := range st.tables {
			if t.ReservationID != nil && *t.ReservationID == reservationID {
				t = exportTable(t)
				out = &t
				return nil
			}
		}
		return repository.ErrNotFound
	})

	return out, err
}

func exportTable(t domain.Table) domain.Table {
	t.ReservationID = copyID(t.ReservationID)
	return t.WithStatus()
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func sortReservations(rs []domain.Reservation) {
	sort.Slice(rs, func(i, j int) bool {
		a, b := rs[i], rs[j]
		if a.ReservationDate != b.ReservationDate {
			return a.ReservationDate < b.ReservationDate
		}
		if a.ReservationTime != b.ReservationTime {
			return a.ReservationTime < b.ReservationTime
		}
		return a.ID < b.ID
	})
}

func digits(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}
