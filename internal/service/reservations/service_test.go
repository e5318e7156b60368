package reservations

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/kirinyoku/periodic-tables/internal/domain"
	"github.com/kirinyoku/periodic-tables/internal/events"
	"github.com/kirinyoku/periodic-tables/internal/repository/memory"
	redisrepo "github.com/kirinyoku/periodic-tables/internal/repository/redis"
	"github.com/kirinyoku/periodic-tables/internal/service/validate"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu      sync.Mutex
	changes []domain.Change
}

func (r *recorder) Publish(_ context.Context, ch domain.Change) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, ch)
	return nil
}

// Sunday noon; 2030-01-02 is a Wednesday.
var now = time.Date(2029, 12, 30, 12, 0, 0, 0, time.UTC)

func newService(t *testing.T) (*Service, *memory.Store, *recorder) {
	t.Helper()

	store := memory.NewStore()
	rec := &recorder{}
	svc := New(store, nil, rec, nil, nil, Config{Now: func() time.Time { return now }})

	return svc, store, rec
}

func booking(date, clock string) *domain.Reservation {
	return &domain.Reservation{
		FirstName:       "Morty",
		LastName:        "Smith",
		MobileNumber:    "(202) 555-0164",
		ReservationDate: date,
		ReservationTime: clock,
		People:          3,
	}
}

func requireStatus(t *testing.T, err error, status int, msg string) {
	t.Helper()

	var verr *validate.Error
	require.True(t, errors.As(err, &verr), "expected *validate.Error, got %v", err)
	assert.Equal(t, status, verr.Status)
	assert.Equal(t, msg, verr.Message)
}

func TestCreate(t *testing.T) {
	svc, _, rec := newService(t)

	got, err := svc.Create(context.Background(), booking("2030-01-02", "18:30:00"), "")

	require.NoError(t, err)
	assert.Equal(t, int64(1), got.ID)
	assert.Equal(t, domain.StatusBooked, got.Status)
	assert.Equal(t, "18:30", got.ReservationTime)
	require.Len(t, rec.changes, 1)
	assert.Equal(t, domain.Change{
		Kind:          domain.ChangeReservationCreated,
		ReservationID: 1,
		Date:          "2030-01-02",
		Status:        domain.StatusBooked,
	}, rec.changes[0])
}

func TestCreate_EnforcesBusinessRules(t *testing.T) {
	svc, _, rec := newService(t)

	_, err := svc.Create(context.Background(), booking("2030-01-01", "18:00"), "")

	requireStatus(t, err, http.StatusBadRequest, "The restaurant is closed on Tuesdays. Please select another day.")
	assert.Empty(t, rec.changes)
}

func TestCreate_RateLimited(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	limiter := redisrepo.NewSlidingWindowLimiter(rdb, "reservations", 1, time.Minute)
	svc := New(memory.NewStore(), nil, nil, limiter, nil, Config{Now: func() time.Time { return now }})

	_, err := svc.Create(context.Background(), booking("2030-01-02", "18:00"), "ip:10.0.0.1")
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), booking("2030-01-02", "18:00"), "ip:10.0.0.1")
	var rl RateLimitedError
	require.True(t, errors.As(err, &rl))
	assert.Positive(t, rl.RetryAfter)
}

func TestList_FiltersAndValidatesDate(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)

	for _, b := range []*domain.Reservation{
		booking("2030-01-03", "19:00"),
		booking("2030-01-02", "20:00"),
		booking("2030-01-02", "11:00"),
	} {
		_, err := svc.Create(ctx, b, "")
		require.NoError(t, err)
	}

	byDate, err := svc.List(ctx, "2030-01-02", "")
	require.NoError(t, err)
	require.Len(t, byDate, 2)
	assert.Equal(t, "11:00", byDate[0].ReservationTime)
	assert.Equal(t, "20:00", byDate[1].ReservationTime)

	byMobile, err := svc.List(ctx, "", "555-01")
	require.NoError(t, err)
	assert.Len(t, byMobile, 3)

	none, err := svc.List(ctx, "", "abc")
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = svc.List(ctx, "01/02/2030", "")
	requireStatus(t, err, http.StatusBadRequest, "date must be a date formatted as YYYY-MM-DD")
}

func TestList_CacheInvalidatedByCreate(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	svc := New(memory.NewStore(), redisrepo.New(rdb), nil, nil, nil, Config{Now: func() time.Time { return now }})

	empty, err := svc.List(ctx, "2030-01-02", "")
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = svc.Create(ctx, booking("2030-01-02", "18:00"), "")
	require.NoError(t, err)

	one, err := svc.List(ctx, "2030-01-02", "")
	require.NoError(t, err)
	assert.Len(t, one, 1)
}

func TestGet_NotFound(t *testing.T) {
	svc, _, _ := newService(t)

	_, err := svc.Get(context.Background(), 12)

	var nf ReservationNotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "Reservation id 12 does not exist.", nf.Error())
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	svc, _, rec := newService(t)

	created, err := svc.Create(ctx, booking("2030-01-02", "18:00"), "")
	require.NoError(t, err)

	in := booking("2030-01-03", "19:15")
	in.People = 6
	updated, err := svc.Update(ctx, created.ID, in)
	require.NoError(t, err)

	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "2030-01-03", updated.ReservationDate)
	assert.Equal(t, 6, updated.People)
	assert.Equal(t, domain.StatusBooked, updated.Status)
	assert.Equal(t, domain.ChangeReservationUpdated, rec.changes[len(rec.changes)-1].Kind)
}

func TestUpdate_OnlyBooked(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)

	created, err := svc.Create(ctx, booking("2030-01-02", "18:00"), "")
	require.NoError(t, err)
	_, err = svc.UpdateStatus(ctx, created.ID, "cancelled")
	require.NoError(t, err)

	_, err = svc.Update(ctx, created.ID, booking("2030-01-02", "19:00"))
	requireStatus(t, err, http.StatusBadRequest, "Only booked reservations can be edited.")

	_, err = svc.Update(ctx, 99, booking("2030-01-02", "19:00"))
	var nf ReservationNotFoundError
	assert.True(t, errors.As(err, &nf))
}

func TestUpdateStatus(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)

	created, err := svc.Create(ctx, booking("2030-01-02", "18:00"), "")
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, created.ID, "seated")
	requireStatus(t, err, http.StatusBadRequest, "status seated is set by seating or freeing a table.")

	_, err = svc.UpdateStatus(ctx, created.ID, "unknown")
	requireStatus(t, err, http.StatusBadRequest, "status unknown is unknown.")

	cancelled, err := svc.UpdateStatus(ctx, created.ID, "cancelled")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, cancelled.Status)

	_, err = svc.UpdateStatus(ctx, created.ID, "booked")
	requireStatus(t, err, http.StatusBadRequest, "a cancelled reservation cannot be updated.")

	_, err = svc.UpdateStatus(ctx, 42, "cancelled")
	var nf ReservationNotFoundError
	assert.True(t, errors.As(err, &nf))
}

func TestCreate_LogsPublishFailure(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	failing := events.PublisherFunc(func(context.Context, domain.Change) error {
		return errors.New("broker down")
	})

	svc := New(memory.NewStore(), nil, failing, nil, logger, Config{Now: func() time.Time { return now }})

	created, err := svc.Create(context.Background(), booking("2030-01-02", "18:00"), "")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusBooked, created.Status)

	assert.Contains(t, buf.String(), `msg="failed to publish change"`)
	assert.Contains(t, buf.String(), "kind=reservation_created")
	assert.Contains(t, buf.String(), `error="broker down"`)
}
