package httpgin

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/periodic-tables/internal/domain"
	"github.com/kirinyoku/periodic-tables/internal/repository"
	"github.com/kirinyoku/periodic-tables/internal/repository/memory"
	redisrepo "github.com/kirinyoku/periodic-tables/internal/repository/redis"
	"github.com/kirinyoku/periodic-tables/internal/service"
	"github.com/kirinyoku/periodic-tables/internal/service/reservations"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// Sunday noon; 2030-01-02 is a Wednesday.
var fixedNow = time.Date(2029, 12, 30, 12, 0, 0, 0, time.UTC)

type testAPI struct {
	router *gin.Engine
	store  *memory.Store
}

type options struct {
	rdb     *redis.Client
	limit   int
	changes ChangeSubscriber
}

func newTestAPI(t *testing.T, opts options) *testAPI {
	t.Helper()

	store := memory.NewStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var (
		idem    *redisrepo.IdempotencyStore
		limiter *redisrepo.SlidingWindowLimiter
	)
	if opts.rdb != nil {
		idem = redisrepo.NewIdempotencyStore(opts.rdb, time.Hour)
		if opts.limit > 0 {
			limiter = redisrepo.NewSlidingWindowLimiter(opts.rdb, "reservations", opts.limit, time.Minute)
		}
	}

	svcs := service.NewServices(store, nil, nil, limiter, logger, service.Config{
		Reservations: reservations.Config{Now: func() time.Time { return fixedNow }},
	})

	return &testAPI{
		router: NewRouter(svcs, idem, opts.changes, logger),
		store:  store,
	}
}

func newRedis(t *testing.T) *redis.Client {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func (a *testAPI) do(t *testing.T, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[ErrorResponse](t, w).Error
}

const reservationBody = `{"data":{
	"first_name":"Rick","last_name":"Sanchez","mobile_number":"202-555-0164",
	"reservation_date":"2030-01-02","reservation_time":"18:00","people":2}}`

func TestSeatingFlow(t *testing.T) {
	api := newTestAPI(t, options{})

	w := api.do(t, http.MethodPost, "/tables", `{"data":{"table_name":"A1","capacity":4}}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	table := decode[TableResponse](t, w).Data
	assert.Equal(t, int64(1), table.ID)
	assert.Equal(t, "A1", table.Name)
	assert.Equal(t, 4, table.Capacity)

	w = api.do(t, http.MethodPost, "/reservations", reservationBody)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	res := decode[ReservationResponse](t, w).Data
	assert.Equal(t, int64(1), res.ID)
	assert.Equal(t, domain.StatusBooked, res.Status)

	w = api.do(t, http.MethodPut, "/tables/1/seat", `{"data":{"reservation_id":1}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	seated := decode[TableResponse](t, w).Data
	require.NotNil(t, seated.ReservationID)
	assert.Equal(t, int64(1), *seated.ReservationID)
	assert.Equal(t, domain.TableOccupied, seated.Status)

	w = api.do(t, http.MethodGet, "/reservations/1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.StatusSeated, decode[ReservationResponse](t, w).Data.Status)

	w = api.do(t, http.MethodPut, "/tables/1/seat", `{"data":{"reservation_id":1}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Table A1 is occupied.", errorOf(t, w))

	w = api.do(t, http.MethodDelete, "/tables/1/seat", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Nil(t, decode[TableResponse](t, w).Data.ReservationID)

	w = api.do(t, http.MethodGet, "/reservations/1", "")
	assert.Equal(t, domain.StatusFinished, decode[ReservationResponse](t, w).Data.Status)

	w = api.do(t, http.MethodDelete, "/tables/1/seat", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Table A1 is not occupied.", errorOf(t, w))
}

func TestCreateTable_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
		msg  string
	}{
		{"no data", `{}`, "data is required."},
		{"empty body", "", "data is required."},
		{"missing fields", `{"data":{}}`, "table_name, capacity is required."},
		{"short name", `{"data":{"table_name":"A","capacity":4}}`, "table_name property must be more than 2 characters"},
		{"string capacity", `{"data":{"table_name":"A1","capacity":"4"}}`, "capacity property should be a number"},
		{"zero capacity", `{"data":{"table_name":"A1","capacity":0}}`, "capacity field must be greater than 0"},
	}

	api := newTestAPI(t, options{})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := api.do(t, http.MethodPost, "/tables", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.msg, errorOf(t, w))
		})
	}
}

func TestSeat_RequestErrors(t *testing.T) {
	api := newTestAPI(t, options{})
	api.do(t, http.MethodPost, "/tables", `{"data":{"table_name":"Bar #1","capacity":1}}`)
	api.do(t, http.MethodPost, "/reservations", reservationBody)

	tests := []struct {
		name   string
		path   string
		body   string
		status int
		msg    string
	}{
		{"no data", "/tables/1/seat", `{}`, http.StatusBadRequest, "data is required."},
		{"empty body", "/tables/1/seat", "", http.StatusBadRequest, "data is required."},
		{"malformed body", "/tables/1/seat", `{"data":`, http.StatusBadRequest, "unexpected EOF"},
		{"no reservation id", "/tables/1/seat", `{"data":{}}`, http.StatusBadRequest, "reservation_id is required."},
		{"bad table id", "/tables/x/seat", `{"data":{"reservation_id":1}}`, http.StatusBadRequest, "invalid table_id"},
		{"unknown table", "/tables/9/seat", `{"data":{"reservation_id":1}}`, http.StatusNotFound, "Table id 9 does not exist."},
		{"unknown reservation", "/tables/1/seat", `{"data":{"reservation_id":7}}`, http.StatusNotFound, "Reservation id 7 does not exist."},
		{"over capacity", "/tables/1/seat", `{"data":{"reservation_id":1}}`, http.StatusBadRequest, "Table Bar #1 does not have sufficient capacity."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := api.do(t, http.MethodPut, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.msg, errorOf(t, w))
		})
	}
}

func TestReservations_EmptyBody(t *testing.T) {
	api := newTestAPI(t, options{})
	api.do(t, http.MethodPost, "/reservations", reservationBody)

	for _, tt := range []struct{ method, path string }{
		{http.MethodPost, "/reservations"},
		{http.MethodPut, "/reservations/1"},
		{http.MethodPut, "/reservations/1/status"},
	} {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := api.do(t, tt.method, tt.path, "")
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "data is required.", errorOf(t, w))
		})
	}
}

func TestGetNotFound(t *testing.T) {
	api := newTestAPI(t, options{})

	w := api.do(t, http.MethodGet, "/tables/9", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Table id 9 does not exist.", errorOf(t, w))

	w = api.do(t, http.MethodGet, "/reservations/4", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Reservation id 4 does not exist.", errorOf(t, w))
}

func TestListTables_ETag(t *testing.T) {
	api := newTestAPI(t, options{})
	api.do(t, http.MethodPost, "/tables", `{"data":{"table_name":"A1","capacity":4}}`)

	w := api.do(t, http.MethodGet, "/tables", "")
	require.Equal(t, http.StatusOK, w.Code)
	etag := w.Header().Get("ETag")
	require.NotEmpty(t, etag)
	assert.Len(t, decode[TablesResponse](t, w).Data, 1)

	w = api.do(t, http.MethodGet, "/tables", "", "If-None-Match", etag)
	assert.Equal(t, http.StatusNotModified, w.Code)
	assert.Empty(t, w.Body.String())

	api.do(t, http.MethodPost, "/tables", `{"data":{"table_name":"A2","capacity":2}}`)

	w = api.do(t, http.MethodGet, "/tables", "", "If-None-Match", etag)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEqual(t, etag, w.Header().Get("ETag"))
}

func TestReservations_ListUpdateAndStatus(t *testing.T) {
	api := newTestAPI(t, options{})

	w := api.do(t, http.MethodPost, "/reservations", reservationBody)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = api.do(t, http.MethodGet, "/reservations?date=2030-01-02", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[ReservationsResponse](t, w).Data, 1)

	w = api.do(t, http.MethodGet, "/reservations?mobile_number=5550164", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[ReservationsResponse](t, w).Data, 1)

	w = api.do(t, http.MethodGet, "/reservations?date=2030-01-03", "")
	assert.Empty(t, decode[ReservationsResponse](t, w).Data)

	w = api.do(t, http.MethodPut, "/reservations/1", strings.Replace(reservationBody, `"people":2`, `"people":"5"`, 1))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 5, decode[ReservationResponse](t, w).Data.People)

	w = api.do(t, http.MethodPut, "/reservations/1/status", `{"data":{"status":"cancelled"}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, domain.StatusCancelled, decode[ReservationResponse](t, w).Data.Status)

	w = api.do(t, http.MethodPut, "/reservations/1", reservationBody)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Only booked reservations can be edited.", errorOf(t, w))

	w = api.do(t, http.MethodPut, "/reservations/1/status", `{"data":{"status":"booked"}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "a cancelled reservation cannot be updated.", errorOf(t, w))
}

func TestCreateReservation_BusinessRules(t *testing.T) {
	api := newTestAPI(t, options{})

	w := api.do(t, http.MethodPost, "/reservations", strings.Replace(reservationBody, "18:00", "22:00", 1))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "The restaurant closes at 10:30 PM. Please select a time before 9:30 PM.", errorOf(t, w))

	w = api.do(t, http.MethodPost, "/reservations", strings.Replace(reservationBody, `"people":2`, `"people":5000000000`, 1))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "people must be a number greater than 0", errorOf(t, w))
}

func TestCreateReservation_IdempotentReplay(t *testing.T) {
	api := newTestAPI(t, options{rdb: newRedis(t)})

	first := api.do(t, http.MethodPost, "/reservations", reservationBody, "Idempotency-Key", "abc-123")
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())

	second := api.do(t, http.MethodPost, "/reservations", reservationBody, "Idempotency-Key", "abc-123")
	require.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "abc-123", second.Header().Get("Idempotency-Key"))
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	all, err := api.store.Reservations().List(context.Background(), repository.ReservationFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCreateReservation_RateLimited(t *testing.T) {
	api := newTestAPI(t, options{rdb: newRedis(t), limit: 1})

	w := api.do(t, http.MethodPost, "/reservations", reservationBody)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = api.do(t, http.MethodPost, "/reservations", reservationBody)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestConsistencyEndpoints(t *testing.T) {
	api := newTestAPI(t, options{})
	ctx := context.Background()

	api.do(t, http.MethodPost, "/tables", `{"data":{"table_name":"A1","capacity":4}}`)
	api.do(t, http.MethodPost, "/reservations", reservationBody)

	// a table left pointing at a booked reservation
	id := int64(1)
	_, err := api.store.Tables().SetAssignment(ctx, 1, &id)
	require.NoError(t, err)

	w := api.do(t, http.MethodGet, "/admin/consistency", "")
	require.Equal(t, http.StatusOK, w.Code)
	report := decode[ConsistencyResponse](t, w).Data
	require.Len(t, report.Issues, 1)
	assert.Equal(t, domain.StaleAssignment, report.Issues[0].Kind)

	w = api.do(t, http.MethodPost, "/admin/consistency/repair", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[ConsistencyResponse](t, w).Data.Repaired)

	w = api.do(t, http.MethodGet, "/tables/1", "")
	assert.Nil(t, decode[TableResponse](t, w).Data.ReservationID)
}

func TestHealthzAndMetrics(t *testing.T) {
	api := newTestAPI(t, options{})

	w := api.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = api.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "periodic_http_requests_total")
}

type fakeSubscriber struct {
	msgs []redisrepo.ChangeMessage
}

func (f fakeSubscriber) Subscribe(ctx context.Context, handler func(context.Context, redisrepo.ChangeMessage)) error {
	for _, m := range f.msgs {
		handler(ctx, m)
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestEvents_StreamsChanges(t *testing.T) {
	sub := fakeSubscriber{msgs: []redisrepo.ChangeMessage{{
		ID:     "m1",
		Change: domain.Change{Kind: domain.ChangeTableSeated, TableID: 1, ReservationID: 2},
	}}}
	api := newTestAPI(t, options{changes: sub})

	srv := httptest.NewServer(api.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events", nil)
	require.NoError(t, err)

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	var lines []string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		lines = append(lines, line)
		if strings.HasPrefix(line, "data:") {
			break
		}
	}

	require.Contains(t, lines, "event:table_seated")
	data := strings.TrimPrefix(lines[len(lines)-1], "data:")
	var msg redisrepo.ChangeMessage
	require.NoError(t, json.NewDecoder(bytes.NewBufferString(data)).Decode(&msg))
	assert.Equal(t, int64(2), msg.Change.ReservationID)
}

func TestEvents_DisabledWithoutSubscriber(t *testing.T) {
	api := newTestAPI(t, options{})

	w := api.do(t, http.MethodGet, "/events", "")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
