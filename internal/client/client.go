// Package client talks to the reservation API over HTTP. Every call builds
// its own request headers; nothing is shared between calls.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/kirinyoku/periodic-tables/internal/domain"
)

const defaultBaseURL = "http://localhost:8080"

// APIError is an {"error": ...} reply from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.StatusCode, e.Message)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// CallOption adjusts a single request.
type CallOption func(*requestConfig)

type requestConfig struct {
	headers http.Header
}

func newRequestConfig(opts []CallOption) *requestConfig {
	rc := &requestConfig{headers: http.Header{}}
	rc.headers.Set("Content-Type", "application/json")
	rc.headers.Set("Accept", "application/json")

	for _, opt := range opts {
		opt(rc)
	}

	return rc
}

func WithHeader(key, value string) CallOption {
	return func(rc *requestConfig) { rc.headers.Set(key, value) }
}

func WithIdempotencyKey(key string) CallOption {
	return WithHeader("Idempotency-Key", key)
}

func WithRequestID(id string) CallOption {
	return WithHeader("X-Request-ID", id)
}

type ListReservationsParams struct {
	Date         string
	MobileNumber string
}

func (c *Client) ListReservations(ctx context.Context, p ListReservationsParams, opts ...CallOption) ([]domain.Reservation, error) {
	q := url.Values{}
	if p.Date != "" {
		q.Set("date", p.Date)
	}
	if p.MobileNumber != "" {
		q.Set("mobile_number", p.MobileNumber)
	}

	var out []domain.Reservation
	err := c.do(ctx, http.MethodGet, "/reservations", q, nil, &out, opts)
	return out, err
}

func (c *Client) CreateReservation(ctx context.Context, r domain.Reservation, opts ...CallOption) (*domain.Reservation, error) {
	var out domain.Reservation
	if err := c.do(ctx, http.MethodPost, "/reservations", nil, reservationPayload(r), &out, opts); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetReservation(ctx context.Context, id int64, opts ...CallOption) (*domain.Reservation, error) {
	var out domain.Reservation
	if err := c.do(ctx, http.MethodGet, "/reservations/"+strconv.FormatInt(id, 10), nil, nil, &out, opts); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateReservation(ctx context.Context, id int64, r domain.Reservation, opts ...CallOption) (*domain.Reservation, error) {
	var out domain.Reservation
	if err := c.do(ctx, http.MethodPut, "/reservations/"+strconv.FormatInt(id, 10), nil, reservationPayload(r), &out, opts); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CancelReservation(ctx context.Context, id int64, opts ...CallOption) (*domain.Reservation, error) {
	return c.UpdateReservationStatus(ctx, id, domain.StatusCancelled, opts...)
}

func (c *Client) UpdateReservationStatus(
	ctx context.Context,
	id int64,
	status domain.ReservationStatus,
	opts ...CallOption,
) (*domain.Reservation, error) {
	body := map[string]any{"status": status}

	var out domain.Reservation
	if err := c.do(ctx, http.MethodPut, "/reservations/"+strconv.FormatInt(id, 10)+"/status", nil, body, &out, opts); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListTables(ctx context.Context, opts ...CallOption) ([]domain.Table, error) {
	var out []domain.Table
	err := c.do(ctx, http.MethodGet, "/tables", nil, nil, &out, opts)
	return out, err
}

func (c *Client) CreateTable(ctx context.Context, name string, capacity int, opts ...CallOption) (*domain.Table, error) {
	body := map[string]any{"table_name": name, "capacity": capacity}

	var out domain.Table
	if err := c.do(ctx, http.MethodPost, "/tables", nil, body, &out, opts); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetTable(ctx context.Context, id int64, opts ...CallOption) (*domain.Table, error) {
	var out domain.Table
	if err := c.do(ctx, http.MethodGet, "/tables/"+strconv.FormatInt(id, 10), nil, nil, &out, opts); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SeatReservation(ctx context.Context, tableID, reservationID int64, opts ...CallOption) (*domain.Table, error) {
	body := map[string]any{"reservation_id": reservationID}

	var out domain.Table
	if err := c.do(ctx, http.MethodPut, "/tables/"+strconv.FormatInt(tableID, 10)+"/seat", nil, body, &out, opts); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) FinishTable(ctx context.Context, tableID int64, opts ...CallOption) (*domain.Table, error) {
	var out domain.Table
	if err := c.do(ctx, http.MethodDelete, "/tables/"+strconv.FormatInt(tableID, 10)+"/seat", nil, nil, &out, opts); err != nil {
		return nil, err
	}
	return &out, nil
}

func reservationPayload(r domain.Reservation) map[string]any {
	return map[string]any{
		"first_name":       r.FirstName,
		"last_name":        r.LastName,
		"mobile_number":    r.MobileNumber,
		"reservation_date": r.ReservationDate,
		"reservation_time": r.ReservationTime,
		"people":           r.People,
	}
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

// do sends one request and decodes the data envelope into out. A 204 or
// an empty data field leaves out untouched.
func (c *Client) do(
	ctx context.Context,
	method, path string,
	query url.Values,
	data any,
	out any,
	opts []CallOption,
) error {
	const op = "client.do"

	rc := newRequestConfig(opts)

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if data != nil {
		b, err := json.Marshal(map[string]any{"data": data})
		if err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}
	req.Header = rc.headers

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if errors.Is(err, io.EOF) && resp.StatusCode < http.StatusBadRequest {
			return nil
		}
		return fmt.Errorf("%s: decode %d response: %w", op, resp.StatusCode, err)
	}

	if env.Error != "" || resp.StatusCode >= http.StatusBadRequest {
		msg := env.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}

	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%s: decode data: %w", op, err)
	}

	return nil
}
