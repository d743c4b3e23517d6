package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/0SilentFox0/fit-app/internal/model"
	"github.com/0SilentFox0/fit-app/internal/scheduling"
)

// RequestRepo provides data access to the booking_requests table and
// implements scheduling.RequestStore. The PENDING→terminal transition
// is a conditional UPDATE, which makes the expiry sweep and the
// trainer's response mutually exclusive without any extra locking.
type RequestRepo struct {
	db *sql.DB
}

// NewRequestRepo returns a RequestRepo bound to the provided database.
func NewRequestRepo(db *sql.DB) *RequestRepo { return &RequestRepo{db: db} }

const requestColumns = `id, client_id, trainer_id, slot_id, session_type, duration_minutes, message, state, created_at, responded_at`

func scanRequest(row interface{ Scan(...any) error }) (model.BookingRequest, error) {
	var (
		req         model.BookingRequest
		respondedAt sql.NullTime
	)
	err := row.Scan(&req.ID, &req.ClientID, &req.TrainerID, &req.SlotID,
		&req.SessionType, &req.DurationMinutes, &req.Message, &req.State,
		&req.CreatedAt, &respondedAt)
	if err != nil {
		return model.BookingRequest{}, err
	}
	if respondedAt.Valid {
		t := respondedAt.Time
		req.RespondedAt = &t
	}
	return req, nil
}

// CreateRequest inserts a new request and populates its ID.
func (r *RequestRepo) CreateRequest(ctx context.Context, req *model.BookingRequest) error {
	const q = `INSERT INTO booking_requests
	           (client_id, trainer_id, slot_id, session_type, duration_minutes, message, state)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		req.ClientID, req.TrainerID, req.SlotID,
		req.SessionType, req.DurationMinutes, req.Message, req.State)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	req.ID = uint64(id)
	return nil
}

// GetRequest returns a request by id.
func (r *RequestRepo) GetRequest(ctx context.Context, id uint64) (model.BookingRequest, error) {
	req, err := scanRequest(r.db.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM booking_requests WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.BookingRequest{}, scheduling.ErrRequestNotFound
	}
	return req, err
}

// PendingBySlot returns the PENDING request that holds the given slot.
func (r *RequestRepo) PendingBySlot(ctx context.Context, slotID uint64) (model.BookingRequest, error) {
	req, err := scanRequest(r.db.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM booking_requests WHERE slot_id = ? AND state = 'PENDING' LIMIT 1`,
		slotID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.BookingRequest{}, scheduling.ErrRequestNotFound
	}
	return req, err
}

// CloseRequest applies PENDING→state. With several workers racing
// (trainer response vs expiry sweep) the UPDATE matches for exactly
// one of them; the rest get ErrInvalidState.
func (r *RequestRepo) CloseRequest(ctx context.Context, id uint64, state string, respondedAt time.Time) error {
	const q = `UPDATE booking_requests SET state = ?, responded_at = ?
	           WHERE id = ? AND state = 'PENDING'`
	res, err := r.db.ExecContext(ctx, q, state, respondedAt.UTC(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}
	var current string
	err = r.db.QueryRowContext(ctx, `SELECT state FROM booking_requests WHERE id = ?`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return scheduling.ErrRequestNotFound
	}
	if err != nil {
		return err
	}
	return scheduling.ErrInvalidState
}

// PendingByTrainer lists a trainer's open inbox, oldest first.
func (r *RequestRepo) PendingByTrainer(ctx context.Context, trainerID uint64) ([]model.BookingRequest, error) {
	const q = `SELECT ` + requestColumns + ` FROM booking_requests
	           WHERE trainer_id = ? AND state = 'PENDING'
	           ORDER BY created_at ASC`
	return r.queryRequests(ctx, q, trainerID)
}

// RequestsByClient lists a client's requests, newest first.
func (r *RequestRepo) RequestsByClient(ctx context.Context, clientID uint64) ([]model.BookingRequest, error) {
	const q = `SELECT ` + requestColumns + ` FROM booking_requests
	           WHERE client_id = ?
	           ORDER BY created_at DESC`
	return r.queryRequests(ctx, q, clientID)
}

func (r *RequestRepo) queryRequests(ctx context.Context, q string, args ...any) ([]model.BookingRequest, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.BookingRequest, 0)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

// RequestInboxItem is a pending request joined with the client's
// display details and the held slot's window. Returned by
// PendingDetailsByTrainer for the trainer's calendar inbox.
type RequestInboxItem struct {
	ID              uint64    `json:"id"`
	ClientID        uint64    `json:"client_id"`
	ClientName      string    `json:"client_name"`
	ClientEmail     string    `json:"client_email"`
	SlotID          uint64    `json:"slot_id"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	SessionType     string    `json:"session_type"`
	DurationMinutes int       `json:"duration_minutes"`
	Message         string    `json:"message"`
	CreatedAt       time.Time `json:"created_at"`
}

// PendingDetailsByTrainer returns the trainer's pending requests with
// client and slot details resolved, oldest first.
func (r *RequestRepo) PendingDetailsByTrainer(ctx context.Context, trainerID uint64) ([]RequestInboxItem, error) {
	const q = `SELECT br.id, br.client_id, CONCAT(u.first_name, ' ', u.last_name), u.email,
	                  br.slot_id, s.start_time, s.end_time,
	                  br.session_type, br.duration_minutes, br.message, br.created_at
	           FROM booking_requests br
	           JOIN users u ON u.id = br.client_id
	           JOIN time_slots s ON s.id = br.slot_id
	           WHERE br.trainer_id = ? AND br.state = 'PENDING'
	           ORDER BY br.created_at ASC`
	rows, err := r.db.QueryContext(ctx, q, trainerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]RequestInboxItem, 0)
	for rows.Next() {
		var it RequestInboxItem
		if err := rows.Scan(&it.ID, &it.ClientID, &it.ClientName, &it.ClientEmail,
			&it.SlotID, &it.StartTime, &it.EndTime,
			&it.SessionType, &it.DurationMinutes, &it.Message, &it.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
