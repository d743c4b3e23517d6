package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/0SilentFox0/fit-app/internal/model"
	"github.com/0SilentFox0/fit-app/internal/scheduling"
)

// BookingRepo provides data access to the bookings table and
// implements scheduling.BookingStore. Bookings are immutable except
// for their status column; status moves only CONFIRMED→COMPLETED or
// CONFIRMED→CANCELLED, each via a conditional UPDATE.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a BookingRepo bound to the provided database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `id, request_id, trainer_id, client_id, slot_id, status, created_at, updated_at`

func scanBooking(row interface{ Scan(...any) error }) (model.Booking, error) {
	var b model.Booking
	err := row.Scan(&b.ID, &b.RequestID, &b.TrainerID, &b.ClientID, &b.SlotID,
		&b.Status, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

// CreateBooking inserts a booking and populates its ID and timestamps.
func (r *BookingRepo) CreateBooking(ctx context.Context, b *model.Booking) error {
	const q = `INSERT INTO bookings (request_id, trainer_id, client_id, slot_id, status)
	           VALUES (?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, b.RequestID, b.TrainerID, b.ClientID, b.SlotID, b.Status)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	stored, err := scanBooking(r.db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, b.ID))
	if err != nil {
		return err
	}
	*b = stored
	return nil
}

// GetBooking returns a booking by id.
func (r *BookingRepo) GetBooking(ctx context.Context, id uint64) (model.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Booking{}, scheduling.ErrBookingNotFound
	}
	return b, err
}

// CancelBooking applies CONFIRMED→CANCELLED. An already-cancelled
// booking reports changed=false with no error so that repeated cancels
// stay idempotent; a completed booking cannot be cancelled.
func (r *BookingRepo) CancelBooking(ctx context.Context, id uint64) (bool, error) {
	const q = `UPDATE bookings SET status = 'CANCELLED', updated_at = UTC_TIMESTAMP()
	           WHERE id = ? AND status = 'CONFIRMED'`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return false, err
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return true, nil
	}
	var status string
	err = r.db.QueryRowContext(ctx, `SELECT status FROM bookings WHERE id = ?`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return false, scheduling.ErrBookingNotFound
	}
	if err != nil {
		return false, err
	}
	if status == model.BookingCancelled {
		return false, nil
	}
	return false, scheduling.ErrInvalidState
}

// CompletePast marks CONFIRMED bookings whose slot has ended as
// COMPLETED and returns how many rows changed.
func (r *BookingRepo) CompletePast(ctx context.Context, now time.Time) (int64, error) {
	const q = `UPDATE bookings b
	           JOIN time_slots s ON s.id = b.slot_id
	           SET b.status = 'COMPLETED', b.updated_at = UTC_TIMESTAMP()
	           WHERE b.status = 'CONFIRMED' AND s.end_time <= ?`
	res, err := r.db.ExecContext(ctx, q, now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// BookingsByClient lists a client's bookings, newest first.
func (r *BookingRepo) BookingsByClient(ctx context.Context, clientID uint64) ([]model.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings
	           WHERE client_id = ? ORDER BY created_at DESC`
	return r.queryBookings(ctx, q, clientID)
}

// BookingsByTrainer lists a trainer's bookings whose slot starts
// within [from, to), ordered by slot start.
func (r *BookingRepo) BookingsByTrainer(ctx context.Context, trainerID uint64, from, to time.Time) ([]model.Booking, error) {
	const q = `SELECT b.id, b.request_id, b.trainer_id, b.client_id, b.slot_id, b.status, b.created_at, b.updated_at
	           FROM bookings b
	           JOIN time_slots s ON s.id = b.slot_id
	           WHERE b.trainer_id = ? AND s.start_time >= ? AND s.start_time < ?
	           ORDER BY s.start_time ASC`
	return r.queryBookings(ctx, q, trainerID, from.UTC(), to.UTC())
}

func (r *BookingRepo) queryBookings(ctx context.Context, q string, args ...any) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// CalendarEvent is a booking joined with its slot window and the
// client's display name, shaped for the trainer's calendar view.
type CalendarEvent struct {
	BookingID   uint64    `json:"booking_id"`
	ClientID    uint64    `json:"client_id"`
	ClientName  string    `json:"client_name"`
	SessionType string    `json:"session_type"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Status      string    `json:"status"`
}

// CalendarEvents returns a trainer's non-cancelled bookings within
// [from, to) with client and session details resolved.
func (r *BookingRepo) CalendarEvents(ctx context.Context, trainerID uint64, from, to time.Time) ([]CalendarEvent, error) {
	const q = `SELECT b.id, b.client_id, CONCAT(u.first_name, ' ', u.last_name),
	                  br.session_type, s.start_time, s.end_time, b.status
	           FROM bookings b
	           JOIN time_slots s ON s.id = b.slot_id
	           JOIN users u ON u.id = b.client_id
	           JOIN booking_requests br ON br.id = b.request_id
	           WHERE b.trainer_id = ? AND b.status <> 'CANCELLED'
	             AND s.start_time >= ? AND s.start_time < ?
	           ORDER BY s.start_time ASC`
	rows, err := r.db.QueryContext(ctx, q, trainerID, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]CalendarEvent, 0)
	for rows.Next() {
		var ev CalendarEvent
		if err := rows.Scan(&ev.BookingID, &ev.ClientID, &ev.ClientName,
			&ev.SessionType, &ev.StartTime, &ev.EndTime, &ev.Status); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// BookingDetail is a booking joined with its slot window and the
// counterpart's name, returned to clients listing their sessions.
type BookingDetail struct {
	ID          uint64    `json:"id"`
	TrainerID   uint64    `json:"trainer_id"`
	TrainerName string    `json:"trainer_name"`
	SessionType string    `json:"session_type"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// DetailsByClient returns a client's bookings with trainer and slot
// details resolved, newest first.
func (r *BookingRepo) DetailsByClient(ctx context.Context, clientID uint64) ([]BookingDetail, error) {
	const q = `SELECT b.id, b.trainer_id, CONCAT(u.first_name, ' ', u.last_name),
	                  br.session_type, s.start_time, s.end_time, b.status, b.created_at
	           FROM bookings b
	           JOIN time_slots s ON s.id = b.slot_id
	           JOIN users u ON u.id = b.trainer_id
	           JOIN booking_requests br ON br.id = b.request_id
	           WHERE b.client_id = ?
	           ORDER BY b.created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]BookingDetail, 0)
	for rows.Next() {
		var d BookingDetail
		if err := rows.Scan(&d.ID, &d.TrainerID, &d.TrainerName,
			&d.SessionType, &d.StartTime, &d.EndTime, &d.Status, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
