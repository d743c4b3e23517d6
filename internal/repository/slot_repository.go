package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/0SilentFox0/fit-app/internal/model"
	"github.com/0SilentFox0/fit-app/internal/scheduling"
)

// SlotRepo provides data access to the time_slots table and implements
// scheduling.SlotStore. Every transition is a conditional UPDATE on a
// single row with a version bump, so concurrent callers race on the
// database's row lock and exactly one wins; there is never a
// table-level or application-level lock across slots. All timestamps
// are UTC.
type SlotRepo struct {
	db *sql.DB
}

// NewSlotRepo returns a SlotRepo bound to the provided database.
func NewSlotRepo(db *sql.DB) *SlotRepo { return &SlotRepo{db: db} }

const slotColumns = `id, trainer_id, start_time, end_time, status, held_by, held_until, version, created_at, updated_at`

func scanSlot(row interface{ Scan(...any) error }) (model.TimeSlot, error) {
	var (
		s         model.TimeSlot
		heldBy    sql.NullInt64
		heldUntil sql.NullTime
	)
	err := row.Scan(&s.ID, &s.TrainerID, &s.StartTime, &s.EndTime, &s.Status,
		&heldBy, &heldUntil, &s.Version, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return model.TimeSlot{}, err
	}
	if heldBy.Valid {
		s.HeldBy = uint64(heldBy.Int64)
	}
	if heldUntil.Valid {
		t := heldUntil.Time
		s.HeldUntil = &t
	}
	return s, nil
}

// PublishSlots inserts new availability for a trainer inside one
// transaction. Each slot is checked against the trainer's existing
// non-cancelled slots before insertion; any overlap aborts the whole
// batch with scheduling.ErrOverlap.
func (r *SlotRepo) PublishSlots(ctx context.Context, trainerID uint64, slots []model.TimeSlot) ([]model.TimeSlot, error) {
	if len(slots) == 0 {
		return []model.TimeSlot{}, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const overlapQ = `SELECT COUNT(*) FROM time_slots
	                  WHERE trainer_id = ? AND status <> 'CANCELLED'
	                    AND start_time < ? AND end_time > ?`
	for _, s := range slots {
		var n int
		if err := tx.QueryRowContext(ctx, overlapQ, trainerID, s.EndTime.UTC(), s.StartTime.UTC()).Scan(&n); err != nil {
			return nil, err
		}
		if n > 0 {
			return nil, scheduling.ErrOverlap
		}
	}

	const insertQ = `INSERT INTO time_slots (trainer_id, start_time, end_time, status, version)
	                 VALUES (?, ?, ?, 'OPEN', 0)`
	out := make([]model.TimeSlot, 0, len(slots))
	for _, s := range slots {
		res, err := tx.ExecContext(ctx, insertQ, trainerID, s.StartTime.UTC(), s.EndTime.UTC())
		if err != nil {
			return nil, err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		stored, err := scanSlot(tx.QueryRowContext(ctx, `SELECT `+slotColumns+` FROM time_slots WHERE id = ?`, id))
		if err != nil {
			return nil, err
		}
		out = append(out, stored)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return out, nil
}

// GetSlot returns the current state of one slot.
func (r *SlotRepo) GetSlot(ctx context.Context, slotID uint64) (model.TimeSlot, error) {
	s, err := scanSlot(r.db.QueryRowContext(ctx,
		`SELECT `+slotColumns+` FROM time_slots WHERE id = ?`, slotID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.TimeSlot{}, scheduling.ErrSlotNotFound
	}
	return s, err
}

// OpenSlots returns OPEN slots for a trainer within [from, to) ordered
// by start time. The snapshot may be stale by the time the caller
// attempts a hold; Hold's conditional UPDATE resolves the race.
func (r *SlotRepo) OpenSlots(ctx context.Context, trainerID uint64, from, to time.Time) ([]model.TimeSlot, error) {
	const q = `SELECT ` + slotColumns + ` FROM time_slots
	           WHERE trainer_id = ? AND status = 'OPEN'
	             AND start_time >= ? AND start_time < ?
	           ORDER BY start_time ASC`
	rows, err := r.db.QueryContext(ctx, q, trainerID, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.TimeSlot, 0)
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Hold attempts the OPEN→HELD transition. The WHERE clause is the
// admission control: with two concurrent callers the row matches for
// exactly one of them.
func (r *SlotRepo) Hold(ctx context.Context, slotID, clientID uint64, until time.Time) error {
	const q = `UPDATE time_slots
	           SET status = 'HELD', held_by = ?, held_until = ?, version = version + 1
	           WHERE id = ? AND status = 'OPEN'`
	res, err := r.db.ExecContext(ctx, q, clientID, until.UTC(), slotID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}
	return r.classifyHoldFailure(ctx, slotID)
}

// ReleaseHold attempts HELD→OPEN for the given holder.
func (r *SlotRepo) ReleaseHold(ctx context.Context, slotID, clientID uint64) error {
	const q = `UPDATE time_slots
	           SET status = 'OPEN', held_by = NULL, held_until = NULL, version = version + 1
	           WHERE id = ? AND status = 'HELD' AND held_by = ?`
	res, err := r.db.ExecContext(ctx, q, slotID, clientID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}
	s, err := r.GetSlot(ctx, slotID)
	if err != nil {
		return err
	}
	if s.Status != model.SlotHeld {
		return scheduling.ErrInvalidState
	}
	return scheduling.ErrNotHolder
}

// CommitHold attempts HELD→BOOKED. The deadline check is part of the
// UPDATE's condition, so no caller can book past its hold even if the
// sweep has not run yet.
func (r *SlotRepo) CommitHold(ctx context.Context, slotID, clientID uint64, now time.Time) error {
	const q = `UPDATE time_slots
	           SET status = 'BOOKED', held_by = NULL, held_until = NULL, version = version + 1
	           WHERE id = ? AND status = 'HELD' AND held_by = ? AND held_until > ?`
	res, err := r.db.ExecContext(ctx, q, slotID, clientID, now.UTC())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}
	s, err := r.GetSlot(ctx, slotID)
	if err != nil {
		return err
	}
	switch {
	case s.Status != model.SlotHeld:
		return scheduling.ErrSlotUnavailable
	case s.HeldBy != clientID:
		return scheduling.ErrNotHolder
	default:
		return scheduling.ErrHoldExpired
	}
}

// ExpireHold clears a lapsed hold via optimistic versioning: the
// holder is read first and the UPDATE only applies if the row has not
// moved since, so concurrent sweepers cannot double-expire.
func (r *SlotRepo) ExpireHold(ctx context.Context, slotID uint64, now time.Time) (uint64, bool, error) {
	s, err := r.GetSlot(ctx, slotID)
	if err != nil {
		return 0, false, err
	}
	if !s.HoldExpired(now) {
		return 0, false, nil
	}
	const q = `UPDATE time_slots
	           SET status = 'OPEN', held_by = NULL, held_until = NULL, version = version + 1
	           WHERE id = ? AND status = 'HELD' AND version = ?`
	res, err := r.db.ExecContext(ctx, q, slotID, s.Version)
	if err != nil {
		return 0, false, err
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return 0, false, nil
	}
	return s.HeldBy, true, nil
}

// Reopen attempts BOOKED→OPEN after a future booking was cancelled.
func (r *SlotRepo) Reopen(ctx context.Context, slotID uint64) error {
	const q = `UPDATE time_slots
	           SET status = 'OPEN', version = version + 1
	           WHERE id = ? AND status = 'BOOKED'`
	res, err := r.db.ExecContext(ctx, q, slotID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}
	if _, err := r.GetSlot(ctx, slotID); err != nil {
		return err
	}
	return scheduling.ErrInvalidState
}

// CancelSlot withdraws an OPEN slot owned by the trainer.
func (r *SlotRepo) CancelSlot(ctx context.Context, slotID, trainerID uint64) error {
	const q = `UPDATE time_slots
	           SET status = 'CANCELLED', version = version + 1
	           WHERE id = ? AND trainer_id = ? AND status = 'OPEN'`
	res, err := r.db.ExecContext(ctx, q, slotID, trainerID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}
	s, err := r.GetSlot(ctx, slotID)
	if err != nil {
		return err
	}
	if s.TrainerID != trainerID {
		return scheduling.ErrForbidden
	}
	return scheduling.ErrInvalidState
}

// StaleHolds lists HELD slots whose deadline has passed. A zero
// trainerID scans all trainers (used by the background sweep); a
// non-zero one narrows the scan for lazy expiry on reads.
func (r *SlotRepo) StaleHolds(ctx context.Context, trainerID uint64, now time.Time) ([]model.TimeSlot, error) {
	q := `SELECT ` + slotColumns + ` FROM time_slots WHERE status = 'HELD' AND held_until <= ?`
	args := []any{now.UTC()}
	if trainerID != 0 {
		q += ` AND trainer_id = ?`
		args = append(args, trainerID)
	}
	q += ` LIMIT 500`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.TimeSlot, 0)
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// classifyHoldFailure explains why a Hold matched no row.
func (r *SlotRepo) classifyHoldFailure(ctx context.Context, slotID uint64) error {
	var status string
	err := r.db.QueryRowContext(ctx, `SELECT status FROM time_slots WHERE id = ?`, slotID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return scheduling.ErrSlotNotFound
	}
	if err != nil {
		return err
	}
	return scheduling.ErrSlotUnavailable
}
