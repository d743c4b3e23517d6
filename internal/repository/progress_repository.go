package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/0SilentFox0/fit-app/internal/model"
)

// ProgressRepo provides data access to progress_entries and the
// trainer roster queries built on top of users and bookings.
type ProgressRepo struct {
	db *sql.DB
}

// NewProgressRepo returns a ProgressRepo bound to the provided database.
func NewProgressRepo(db *sql.DB) *ProgressRepo { return &ProgressRepo{db: db} }

// RecordEntry inserts one measurement for a client.
func (r *ProgressRepo) RecordEntry(ctx context.Context, e *model.ProgressEntry) error {
	const q = `INSERT INTO progress_entries (client_id, category, score) VALUES (?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, e.ClientID, e.Category, e.Score)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	return nil
}

// LatestByClient returns the most recent score per category for one
// client. Entries are read in recording order and folded so the last
// one per category wins.
func (r *ProgressRepo) LatestByClient(ctx context.Context, clientID uint64) (map[string]uint8, error) {
	const q = `SELECT category, score FROM progress_entries
	           WHERE client_id = ? ORDER BY recorded_at ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, q, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	latest := make(map[string]uint8)
	for rows.Next() {
		var (
			category string
			score    uint8
		)
		if err := rows.Scan(&category, &score); err != nil {
			return nil, err
		}
		latest[category] = score
	}
	return latest, rows.Err()
}

// CategoryAverages returns the average of each category's latest
// scores across all clients, for the "you vs everyone" comparison on
// the progress screen.
func (r *ProgressRepo) CategoryAverages(ctx context.Context) (map[string]float64, error) {
	// Latest entry per (client, category), averaged per category.
	const q = `SELECT p.category, AVG(p.score)
	           FROM progress_entries p
	           JOIN (SELECT client_id, category, MAX(recorded_at) AS latest
	                 FROM progress_entries GROUP BY client_id, category) m
	             ON m.client_id = p.client_id AND m.category = p.category AND m.latest = p.recorded_at
	           GROUP BY p.category`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	avgs := make(map[string]float64)
	for rows.Next() {
		var (
			category string
			avg      float64
		)
		if err := rows.Scan(&category, &avg); err != nil {
			return nil, err
		}
		avgs[category] = avg
	}
	return avgs, rows.Err()
}

// RosterEntry summarises one client on a trainer's dashboard: contact
// details plus session counts drawn from the bookings table.
type RosterEntry struct {
	ClientID      uint64     `json:"client_id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	TotalSessions int        `json:"total_sessions"`
	LastSession   *time.Time `json:"last_session,omitempty"`
	NextSession   *time.Time `json:"next_session,omitempty"`
}

// TrainerRoster lists every client who has at least one non-cancelled
// booking with the trainer, with completed-session counts and the
// surrounding session times.
func (r *ProgressRepo) TrainerRoster(ctx context.Context, trainerID uint64) ([]RosterEntry, error) {
	const q = `SELECT u.id, CONCAT(u.first_name, ' ', u.last_name), u.email,
	                  SUM(CASE WHEN b.status = 'COMPLETED' THEN 1 ELSE 0 END),
	                  MAX(CASE WHEN b.status = 'COMPLETED' THEN s.start_time END),
	                  MIN(CASE WHEN b.status = 'CONFIRMED' AND s.start_time > UTC_TIMESTAMP() THEN s.start_time END)
	           FROM bookings b
	           JOIN users u ON u.id = b.client_id
	           JOIN time_slots s ON s.id = b.slot_id
	           WHERE b.trainer_id = ? AND b.status <> 'CANCELLED'
	           GROUP BY u.id, u.first_name, u.last_name, u.email
	           ORDER BY CONCAT(u.first_name, ' ', u.last_name) ASC`
	rows, err := r.db.QueryContext(ctx, q, trainerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]RosterEntry, 0)
	for rows.Next() {
		var (
			e    RosterEntry
			last sql.NullTime
			next sql.NullTime
		)
		if err := rows.Scan(&e.ClientID, &e.Name, &e.Email, &e.TotalSessions, &last, &next); err != nil {
			return nil, err
		}
		if last.Valid {
			t := last.Time
			e.LastSession = &t
		}
		if next.Valid {
			t := next.Time
			e.NextSession = &t
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
