package model

import "time"

// Progress categories tracked for clients. These feed the radar chart
// on the client dashboard.
var ProgressCategories = []string{
	"Strength", "Cardio", "Flexibility", "Balance", "Endurance", "Speed",
}

// ValidProgressCategory reports whether name is one of the tracked
// categories.
func ValidProgressCategory(name string) bool {
	for _, c := range ProgressCategories {
		if c == name {
			return true
		}
	}
	return false
}

// ProgressEntry is one recorded measurement for a client in a single
// category, scored 0-100. The latest entry per category forms the
// client's current profile.
type ProgressEntry struct {
	ID         uint64    `json:"id"`          // progress_entries.id
	ClientID   uint64    `json:"client_id"`   // progress_entries.client_id
	Category   string    `json:"category"`    // progress_entries.category
	Score      uint8     `json:"score"`       // progress_entries.score (0-100)
	RecordedAt time.Time `json:"recorded_at"` // progress_entries.recorded_at
}
