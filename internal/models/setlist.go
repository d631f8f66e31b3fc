package models

import "time"

// Setlist is an ordered list of songs for a band, optionally tied to a
// rehearsal. TotalDuration is the sum of item durations in seconds.
type Setlist struct {
	ID            int64          `db:"id" json:"id"`
	BandID        int64          `db:"band_id" json:"bandId"`
	RehearsalID   *int64         `db:"rehearsal_id" json:"rehearsalId"`
	Name          string         `db:"name" json:"name"`
	Description   string         `db:"description" json:"description"`
	CreatedBy     int64          `db:"created_by" json:"createdBy"`
	TotalDuration int            `db:"total_duration" json:"totalDuration"`
	CreatedAt     time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updatedAt"`
	Items         []*SetlistItem `db:"-" json:"items,omitempty"`
}

// SetlistItem is one song in a setlist. Positions are 0-based and contiguous.
type SetlistItem struct {
	ID              int64  `db:"id" json:"id"`
	SetlistID       int64  `db:"setlist_id" json:"setlistId"`
	Position        int    `db:"position" json:"position"`
	Title           string `db:"title" json:"title"`
	Artist          string `db:"artist" json:"artist"`
	DurationSeconds int    `db:"duration_seconds" json:"durationSeconds"`
	Notes           string `db:"notes" json:"notes"`
	ResourceID      *int64 `db:"resource_id" json:"resourceId"`
}
