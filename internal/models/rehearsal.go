package models

import "time"

type Rehearsal struct {
	ID              int64                 `db:"id" json:"id"`
	BandID          int64                 `db:"band_id" json:"bandId"`
	BandName        string                `db:"band_name" json:"-"`
	Title           string                `db:"title" json:"title"`
	Description     string                `db:"description" json:"description"`
	StartTime       time.Time             `db:"start_time" json:"startTime"`
	EndTime         time.Time             `db:"end_time" json:"endTime"`
	Location        string                `db:"location" json:"location"`
	CreatedBy       int64                 `db:"created_by" json:"createdBy"`
	AttendanceCount int                   `db:"attendance_count" json:"attendanceCount"`
	CreatedAt       time.Time             `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time             `db:"updated_at" json:"updatedAt"`
	Band            *BandSummary          `db:"-" json:"band,omitempty"`
	Responses       []*AttendanceResponse `db:"-" json:"responses,omitempty"`
}

// RehearsalFilter narrows rehearsal listings. Zero values mean no filter.
type RehearsalFilter struct {
	BandID int64
	From   time.Time
	To     time.Time
	Limit  int
}
