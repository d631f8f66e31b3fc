package models

import "time"

const (
	AttendanceAttending  = "ATTENDING"
	AttendanceDeclined   = "DECLINED"
	AttendanceTentative  = "TENTATIVE"
	AttendanceNoResponse = "NO_RESPONSE"
)

// ValidAttendanceStatus reports whether status is one of the four response
// states. Any state may move to any other.
func ValidAttendanceStatus(status string) bool {
	switch status {
	case AttendanceAttending, AttendanceDeclined, AttendanceTentative, AttendanceNoResponse:
		return true
	}
	return false
}

// AttendanceResponse is a member's answer for one rehearsal. A member without
// a stored row is reported with AttendanceNoResponse and a zero UpdatedAt.
type AttendanceResponse struct {
	RehearsalID int64      `db:"rehearsal_id" json:"rehearsalId"`
	UserID      int64      `db:"user_id" json:"userId"`
	Status      string     `db:"status" json:"status"`
	Note        string     `db:"note" json:"note"`
	UpdatedAt   *time.Time `db:"updated_at" json:"updatedAt,omitempty"`
	UserName    string     `db:"user_name" json:"userName"`
	UserEmail   string     `db:"user_email" json:"userEmail"`
}
