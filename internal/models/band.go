package models

import "time"

const (
	BandRoleAdmin  = "ADMIN"
	BandRoleMember = "MEMBER"
)

// ValidBandRole reports whether role is a known membership role.
func ValidBandRole(role string) bool {
	return role == BandRoleAdmin || role == BandRoleMember
}

type Band struct {
	ID          int64         `db:"id" json:"id"`
	Name        string        `db:"name" json:"name"`
	Description string        `db:"description" json:"description"`
	CreatedBy   int64         `db:"created_by" json:"createdBy"`
	MemberCount int           `db:"member_count" json:"memberCount"`
	CreatedAt   time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updatedAt"`
	Members     []*BandMember `db:"-" json:"members,omitempty"`
}

// BandMember joins a user to a band. Name and Email come from the users table.
type BandMember struct {
	BandID   int64     `db:"band_id" json:"bandId"`
	UserID   int64     `db:"user_id" json:"userId"`
	Role     string    `db:"role" json:"role"`
	JoinedAt time.Time `db:"joined_at" json:"joinedAt"`
	Name     string    `db:"name" json:"name"`
	Email    string    `db:"email" json:"email"`
}

// BandSummary is the short form embedded in rehearsal listings.
type BandSummary struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
