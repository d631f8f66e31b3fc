package models

import "time"

const (
	ResourceLink       = "LINK"
	ResourceSheetMusic = "SHEET_MUSIC"
	ResourceAudio      = "AUDIO"
	ResourceVideo      = "VIDEO"
	ResourceDocument   = "DOCUMENT"
	ResourceOther      = "OTHER"
)

// ValidResourceType reports whether t is a known resource type.
func ValidResourceType(t string) bool {
	switch t {
	case ResourceLink, ResourceSheetMusic, ResourceAudio, ResourceVideo, ResourceDocument, ResourceOther:
		return true
	}
	return false
}

// Resource is band material such as a chart, recording or link.
type Resource struct {
	ID        int64     `db:"id" json:"id"`
	BandID    int64     `db:"band_id" json:"bandId"`
	Title     string    `db:"title" json:"title"`
	Type      string    `db:"type" json:"type"`
	URL       string    `db:"url" json:"url"`
	Notes     string    `db:"notes" json:"notes"`
	CreatedBy int64     `db:"created_by" json:"createdBy"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}
