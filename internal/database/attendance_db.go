package database

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rehearsal-scheduler/app/internal/models"
)

// SetAttendance inserts a response or overwrites the existing one for the
// same (rehearsal, user) pair. It uses the "ON CONFLICT" clause to handle the
// upsert, so the last write wins.
func SetAttendance(ctx context.Context, db sqlx.ExtContext, resp *models.AttendanceResponse) error {
	_, err := db.ExecContext(ctx, db.Rebind(`
		INSERT INTO attendance_responses (rehearsal_id, user_id, status, note, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(rehearsal_id, user_id) DO UPDATE SET
			status = excluded.status,
			note = excluded.note,
			updated_at = excluded.updated_at`),
		resp.RehearsalID, resp.UserID, resp.Status, resp.Note, time.Now().UTC())
	return err
}

// GetAttendanceForRehearsal lists one response per current band member.
// Members who never answered are reported as NO_RESPONSE with a nil UpdatedAt.
func GetAttendanceForRehearsal(ctx context.Context, db sqlx.ExtContext, rehearsalID int64) ([]*models.AttendanceResponse, error) {
	responses := []*models.AttendanceResponse{}
	err := sqlx.SelectContext(ctx, db, &responses, db.Rebind(`
		SELECT r.id AS rehearsal_id, m.user_id,
			COALESCE(a.status, 'NO_RESPONSE') AS status,
			COALESCE(a.note, '') AS note,
			a.updated_at,
			u.name AS user_name, u.email AS user_email
		FROM rehearsals r
		JOIN band_members m ON m.band_id = r.band_id
		JOIN users u ON u.id = m.user_id
		LEFT JOIN attendance_responses a ON a.rehearsal_id = r.id AND a.user_id = m.user_id
		WHERE r.id = ?
		ORDER BY u.name, u.id`), rehearsalID)
	if err != nil {
		return nil, err
	}
	return responses, nil
}

// GetAttendanceByUser retrieves a specific user's stored response for a rehearsal.
func GetAttendanceByUser(ctx context.Context, db sqlx.ExtContext, rehearsalID, userID int64) (*models.AttendanceResponse, error) {
	resp := &models.AttendanceResponse{}
	err := sqlx.GetContext(ctx, db, resp, db.Rebind(`
		SELECT a.rehearsal_id, a.user_id, a.status, a.note, a.updated_at,
			u.name AS user_name, u.email AS user_email
		FROM attendance_responses a
		JOIN users u ON a.user_id = u.id
		WHERE a.rehearsal_id = ? AND a.user_id = ?`), rehearsalID, userID)
	if err != nil {
		return nil, err // This will include sql.ErrNoRows if not found
	}
	return resp, nil
}
