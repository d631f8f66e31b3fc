package database

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rehearsal-scheduler/app/internal/models"
)

// attendance_count only counts answers from current band members.
const rehearsalSelect = `
	SELECT r.id, r.band_id, b.name AS band_name, r.title, r.description, r.start_time, r.end_time,
		r.location, r.created_by, r.created_at, r.updated_at,
		(SELECT COUNT(*) FROM attendance_responses a
			JOIN band_members am ON am.band_id = r.band_id AND am.user_id = a.user_id
			WHERE a.rehearsal_id = r.id AND a.status = 'ATTENDING') AS attendance_count
	FROM rehearsals r
	JOIN bands b ON b.id = r.band_id`

// CreateRehearsal inserts a new rehearsal into the rehearsals table.
func CreateRehearsal(ctx context.Context, db sqlx.ExtContext, rehearsal *models.Rehearsal) (*models.Rehearsal, error) {
	now := time.Now().UTC()
	var id int64
	err := db.QueryRowxContext(ctx, db.Rebind(`
		INSERT INTO rehearsals(band_id, title, description, start_time, end_time, location, created_by, created_at, updated_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`),
		rehearsal.BandID, strings.TrimSpace(rehearsal.Title), rehearsal.Description,
		rehearsal.StartTime.UTC(), rehearsal.EndTime.UTC(), rehearsal.Location,
		rehearsal.CreatedBy, now, now,
	).Scan(&id)
	if err != nil {
		return nil, err
	}

	// Read back to pick up the band name and the derived count.
	return GetRehearsalByID(ctx, db, id)
}

// GetRehearsalByID retrieves a rehearsal by its ID, without responses.
func GetRehearsalByID(ctx context.Context, db sqlx.ExtContext, id int64) (*models.Rehearsal, error) {
	rehearsal := &models.Rehearsal{}
	if err := sqlx.GetContext(ctx, db, rehearsal, db.Rebind(rehearsalSelect+" WHERE r.id = ?"), id); err != nil {
		return nil, err // This will include sql.ErrNoRows if not found
	}
	fillBandSummary(rehearsal)
	return rehearsal, nil
}

// ListRehearsalsForUser retrieves the rehearsals of every band userID belongs
// to, ordered by start time ascending.
func ListRehearsalsForUser(ctx context.Context, db sqlx.ExtContext, userID int64, filter models.RehearsalFilter) ([]*models.Rehearsal, error) {
	query := rehearsalSelect + " JOIN band_members me ON me.band_id = r.band_id AND me.user_id = ?"
	args := []interface{}{userID}

	var conds []string
	if filter.BandID != 0 {
		conds = append(conds, "r.band_id = ?")
		args = append(args, filter.BandID)
	}
	if !filter.From.IsZero() {
		conds = append(conds, "r.start_time >= ?")
		args = append(args, filter.From.UTC())
	}
	if !filter.To.IsZero() {
		conds = append(conds, "r.start_time <= ?")
		args = append(args, filter.To.UTC())
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY r.start_time ASC, r.id ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rehearsals := []*models.Rehearsal{}
	if err := sqlx.SelectContext(ctx, db, &rehearsals, db.Rebind(query), args...); err != nil {
		return nil, err
	}
	for _, r := range rehearsals {
		fillBandSummary(r)
	}
	return rehearsals, nil
}

// UpdateRehearsal saves the editable fields of a rehearsal.
func UpdateRehearsal(ctx context.Context, db sqlx.ExtContext, rehearsal *models.Rehearsal) (*models.Rehearsal, error) {
	res, err := db.ExecContext(ctx, db.Rebind(`
		UPDATE rehearsals SET title = ?, description = ?, start_time = ?, end_time = ?, location = ?, updated_at = ?
		WHERE id = ?`),
		strings.TrimSpace(rehearsal.Title), rehearsal.Description, rehearsal.StartTime.UTC(),
		rehearsal.EndTime.UTC(), rehearsal.Location, time.Now().UTC(), rehearsal.ID)
	if err != nil {
		return nil, err
	}
	if err = expectAffected(res); err != nil {
		return nil, err
	}
	return GetRehearsalByID(ctx, db, rehearsal.ID)
}

// DeleteRehearsal removes a rehearsal and its attendance responses.
func DeleteRehearsal(ctx context.Context, db sqlx.ExtContext, id int64) error {
	res, err := db.ExecContext(ctx, db.Rebind("DELETE FROM rehearsals WHERE id = ?"), id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func fillBandSummary(r *models.Rehearsal) {
	r.Band = &models.BandSummary{ID: r.BandID, Name: r.BandName}
}
