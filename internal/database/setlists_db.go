package database

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rehearsal-scheduler/app/internal/models"
)

const setlistSelect = `
	SELECT s.id, s.band_id, s.rehearsal_id, s.name, s.description, s.created_by, s.created_at, s.updated_at,
		(SELECT COALESCE(SUM(i.duration_seconds), 0) FROM setlist_items i WHERE i.setlist_id = s.id) AS total_duration
	FROM setlists s`

const itemColumns = "id, setlist_id, position, title, artist, duration_seconds, notes, resource_id"

// CreateSetlist inserts the setlist and its items in one transaction.
func CreateSetlist(ctx context.Context, db *sqlx.DB, setlist *models.Setlist) (*models.Setlist, error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	var id int64
	err = tx.QueryRowxContext(ctx, tx.Rebind(`
		INSERT INTO setlists(band_id, rehearsal_id, name, description, created_by, created_at, updated_at)
		VALUES(?, ?, ?, ?, ?, ?, ?) RETURNING id`),
		setlist.BandID, setlist.RehearsalID, strings.TrimSpace(setlist.Name), setlist.Description,
		setlist.CreatedBy, now, now,
	).Scan(&id)
	if err != nil {
		return nil, err
	}

	if err = insertSetlistItems(ctx, tx, id, setlist.Items); err != nil {
		return nil, err
	}

	created, err := GetSetlistByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return created, nil
}

// GetSetlistByID retrieves a setlist with its items in position order.
func GetSetlistByID(ctx context.Context, db sqlx.ExtContext, id int64) (*models.Setlist, error) {
	setlist := &models.Setlist{}
	if err := sqlx.GetContext(ctx, db, setlist, db.Rebind(setlistSelect+" WHERE s.id = ?"), id); err != nil {
		return nil, err // This will include sql.ErrNoRows if not found
	}

	items := []*models.SetlistItem{}
	err := sqlx.SelectContext(ctx, db, &items, db.Rebind(
		"SELECT "+itemColumns+" FROM setlist_items WHERE setlist_id = ? ORDER BY position"), id)
	if err != nil {
		return nil, err
	}
	setlist.Items = items
	return setlist, nil
}

// ListSetlistsForUser returns the setlists of the caller's bands without
// items, newest first.
func ListSetlistsForUser(ctx context.Context, db sqlx.ExtContext, userID, bandID int64) ([]*models.Setlist, error) {
	query := setlistSelect + `
		JOIN band_members me ON me.band_id = s.band_id AND me.user_id = ?`
	args := []interface{}{userID}
	if bandID != 0 {
		query += " WHERE s.band_id = ?"
		args = append(args, bandID)
	}
	query += " ORDER BY s.updated_at DESC, s.id DESC"

	setlists := []*models.Setlist{}
	if err := sqlx.SelectContext(ctx, db, &setlists, db.Rebind(query), args...); err != nil {
		return nil, err
	}
	return setlists, nil
}

// UpdateSetlist saves the setlist fields and replaces all items. Items are
// renumbered from 0 in the order given.
func UpdateSetlist(ctx context.Context, db *sqlx.DB, setlist *models.Setlist) (*models.Setlist, error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, tx.Rebind(
		"UPDATE setlists SET rehearsal_id = ?, name = ?, description = ?, updated_at = ? WHERE id = ?"),
		setlist.RehearsalID, strings.TrimSpace(setlist.Name), setlist.Description, time.Now().UTC(), setlist.ID)
	if err != nil {
		return nil, err
	}
	if err = expectAffected(res); err != nil {
		return nil, err
	}

	if _, err = tx.ExecContext(ctx, tx.Rebind("DELETE FROM setlist_items WHERE setlist_id = ?"), setlist.ID); err != nil {
		return nil, err
	}
	if err = insertSetlistItems(ctx, tx, setlist.ID, setlist.Items); err != nil {
		return nil, err
	}

	updated, err := GetSetlistByID(ctx, tx, setlist.ID)
	if err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return updated, nil
}

func DeleteSetlist(ctx context.Context, db sqlx.ExtContext, id int64) error {
	res, err := db.ExecContext(ctx, db.Rebind("DELETE FROM setlists WHERE id = ?"), id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func insertSetlistItems(ctx context.Context, tx *sqlx.Tx, setlistID int64, items []*models.SetlistItem) error {
	stmt, err := tx.PreparexContext(ctx, tx.Rebind(`
		INSERT INTO setlist_items(setlist_id, position, title, artist, duration_seconds, notes, resource_id)
		VALUES(?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, item := range items {
		_, err := stmt.ExecContext(ctx, setlistID, i, strings.TrimSpace(item.Title), item.Artist,
			item.DurationSeconds, item.Notes, item.ResourceID)
		if err != nil {
			return err
		}
	}
	return nil
}
