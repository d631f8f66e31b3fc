package database

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rehearsal-scheduler/app/internal/models"
)

// ErrLastAdmin is returned when a change would leave a band without an admin.
var ErrLastAdmin = errors.New("band must keep at least one admin")

const bandSelect = `
	SELECT b.id, b.name, b.description, b.created_by, b.created_at, b.updated_at,
		(SELECT COUNT(*) FROM band_members bm WHERE bm.band_id = b.id) AS member_count
	FROM bands b`

const memberSelect = `
	SELECT m.band_id, m.user_id, m.role, m.joined_at, u.name, u.email
	FROM band_members m
	JOIN users u ON u.id = m.user_id`

// CreateBand inserts the band and makes its creator the first admin.
func CreateBand(ctx context.Context, db *sqlx.DB, band *models.Band) (*models.Band, error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	var id int64
	err = tx.QueryRowxContext(ctx, tx.Rebind(
		"INSERT INTO bands(name, description, created_by, created_at, updated_at) VALUES(?, ?, ?, ?, ?) RETURNING id"),
		strings.TrimSpace(band.Name), band.Description, band.CreatedBy, now, now,
	).Scan(&id)
	if err != nil {
		return nil, err
	}

	if err = AddBandMember(ctx, tx, id, band.CreatedBy, models.BandRoleAdmin); err != nil {
		return nil, err
	}

	created, err := GetBandByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return created, nil
}

// GetBandByID retrieves a band without its member list.
func GetBandByID(ctx context.Context, db sqlx.ExtContext, id int64) (*models.Band, error) {
	band := &models.Band{}
	if err := sqlx.GetContext(ctx, db, band, db.Rebind(bandSelect+" WHERE b.id = ?"), id); err != nil {
		return nil, err // This will include sql.ErrNoRows if not found
	}
	return band, nil
}

// ListBandsForUser returns the bands userID belongs to, ordered by name.
func ListBandsForUser(ctx context.Context, db sqlx.ExtContext, userID int64) ([]*models.Band, error) {
	bands := []*models.Band{}
	err := sqlx.SelectContext(ctx, db, &bands, db.Rebind(bandSelect+`
		JOIN band_members me ON me.band_id = b.id AND me.user_id = ?
		ORDER BY b.name, b.id`), userID)
	if err != nil {
		return nil, err
	}
	return bands, nil
}

// UpdateBand saves the name and description of a band.
func UpdateBand(ctx context.Context, db sqlx.ExtContext, band *models.Band) (*models.Band, error) {
	res, err := db.ExecContext(ctx, db.Rebind(
		"UPDATE bands SET name = ?, description = ?, updated_at = ? WHERE id = ?"),
		strings.TrimSpace(band.Name), band.Description, time.Now().UTC(), band.ID)
	if err != nil {
		return nil, err
	}
	if err = expectAffected(res); err != nil {
		return nil, err
	}
	return GetBandByID(ctx, db, band.ID)
}

// DeleteBand removes a band. Members, rehearsals, setlists and resources cascade.
func DeleteBand(ctx context.Context, db sqlx.ExtContext, id int64) error {
	res, err := db.ExecContext(ctx, db.Rebind("DELETE FROM bands WHERE id = ?"), id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

// GetBandMembers lists the members of a band, admins first.
func GetBandMembers(ctx context.Context, db sqlx.ExtContext, bandID int64) ([]*models.BandMember, error) {
	members := []*models.BandMember{}
	err := sqlx.SelectContext(ctx, db, &members, db.Rebind(memberSelect+`
		WHERE m.band_id = ?
		ORDER BY CASE m.role WHEN 'ADMIN' THEN 0 ELSE 1 END, u.name, u.id`), bandID)
	if err != nil {
		return nil, err
	}
	return members, nil
}

// GetBandMember returns sql.ErrNoRows when userID is not in the band.
func GetBandMember(ctx context.Context, db sqlx.ExtContext, bandID, userID int64) (*models.BandMember, error) {
	member := &models.BandMember{}
	err := sqlx.GetContext(ctx, db, member, db.Rebind(memberSelect+" WHERE m.band_id = ? AND m.user_id = ?"), bandID, userID)
	if err != nil {
		return nil, err
	}
	return member, nil
}

// AddBandMember adds userID to the band, or changes the role of an existing member.
func AddBandMember(ctx context.Context, db sqlx.ExtContext, bandID, userID int64, role string) error {
	_, err := db.ExecContext(ctx, db.Rebind(`
		INSERT INTO band_members (band_id, user_id, role, joined_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(band_id, user_id) DO UPDATE SET
			role = excluded.role`),
		bandID, userID, role, time.Now().UTC())
	return err
}

// RemoveBandMember deletes a membership. The user's attendance rows stay.
func RemoveBandMember(ctx context.Context, db sqlx.ExtContext, bandID, userID int64) error {
	res, err := db.ExecContext(ctx, db.Rebind("DELETE FROM band_members WHERE band_id = ? AND user_id = ?"), bandID, userID)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

// CountBandAdmins returns how many admins the band has.
func CountBandAdmins(ctx context.Context, db sqlx.ExtContext, bandID int64) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, db, &n, db.Rebind("SELECT COUNT(*) FROM band_members WHERE band_id = ? AND role = ?"), bandID, models.BandRoleAdmin)
	return n, err
}

// SetBandMemberRole adds userID to the band with role, or changes the role of
// an existing member. Demoting the last admin fails with ErrLastAdmin. created
// reports whether a new membership was inserted.
func SetBandMemberRole(ctx context.Context, db *sqlx.DB, bandID, userID int64, role string) (created bool, err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	if err = lockBandAdmins(ctx, tx, bandID); err != nil {
		return false, err
	}
	existing, err := GetBandMember(ctx, tx, bandID, userID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		created = true
	case err != nil:
		return false, err
	case existing.Role == models.BandRoleAdmin && role != models.BandRoleAdmin:
		if err = ensureAnotherAdmin(ctx, tx, bandID); err != nil {
			return false, err
		}
	}

	if err = AddBandMember(ctx, tx, bandID, userID, role); err != nil {
		return false, err
	}
	return created, tx.Commit()
}

// LeaveBand removes userID from the band unless they are its last admin.
func LeaveBand(ctx context.Context, db *sqlx.DB, bandID, userID int64) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err = lockBandAdmins(ctx, tx, bandID); err != nil {
		return err
	}
	member, err := GetBandMember(ctx, tx, bandID, userID)
	if err != nil {
		return err
	}
	if member.Role == models.BandRoleAdmin {
		if err = ensureAnotherAdmin(ctx, tx, bandID); err != nil {
			return err
		}
	}

	if err = RemoveBandMember(ctx, tx, bandID, userID); err != nil {
		return err
	}
	return tx.Commit()
}

// lockBandAdmins row-locks the band's admins on Postgres so concurrent
// demotions serialize. SQLite runs on one connection and needs no lock.
func lockBandAdmins(ctx context.Context, tx *sqlx.Tx, bandID int64) error {
	if tx.DriverName() != DriverPostgres {
		return nil
	}
	var ids []int64
	return sqlx.SelectContext(ctx, tx, &ids, tx.Rebind(
		"SELECT user_id FROM band_members WHERE band_id = ? AND role = ? FOR UPDATE"), bandID, models.BandRoleAdmin)
}

func ensureAnotherAdmin(ctx context.Context, db sqlx.ExtContext, bandID int64) error {
	admins, err := CountBandAdmins(ctx, db, bandID)
	if err != nil {
		return err
	}
	if admins <= 1 {
		return ErrLastAdmin
	}
	return nil
}

// expectAffected turns a no-op UPDATE or DELETE into sql.ErrNoRows.
func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
