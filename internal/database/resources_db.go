package database

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rehearsal-scheduler/app/internal/models"
)

const resourceColumns = "id, band_id, title, type, url, notes, created_by, created_at, updated_at"

func CreateResource(ctx context.Context, db sqlx.ExtContext, resource *models.Resource) (*models.Resource, error) {
	now := time.Now().UTC()
	var id int64
	err := db.QueryRowxContext(ctx, db.Rebind(`
		INSERT INTO resources(band_id, title, type, url, notes, created_by, created_at, updated_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`),
		resource.BandID, strings.TrimSpace(resource.Title), resource.Type, strings.TrimSpace(resource.URL),
		resource.Notes, resource.CreatedBy, now, now,
	).Scan(&id)
	if err != nil {
		return nil, err
	}
	return GetResourceByID(ctx, db, id)
}

func GetResourceByID(ctx context.Context, db sqlx.ExtContext, id int64) (*models.Resource, error) {
	resource := &models.Resource{}
	if err := sqlx.GetContext(ctx, db, resource, db.Rebind("SELECT "+resourceColumns+" FROM resources WHERE id = ?"), id); err != nil {
		return nil, err
	}
	return resource, nil
}

// ListResourcesForUser returns resources of the caller's bands, optionally
// narrowed to one band and one type.
func ListResourcesForUser(ctx context.Context, db sqlx.ExtContext, userID, bandID int64, resourceType string) ([]*models.Resource, error) {
	query := `SELECT res.id, res.band_id, res.title, res.type, res.url, res.notes, res.created_by, res.created_at, res.updated_at
		FROM resources res
		JOIN band_members me ON me.band_id = res.band_id AND me.user_id = ?`
	args := []interface{}{userID}

	var conds []string
	if bandID != 0 {
		conds = append(conds, "res.band_id = ?")
		args = append(args, bandID)
	}
	if resourceType != "" {
		conds = append(conds, "res.type = ?")
		args = append(args, resourceType)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY res.title, res.id"

	resources := []*models.Resource{}
	if err := sqlx.SelectContext(ctx, db, &resources, db.Rebind(query), args...); err != nil {
		return nil, err
	}
	return resources, nil
}

func UpdateResource(ctx context.Context, db sqlx.ExtContext, resource *models.Resource) (*models.Resource, error) {
	res, err := db.ExecContext(ctx, db.Rebind(
		"UPDATE resources SET title = ?, type = ?, url = ?, notes = ?, updated_at = ? WHERE id = ?"),
		strings.TrimSpace(resource.Title), resource.Type, strings.TrimSpace(resource.URL), resource.Notes,
		time.Now().UTC(), resource.ID)
	if err != nil {
		return nil, err
	}
	if err = expectAffected(res); err != nil {
		return nil, err
	}
	return GetResourceByID(ctx, db, resource.ID)
}

func DeleteResource(ctx context.Context, db sqlx.ExtContext, id int64) error {
	res, err := db.ExecContext(ctx, db.Rebind("DELETE FROM resources WHERE id = ?"), id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}
