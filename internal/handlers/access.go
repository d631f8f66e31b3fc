package handlers

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/rehearsal-scheduler/app/internal/database"
	"github.com/rehearsal-scheduler/app/internal/models"
)

// requireMember returns the caller's membership in bandID. A missing band is
// 404; an existing band the caller is not in is 403.
func requireMember(ctx context.Context, db sqlx.ExtContext, bandID, userID int64) (*models.BandMember, error) {
	member, err := database.GetBandMember(ctx, db, bandID, userID)
	if err == nil {
		return member, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	if _, err = database.GetBandByID(ctx, db, bandID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NotFound("Band not found")
		}
		return nil, err
	}
	return nil, Forbidden("You are not a member of this band")
}

func requireAdmin(ctx context.Context, db sqlx.ExtContext, bandID, userID int64) (*models.BandMember, error) {
	member, err := requireMember(ctx, db, bandID, userID)
	if err != nil {
		return nil, err
	}
	if member.Role != models.BandRoleAdmin {
		return nil, Forbidden("Only band admins can do this")
	}
	return member, nil
}

// ownerOrAdmin allows the creator of a band-scoped record, or any admin of
// its band.
func ownerOrAdmin(member *models.BandMember, createdBy int64) error {
	if createdBy != member.UserID && member.Role != models.BandRoleAdmin {
		return Forbidden("Only the creator or a band admin can do this")
	}
	return nil
}
