package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/rehearsal-scheduler/app/internal/database"
	"github.com/rehearsal-scheduler/app/internal/models"
)

type bandRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type memberRequest struct {
	Email  string `json:"email"`
	UserID int64  `json:"userId"`
	Role   string `json:"role"`
}

// ListBands returns the bands the caller belongs to.
func ListBands(env *Env) HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		bands, err := database.ListBandsForUser(r.Context(), env.DB, UserIDFromContext(r.Context()))
		if err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, bands)
		return nil
	}
}

// CreateBand creates a band with the caller as its first admin.
func CreateBand(env *Env) HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		var req bandRequest
		if err := decodeJSON(w, r, &req); err != nil {
			return err
		}
		if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
			return BadRequest("Band name is required")
		}

		band := &models.Band{
			Name:      *req.Name,
			CreatedBy: UserIDFromContext(r.Context()),
		}
		if req.Description != nil {
			band.Description = *req.Description
		}

		created, err := database.CreateBand(r.Context(), env.DB, band)
		if err != nil {
			return err
		}
		if created.Members, err = database.GetBandMembers(r.Context(), env.DB, created.ID); err != nil {
			return err
		}
		writeJSON(w, http.StatusCreated, created)
		return nil
	}
}

// GetBand returns a band with its members. Members only.
func GetBand(env *Env) HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		bandID, err := pathID(r, "id")
		if err != nil {
			return err
		}
		if _, err = requireMember(r.Context(), env.DB, bandID, UserIDFromContext(r.Context())); err != nil {
			return err
		}

		band, err := database.GetBandByID(r.Context(), env.DB, bandID)
		if err != nil {
			return err
		}
		if band.Members, err = database.GetBandMembers(r.Context(), env.DB, bandID); err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, band)
		return nil
	}
}

// UpdateBand changes name and/or description. Admins only.
func UpdateBand(env *Env) HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		bandID, err := pathID(r, "id")
		if err != nil {
			return err
		}
		var req bandRequest
		if err = decodeJSON(w, r, &req); err != nil {
			return err
		}
		if _, err = requireAdmin(r.Context(), env.DB, bandID, UserIDFromContext(r.Context())); err != nil {
			return err
		}

		band, err := database.GetBandByID(r.Context(), env.DB, bandID)
		if err != nil {
			return err
		}
		if req.Name != nil {
			if strings.TrimSpace(*req.Name) == "" {
				return BadRequest("Band name cannot be empty")
			}
			band.Name = *req.Name
		}
		if req.Description != nil {
			band.Description = *req.Description
		}

		updated, err := database.UpdateBand(r.Context(), env.DB, band)
		if err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, updated)
		return nil
	}
}

// DeleteBand removes the band and everything it owns. Admins only.
func DeleteBand(env *Env) HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		bandID, err := pathID(r, "id")
		if err != nil {
			return err
		}
		if _, err = requireAdmin(r.Context(), env.DB, bandID, UserIDFromContext(r.Context())); err != nil {
			return err
		}
		if err = database.DeleteBand(r.Context(), env.DB, bandID); err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Band deleted"})
		return nil
	}
}

func ListBandMembers(env *Env) HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		bandID, err := pathID(r, "id")
		if err != nil {
			return err
		}
		if _, err = requireMember(r.Context(), env.DB, bandID, UserIDFromContext(r.Context())); err != nil {
			return err
		}
		members, err := database.GetBandMembers(r.Context(), env.DB, bandID)
		if err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, members)
		return nil
	}
}

// AddBandMember adds a user, found by userId or email, to the band. Posting
// an existing member changes their role. Admins only.
func AddBandMember(env *Env) HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		bandID, err := pathID(r, "id")
		if err != nil {
			return err
		}
		var req memberRequest
		if err = decodeJSON(w, r, &req); err != nil {
			return err
		}

		if req.Role == "" {
			req.Role = models.BandRoleMember
		}
		req.Role = strings.ToUpper(req.Role)
		if !models.ValidBandRole(req.Role) {
			return BadRequest("Invalid role, must be ADMIN or MEMBER")
		}
		if req.UserID == 0 && strings.TrimSpace(req.Email) == "" {
			return BadRequest("Either userId or email is required")
		}

		ctx := r.Context()
		if _, err = requireAdmin(ctx, env.DB, bandID, UserIDFromContext(ctx)); err != nil {
			return err
		}

		var user *models.User
		if req.UserID != 0 {
			user, err = database.GetUserByID(ctx, env.DB, req.UserID)
		} else {
			user, err = database.GetUserByEmail(ctx, env.DB, req.Email)
		}
		if errors.Is(err, sql.ErrNoRows) {
			return NotFound("User not found")
		}
		if err != nil {
			return err
		}

		created, err := database.SetBandMemberRole(ctx, env.DB, bandID, user.ID, req.Role)
		if errors.Is(err, database.ErrLastAdmin) {
			return Conflict("A band must keep at least one admin")
		}
		if err != nil {
			return err
		}
		member, err := database.GetBandMember(ctx, env.DB, bandID, user.ID)
		if err != nil {
			return err
		}

		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		writeJSON(w, status, member)
		return nil
	}
}

// RemoveBandMember removes a member. Admins may remove anyone, members may
// remove themselves. The last admin cannot leave.
func RemoveBandMember(env *Env) HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		bandID, err := pathID(r, "id")
		if err != nil {
			return err
		}
		targetID, err := pathID(r, "userId")
		if err != nil {
			return err
		}

		ctx := r.Context()
		callerID := UserIDFromContext(ctx)
		caller, err := requireMember(ctx, env.DB, bandID, callerID)
		if err != nil {
			return err
		}
		if targetID != callerID && caller.Role != models.BandRoleAdmin {
			return Forbidden("Only band admins can remove other members")
		}

		err = database.LeaveBand(ctx, env.DB, bandID, targetID)
		if errors.Is(err, sql.ErrNoRows) {
			return NotFound("Member not found")
		}
		if errors.Is(err, database.ErrLastAdmin) {
			return Conflict("A band must keep at least one admin")
		}
		if err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Member removed"})
		return nil
	}
}
