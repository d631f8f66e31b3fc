package handlers

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/rehearsal-scheduler/app/internal/database"
	"github.com/rehearsal-scheduler/app/internal/models"
)

type setlistItemRequest struct {
	Title           string `json:"title"`
	Artist          string `json:"artist"`
	DurationSeconds int    `json:"durationSeconds"`
	Notes           string `json:"notes"`
	ResourceID      *int64 `json:"resourceId"`
}

type setlistRequest struct {
	BandID      int64                 `json:"bandId"`
	RehearsalID *int64                `json:"rehearsalId"`
	Name        *string               `json:"name"`
	Description *string               `json:"description"`
	Items       *[]setlistItemRequest `json:"items"`
}

// apply copies the fields present in req onto setlist. A present items list
// replaces the existing items.
func (req *setlistRequest) apply(setlist *models.Setlist) {
	if req.RehearsalID != nil {
		if *req.RehearsalID == 0 {
			setlist.RehearsalID = nil
		} else {
			setlist.RehearsalID = req.RehearsalID
		}
	}
	if req.Name != nil {
		setlist.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		setlist.Description = *req.Description
	}
	if req.Items != nil {
		items := make([]*models.SetlistItem, 0, len(*req.Items))
		for _, in := range *req.Items {
			items = append(items, &models.SetlistItem{
				Title:           strings.TrimSpace(in.Title),
				Artist:          in.Artist,
				DurationSeconds: in.DurationSeconds,
				Notes:           in.Notes,
				ResourceID:      in.ResourceID,
			})
		}
		setlist.Items = items
	}
}

// validateSetlist checks the fields and that linked records belong to the
// setlist's band.
func validateSetlist(ctx context.Context, env *Env, setlist *models.Setlist) error {
	if setlist.Name == "" {
		return BadRequest("Setlist name is required")
	}
	for i, item := range setlist.Items {
		if item.Title == "" {
			return BadRequest("Every setlist item needs a title")
		}
		if item.DurationSeconds < 0 {
			return BadRequest("Item durations cannot be negative")
		}
		if item.ResourceID != nil {
			res, err := database.GetResourceByID(ctx, env.DB, *item.ResourceID)
			if errors.Is(err, sql.ErrNoRows) || (err == nil && res.BandID != setlist.BandID) {
				return BadRequest("Item " + strconv.Itoa(i) + " references a resource outside this band")
			}
			if err != nil {
				return err
			}
		}
	}

	if setlist.RehearsalID != nil {
		rehearsal, err := database.GetRehearsalByID(ctx, env.DB, *setlist.RehearsalID)
		if errors.Is(err, sql.ErrNoRows) || (err == nil && rehearsal.BandID != setlist.BandID) {
			return BadRequest("Rehearsal does not belong to this band")
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func loadSetlist(r *http.Request, env *Env) (*models.Setlist, *models.BandMember, error) {
	id, err := pathID(r, "id")
	if err != nil {
		return nil, nil, err
	}
	setlist, err := database.GetSetlistByID(r.Context(), env.DB, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, NotFound("Setlist not found")
	}
	if err != nil {
		return nil, nil, err
	}
	member, err := requireMember(r.Context(), env.DB, setlist.BandID, UserIDFromContext(r.Context()))
	if err != nil {
		return nil, nil, err
	}
	return setlist, member, nil
}

// ListSetlists returns the caller's setlists without items, optionally for one band.
func ListSetlists(env *Env) HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		bandID, err := queryID(r, "bandId")
		if err != nil {
			return err
		}
		userID := UserIDFromContext(r.Context())
		if bandID != 0 {
			if _, err = requireMember(r.Context(), env.DB, bandID, userID); err != nil {
				return err
			}
		}
		setlists, err := database.ListSetlistsForUser(r.Context(), env.DB, userID, bandID)
		if err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, setlists)
		return nil
	}
}

func CreateSetlist(env *Env) HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		var req setlistRequest
		if err := decodeJSON(w, r, &req); err != nil {
			return err
		}
		if req.BandID <= 0 {
			return BadRequest("bandId is required")
		}

		ctx := r.Context()
		setlist := &models.Setlist{BandID: req.BandID, CreatedBy: UserIDFromContext(ctx)}
		if _, err := requireMember(ctx, env.DB, req.BandID, setlist.CreatedBy); err != nil {
			return err
		}
		req.apply(setlist)
		if err := validateSetlist(ctx, env, setlist); err != nil {
			return err
		}

		created, err := database.CreateSetlist(ctx, env.DB, setlist)
		if err != nil {
			return err
		}
		writeJSON(w, http.StatusCreated, created)
		return nil
	}
}

func GetSetlist(env *Env) HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		setlist, _, err := loadSetlist(r, env)
		if err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, setlist)
		return nil
	}
}

// UpdateSetlist changes the given fields. Items, when sent, replace the
// whole list and are renumbered in the order sent.
func UpdateSetlist(env *Env) HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		setlist, _, err := loadSetlist(r, env)
		if err != nil {
			return err
		}

		var req setlistRequest
		if err = decodeJSON(w, r, &req); err != nil {
			return err
		}
		if req.BandID != 0 && req.BandID != setlist.BandID {
			return BadRequest("A setlist cannot be moved to another band")
		}
		req.apply(setlist)
		if err = validateSetlist(r.Context(), env, setlist); err != nil {
			return err
		}

		updated, err := database.UpdateSetlist(r.Context(), env.DB, setlist)
		if err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, updated)
		return nil
	}
}

// DeleteSetlist is allowed for the creator or a band admin.
func DeleteSetlist(env *Env) HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		setlist, member, err := loadSetlist(r, env)
		if err != nil {
			return err
		}
		if err = ownerOrAdmin(member, setlist.CreatedBy); err != nil {
			return err
		}
		if err = database.DeleteSetlist(r.Context(), env.DB, setlist.ID); err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Setlist deleted"})
		return nil
	}
}
