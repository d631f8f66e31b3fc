package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rehearsal-scheduler/app/internal/database"
	"github.com/rehearsal-scheduler/app/internal/models"
)

const (
	defaultUpcomingLimit = 10
	maxListLimit         = 100
)

type rehearsalRequest struct {
	BandID      int64      `json:"bandId"`
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	StartTime   *time.Time `json:"startTime"`
	EndTime     *time.Time `json:"endTime"`
	Location    *string    `json:"location"`
}

// apply copies the fields present in req onto rehearsal.
func (req *rehearsalRequest) apply(rehearsal *models.Rehearsal) {
	if req.Title != nil {
		rehearsal.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		rehearsal.Description = *req.Description
	}
	if req.StartTime != nil {
		rehearsal.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		rehearsal.EndTime = *req.EndTime
	}
	if req.Location != nil {
		rehearsal.Location = *req.Location
	}
}

func validateRehearsal(rehearsal *models.Rehearsal) error {
	if rehearsal.Title == "" {
		return BadRequest("Title is required")
	}
	if rehearsal.StartTime.IsZero() || rehearsal.EndTime.IsZero() {
		return BadRequest("Start time and end time are required")
	}
	if !rehearsal.EndTime.After(rehearsal.StartTime) {
		return BadRequest("End time must be after start time")
	}
	return nil
}

// loadRehearsal fetches the rehearsal named in the path and checks that the
// caller belongs to its band.
func loadRehearsal(r *http.Request, env *Env) (*models.Rehearsal, *models.BandMember, error) {
	id, err := pathID(r, "id")
	if err != nil {
		return nil, nil, err
	}
	rehearsal, err := database.GetRehearsalByID(r.Context(), env.DB, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, NotFound("Rehearsal not found")
	}
	if err != nil {
		return nil, nil, err
	}
	member, err := requireMember(r.Context(), env.DB, rehearsal.BandID, UserIDFromContext(r.Context()))
	if err != nil {
		return nil, nil, err
	}
	return rehearsal, member, nil
}

// ListRehearsals lists the caller's rehearsals, filtered by ?bandId, ?from and ?to.
func ListRehearsals(env *Env) HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		var filter models.RehearsalFilter
		var err error
		if filter.BandID, err = queryID(r, "bandId"); err != nil {
			return err
		}
		if filter.From, err = queryTime(r, "from"); err != nil {
			return err
		}
		if filter.To, err = queryTime(r, "to"); err != nil {
			return err
		}

		userID := UserIDFromContext(r.Context())
		if filter.BandID != 0 {
			if _, err = requireMember(r.Context(), env.DB, filter.BandID, userID); err != nil {
				return err
			}
		}

		rehearsals, err := database.ListRehearsalsForUser(r.Context(), env.DB, userID, filter)
		if err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, rehearsals)
		return nil
	}
}

// UpcomingRehearsals lists rehearsals starting from now, soonest first.
func UpcomingRehearsals(env *Env) HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		limit, err := queryLimit(r, defaultUpcomingLimit, maxListLimit)
		if err != nil {
			return err
		}
		filter := models.RehearsalFilter{From: time.Now(), Limit: limit}
		rehearsals, err := database.ListRehearsalsForUser(r.Context(), env.DB, UserIDFromContext(r.Context()), filter)
		if err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, rehearsals)
		return nil
	}
}

// CreateRehearsal schedules a rehearsal for a band the caller belongs to.
func CreateRehearsal(env *Env) HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		var req rehearsalRequest
		if err := decodeJSON(w, r, &req); err != nil {
			return err
		}
		if req.BandID <= 0 {
			return BadRequest("bandId is required")
		}

		rehearsal := &models.Rehearsal{BandID: req.BandID, CreatedBy: UserIDFromContext(r.Context())}
		req.apply(rehearsal)
		if err := validateRehearsal(rehearsal); err != nil {
			return err
		}
		if _, err := requireMember(r.Context(), env.DB, req.BandID, rehearsal.CreatedBy); err != nil {
			return err
		}

		created, err := database.CreateRehearsal(r.Context(), env.DB, rehearsal)
		if err != nil {
			return err
		}
		writeJSON(w, http.StatusCreated, created)
		return nil
	}
}

// GetRehearsal returns a rehearsal with one response per band member.
func GetRehearsal(env *Env) HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		rehearsal, _, err := loadRehearsal(r, env)
		if err != nil {
			return err
		}
		if rehearsal.Responses, err = database.GetAttendanceForRehearsal(r.Context(), env.DB, rehearsal.ID); err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, rehearsal)
		return nil
	}
}

// UpdateRehearsal edits a rehearsal. Creator or band admin only; the band
// cannot be changed.
func UpdateRehearsal(env *Env) HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		rehearsal, member, err := loadRehearsal(r, env)
		if err != nil {
			return err
		}
		if err = ownerOrAdmin(member, rehearsal.CreatedBy); err != nil {
			return err
		}

		var req rehearsalRequest
		if err = decodeJSON(w, r, &req); err != nil {
			return err
		}
		if req.BandID != 0 && req.BandID != rehearsal.BandID {
			return BadRequest("A rehearsal cannot be moved to another band")
		}
		req.apply(rehearsal)
		if err = validateRehearsal(rehearsal); err != nil {
			return err
		}

		updated, err := database.UpdateRehearsal(r.Context(), env.DB, rehearsal)
		if err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, updated)
		return nil
	}
}

func DeleteRehearsal(env *Env) HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		rehearsal, member, err := loadRehearsal(r, env)
		if err != nil {
			return err
		}
		if err = ownerOrAdmin(member, rehearsal.CreatedBy); err != nil {
			return err
		}
		if err = database.DeleteRehearsal(r.Context(), env.DB, rehearsal.ID); err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Rehearsal deleted"})
		return nil
	}
}
