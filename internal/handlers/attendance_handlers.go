package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/rehearsal-scheduler/app/internal/database"
	"github.com/rehearsal-scheduler/app/internal/metrics"
	"github.com/rehearsal-scheduler/app/internal/models"
)

type attendanceRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

// GetAttendance lists one response per band member, NO_RESPONSE for members
// who have not answered.
func GetAttendance(env *Env) HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		rehearsal, _, err := loadRehearsal(r, env)
		if err != nil {
			return err
		}
		responses, err := database.GetAttendanceForRehearsal(r.Context(), env.DB, rehearsal.ID)
		if err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, responses)
		return nil
	}
}

// MyAttendance returns the caller's own response. A member who has not
// answered gets NO_RESPONSE without updatedAt.
func MyAttendance(env *Env) HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		rehearsal, member, err := loadRehearsal(r, env)
		if err != nil {
			return err
		}
		resp, err := database.GetAttendanceByUser(r.Context(), env.DB, rehearsal.ID, member.UserID)
		if errors.Is(err, sql.ErrNoRows) {
			resp = &models.AttendanceResponse{
				RehearsalID: rehearsal.ID,
				UserID:      member.UserID,
				Status:      models.AttendanceNoResponse,
				UserName:    member.Name,
				UserEmail:   member.Email,
			}
		} else if err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, resp)
		return nil
	}
}

// SetAttendance records the caller's response, replacing any earlier one,
// and returns the rehearsal with the updated responses.
func SetAttendance(env *Env) HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		var req attendanceRequest
		if err := decodeJSON(w, r, &req); err != nil {
			return err
		}
		req.Status = strings.ToUpper(strings.TrimSpace(req.Status))
		if !models.ValidAttendanceStatus(req.Status) {
			return BadRequest("Invalid attendance status, must be one of ATTENDING, DECLINED, TENTATIVE, NO_RESPONSE")
		}

		rehearsal, member, err := loadRehearsal(r, env)
		if err != nil {
			return err
		}

		resp := &models.AttendanceResponse{
			RehearsalID: rehearsal.ID,
			UserID:      member.UserID,
			Status:      req.Status,
			Note:        strings.TrimSpace(req.Note),
		}
		if err = database.SetAttendance(r.Context(), env.DB, resp); err != nil {
			return err
		}
		metrics.RecordAttendance(req.Status)

		// Reload so attendanceCount reflects the new answer.
		updated, err := database.GetRehearsalByID(r.Context(), env.DB, rehearsal.ID)
		if err != nil {
			return err
		}
		if updated.Responses, err = database.GetAttendanceForRehearsal(r.Context(), env.DB, rehearsal.ID); err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, updated)
		return nil
	}
}
