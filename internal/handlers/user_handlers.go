package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/rehearsal-scheduler/app/internal/database"
)

type profileUpdateRequest struct {
	Name            *string `json:"name"`
	Password        string  `json:"password"`
	CurrentPassword string  `json:"currentPassword"`
}

// ListUsers searches users by name or email with ?q=.
func ListUsers(env *Env) HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		limit, err := queryLimit(r, 50, 200)
		if err != nil {
			return err
		}
		users, err := database.ListUsers(r.Context(), env.DB, r.URL.Query().Get("q"), limit)
		if err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, users)
		return nil
	}
}

func GetUser(env *Env) HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		id, err := pathID(r, "id")
		if err != nil {
			return err
		}
		user, err := database.GetUserByID(r.Context(), env.DB, id)
		if errors.Is(err, sql.ErrNoRows) {
			return NotFound("User not found")
		}
		if err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, user)
		return nil
	}
}

// UpdateProfile changes the caller's name and/or password. A new password
// needs the current one.
func UpdateProfile(env *Env) HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		var req profileUpdateRequest
		if err := decodeJSON(w, r, &req); err != nil {
			return err
		}

		user, err := currentUser(r, env)
		if err != nil {
			return err
		}

		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return BadRequest("Name cannot be empty")
			}
			user.Name = name
		}

		if req.Password != "" {
			if req.CurrentPassword == "" {
				return BadRequest("Current password is required to set a new password")
			}
			if err = database.VerifyPassword(user.PasswordHash, req.CurrentPassword); err != nil {
				return BadRequest("Current password is incorrect")
			}
			if len(req.Password) < minPasswordLength {
				return BadRequest("Password must be at least 8 characters")
			}
			if user.PasswordHash, err = database.HashPassword(req.Password); err != nil {
				return err
			}
		}

		updated, err := database.UpdateUser(r.Context(), env.DB, user)
		if err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, updated)
		return nil
	}
}
