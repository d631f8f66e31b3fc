package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"github.com/rehearsal-scheduler/app/internal/database"
	"github.com/rehearsal-scheduler/app/internal/metrics"
	"github.com/rehearsal-scheduler/app/internal/models"
)

const minPasswordLength = 8

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates an account and returns it with a bearer token.
func Register(env *Env) HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		var req registerRequest
		if err := decodeJSON(w, r, &req); err != nil {
			return err
		}

		req.Name = strings.TrimSpace(req.Name)
		req.Email = database.NormalizeEmail(req.Email)
		if req.Name == "" || req.Email == "" || req.Password == "" {
			metrics.RecordAuth("register", "failure")
			return BadRequest("Name, email and password are required")
		}
		if _, err := mail.ParseAddress(req.Email); err != nil {
			metrics.RecordAuth("register", "failure")
			return BadRequest("Invalid email address")
		}
		if len(req.Password) < minPasswordLength {
			metrics.RecordAuth("register", "failure")
			return BadRequest("Password must be at least 8 characters")
		}

		// Check if user already exists
		_, err := database.GetUserByEmail(r.Context(), env.DB, req.Email)
		if err == nil {
			metrics.RecordAuth("register", "failure")
			return Conflict("Email already registered")
		}
		if err != sql.ErrNoRows {
			return err
		}

		// The lookup above is the fast path; a racing registration is caught by
		// the unique index.
		user, err := database.CreateUser(r.Context(), env.DB, req.Name, req.Email, req.Password)
		if errors.Is(err, database.ErrEmailTaken) {
			metrics.RecordAuth("register", "failure")
			return Conflict("Email already registered")
		}
		if err != nil {
			return err
		}

		resp, err := authResponse(env, user)
		if err != nil {
			return err
		}
		metrics.RecordAuth("register", "success")
		writeJSON(w, http.StatusCreated, resp)
		return nil
	}
}

// Login checks the credentials and returns the user with a fresh token.
// Unknown email and wrong password get the same answer.
func Login(env *Env) HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		var req loginRequest
		if err := decodeJSON(w, r, &req); err != nil {
			return err
		}
		if strings.TrimSpace(req.Email) == "" || req.Password == "" {
			metrics.RecordAuth("login", "failure")
			return BadRequest("Email and password are required")
		}

		user, err := database.GetUserByEmail(r.Context(), env.DB, req.Email)
		if err != nil {
			if err == sql.ErrNoRows {
				metrics.RecordAuth("login", "failure")
				return Unauthorized("Invalid email or password")
			}
			return err
		}

		if err = database.VerifyPassword(user.PasswordHash, req.Password); err != nil {
			metrics.RecordAuth("login", "failure")
			return Unauthorized("Invalid email or password")
		}

		resp, err := authResponse(env, user)
		if err != nil {
			return err
		}
		metrics.RecordAuth("login", "success")
		writeJSON(w, http.StatusOK, resp)
		return nil
	}
}

// Me returns the profile of the token's owner.
func Me(env *Env) HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		user, err := currentUser(r, env)
		if err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, user)
		return nil
	}
}

// Logout acknowledges the logout. Tokens are stateless, so the client
// discards its copy and the token lapses at expiry.
func Logout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

// currentUser loads the authenticated user. A token whose user no longer
// exists is treated as unauthenticated.
func currentUser(r *http.Request, env *Env) (*models.User, error) {
	user, err := database.GetUserByID(r.Context(), env.DB, UserIDFromContext(r.Context()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, Unauthorized("User not found")
	}
	return user, err
}

func authResponse(env *Env, user *models.User) (*models.AuthResponse, error) {
	token, err := env.Tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &models.AuthResponse{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Token: token,
	}, nil
}
