package database

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/rehearsal-scheduler/app/internal/models"
	"golang.org/x/crypto/bcrypt"
)

const userColumns = "id, name, email, password_hash, created_at, updated_at"

// ErrEmailTaken is returned by CreateUser when another account already uses the email.
var ErrEmailTaken = errors.New("email already registered")

// pgUniqueViolation is the Postgres SQLSTATE for a unique constraint failure.
const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pgUniqueViolation
	}
	return false
}

// NormalizeEmail lower-cases and trims an address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// CreateUser hashes the password and inserts a new user into the database.
// A concurrent insert of the same email yields ErrEmailTaken.
func CreateUser(ctx context.Context, db sqlx.ExtContext, name, email, password string) (*models.User, error) {
	hashedPassword, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var id int64
	err = db.QueryRowxContext(ctx, db.Rebind(
		"INSERT INTO users(name, email, password_hash, created_at, updated_at) VALUES(?, ?, ?, ?, ?) RETURNING id"),
		strings.TrimSpace(name), NormalizeEmail(email), hashedPassword, now, now,
	).Scan(&id)
	if isUniqueViolation(err) {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, err
	}

	return GetUserByID(ctx, db, id)
}

// GetUserByEmail retrieves a user by their email address.
func GetUserByEmail(ctx context.Context, db sqlx.ExtContext, email string) (*models.User, error) {
	user := &models.User{}
	err := sqlx.GetContext(ctx, db, user, db.Rebind("SELECT "+userColumns+" FROM users WHERE email = ?"), NormalizeEmail(email))
	if err != nil {
		return nil, err // This will include sql.ErrNoRows if not found
	}
	return user, nil
}

// GetUserByID retrieves a user by their ID.
func GetUserByID(ctx context.Context, db sqlx.ExtContext, id int64) (*models.User, error) {
	user := &models.User{}
	err := sqlx.GetContext(ctx, db, user, db.Rebind("SELECT "+userColumns+" FROM users WHERE id = ?"), id)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// likeEscaper makes LIKE wildcards in user input match literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// ListUsers returns users whose name or email contains query, ordered by name.
// An empty query lists everyone up to limit.
func ListUsers(ctx context.Context, db sqlx.ExtContext, query string, limit int) ([]*models.User, error) {
	if limit <= 0 {
		limit = 50
	}
	pattern := "%" + likeEscaper.Replace(strings.ToLower(strings.TrimSpace(query))) + "%"

	users := []*models.User{}
	err := sqlx.SelectContext(ctx, db, &users, db.Rebind(
		"SELECT "+userColumns+` FROM users WHERE LOWER(name) LIKE ? ESCAPE '\' OR email LIKE ? ESCAPE '\' ORDER BY name, id LIMIT ?`),
		pattern, pattern, limit)
	if err != nil {
		return nil, err
	}
	return users, nil
}

// UpdateUser saves the name and password hash of an existing user.
func UpdateUser(ctx context.Context, db sqlx.ExtContext, user *models.User) (*models.User, error) {
	_, err := db.ExecContext(ctx, db.Rebind(
		"UPDATE users SET name = ?, password_hash = ?, updated_at = ? WHERE id = ?"),
		strings.TrimSpace(user.Name), user.PasswordHash, time.Now().UTC(), user.ID)
	if err != nil {
		return nil, err
	}
	return GetUserByID(ctx, db, user.ID)
}

// VerifyPassword compares a stored hashed password with a plaintext password.
func VerifyPassword(hashedPassword string, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}
