package database

import (
	"context"
	"embed"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// Open connects to the database and applies the schema for the driver.
func Open(ctx context.Context, driver, dataSourceName string) (*sqlx.DB, error) {
	if driver == DriverSQLite {
		dataSourceName = sqliteDSN(dataSourceName)
	}

	db, err := sqlx.Open(driver, dataSourceName)
	if err != nil {
		return nil, err
	}

	if driver == DriverSQLite {
		// One connection keeps ":memory:" databases shared and serializes writers.
		db.SetMaxOpenConns(1)
	}

	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	if err = Migrate(ctx, db, driver); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// Migrate executes every statement of the driver's schema file. The
// statements are idempotent so this runs on each start.
func Migrate(ctx context.Context, db *sqlx.DB, driver string) error {
	statements, err := schemaStatements(driver)
	if err != nil {
		return err
	}

	for i, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i+1, err)
		}
	}
	return nil
}

func schemaStatements(driver string) ([]string, error) {
	var name string
	switch driver {
	case DriverSQLite:
		name = "schema/sqlite.sql"
	case DriverPostgres:
		name = "schema/postgres.sql"
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	content, err := schemaFS.ReadFile(name)
	if err != nil {
		return nil, err
	}

	return splitStatements(string(content)), nil
}

// splitStatements splits a SQL script on semicolons that end a statement.
// Semicolons inside quoted literals and quoted identifiers do not split;
// "--" comments are dropped, as are empty statements.
func splitStatements(script string) []string {
	var (
		statements []string
		current    strings.Builder
		quote      rune
		inComment  bool
	)
	flush := func() {
		if stmt := strings.TrimSpace(current.String()); stmt != "" {
			statements = append(statements, stmt)
		}
		current.Reset()
	}

	runes := []rune(script)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch {
		case inComment:
			if c != '\n' {
				continue
			}
			inComment = false
		case quote != 0:
			// A doubled quote inside a literal is an escaped quote and the
			// second one reopens the literal on the next iteration.
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '-' && i+1 < len(runes) && runes[i+1] == '-':
			inComment = true
			continue
		case c == ';':
			flush()
			continue
		}
		current.WriteRune(c)
	}
	flush()
	return statements
}

// sqliteDSN turns on foreign keys and a busy timeout unless the caller set them.
func sqliteDSN(dsn string) string {
	params := []string{}
	if !strings.Contains(dsn, "_foreign_keys") && !strings.Contains(dsn, "_fk") {
		params = append(params, "_foreign_keys=on")
	}
	if !strings.Contains(dsn, "_busy_timeout") {
		params = append(params, "_busy_timeout=5000")
	}
	if len(params) == 0 {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(params, "&")
}
