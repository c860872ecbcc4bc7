// Package postgres opens the document store on Postgres through the pgx
// database/sql driver. Record bodies live in a JSONB column.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dme-bo/briskolive/internal/store/sqldoc"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const defaultDSN = "postgres://localhost/briskolive?sslmode=disable"

func Open(ctx context.Context, dsn string) (*sqldoc.Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := sqldoc.New(db, sqldoc.Dialect{Name: "postgres", BodyType: "JSONB", Numbered: true})
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}
