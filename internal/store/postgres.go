package store

import (
	"context"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Postgres is the shared-database backend, selected when DATABASE_URL is set.
type Postgres struct {
	*sqlStore
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := openSQL("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Postgres{sqlStore: &sqlStore{
		db:       db,
		bindTime: func(t time.Time) any { return t.UTC() },
	}}, nil
}

// EnsureSchema creates the tables if they do not exist. Dev convenience;
// production schemas are managed out of band.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	return p.ensureSchema(ctx, "jsonb", "timestamptz")
}
