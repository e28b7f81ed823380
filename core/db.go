package core

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens a pgx connection pool with conservative defaults.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	if dsn == "" {
		return nil, errors.New("empty database dsn")
	}

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	// Reasonable defaults for small services; callers can override if needed.
	config.MaxConns = 10
	config.MinConns = 1
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute
	config.HealthCheckPeriod = 30 * time.Second

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}

	// Validate connectivity.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

// pgDB is the subset of *pgxpool.Pool the stores use.
type pgDB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgreSQL error codes the stores classify.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgNotNullViolation    = "23502"
)

// constraintMapper turns a constraint violation into a domain failure, or
// returns nil to fall back to a persistence failure.
type constraintMapper func(code, constraint string) *AppError

// translatePgError converts anything a store operation returned into a
// taxonomy member. AppErrors pass through; constraint violations go through
// mapConstraint; everything else becomes a PersistenceFailure keeping err as
// its server-side cause.
func translatePgError(err error, message string, mapConstraint constraintMapper) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if mapConstraint != nil {
			if mapped := mapConstraint(pgErr.Code, pgErr.ConstraintName); mapped != nil {
				mapped.cause = err
				return mapped
			}
		}
		if pgErr.Code == pgNotNullViolation {
			e := NewValidationError("El campo " + pgErr.ColumnName + " es requerido")
			e.cause = err
			return e
		}
	}
	return NewPersistenceError(message, err)
}

// validateWindow checks list offsets the same way for every entity.
func validateWindow(skip, limit int) error {
	if skip < 0 {
		return NewValidationError("El valor de skip debe ser mayor o igual a 0")
	}
	if limit < 1 || limit > 1000 {
		return NewValidationError("El valor de limit debe estar entre 1 y 1000")
	}
	return nil
}

func requireKey(value, message string) error {
	if strings.TrimSpace(value) == "" {
		return NewValidationError(message)
	}
	return nil
}
