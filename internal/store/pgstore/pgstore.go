// Package pgstore is a PostgreSQL-backed store.Store, wired the way
// ldap-dav wires its own pgx store: a pgxpool.Pool plus a zerolog.Logger,
// one method per store operation, each a single query or a short
// transaction.
package pgstore

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/teammeet/schedulesync/internal/store"
	"github.com/teammeet/schedulesync/pkg/failure"
	"github.com/teammeet/schedulesync/pkg/retry"
)

var _ store.Store = (*Store)(nil)

type Store struct {
	pool       *pgxpool.Pool
	logger     zerolog.Logger
	retryParam retry.RetryParam
}

func New(ctx context.Context, dsn string, logger zerolog.Logger, retryParam retry.RetryParam) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool, logger: logger, retryParam: retryParam}, nil
}

func (s *Store) Close() { s.pool.Close() }

// StoreError wraps a transient pgx failure so pkg/retry can classify it.
// Only the transient failures isRetryablePgError recognises are retried
// (connection exceptions, serialization failures, deadline exceeded); constraint violations and
// scan errors are never retryable — retrying them would just repeat the
// same outcome.
type StoreError struct {
	Message   string
	Retryable bool
}

func (e *StoreError) Error() string { return e.Message }

func (e *StoreError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

func (e *StoreError) IsRetryable() bool { return e.Retryable }

// isRetryablePgError classifies a pgx failure as transient (connection
// exceptions, class 08; serialization failures, class 40) versus permanent
// (constraint violations, scan errors, pgx.ErrNoRows).
func isRetryablePgError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		state := pgErr.Code
		return len(state) >= 2 && (state[:2] == "08" || state[:2] == "40")
	}
	return false
}

func withRetry[T any](ctx context.Context, s *Store, fn func(context.Context) (T, error)) (T, error) {
	var lastErr error
	task := func() (T, failure.ClassifiedError) {
		out, err := fn(ctx)
		lastErr = err
		if err != nil {
			return out, &StoreError{Message: err.Error(), Retryable: isRetryablePgError(err)}
		}
		return out, nil
	}

	result := retry.Retry(s.retryParam, task)
	if result.Err() != nil {
		var zero T
		// store.ErrNotFound passes through unwrapped so callers can compare it.
		if errors.Is(lastErr, store.ErrNotFound) {
			return zero, store.ErrNotFound
		}
		return zero, result.Err()
	}
	return result.Value(), nil
}

func randID() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
