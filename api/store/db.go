package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/scsonic/nexavatar/shared/id"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

type txKey struct{}

func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if q := querierFromContext(ctx); q != nil {
		return fn(ctx)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	ctx = context.WithValue(ctx, txKey{}, tx)

	if err := fn(ctx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	return tx.Commit(ctx)
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func querierFromContext(ctx context.Context) querier {
	q, _ := ctx.Value(txKey{}).(querier)
	return q
}

func (s *Store) conn(ctx context.Context) querier {
	if q := querierFromContext(ctx); q != nil {
		return q
	}
	return s.pool
}

// NewID generates a new ID with the given prefix (for custom prefixes)
func NewID(prefix string) string {
	return id.New(prefix)
}

var (
	NewSessionID   = id.NewSession
	NewChatLogID   = id.NewChatLog
	NewUtteranceID = id.NewUtterance
)
