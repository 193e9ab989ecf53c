package leave

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"hrops/internal/platform/querier"
)

type Store struct {
	DB   querier.Querier
	Pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{DB: pool, Pool: pool}
}

// WithinTx runs fn inside one serializable transaction. Serialization and
// deadlock aborts surface as ErrConcurrencyConflict so the engine can retry
// the whole closure with fresh reads.
func (s *Store) WithinTx(ctx context.Context, fn func(tx TxStore) error) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return mapTxErr(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&txStore{DB: tx}); err != nil {
		return mapTxErr(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return mapTxErr(err)
	}
	return nil
}

type txStore struct {
	DB querier.Querier
}

func mapTxErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01":
			return fmt.Errorf("%w: sqlstate %s", ErrConcurrencyConflict, pgErr.Code)
		}
	}
	return err
}
