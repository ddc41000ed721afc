package repository

import (
	"context"
	"database/sql"
	"fmt"

	"avatarbook/internal/domain"
)

func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return wrap("starting transaction", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return wrap("committing transaction", err)
	}

	return nil
}

// transitionOrder applies a conditional status write inside tx. Zero matched
// rows means the order was not in the expected status. Pairs outside the
// domain lifecycle are refused before the database is touched.
func transitionOrder(ctx context.Context, tx *sql.Tx, id string, from, to domain.OrderStatus, extra string, args ...any) error {
	if !domain.CanTransition(from, to) && !domain.CanRecover(from, to) {
		return fmt.Errorf("order %s: transition %s -> %s is not allowed", id, from, to)
	}

	query := `UPDATE Orders SET status = ?` + extra + ` WHERE id = ? AND status = ?`

	params := append([]any{string(to)}, args...)
	params = append(params, id, string(from))

	result, err := tx.ExecContext(ctx, query, params...)
	if err != nil {
		return wrap(fmt.Sprintf("moving order %s to %s", id, to), err)
	}

	return expectOneRow(result, fmt.Sprintf("order %s is not %s", id, from))
}
