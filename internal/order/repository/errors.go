package repository

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	apperrors "avatarbook/internal/errors"
)

const (
	mysqlDuplicateEntry   = 1062
	mysqlLockWaitTimeout  = 1205
	mysqlDeadlockDetected = 1213
)

func isDuplicateEntry(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry
}

func isDeadlockError(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == mysqlDeadlockDetected || mysqlErr.Number == mysqlLockWaitTimeout
	}
	return false
}

// wrap turns a driver error into a PersistenceError, keeping the op for logs.
func wrap(op string, err error) error {
	if isDeadlockError(err) {
		return apperrors.NewPersistenceError(fmt.Sprintf("%s: lock contention", op), err)
	}
	return apperrors.NewPersistenceError(op, err)
}
