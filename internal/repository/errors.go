package repository

import (
	"context"
	"database/sql/driver"
	"errors"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"

	"clinic-appointments-server/internal/apperrors"
)

const (
	mysqlErrTooManyConnections = 1040
	mysqlErrDuplicateEntry     = 1062
	mysqlErrLockWaitTimeout    = 1205
	mysqlErrDeadlock           = 1213
)

// dbError maps a GORM/MySQL error onto the application taxonomy.
func dbError(err error, entity, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NotFound(entity + " not found")
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case mysqlErrDuplicateEntry:
			return &apperrors.Error{Kind: apperrors.KindConflict, Message: entity + " already exists", Err: err}
		case mysqlErrLockWaitTimeout, mysqlErrDeadlock, mysqlErrTooManyConnections:
			return apperrors.Unavailable(op, err)
		}
	}

	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) ||
		errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Unavailable(op, err)
	}
	return apperrors.Internal(op, err)
}
