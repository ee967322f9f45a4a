package bridge

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"

	"github.com/loykin/bridges/pkg/record"
)

// ErrDecodeFailure is returned when a RETURNING statement yields no row or a
// row does not decode into the record type.
var ErrDecodeFailure = record.ErrDecode

// IsConnectivityError reports whether err comes from reaching the database
// rather than from a statement it rejected.
func IsConnectivityError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return pgconn.Timeout(err)
}

// IsStatementError reports whether the database rejected a statement.
func IsStatementError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return true
	}
	var liteErr *sqlite.Error
	return errors.As(err, &liteErr)
}

// SQLState returns the PostgreSQL error code of err, or "".
func SQLState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
