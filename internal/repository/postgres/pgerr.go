// Package postgres implements the service store interfaces on pgx.
// Every cross-goroutine invariant is enforced inside this package,
// either as a single conditional statement per key or under a FOR
// UPDATE row lock; application code never does read-then-write for
// quota or balances.
package postgres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kastov/vpnshop/internal/domain"
)

// translate maps driver failures onto the domain's transient/fatal
// sentinels. Serialization and deadlock failures are retryable;
// connection-class failures surface immediately as storage outages.
func translate(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "40001" || pgErr.Code == "40P01":
			return fmt.Errorf("%s: %w", op, domain.ErrConcurrentUpdate)
		case strings.HasPrefix(pgErr.Code, "08"):
			return fmt.Errorf("%s: %w: %s", op, domain.ErrStorageUnavailable, pgErr.Message)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
