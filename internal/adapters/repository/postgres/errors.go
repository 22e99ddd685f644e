package postgres

import (
	"errors"
	"strings"

	"github.com/lib/pq"
	"github.com/vncsmyrnk/rushvote/internal/core/domain"
)

const (
	pqForeignKeyViolation = "23503"
	pqUniqueViolation     = "23505"
)

// refError maps a foreign key violation on a ballot table to the domain
// error for the missing parent row.
func refError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != pqForeignKeyViolation {
		return nil
	}
	if strings.Contains(pqErr.Constraint, "pnm") {
		return domain.ErrCandidateNotFound
	}
	return domain.ErrRoundNotFound
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}
