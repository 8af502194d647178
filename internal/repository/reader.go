package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/tfta-mcp-server/internal/database"
)

// reader holds the pool shared by the lookup and perturbation stores and the
// scanning helpers both use. A nil pool makes every query return empty.
type reader struct {
	db  *database.DB
	log *logrus.Logger
}

// Available reports whether the store has an open database.
func (s *reader) Available() bool {
	return s.db != nil && s.db.Pool != nil
}

// Close closes the underlying pool
func (s *reader) Close() {
	if s.Available() {
		s.db.Close()
	}
}

// queryStrings runs a single-column query and materialises every row.
func (s *reader) queryStrings(ctx context.Context, op, query string, args ...interface{}) ([]string, error) {
	if !s.Available() {
		return nil, nil
	}
	rows, err := s.db.Pool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, s.queryError(op, err)
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var v sql.NullString
		if err := rows.Scan(&v); err != nil {
			return nil, s.queryError(op, err)
		}
		if v.Valid {
			result = append(result, v.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, s.queryError(op, err)
	}
	return result, nil
}

func (s *reader) queryError(op string, err error) error {
	s.log.WithFields(logrus.Fields{
		"operation": op,
		"error":     err,
	}).Error("Lookup query failed")
	return fmt.Errorf("lookup %s: %w", op, err)
}

// likeEscape escapes LIKE wildcards in user input; patterns use ESCAPE '\'.
func likeEscape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func appendUnique(list []string, v string) []string {
	for _, x := range list {
		if x == v {
			return list
		}
	}
	return append(list, v)
}
