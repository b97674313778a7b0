package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
	pqCheckViolation      = "23514"
	pqUndefinedTable      = "42P01"
)

// SQLExecutor is satisfied by both *sql.DB and *sql.Tx.
type SQLExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// DBProvider hands out the shared connection pool. *db.Pool implements it.
type DBProvider interface {
	Get(ctx context.Context) (*sql.DB, error)
}

// getExecutor returns exec when the caller runs inside a transaction and the
// shared pool otherwise.
func getExecutor(ctx context.Context, provider DBProvider, exec SQLExecutor) (SQLExecutor, error) {
	if exec != nil {
		return exec, nil
	}
	return provider.Get(ctx)
}

func checkAffectedRows(result sql.Result, notFoundError error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return notFoundError // Возвращаем переданную ошибку "не найдено"
	}
	return nil
}

func asPQError(err error) (*pq.Error, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr, true
	}
	return nil, false
}

// isUniqueViolation matches a unique_violation, optionally on a specific constraint.
func isUniqueViolation(err error, constraint string) bool {
	pqErr, ok := asPQError(err)
	if !ok || pqErr.Code != pqUniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}

func isForeignKeyViolation(err error, constraint string) bool {
	pqErr, ok := asPQError(err)
	if !ok || pqErr.Code != pqForeignKeyViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}

func isCheckViolation(err error) bool {
	pqErr, ok := asPQError(err)
	return ok && pqErr.Code == pqCheckViolation
}

func isUndefinedTable(err error) bool {
	pqErr, ok := asPQError(err)
	return ok && pqErr.Code == pqUndefinedTable
}

// Assignment is one "column = value" pair of a partial update.
type Assignment struct {
	Column string
	Value  interface{}
}

// buildUpdate renders "UPDATE table SET c1 = $1, ... WHERE idColumn = $n".
// Columns come from static field tables, never from request input.
func buildUpdate(table, idColumn string, id interface{}, assignments []Assignment) (string, []interface{}) {
	var sb strings.Builder
	args := make([]interface{}, 0, len(assignments)+1)

	sb.WriteString("UPDATE ")
	sb.WriteString(table)
	sb.WriteString(" SET ")
	for i, a := range assignments {
		if i > 0 {
			sb.WriteString(", ")
		}
		args = append(args, a.Value)
		fmt.Fprintf(&sb, "%s = $%d", a.Column, len(args))
	}
	args = append(args, id)
	fmt.Fprintf(&sb, " WHERE %s = $%d", idColumn, len(args))

	return sb.String(), args
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
