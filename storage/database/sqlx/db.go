// Package sqlxrepos implements the repositories over postgres with sqlx.
package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
)

const driverName = "postgres"

// NewDB wraps a postgres connection pool opened by database.Open.
func NewDB(db *sql.DB) *sqlx.DB {
	return sqlx.NewDb(db, driverName)
}

// validID reports whether id can be looked up: ids are uuids, anything else cannot exist.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// trapNoRowsErr maps "no rows" to notFound.
func trapNoRowsErr(err error, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// nullID maps an empty reference to NULL.
func nullID(id string) null.String {
	return null.NewString(id, id != "")
}

func columnList(columns []string) string {
	return strings.Join(columns, ", ")
}

// namedList renders ":a, :b" for named inserts.
func namedList(columns []string) string {
	named := make([]string, 0, len(columns))
	for _, c := range columns {
		named = append(named, ":"+c)
	}
	return strings.Join(named, ", ")
}

// namedSet renders "a = :a, b = :b" for named updates.
func namedSet(columns []string) string {
	set := make([]string, 0, len(columns))
	for _, c := range columns {
		set = append(set, c+" = :"+c)
	}
	return strings.Join(set, ", ")
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// namedGet runs a named query expected to return one row and scans it into dest.
func namedGet(ctx context.Context, db *sqlx.DB, dest interface{}, query string, arg interface{}) error {
	rows, err := db.NamedQueryContext(ctx, query, arg)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		if err = rows.Err(); err != nil {
			return err
		}
		return sql.ErrNoRows
	}
	return rows.StructScan(dest)
}
