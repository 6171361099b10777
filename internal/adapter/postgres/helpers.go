package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/FerDeGante/Eventora-sub000/internal/domain"
)

// dbtx is satisfied by *pgxpool.Pool and pgx.Tx.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// scannable abstracts pgx.Row and pgx.Rows for shared scan helpers.
type scannable interface {
	Scan(dest ...any) error
}

// SQLSTATE codes mapped onto domain errors.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
	pgExclusionViolation  = "23P01"
	pgInvalidText         = "22P02"
)

// nullIfEmpty returns nil for empty strings (for nullable UUID columns).
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// orEmpty returns items unchanged if non-nil, or an empty slice if nil.
// Useful to ensure JSON serialization produces [] instead of null.
func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

// notFoundWrap maps a missing row, or an id that is not even a valid UUID,
// to notFound. Other errors are wrapped with the given message.
func notFoundWrap(err error, notFound error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if errors.Is(err, pgx.ErrNoRows) || pgCode(err) == pgInvalidText {
		return fmt.Errorf("%s: %w", msg, notFound)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// execExpectOne verifies that an Exec affected exactly one row. If not
// (and err is nil), it returns notFound.
func execExpectOne(tag pgconn.CommandTag, err error, notFound error, format string, args ...any) error {
	if err != nil {
		return notFoundWrap(err, notFound, format, args...)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf(fmt.Sprintf(format, args...)+": %w", notFound)
	}
	return nil
}

// writeErr maps constraint violations onto domain errors.
func writeErr(err error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	switch pgCode(err) {
	case pgExclusionViolation:
		return fmt.Errorf("%s: %w", msg, domain.ErrSlotTaken)
	case pgUniqueViolation:
		return fmt.Errorf("%s: %w", msg, domain.ErrConflict)
	case pgForeignKeyViolation, pgCheckViolation, pgInvalidText:
		return fmt.Errorf("%s: %w", msg, domain.Invalid("%s: invalid reference or value", msg))
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// collect scans every row with scan.
func collect[T any](rows pgx.Rows, scan func(scannable) (T, error)) ([]T, error) {
	defer rows.Close()
	out := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
