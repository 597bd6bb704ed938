// Package directory enumerates users and their geofence regions.
//
// Three sources implement the same streaming Scan: the local SQLite store,
// an external PostgreSQL database, and an in-memory list loaded from a YAML
// fixture. Errors from the source are tagged with
// domain.ErrDirectoryUnavailable; errors returned by the callback pass
// through unchanged.
package directory

import (
	"context"
	"errors"

	"theftalert/internal/domain"
	"theftalert/internal/store"
)

// Directory streams every user with settings and regions.
type Directory interface {
	Scan(ctx context.Context, fn func(domain.User) error) error
}

// callbackError marks an error produced by the scan callback so it is not
// re-tagged as a directory failure.
type callbackError struct{ err error }

func (e callbackError) Error() string { return e.err.Error() }
func (e callbackError) Unwrap() error { return e.err }

func wrapCallback(fn func(domain.User) error) func(domain.User) error {
	return func(u domain.User) error {
		if err := fn(u); err != nil {
			return callbackError{err: err}
		}
		return nil
	}
}

func classify(source string, err error) error {
	if err == nil {
		return nil
	}
	var cbErr callbackError
	if errors.As(err, &cbErr) {
		return cbErr.err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return domain.Wrap(domain.ErrDirectoryUnavailable, "directory", source, "scan users", err)
}

// SQLite reads users from the engine database.
type SQLite struct {
	store *store.Store
}

// NewSQLite returns a directory backed by st.
func NewSQLite(st *store.Store) *SQLite {
	return &SQLite{store: st}
}

func (d *SQLite) Scan(ctx context.Context, fn func(domain.User) error) error {
	return classify("sqlite", d.store.ScanUsers(ctx, wrapCallback(fn)))
}

// Static serves a fixed list of users.
type Static struct {
	users []domain.User
}

// NewStatic returns a directory over users.
func NewStatic(users []domain.User) *Static {
	cp := make([]domain.User, len(users))
	copy(cp, users)
	return &Static{users: cp}
}

func (d *Static) Scan(ctx context.Context, fn func(domain.User) error) error {
	for _, u := range d.users {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(u); err != nil {
			return err
		}
	}
	return nil
}

// Func adapts a function to Directory.
type Func func(ctx context.Context, fn func(domain.User) error) error

func (f Func) Scan(ctx context.Context, fn func(domain.User) error) error { return f(ctx, fn) }
