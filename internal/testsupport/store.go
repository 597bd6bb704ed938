package testsupport

import (
	"context"
	"testing"

	"theftalert/internal/config"
	"theftalert/internal/domain"
	"theftalert/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// SeedUsers writes users into st.
func SeedUsers(t testing.TB, st *store.Store, users ...domain.User) {
	t.Helper()

	for _, u := range users {
		if err := st.UpsertUser(context.Background(), u); err != nil {
			t.Fatalf("store.UpsertUser(%s): %v", u.ID, err)
		}
	}
}
