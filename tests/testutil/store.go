package testutil

import (
	"context"
	"testing"

	"github.com/nhle/club-portal/internal/model"
	"github.com/nhle/club-portal/internal/store"
)

// NewTestStore creates an in-memory SQLiteStore with all migrations applied.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// SeedUser inserts a user with the given id and role and returns the
// matching actor.
func SeedUser(t *testing.T, s *store.SQLiteStore, id string, role model.Role) model.Actor {
	t.Helper()

	err := s.CreateUser(context.Background(), model.User{
		ID:    id,
		Name:  "User " + id,
		Email: id + "@club.test",
		Role:  role,
	})
	if err != nil {
		t.Fatalf("seeding user %s: %v", id, err)
	}

	return model.Actor{ID: id, Role: role}
}
