// Package testutil provides hermetic fixtures for package tests that
// need a concrete repo.Repo without touching the filesystem.
package testutil

import (
	"context"
	"testing"

	"github.com/untoldecay/elembranch/internal/reposqlite"
)

// NewMemStore opens an in-memory SQLite-backed Store for the duration of
// a single test, closing it automatically via t.Cleanup.
func NewMemStore(t *testing.T, reposURL string) *reposqlite.Store {
	t.Helper()
	ctx := context.Background()
	store, err := reposqlite.Open(ctx, ":memory:", reposURL)
	if err != nil {
		t.Fatalf("testutil.NewMemStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}
