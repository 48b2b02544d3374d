// Package testutil provides shared test helpers for setting up local
// stores, cloud fakes, and identities.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/david8015838-create/nexus-mind/internal/identity"
	"github.com/david8015838-create/nexus-mind/internal/store"
)

// TestStore creates a temporary SQLite store that is automatically cleaned up.
func TestStore(t *testing.T) *store.Store {
	t.Helper()
	f, err := os.CreateTemp("", "nexus-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	s, err := store.Open(f.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestIdentity returns a signed-in static identity provider.
func TestIdentity() *identity.Static {
	return identity.NewStatic(identity.User{
		UID:         "test-uid",
		Email:       "test@example.com",
		DisplayName: "Test Account",
	}, true)
}

// SilentLogger returns a logger that discards everything.
func SilentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
