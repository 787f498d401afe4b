package tunnelstate_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"bslocal/internal/tunnel"
	"bslocal/internal/tunnelstate"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "tunnel.toml")
	store := tunnelstate.New(path)
	ctx := context.Background()

	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	state := tunnel.State{
		PID:        4321,
		AccessKey:  "start-key",
		BinaryPath: "/opt/bs/BrowserStackLocal",
		LogFile:    "/tmp/local.log",
		SessionID:  "3f2a9c1e",
		StartedAt:  started,
		Options: tunnel.NewOptions(
			tunnel.Flag{Key: "zeta", Value: true},
			tunnel.Flag{Key: "alpha", Value: "ci-42"},
			tunnel.Flag{Key: "dropped", Value: nil},
		),
	}
	if err := store.Save(ctx, tunnelstate.FromState(state)); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	rec, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	got := rec.State()
	if got.PID != 4321 || got.BinaryPath != state.BinaryPath || got.LogFile != state.LogFile || got.SessionID != "3f2a9c1e" || got.AccessKey != "start-key" {
		t.Fatalf("unexpected state %+v", got)
	}
	if !got.StartedAt.Equal(started) {
		t.Fatalf("unexpected start time %v", got.StartedAt)
	}
	if keys := got.Options.Keys(); !reflect.DeepEqual(keys, []string{"zeta", "alpha"}) {
		t.Fatalf("option order not preserved: %v", keys)
	}
	if v, _ := got.Options.Get("zeta"); v != true {
		t.Fatalf("unexpected zeta value %#v", v)
	}
}

func TestLoadMissingReturnsErrNoState(t *testing.T) {
	ctx := context.Background()
	for _, path := range []string{
		filepath.Join(t.TempDir(), "tunnel.toml"),
		filepath.Join(t.TempDir(), "absent", "tunnel.toml"),
	} {
		if _, err := tunnelstate.New(path).Load(ctx); !errors.Is(err, tunnelstate.ErrNoState) {
			t.Fatalf("expected ErrNoState for %s, got %v", path, err)
		}
	}
}

func TestClearRemovesRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tunnel.toml")
	store := tunnelstate.New(path)
	ctx := context.Background()

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear on empty store returned error: %v", err)
	}
	if err := store.Save(ctx, tunnelstate.Record{PID: 1}); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear returned error: %v", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected record to be removed, stat err=%v", err)
	}
}

func TestSavedRecordKeepsAccessKeyPrivate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tunnel.toml")
	store := tunnelstate.New(path)

	c := tunnel.New(tunnel.Settings{AccessKey: "super-secret", BinaryPath: "/bin/x", LogFile: "/tmp/l.log"})
	if err := store.Save(context.Background(), tunnelstate.FromState(c.Snapshot())); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat record: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("expected state file mode 0600, got %o", perm)
	}

	rec, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if rec.AccessKey != "super-secret" {
		t.Fatalf("expected access key to round-trip, got %q", rec.AccessKey)
	}

	restored := tunnel.New(tunnel.Settings{AccessKey: "other", BinaryPath: "/bin/x", LogFile: "/tmp/l.log"})
	restored.Restore(rec.State())
	if got := restored.Command(tunnel.SubStop)[6]; got != "super-secret" {
		t.Fatalf("restored stop command should carry the saved key, got %q", got)
	}
}

func TestLoadRejectsCorruptRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tunnel.toml")
	if err := os.WriteFile(path, []byte("pid = [not toml"), 0o600); err != nil {
		t.Fatalf("write corrupt record: %v", err)
	}
	_, err := tunnelstate.New(path).Load(context.Background())
	if err == nil || errors.Is(err, tunnelstate.ErrNoState) {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestSaveHonoursCancelledContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tunnel.toml")
	holder := tunnelstate.New(path)
	ctx := context.Background()
	if err := holder.Save(ctx, tunnelstate.Record{PID: 1}); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := tunnelstate.New(path).Save(cancelled, tunnelstate.Record{PID: 2}); err == nil {
		t.Fatal("expected error when context is already cancelled")
	}
}
