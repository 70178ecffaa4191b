package state

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"mspro-labs/stock-watch/internal/config"
	"mspro-labs/stock-watch/internal/models"
)

var sampleSnapshot = models.Snapshot{
	"R245": {"MN4P2B/A": models.Unavailable},
	"R092": {},
	"R369": {"MN912VC/A": models.Available("ALL"), "MN972VC/A": models.Available("UNLOCKED")},
}

func openStores(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()

	sqlite, err := Connect(filepath.Join(dir, "state.db"))
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	mr := miniredis.RunT(t)
	rs, err := NewRedisStore(context.Background(), "redis://"+mr.Addr(), "stock-watch:test")
	if err != nil {
		t.Fatalf("NewRedisStore failed: %v", err)
	}

	stores := map[string]Store{
		"file":   NewFileStore(filepath.Join(dir, "previous_state.json")),
		"sqlite": sqlite,
		"redis":  rs,
	}
	t.Cleanup(func() {
		for _, s := range stores {
			s.Close()
		}
	})
	return stores
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, s := range openStores(t) {
		if got := s.LoadPrevious(ctx); len(got) != 0 {
			t.Errorf("%s: expected empty snapshot before first save, got %v", name, got)
		}

		if err := s.SaveCurrent(ctx, sampleSnapshot); err != nil {
			t.Fatalf("%s: SaveCurrent failed: %v", name, err)
		}
		if got := s.LoadPrevious(ctx); !got.Equal(sampleSnapshot) {
			t.Errorf("%s: round trip mismatch: expected %v, got %v", name, sampleSnapshot, got)
		}

		// A second save overwrites rather than merges.
		next := models.Snapshot{"R245": {"MN4P2B/A": models.Available("ALL")}}
		if err := s.SaveCurrent(ctx, next); err != nil {
			t.Fatalf("%s: second SaveCurrent failed: %v", name, err)
		}
		if got := s.LoadPrevious(ctx); !got.Equal(next) {
			t.Errorf("%s: expected overwrite to %v, got %v", name, next, got)
		}

		if err := s.Reset(ctx); err != nil {
			t.Fatalf("%s: Reset failed: %v", name, err)
		}
		if got := s.LoadPrevious(ctx); len(got) != 0 {
			t.Errorf("%s: expected empty snapshot after reset, got %v", name, got)
		}
	}
}

func TestFileStoreCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "previous_state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := NewFileStore(path).LoadPrevious(context.Background()); got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil snapshot for corrupt file, got %#v", got)
	}
}

func TestFileStoreWireFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "previous_state.json")
	s := NewFileStore(path)
	if err := s.SaveCurrent(context.Background(), models.Snapshot{"R369": {"MN912VC/A": models.Available("ALL")}}); err != nil {
		t.Fatalf("SaveCurrent failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"R369":{"MN912VC/A":"ALL"}}` {
		t.Errorf("unexpected file contents %s", data)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o644 {
		t.Errorf("expected state file mode 0644, got %o", perm)
	}
}

func TestFileStoreYAML(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "previous_state.yaml")
	s := NewFileStore(path)
	if err := s.SaveCurrent(ctx, sampleSnapshot); err != nil {
		t.Fatalf("SaveCurrent failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "MN4P2B/A: NONE") || !strings.Contains(string(data), "R092: {}") {
		t.Errorf("expected YAML document, got:\n%s", data)
	}

	if got := s.LoadPrevious(ctx); !got.Equal(sampleSnapshot) {
		t.Errorf("round trip mismatch: expected %v, got %v", sampleSnapshot, got)
	}

	if err := os.WriteFile(path, []byte("R245: [not, a, mapping]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := s.LoadPrevious(ctx); got == nil || len(got) != 0 {
		t.Errorf("expected empty snapshot for malformed YAML, got %#v", got)
	}
}

func TestRedisStoreCorrupt(t *testing.T) {
	mr := miniredis.RunT(t)
	mr.Set("stock-watch:test", "garbage")

	s, err := NewRedisStore(context.Background(), "redis://"+mr.Addr(), "stock-watch:test")
	if err != nil {
		t.Fatalf("NewRedisStore failed: %v", err)
	}
	defer s.Close()

	if got := s.LoadPrevious(context.Background()); len(got) != 0 {
		t.Errorf("expected empty snapshot for corrupt value, got %v", got)
	}
}

func TestNotificationLog(t *testing.T) {
	ctx := context.Background()
	s, err := Connect(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer s.Close()

	delta := models.Delta{}
	delta.Add("R369", "MN912VC/A")
	delta.Add("R245", "MN4P2B/A")

	if err := s.MarkNotified(ctx, "run-1", delta); err != nil {
		t.Fatalf("MarkNotified failed: %v", err)
	}

	records, err := s.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	// Items are inserted sorted, so the newest row is R369.
	if records[0].Store != "R369" || records[0].Product != "MN912VC/A" || records[0].RunID != "run-1" {
		t.Errorf("unexpected newest record %+v", records[0])
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	if _, err := Open(context.Background(), config.AppConfig{StateBackend: "etcd"}); err == nil {
		t.Error("expected error for unknown backend")
	}
}
