package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/defkit/jsdef/internal/indexer"
)

func buildFixture(t *testing.T) *indexer.Indexer {
	t.Helper()
	root := t.TempDir()

	files := map[string]string{
		"a.js":       "const { add } = require('./math')\nfunction local() {}\n",
		"math.js":    "function add(a, b) {\nreturn a + b\n}\nfunction sub(a, b) {\nreturn a - b\n}\n",
		"sub/use.js": "const m = require('../math')\n",
	}
	for name, content := range files {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	ix := indexer.New(root)
	if err := ix.Index(); err != nil {
		t.Fatalf("Index failed: %v", err)
	}
	return ix
}

func TestWriteAndStats(t *testing.T) {
	ix := buildFixture(t)

	dbPath := filepath.Join(t.TempDir(), "index.db")
	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()

	if err := store.Write(ix); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	got, err := store.Stats()
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	want := ix.Stats()
	if got.Files != want.Files || got.Functions != want.Functions || got.Imports != want.Imports {
		t.Errorf("snapshot stats %+v, catalog stats %+v", got, want)
	}
}

func TestFunctionRowsCarrySignature(t *testing.T) {
	ix := buildFixture(t)

	dbPath := filepath.Join(t.TempDir(), "index.db")
	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()

	if err := store.Write(ix); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	var offset int
	var signature string
	err = store.db.QueryRow(`
		SELECT line_offset, signature FROM functions WHERE name = ?
	`, "add").Scan(&offset, &signature)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if offset != 0 {
		t.Errorf("add offset = %d, want 0", offset)
	}
	if signature != "function add(a, b) {" {
		t.Errorf("signature = %q, want the defining line", signature)
	}
}

func TestRewriteReplaces(t *testing.T) {
	ix := buildFixture(t)

	dbPath := filepath.Join(t.TempDir(), "index.db")
	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()

	if err := store.Write(ix); err != nil {
		t.Fatalf("first Write: %v", err)
	}
	if err := store.Write(ix); err != nil {
		t.Fatalf("second Write: %v", err)
	}

	got, err := store.Stats()
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	want := ix.Stats()
	if got.Files != want.Files || got.Functions != want.Functions || got.Imports != want.Imports {
		t.Errorf("second export should replace, not append: %+v vs %+v", got, want)
	}
}
