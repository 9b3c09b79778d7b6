package snapshot

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/defkit/jsdef/internal/indexer"
)

// Store writes a built catalog into a SQLite database so external tools
// can query it. The database is an export artifact: jsdef itself always
// answers queries from the in-memory catalog.
type Store struct {
	db *sql.DB
}

func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			return nil, err
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		return nil, fmt.Errorf("failed to execute schema: %w", err)
	}
	_, _ = db.Exec(`INSERT OR IGNORE INTO schema_version (version) VALUES (?)`, SchemaVersion)

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Write replaces the snapshot with the catalog's current state in a
// single transaction. Deleting files cascades to their functions and
// imports.
func (s *Store) Write(ix *indexer.Indexer) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM files"); err != nil {
		return fmt.Errorf("clear snapshot: %w", err)
	}

	fileStmt, err := tx.Prepare(`
		INSERT INTO files (path, line_count, content_hash)
		VALUES (?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare file stmt: %w", err)
	}
	defer fileStmt.Close()

	fnStmt, err := tx.Prepare(`
		INSERT INTO functions (file_id, name, line_offset, signature)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare function stmt: %w", err)
	}
	defer fnStmt.Close()

	impStmt, err := tx.Prepare(`
		INSERT INTO imports (file_id, name, target_path)
		VALUES (?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare import stmt: %w", err)
	}
	defer impStmt.Close()

	for _, path := range ix.Files() {
		fi, ok := ix.Lookup(path)
		if !ok {
			continue
		}

		hash := sha256.Sum256([]byte(strings.Join(fi.Content, "\n")))
		res, err := fileStmt.Exec(path, len(fi.Content), hex.EncodeToString(hash[:]))
		if err != nil {
			return fmt.Errorf("insert file %s: %w", path, err)
		}
		fileID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("file id for %s: %w", path, err)
		}

		for _, name := range sortedKeys(fi.Functions) {
			offset := fi.Functions[name]
			if _, err := fnStmt.Exec(fileID, name, offset, fi.Content[offset]); err != nil {
				return fmt.Errorf("insert function %s: %w", name, err)
			}
		}

		for _, name := range sortedKeys(fi.Imports) {
			if _, err := impStmt.Exec(fileID, name, fi.Imports[name]); err != nil {
				return fmt.Errorf("insert import %s: %w", name, err)
			}
		}
	}

	return tx.Commit()
}

type Stats struct {
	Files     int
	Functions int
	Imports   int
}

func (s *Store) Stats() (Stats, error) {
	var st Stats
	for table, dst := range map[string]*int{
		"files":     &st.Files,
		"functions": &st.Functions,
		"imports":   &st.Imports,
	} {
		if err := s.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(dst); err != nil {
			return Stats{}, fmt.Errorf("count %s: %w", table, err)
		}
	}
	return st, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
