package cache

import (
	"database/sql"
	"fmt"
	"sync"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/reflexlang/reflex/pkg/bytecode"
)

// Store persists compiled units in SQLite, keyed by the tree's
// structural hash with the serialized tree as a collision tie-break.
// Units are stored in their CBOR wire form.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// OpenStore opens (and if needed initializes) the unit store at dbPath.
func OpenStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening unit store: %w", err)
	}

	// Busy timeout covers concurrent access from parallel compiles.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS units (
		id   TEXT PRIMARY KEY,
		hash INTEGER NOT NULL,
		tree BLOB NOT NULL,
		unit BLOB NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating units table: %w", err)
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS units_hash ON units (hash)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating hash index: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Load returns the stored unit for the given hash and tree, or nil
// when no matching row exists.
func (s *Store) Load(hash uint64, tree []byte) (*bytecode.Unit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT tree, unit FROM units WHERE hash = ?`, int64(hash))
	if err != nil {
		return nil, fmt.Errorf("querying unit store: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var storedTree, wire []byte
		if err := rows.Scan(&storedTree, &wire); err != nil {
			return nil, fmt.Errorf("scanning unit row: %w", err)
		}
		if string(storedTree) != string(tree) {
			continue
		}
		var unit bytecode.Unit
		if err := unit.UnmarshalBinary(wire); err != nil {
			return nil, fmt.Errorf("decoding stored unit: %w", err)
		}
		return &unit, nil
	}
	return nil, rows.Err()
}

// Save writes a unit, replacing any previous row for the same tree.
func (s *Store) Save(hash uint64, tree []byte, unit *bytecode.Unit) error {
	wire, err := unit.MarshalBinary()
	if err != nil {
		return fmt.Errorf("encoding unit: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// One row per distinct tree; the delete keeps re-saves from
	// accumulating duplicates under the same hash.
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting save: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM units WHERE hash = ? AND tree = ?`, int64(hash), tree); err != nil {
		tx.Rollback()
		return fmt.Errorf("clearing stale unit: %w", err)
	}
	_, err = tx.Exec(`INSERT INTO units (id, hash, tree, unit) VALUES (?, ?, ?, ?)`,
		uuid.New().String(), int64(hash), tree, wire)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("saving unit: %w", err)
	}
	return tx.Commit()
}

// Count reports the number of stored units.
func (s *Store) Count() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM units`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting units: %w", err)
	}
	return n, nil
}
