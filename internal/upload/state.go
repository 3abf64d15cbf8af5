package upload

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// StateDB remembers which plan contents were already accepted by which server
// so an unchanged file is not re-sent.
type StateDB struct {
	db *sql.DB
}

// OpenStateDB opens (or creates) the SQLite state database at dir/state.db.
func OpenStateDB(dir string) (*StateDB, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state dir %s: %w", dir, err)
	}

	dbPath := filepath.Join(dir, "state.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening state db: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS uploaded_plans (
		server      TEXT NOT NULL,
		path        TEXT NOT NULL,
		hash        TEXT NOT NULL,
		accepted    INTEGER NOT NULL,
		uploaded_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (server, path)
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating state table: %w", err)
	}

	return &StateDB{db: db}, nil
}

// IsUploaded checks if the plan at path was last uploaded to server with the
// same content hash.
func (s *StateDB) IsUploaded(server, path, hash string) (bool, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM uploaded_plans WHERE server = ? AND path = ? AND hash = ?`,
		server, path, hash,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// MarkUploaded records that a plan was accepted by server.
func (s *StateDB) MarkUploaded(server, path, hash string, accepted int) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO uploaded_plans (server, path, hash, accepted) VALUES (?, ?, ?, ?)`,
		server, path, hash, accepted,
	)
	return err
}

// Close closes the state database.
func (s *StateDB) Close() error {
	return s.db.Close()
}

// HashPlan computes the SHA-256 hash of plan contents.
func HashPlan(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
