// Package store persists the confirmed-transaction state across sessions.
// Persistence scope is an explicit contract: only the Snapshot projection is
// written, under one fixed key, and hydration tolerates missing fields as
// empty collections.
package store

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/PannawatHwangmontri/Voice-expense-recording-system/internal/domain"
)

//go:embed schema.sql
var schema string

// StorageKey is the fixed key the snapshot is stored under.
const StorageKey = "expense-storage"

// Snapshot is the persisted subset of application state: the confirmed
// transaction history and the locally-generated ledger entries. Nothing else
// survives a restart.
type Snapshot struct {
	Transactions []domain.ParsedTransaction `json:"transactions"`
	LocalEntries []domain.LedgerEntry       `json:"localEntries"`
}

// Project builds the persisted subset from full state. Pure.
func Project(transactions []domain.ParsedTransaction, localEntries []domain.LedgerEntry) Snapshot {
	return Snapshot{Transactions: transactions, LocalEntries: localEntries}
}

// Hydrate returns the collections with nils normalized to empty slices. Pure.
func (s Snapshot) Hydrate() ([]domain.ParsedTransaction, []domain.LedgerEntry) {
	transactions := s.Transactions
	if transactions == nil {
		transactions = []domain.ParsedTransaction{}
	}
	entries := s.LocalEntries
	if entries == nil {
		entries = []domain.LedgerEntry{}
	}
	return transactions, entries
}

// Store handles database operations
type Store struct {
	db *sql.DB
}

// New creates a new Store with the given database path
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Save writes the snapshot under the fixed storage key, replacing any
// previous value atomically.
func (s *Store) Save(snap Snapshot) error {
	value, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	_, err = s.db.Exec(
		"INSERT OR REPLACE INTO snapshots (key, value, updated_at) VALUES (?, ?, ?)",
		StorageKey, string(value), time.Now(),
	)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Load reads the snapshot back. A missing key or unreadable value yields a
// zero snapshot so a fresh or corrupted database never blocks startup.
func (s *Store) Load() (Snapshot, error) {
	var value string
	err := s.db.QueryRow(
		"SELECT value FROM snapshots WHERE key = ?",
		StorageKey,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return Snapshot{}, nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal([]byte(value), &snap); err != nil {
		return Snapshot{}, nil
	}
	return snap, nil
}
