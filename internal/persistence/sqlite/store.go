package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/example/shiporbit-client/internal/persistence"
)

// Store is the SQLite-backed local client state: the sealed session, the
// shipment-draft cache, and the invoice cache live in one single-file
// database.
type Store struct {
	db     *sql.DB
	sealer *Sealer
}

// Open opens (or creates) the state database and bootstraps the schema.
func Open(dsn string, sealer *Sealer) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open state database: %w", err)
	}
	// The client is single-process; one connection avoids SQLITE_BUSY
	// surprises with the pure-Go driver.
	db.SetMaxOpenConns(1)

	store := &Store{db: db, sealer: sealer}
	if err := store.bootstrap(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) bootstrap(ctx context.Context) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS session_state (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			sealed_token BLOB NOT NULL,
			user_json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS draft_cache (
			shipment_id TEXT PRIMARY KEY,
			payload TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS invoice_cache (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			payload TEXT NOT NULL,
			fetched_at TEXT NOT NULL
		)`,
	}
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap schema: %w", err)
		}
	}
	return nil
}

// --- SessionStore implementation ---

// SaveSession seals the token and upserts the singleton session row.
func (s *Store) SaveSession(ctx context.Context, state persistence.SessionState) error {
	sealed, err := s.sealer.Seal([]byte(state.Token))
	if err != nil {
		return fmt.Errorf("seal token: %w", err)
	}

	updatedAt := state.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO session_state (id, sealed_token, user_json, updated_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			sealed_token = excluded.sealed_token,
			user_json = excluded.user_json,
			updated_at = excluded.updated_at
	`, sealed, string(state.UserJSON), updatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// LoadSession unseals and returns the stored session. A blob that does not
// open (tampered state, changed machine secret) returns ErrSealBroken.
func (s *Store) LoadSession(ctx context.Context) (persistence.SessionState, error) {
	row := s.db.QueryRowContext(ctx, `SELECT sealed_token, user_json, updated_at FROM session_state WHERE id = 1`)

	var (
		sealed    []byte
		userJSON  string
		updatedAt string
	)
	if err := row.Scan(&sealed, &userJSON, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.SessionState{}, persistence.ErrNotFound
		}
		return persistence.SessionState{}, fmt.Errorf("load session: %w", err)
	}

	token, err := s.sealer.Open(sealed)
	if err != nil {
		return persistence.SessionState{}, err
	}

	state := persistence.SessionState{Token: string(token), UserJSON: []byte(userJSON)}
	if ts, err := time.Parse(time.RFC3339, updatedAt); err == nil {
		state.UpdatedAt = ts
	}
	return state, nil
}

// ClearSession removes the stored session. Clearing an empty store is a no-op.
func (s *Store) ClearSession(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM session_state WHERE id = 1`); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// --- DraftCache implementation ---

func (s *Store) PutDraft(ctx context.Context, id string, payload []byte, updatedAt time.Time) error {
	if id == "" {
		return fmt.Errorf("put draft: empty shipment id")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO draft_cache (shipment_id, payload, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(shipment_id) DO UPDATE SET
			payload = excluded.payload,
			updated_at = excluded.updated_at
	`, id, string(payload), updatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("put draft: %w", err)
	}
	return nil
}

func (s *Store) GetDraft(ctx context.Context, id string) ([]byte, error) {
	row := s.db.QueryRowContext(ctx, `SELECT payload FROM draft_cache WHERE shipment_id = ?`, id)
	var payload string
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrNotFound
		}
		return nil, fmt.Errorf("get draft: %w", err)
	}
	return []byte(payload), nil
}

func (s *Store) DeleteDraft(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM draft_cache WHERE shipment_id = ?`, id); err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	return nil
}

// --- InvoiceCache implementation ---

func (s *Store) ReplaceInvoices(ctx context.Context, payload []byte, fetchedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO invoice_cache (id, payload, fetched_at)
		VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			payload = excluded.payload,
			fetched_at = excluded.fetched_at
	`, string(payload), fetchedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("replace invoices: %w", err)
	}
	return nil
}

func (s *Store) LoadInvoices(ctx context.Context) ([]byte, time.Time, error) {
	row := s.db.QueryRowContext(ctx, `SELECT payload, fetched_at FROM invoice_cache WHERE id = 1`)
	var (
		payload   string
		fetchedAt string
	)
	if err := row.Scan(&payload, &fetchedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, time.Time{}, persistence.ErrNotFound
		}
		return nil, time.Time{}, fmt.Errorf("load invoices: %w", err)
	}
	ts, _ := time.Parse(time.RFC3339, fetchedAt)
	return []byte(payload), ts, nil
}
