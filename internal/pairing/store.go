// Package pairing persists webos pairing tokens.
//
// A webos TV issues a client-key during its pairing handshake. The key is
// stored per display address and presented on subsequent connections so
// the TV does not prompt the user again. Tokens are saved immediately,
// even while the on-screen prompt is still pending, so an interrupted
// handshake resumes instead of restarting.
package pairing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/screen-logic-core/internal/infrastructure/database"
)

// Store is the SQLite-backed pairing token store.
//
// Thread Safety: safe for concurrent use; SQLite serialises writers and
// the database package configures a busy timeout.
type Store struct {
	db *database.DB
}

// NewStore creates a pairing token store backed by the given database.
func NewStore(db *database.DB) *Store {
	return &Store{db: db}
}

// Load returns the stored token for a display address.
// A display that has never paired yields an empty token and no error.
func (s *Store) Load(ctx context.Context, address string) (string, error) {
	var token string
	err := s.db.QueryRowContext(ctx,
		"SELECT token FROM pairing_tokens WHERE address = ?",
		address,
	).Scan(&token)

	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("loading pairing token for %s: %w", address, err)
	}
	return token, nil
}

// Save stores or replaces the token for a display address.
func (s *Store) Save(ctx context.Context, address, token string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pairing_tokens (address, token, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(address) DO UPDATE SET
			token = excluded.token,
			updated_at = excluded.updated_at
	`,
		address,
		token,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("saving pairing token for %s: %w", address, err)
	}
	return nil
}

// Delete removes the token for a display address.
// Used when a TV rejects a stored token and a fresh pairing is needed.
func (s *Store) Delete(ctx context.Context, address string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM pairing_tokens WHERE address = ?",
		address,
	)
	if err != nil {
		return fmt.Errorf("deleting pairing token for %s: %w", address, err)
	}
	return nil
}
