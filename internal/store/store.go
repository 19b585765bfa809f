// Package store persists encoded condition trees in SQL by name.
//
// Trees are stored in the binary stream format of the conditions package,
// next to an etag (SHA256 of the encoding) and the node count. The store is
// safe for concurrent use; every load decodes into a tree owned by the
// caller.
package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/solatis/filterkeeper/internal/conditions"
	"github.com/solatis/filterkeeper/internal/core/db"
	"github.com/solatis/filterkeeper/internal/types"
)

// MaxNameLength bounds condition names.
const MaxNameLength = 128

// ErrInvalidName indicates an empty or oversized condition name.
var ErrInvalidName = errors.New("invalid condition name")

// Entry is one stored condition.
type Entry struct {
	Name      string    `db:"name"`
	Body      []byte    `db:"body"`
	ETag      string    `db:"etag"`
	Nodes     int       `db:"nodes"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Store saves and loads condition trees.
type Store struct {
	queries *db.Queries
	now     func() time.Time
}

// New creates a store on a migrated database.
func New(conn *sqlx.DB) (*Store, error) {
	if conn == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	q, err := db.LoadQueries(conn)
	if err != nil {
		return nil, err
	}
	return &Store{queries: q, now: time.Now}, nil
}

// ETag returns the etag of an encoded tree.
func ETag(body []byte) string {
	sum := sha256.Sum256(body)
	return fmt.Sprintf("%x", sum[:16])
}

// Save encodes tree and stores it under name, replacing a previous version.
func (s *Store) Save(ctx context.Context, name string, tree *conditions.Tree) (Entry, error) {
	return s.SaveEncoded(ctx, name, conditions.Encode(tree), tree.Len())
}

// SaveEncoded stores an already encoded tree of the given node count.
func (s *Store) SaveEncoded(ctx context.Context, name string, body []byte, nodes int) (Entry, error) {
	if err := checkName(name); err != nil {
		return Entry{}, err
	}
	e := Entry{
		Name:      name,
		Body:      body,
		ETag:      ETag(body),
		Nodes:     nodes,
		UpdatedAt: s.now().UTC().Truncate(time.Second),
	}
	if _, err := s.queries.Exec(ctx, "upsert-condition", e.Name, e.Body, e.ETag, e.Nodes, e.UpdatedAt); err != nil {
		return Entry{}, fmt.Errorf("failed to save condition %s: %w", name, err)
	}
	return e, nil
}

// Get returns the stored entry of name.
func (s *Store) Get(ctx context.Context, name string) (Entry, error) {
	var e Entry
	err := s.queries.Get(ctx, "get-condition", &e, name)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%s: %w", name, types.ErrConditionNotFound)
	}
	if err != nil {
		return Entry{}, fmt.Errorf("failed to load condition %s: %w", name, err)
	}
	return e, nil
}

// Load decodes the condition stored under name into tree. A corrupt body
// leaves tree empty and returns an error wrapping types.ErrCorruptStream.
func (s *Store) Load(ctx context.Context, name string, tree *conditions.Tree) (Entry, error) {
	e, err := s.Get(ctx, name)
	if err != nil {
		return Entry{}, err
	}
	if err := conditions.Decode(e.Body, tree); err != nil {
		return e, fmt.Errorf("condition %s: %w", name, err)
	}
	return e, nil
}

// List returns every stored condition without bodies, ordered by name.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	var entries []Entry
	if err := s.queries.Select(ctx, "list-conditions", &entries); err != nil {
		return nil, fmt.Errorf("failed to list conditions: %w", err)
	}
	return entries, nil
}

// Delete removes the condition stored under name.
func (s *Store) Delete(ctx context.Context, name string) error {
	res, err := s.queries.Exec(ctx, "delete-condition", name)
	if err != nil {
		return fmt.Errorf("failed to delete condition %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete condition %s: %w", name, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", name, types.ErrConditionNotFound)
	}
	return nil
}

func checkName(name string) error {
	if strings.TrimSpace(name) == "" || len(name) > MaxNameLength {
		return fmt.Errorf("%q: %w", name, ErrInvalidName)
	}
	return nil
}
