package script

import (
	"context"
	"database/sql"
	"errors"
)

var ErrNotFound = errors.New("script: not found")

// Store abstracts script persistence.
type Store interface {
	Get(ctx context.Context, orgID, scriptID string) (CallScript, error)
}

// SQLStore reads scripts from Postgres.
//
// Assumed table: call_scripts (id, org_id, name, template, created_at, updated_at)
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

func (s *SQLStore) Get(ctx context.Context, orgID, scriptID string) (CallScript, error) {
	const q = `
SELECT id, org_id, name, template, created_at, updated_at
FROM call_scripts
WHERE org_id = $1 AND id = $2
`
	var cs CallScript
	if err := s.db.QueryRowContext(ctx, q, orgID, scriptID).Scan(
		&cs.ID,
		&cs.OrgID,
		&cs.Name,
		&cs.Template,
		&cs.CreatedAt,
		&cs.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CallScript{}, ErrNotFound
		}
		return CallScript{}, err
	}
	return cs, nil
}

// MemoryStore is an in-memory Store for tests.
type MemoryStore struct {
	Scripts map[string]CallScript // keyed by script id
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{Scripts: map[string]CallScript{}}
}

func (m *MemoryStore) Get(_ context.Context, orgID, scriptID string) (CallScript, error) {
	cs, ok := m.Scripts[scriptID]
	if !ok || cs.OrgID != orgID {
		return CallScript{}, ErrNotFound
	}
	return cs, nil
}
