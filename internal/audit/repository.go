package audit

import (
	"context"
	"database/sql"
	"sync"
)

// SQLRecorder appends to the audit_events table. No update or delete paths
// exist on purpose.
type SQLRecorder struct {
	db *sql.DB
}

func NewSQLRecorder(db *sql.DB) *SQLRecorder {
	return &SQLRecorder{db: db}
}

func (r *SQLRecorder) Record(ctx context.Context, e Event) error {
	const q = `
INSERT INTO audit_events (id, org_id, actor_id, type, subject_id, detail, created_at)
VALUES ($1,$2,NULLIF($3,''),$4,NULLIF($5,''),$6,$7)
`
	_, err := r.db.ExecContext(ctx, q, e.ID, e.OrgID, e.ActorID, e.Type, e.SubjectID, e.Detail, e.CreatedAt)
	return err
}

// MemoryRecorder collects events in memory for tests.
type MemoryRecorder struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryRecorder() *MemoryRecorder { return &MemoryRecorder{} }

func (r *MemoryRecorder) Record(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

// Events returns a snapshot of recorded events.
func (r *MemoryRecorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}
