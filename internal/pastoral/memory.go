package pastoral

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store used in tests.
type MemoryStore struct {
	mu        sync.Mutex
	alerts    map[string]EscalationAlert
	followUps map[string]FollowUp

	Clock func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		alerts:    make(map[string]EscalationAlert),
		followUps: make(map[string]FollowUp),
		Clock:     time.Now,
	}
}

func (m *MemoryStore) CreateAlert(_ context.Context, a EscalationAlert) (EscalationAlert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts[a.ID] = a
	return a, nil
}

func (m *MemoryStore) ResolveAlert(_ context.Context, orgID, alertID string) (EscalationAlert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.alerts[alertID]
	if !ok || a.OrgID != orgID || a.Status != AlertOpen {
		return EscalationAlert{}, ErrNotFound
	}
	now := m.Clock().UTC()
	a.Status = AlertResolved
	a.ResolvedAt = &now
	m.alerts[alertID] = a
	return a, nil
}

func (m *MemoryStore) ListAlerts(_ context.Context, orgID string, status AlertStatus) ([]EscalationAlert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []EscalationAlert
	for _, a := range m.alerts {
		if a.OrgID != orgID {
			continue
		}
		if status != "" && a.Status != status {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) CreateFollowUp(_ context.Context, f FollowUp) (FollowUp, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.followUps[f.ID] = f
	return f, nil
}

func (m *MemoryStore) UpdateFollowUp(_ context.Context, orgID, followUpID string, mutate func(f *FollowUp) error) (FollowUp, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.followUps[followUpID]
	if !ok || f.OrgID != orgID {
		return FollowUp{}, ErrNotFound
	}
	cp := f
	cp.Notes = append([]Note(nil), f.Notes...)
	if err := mutate(&cp); err != nil {
		return FollowUp{}, err
	}
	m.followUps[followUpID] = cp
	return cp, nil
}

func (m *MemoryStore) ListFollowUps(_ context.Context, orgID string, status FollowUpStatus) ([]FollowUp, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []FollowUp
	for _, f := range m.followUps {
		if f.OrgID != orgID {
			continue
		}
		if status != "" && f.Status != status {
			continue
		}
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
