package campaign

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store used in tests.
type MemoryStore struct {
	mu        sync.Mutex
	campaigns map[string]Campaign
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{campaigns: make(map[string]Campaign)}
}

func (m *MemoryStore) Create(_ context.Context, c Campaign) (Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.campaigns[c.ID] = c
	return c, nil
}

func (m *MemoryStore) Get(_ context.Context, orgID, campaignID string) (Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[campaignID]
	if !ok || c.OrgID != orgID {
		return Campaign{}, ErrNotFound
	}
	return c, nil
}

func (m *MemoryStore) List(_ context.Context, orgID string) ([]Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Campaign
	for _, c := range m.campaigns {
		if c.OrgID == orgID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) Pause(_ context.Context, orgID, campaignID, reason string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[campaignID]
	if !ok || c.OrgID != orgID || c.Status != StatusActive {
		return false, nil
	}
	c.Status = StatusPaused
	c.PausedReason = reason
	c.UpdatedAt = time.Now().UTC()
	m.campaigns[campaignID] = c
	return true, nil
}

func (m *MemoryStore) Finalize(_ context.Context, orgID, campaignID string, estimatedCostMinor int64, at time.Time) (Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[campaignID]
	if !ok || c.OrgID != orgID {
		return Campaign{}, ErrNotFound
	}
	c.EstimatedCostMinor = estimatedCostMinor
	if c.Status == StatusActive {
		c.Status = StatusCompleted
		at := at.UTC()
		c.CompletedAt = &at
	}
	c.UpdatedAt = at.UTC()
	m.campaigns[campaignID] = c
	return c, nil
}
