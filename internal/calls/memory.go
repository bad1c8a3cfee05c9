package calls

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store for tests. It mirrors the SQL store's
// claim semantics, including the at-most-once ClaimReport guarantee.
type MemoryStore struct {
	mu       sync.Mutex
	attempts map[string]*CallAttempt // by attempt id
	logs     map[string]*CallLog     // by log id
	Clock    func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		attempts: map[string]*CallAttempt{},
		logs:     map[string]*CallLog{},
		Clock:    time.Now,
	}
}

func (m *MemoryStore) UpsertAttempt(_ context.Context, a CallAttempt) (CallAttempt, error) {
	if a.OrgID == "" || a.CampaignID == "" || a.PersonID == "" {
		return CallAttempt{}, ErrInvalidArgument
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.Clock().UTC()
	for _, ex := range m.attempts {
		if ex.CampaignID == a.CampaignID && ex.PersonID == a.PersonID {
			ex.UpdatedAt = now
			return *ex, nil
		}
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Status == "" {
		a.Status = AttemptInProgress
	}
	a.CreatedAt = now
	a.UpdatedAt = now
	cp := a
	m.attempts[a.ID] = &cp
	return a, nil
}

func (m *MemoryStore) SetAttemptProviderCall(_ context.Context, attemptID, providerCallID string) error {
	if attemptID == "" || providerCallID == "" {
		return ErrInvalidArgument
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[attemptID]
	if !ok {
		return ErrNotFound
	}
	a.ProviderCallID = providerCallID
	a.UpdatedAt = m.Clock().UTC()
	return nil
}

func (m *MemoryStore) MarkAttemptFailed(_ context.Context, attemptID, errMsg string) error {
	if attemptID == "" {
		return ErrInvalidArgument
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[attemptID]
	if !ok {
		return ErrNotFound
	}
	a.Status = AttemptFailed
	a.ErrorMessage = errMsg
	a.UpdatedAt = m.Clock().UTC()
	return nil
}

func (m *MemoryStore) FinalizeAttempt(_ context.Context, providerCallID string, fin AttemptFinal) (bool, error) {
	if providerCallID == "" {
		return false, ErrInvalidArgument
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.attempts {
		if a.ProviderCallID == providerCallID {
			a.Status = fin.Status
			a.DurationSeconds = fin.DurationSeconds
			a.ResponseNotes = fin.ResponseNotes
			a.ResponseCategory = fin.ResponseCategory
			a.RecordingURL = fin.RecordingURL
			a.UpdatedAt = m.Clock().UTC()
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryStore) SaveDispatchLog(_ context.Context, l CallLog) (CallLog, error) {
	if l.OrgID == "" {
		return CallLog{}, ErrInvalidArgument
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.Clock().UTC()
	if l.ProviderCallID != "" {
		if ex := m.findLogLocked(l.ProviderCallID); ex != nil {
			ex.RawResponse = l.RawResponse
			ex.Status = l.Status
			ex.ErrorMessage = l.ErrorMessage
			ex.UpdatedAt = now
			return *ex, nil
		}
	}
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	l.CreatedAt = now
	l.UpdatedAt = now
	cp := l
	m.logs[l.ID] = &cp
	return l, nil
}

func (m *MemoryStore) ClaimReport(_ context.Context, l CallLog) (CallLog, bool, error) {
	if l.ProviderCallID == "" {
		return CallLog{}, false, ErrInvalidArgument
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.Clock().UTC()
	if ex := m.findLogLocked(l.ProviderCallID); ex != nil {
		if ex.ReconciledAt != nil {
			return *ex, false, nil
		}
		if l.OrgID != "" {
			ex.OrgID = l.OrgID
		}
		if l.CampaignID != "" {
			ex.CampaignID = l.CampaignID
		}
		if l.PersonID != "" {
			ex.PersonID = l.PersonID
		}
		if l.Phone != "" {
			ex.Phone = l.Phone
		}
		ex.Status = l.Status
		ex.DurationSeconds = l.DurationSeconds
		ex.Transcript = l.Transcript
		ex.Summary = l.Summary
		ex.RecordingURL = l.RecordingURL
		ex.RawResponse = l.RawResponse
		ex.ErrorMessage = l.ErrorMessage
		ex.ReconciledAt = &now
		ex.UpdatedAt = now
		return *ex, true, nil
	}

	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	l.ReconciledAt = &now
	l.CreatedAt = now
	l.UpdatedAt = now
	cp := l
	m.logs[l.ID] = &cp
	return l, true, nil
}

func (m *MemoryStore) ListAttemptsByCampaign(_ context.Context, orgID, campaignID string) ([]CallAttempt, error) {
	if orgID == "" || campaignID == "" {
		return nil, ErrInvalidArgument
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []CallAttempt
	for _, a := range m.attempts {
		if a.OrgID == orgID && a.CampaignID == campaignID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *MemoryStore) ExpireStaleAttempts(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	now := m.Clock().UTC()
	for _, a := range m.attempts {
		if a.Status == AttemptInProgress && a.CreatedAt.Before(cutoff) {
			a.Status = AttemptFailed
			a.ErrorMessage = staleAttemptError
			a.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

// Attempts returns a snapshot of all attempts, for test assertions.
func (m *MemoryStore) Attempts() []CallAttempt {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]CallAttempt, 0, len(m.attempts))
	for _, a := range m.attempts {
		out = append(out, *a)
	}
	return out
}

// Logs returns a snapshot of all call logs, for test assertions.
func (m *MemoryStore) Logs() []CallLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]CallLog, 0, len(m.logs))
	for _, l := range m.logs {
		out = append(out, *l)
	}
	return out
}

func (m *MemoryStore) findLogLocked(providerCallID string) *CallLog {
	for _, l := range m.logs {
		if l.ProviderCallID == providerCallID {
			return l
		}
	}
	return nil
}
