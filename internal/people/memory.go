package people

import "context"

// MemoryDirectory is an in-memory Directory for tests.
type MemoryDirectory struct {
	People map[string]Person   // keyed by person id
	Groups map[string][]string // group id -> ordered person ids (duplicates allowed)
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		People: map[string]Person{},
		Groups: map[string][]string{},
	}
}

func (m *MemoryDirectory) GetPerson(_ context.Context, orgID, personID string) (Person, error) {
	p, ok := m.People[personID]
	if !ok || p.OrgID != orgID {
		return Person{}, ErrNotFound
	}
	return p, nil
}

func (m *MemoryDirectory) ListGroupMembers(_ context.Context, orgID, groupID string) ([]Person, error) {
	ids, ok := m.Groups[groupID]
	if !ok {
		return nil, nil
	}
	var out []Person
	for _, id := range ids {
		p, ok := m.People[id]
		if !ok || p.OrgID != orgID {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}
