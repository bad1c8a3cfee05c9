package people

import (
	"context"
	"errors"
	"strings"
)

var ErrInvalidTarget = errors.New("people: invalid target")

// Resolver turns a campaign target into the ordered list of contactable
// recipients.
//
// Contract:
//   - Group order is the membership listing order; duplicates are NOT removed,
//     downstream bookkeeping must tolerate them.
//   - People without a usable phone number are silently excluded, not errored.
//   - An empty result is a benign outcome, not a failure.
type Resolver struct {
	dir Directory
}

func NewResolver(dir Directory) *Resolver { return &Resolver{dir: dir} }

func (r *Resolver) Resolve(ctx context.Context, orgID string, t Target) ([]Person, error) {
	if orgID == "" || !t.Valid() {
		return nil, ErrInvalidTarget
	}

	var candidates []Person
	switch t.Kind {
	case TargetIndividual:
		p, err := r.dir.GetPerson(ctx, orgID, t.ID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, nil
			}
			return nil, err
		}
		candidates = []Person{p}
	case TargetGroup:
		members, err := r.dir.ListGroupMembers(ctx, orgID, t.ID)
		if err != nil {
			return nil, err
		}
		candidates = members
	}

	out := make([]Person, 0, len(candidates))
	for _, p := range candidates {
		if strings.TrimSpace(p.Phone) == "" {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}
