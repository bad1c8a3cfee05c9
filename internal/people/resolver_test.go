package people

import (
	"context"
	"testing"
)

func seedDirectory() *MemoryDirectory {
	dir := NewMemoryDirectory()
	dir.People["p1"] = Person{ID: "p1", OrgID: "org", FirstName: "Ann", Phone: "5551230001"}
	dir.People["p2"] = Person{ID: "p2", OrgID: "org", FirstName: "Ben", Phone: ""}
	dir.People["p3"] = Person{ID: "p3", OrgID: "org", FirstName: "Cal", Phone: "5551230003"}
	dir.People["px"] = Person{ID: "px", OrgID: "other", FirstName: "Eve", Phone: "5559990000"}
	dir.Groups["g1"] = []string{"p1", "p2", "p3"}
	dir.Groups["g2"] = []string{"p3", "p1", "p3"} // duplicate membership
	return dir
}

func TestResolve_GroupExcludesPhoneless(t *testing.T) {
	r := NewResolver(seedDirectory())

	got, err := r.Resolve(context.Background(), "org", Target{Kind: TargetGroup, ID: "g1"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 contactable members, got %d", len(got))
	}
	if got[0].ID != "p1" || got[1].ID != "p3" {
		t.Fatalf("expected membership order preserved, got %v", got)
	}
	for _, p := range got {
		if p.Phone == "" {
			t.Fatalf("resolver returned person without phone: %+v", p)
		}
	}
}

func TestResolve_GroupKeepsDuplicates(t *testing.T) {
	r := NewResolver(seedDirectory())

	got, err := r.Resolve(context.Background(), "org", Target{Kind: TargetGroup, ID: "g2"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected duplicates kept, got %d entries", len(got))
	}
	if got[0].ID != "p3" || got[1].ID != "p1" || got[2].ID != "p3" {
		t.Fatalf("unexpected order: %v", got)
	}
}

func TestResolve_Individual(t *testing.T) {
	r := NewResolver(seedDirectory())

	got, err := r.Resolve(context.Background(), "org", Target{Kind: TargetIndividual, ID: "p1"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(got) != 1 || got[0].ID != "p1" {
		t.Fatalf("unexpected result: %v", got)
	}
}

func TestResolve_IndividualWithoutPhoneIsEmpty(t *testing.T) {
	r := NewResolver(seedDirectory())

	got, err := r.Resolve(context.Background(), "org", Target{Kind: TargetIndividual, ID: "p2"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %v", got)
	}
}

func TestResolve_UnknownPersonIsEmptyNotError(t *testing.T) {
	r := NewResolver(seedDirectory())

	got, err := r.Resolve(context.Background(), "org", Target{Kind: TargetIndividual, ID: "nope"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %v", got)
	}
}

func TestResolve_CrossOrgDenied(t *testing.T) {
	r := NewResolver(seedDirectory())

	got, err := r.Resolve(context.Background(), "org", Target{Kind: TargetIndividual, ID: "px"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected cross-org lookup to resolve nothing, got %v", got)
	}
}

func TestResolve_InvalidTarget(t *testing.T) {
	r := NewResolver(seedDirectory())

	if _, err := r.Resolve(context.Background(), "org", Target{Kind: "household", ID: "x"}); err == nil {
		t.Fatalf("expected invalid target error")
	}
	if _, err := r.Resolve(context.Background(), "", Target{Kind: TargetGroup, ID: "g1"}); err == nil {
		t.Fatalf("expected invalid target error for missing org")
	}
}
