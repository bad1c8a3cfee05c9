package people

import "time"

// Person is a member of a congregation's directory.
//
// Multi-tenant invariant: OrgID is required on every row.
type Person struct {
	ID    string `json:"id" db:"id"`
	OrgID string `json:"org_id" db:"org_id"`

	FirstName string `json:"first_name" db:"first_name"`
	LastName  string `json:"last_name" db:"last_name"`

	// Phone is stored as entered; dialing normalization happens at dispatch.
	Phone string `json:"phone" db:"phone"`
	Email string `json:"email,omitempty" db:"email"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// FullName joins first and last name, tolerating either being empty.
func (p Person) FullName() string {
	switch {
	case p.FirstName == "" && p.LastName == "":
		return ""
	case p.LastName == "":
		return p.FirstName
	case p.FirstName == "":
		return p.LastName
	default:
		return p.FirstName + " " + p.LastName
	}
}

// TargetKind selects what a campaign dials.
type TargetKind string

const (
	TargetGroup      TargetKind = "group"
	TargetIndividual TargetKind = "individual"
)

// Target describes who a campaign is aimed at: one group or one person.
type Target struct {
	Kind TargetKind `json:"kind"`
	ID   string     `json:"id"`
}

func (t Target) Valid() bool {
	if t.ID == "" {
		return false
	}
	return t.Kind == TargetGroup || t.Kind == TargetIndividual
}
