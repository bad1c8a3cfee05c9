package script

import "time"

// CallScript is a tenant-scoped reusable script template.
//
// Multi-tenant invariant: OrgID is required on every row.
type CallScript struct {
	ID    string `json:"id" db:"id"`
	OrgID string `json:"org_id" db:"org_id"`

	Name string `json:"name" db:"name"`

	// Template is the first-message template with {Name}/[Name] placeholders.
	Template string `json:"template" db:"template"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
