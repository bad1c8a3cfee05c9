package people

import (
	"context"
	"database/sql"
	"errors"
)

var ErrNotFound = errors.New("people: not found")

// Directory abstracts person/group membership lookups.
//
// ListGroupMembers must preserve the underlying membership listing order;
// the dispatcher dials in that order.
type Directory interface {
	GetPerson(ctx context.Context, orgID, personID string) (Person, error)
	ListGroupMembers(ctx context.Context, orgID, groupID string) ([]Person, error)
}

// SQLDirectory reads the directory from Postgres.
//
// Assumed tables:
// - people (id, org_id, first_name, last_name, phone, email, created_at, updated_at)
// - group_members (group_id, org_id, person_id, added_at)
type SQLDirectory struct {
	db *sql.DB
}

func NewSQLDirectory(db *sql.DB) *SQLDirectory { return &SQLDirectory{db: db} }

func (d *SQLDirectory) GetPerson(ctx context.Context, orgID, personID string) (Person, error) {
	const q = `
SELECT id, org_id, first_name, last_name, phone, email, created_at, updated_at
FROM people
WHERE org_id = $1 AND id = $2
`
	var p Person
	if err := d.db.QueryRowContext(ctx, q, orgID, personID).Scan(
		&p.ID,
		&p.OrgID,
		&p.FirstName,
		&p.LastName,
		&p.Phone,
		&p.Email,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Person{}, ErrNotFound
		}
		return Person{}, err
	}
	return p, nil
}

func (d *SQLDirectory) ListGroupMembers(ctx context.Context, orgID, groupID string) ([]Person, error) {
	// Membership order is the listing order (added_at, then person id for
	// stability). Duplicate memberships are returned as-is.
	const q = `
SELECT p.id, p.org_id, p.first_name, p.last_name, p.phone, p.email, p.created_at, p.updated_at
FROM group_members gm
JOIN people p ON p.id = gm.person_id AND p.org_id = gm.org_id
WHERE gm.org_id = $1 AND gm.group_id = $2
ORDER BY gm.added_at, p.id
`
	rows, err := d.db.QueryContext(ctx, q, orgID, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Person
	for rows.Next() {
		var p Person
		if err := rows.Scan(
			&p.ID,
			&p.OrgID,
			&p.FirstName,
			&p.LastName,
			&p.Phone,
			&p.Email,
			&p.CreatedAt,
			&p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
