package contacts

import "time"

// Contact is a CRM lead or customer record.
//
// Multi-tenant invariant: WorkspaceID is required on every row.

type Contact struct {
	ID          string `json:"id" db:"id"`
	WorkspaceID string `json:"workspace_id" db:"workspace_id"`

	// OwnerUserID is the rep the lead is assigned to.
	OwnerUserID string `json:"owner_user_id,omitempty" db:"owner_user_id"`

	FirstName string `json:"first_name" db:"first_name"`
	LastName  string `json:"last_name" db:"last_name"`
	Company   string `json:"company,omitempty" db:"company"`

	// Phone is stored normalized (digits, optional leading +).
	Phone string `json:"phone" db:"phone"`
	Email string `json:"email,omitempty" db:"email"`

	LeadStatus LeadStatus `json:"lead_status" db:"lead_status"`
	Source     string     `json:"source,omitempty" db:"source"`

	Notes string `json:"notes,omitempty" db:"notes"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

func (c Contact) DisplayName() string {
	switch {
	case c.FirstName != "" && c.LastName != "":
		return c.FirstName + " " + c.LastName
	case c.FirstName != "":
		return c.FirstName
	case c.LastName != "":
		return c.LastName
	case c.Company != "":
		return c.Company
	}
	return c.Phone
}

type LeadStatus string

const (
	LeadStatusNew         LeadStatus = "new"
	LeadStatusContacted   LeadStatus = "contacted"
	LeadStatusQualified   LeadStatus = "qualified"
	LeadStatusUnqualified LeadStatus = "unqualified"
	LeadStatusCustomer    LeadStatus = "customer"
)

func (s LeadStatus) Valid() bool {
	switch s {
	case LeadStatusNew, LeadStatusContacted, LeadStatusQualified, LeadStatusUnqualified, LeadStatusCustomer:
		return true
	}
	return false
}

// Query narrows a contact listing. Zero values mean "no constraint".
type Query struct {
	// Search matches name, company, phone and email, case-insensitive.
	Search      string
	OwnerUserID string
	LeadStatus  LeadStatus
	Limit       int
	Offset      int
}
