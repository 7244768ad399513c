package domain

import "time"

// Project groups tickets and carries the ordered support-staff roster.
// Read-only to the ticket core.
type Project struct {
	ID   string
	Name string
	// CustomerCompanyID names the customer organization the project
	// belongs to.
	CustomerCompanyID string
	// SupportStaffIDs is ordered; index 0 is the PM who becomes the
	// support owner of every ticket created under the project.
	SupportStaffIDs []string
	CreatedAt       time.Time
}

// PMID returns the project manager's user id, or "" when the roster is empty.
func (p *Project) PMID() string {
	if len(p.SupportStaffIDs) == 0 {
		return ""
	}
	return p.SupportStaffIDs[0]
}
