package domain

import "time"

// Party is a participant in the reseller hierarchy.
type Party struct {
	ID             string
	ParentID       *string
	RoleID         string
	HierarchyLevel int
	// HierarchyPath holds the ordered ancestor ids, root-most first,
	// excluding the party itself.
	HierarchyPath []string
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsRoot reports whether the party sits at the top of the hierarchy.
func (p *Party) IsRoot() bool {
	return p.ParentID == nil
}
