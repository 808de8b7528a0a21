package domain

import "time"

// BusinessTenant is a business entity whose associated principals may edit
// resources it owns. Its ID equals the owning business operator's UID by
// construction; AssociatedUserIDs always contains at least the owner.
type BusinessTenant struct {
	ID                string
	Name              string
	OwnerUID          string
	AssociatedUserIDs []string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Contains reports whether uid is a member of the tenant.
func (t *BusinessTenant) Contains(uid string) bool {
	for _, id := range t.AssociatedUserIDs {
		if id == uid {
			return true
		}
	}
	return false
}
