package app

import (
	"time"

	"github.com/google/uuid"

	"subastas-marketplace/internal/domain/shared"
	"subastas-marketplace/internal/ports/inbound"
)

// Clock returns the current time. Services default to time.Now.
type Clock func() time.Time

func clockOrDefault(c Clock) Clock {
	if c == nil {
		return time.Now
	}
	return c
}

// authorizeCompany lets admins act on anything and members only on their company
func authorizeCompany(actor inbound.Principal, companyID uuid.UUID) error {
	if actor.IsAdmin() || actor.InCompany(companyID) {
		return nil
	}
	return shared.ErrForbidden
}

// inTenant hides resources of other tenants behind notFound
func inTenant(resourceTenant, tenantID uuid.UUID, notFound error) error {
	if resourceTenant != tenantID {
		return notFound
	}
	return nil
}
