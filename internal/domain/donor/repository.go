package donor

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pledgehub/backend/internal/domain/shared"
)

// PledgeFilter defines filtering options for pledge queries
type PledgeFilter struct {
	shared.Filter
	ContactID *uuid.UUID    // Filter by contact
	Status    *PledgeStatus // Filter by status
	Campaign  *string       // Filter by campaign
	FromDate  *time.Time    // Filter by pledge date range start
	ToDate    *time.Time    // Filter by pledge date range end
	OpenOnly  bool          // Only pledges with a positive balance
}

// ContactRepository defines the interface for contact persistence
type ContactRepository interface {
	// FindByID finds a contact by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Contact, error)

	// FindByEmail finds a contact by email address
	FindByEmail(ctx context.Context, email string) (*Contact, error)

	// FindAll finds all contacts with filtering
	FindAll(ctx context.Context, filter shared.Filter) ([]Contact, error)

	// Save creates or updates a contact
	Save(ctx context.Context, contact *Contact) error

	// Delete deletes a contact
	Delete(ctx context.Context, id uuid.UUID) error

	// Count counts contacts matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)
}

// PledgeRepository defines the interface for pledge persistence
type PledgeRepository interface {
	// FindByID finds a pledge by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Pledge, error)

	// FindByIDs finds multiple pledges by their IDs
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Pledge, error)

	// FindByContact finds all pledges for a contact
	FindByContact(ctx context.Context, contactID uuid.UUID, filter PledgeFilter) ([]Pledge, error)

	// FindAll finds all pledges with filtering
	FindAll(ctx context.Context, filter PledgeFilter) ([]Pledge, error)

	// FindOpen finds pledges with a positive remaining balance
	FindOpen(ctx context.Context, filter PledgeFilter) ([]Pledge, error)

	// Save creates or updates a pledge
	Save(ctx context.Context, pledge *Pledge) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, pledge *Pledge) error

	// Delete deletes a pledge
	Delete(ctx context.Context, id uuid.UUID) error

	// Count counts pledges matching the filter
	Count(ctx context.Context, filter PledgeFilter) (int64, error)
}
