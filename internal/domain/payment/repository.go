package payment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pledgehub/backend/internal/domain/shared"
)

// Filter holds query filters for payments
type Filter struct {
	shared.Filter
	PledgeID  *uuid.UUID
	ContactID *uuid.UUID
	Status    *Status
	Method    *Method
	FromDate  *time.Time
	ToDate    *time.Time
	SplitOnly bool
}

// Repository defines the persistence interface for payments
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	FindByReceiptNumber(ctx context.Context, receiptNumber string) (*Payment, error)
	FindByPledge(ctx context.Context, pledgeID uuid.UUID, filter Filter) (*shared.Paginated[*Payment], error)
	FindAll(ctx context.Context, filter Filter) (*shared.Paginated[*Payment], error)
	Save(ctx context.Context, p *Payment) error
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context, filter Filter) (int64, error)
	NextReceiptSequence(ctx context.Context, year int) (int64, error)
}
