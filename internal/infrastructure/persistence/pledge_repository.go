package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/pledgehub/backend/internal/domain/donor"
	"github.com/pledgehub/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormPledgeRepository implements PledgeRepository using GORM
type GormPledgeRepository struct {
	db *gorm.DB
}

// NewGormPledgeRepository creates a new GormPledgeRepository
func NewGormPledgeRepository(db *gorm.DB) *GormPledgeRepository {
	return &GormPledgeRepository{db: db}
}

// FindByID finds a pledge by its ID
func (r *GormPledgeRepository) FindByID(ctx context.Context, id uuid.UUID) (*donor.Pledge, error) {
	var pledge donor.Pledge
	if err := r.db.WithContext(ctx).First(&pledge, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &pledge, nil
}

// FindByIDs finds multiple pledges by their IDs
func (r *GormPledgeRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]donor.Pledge, error) {
	if len(ids) == 0 {
		return []donor.Pledge{}, nil
	}

	var pledges []donor.Pledge
	if err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&pledges).Error; err != nil {
		return nil, err
	}
	return pledges, nil
}

// FindByContact finds all pledges for a contact
func (r *GormPledgeRepository) FindByContact(ctx context.Context, contactID uuid.UUID, filter donor.PledgeFilter) ([]donor.Pledge, error) {
	var pledges []donor.Pledge
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&donor.Pledge{}).Where("contact_id = ?", contactID),
		filter,
	)

	if err := query.Find(&pledges).Error; err != nil {
		return nil, err
	}
	return pledges, nil
}

// FindAll finds all pledges matching the filter
func (r *GormPledgeRepository) FindAll(ctx context.Context, filter donor.PledgeFilter) ([]donor.Pledge, error) {
	var pledges []donor.Pledge
	query := r.applyFilter(r.db.WithContext(ctx).Model(&donor.Pledge{}), filter)

	if err := query.Find(&pledges).Error; err != nil {
		return nil, err
	}
	return pledges, nil
}

// FindOpen finds pledges with a positive remaining balance
func (r *GormPledgeRepository) FindOpen(ctx context.Context, filter donor.PledgeFilter) ([]donor.Pledge, error) {
	filter.OpenOnly = true
	return r.FindAll(ctx, filter)
}

// Save creates or updates a pledge
func (r *GormPledgeRepository) Save(ctx context.Context, pledge *donor.Pledge) error {
	return r.db.WithContext(ctx).Save(pledge).Error
}

// SaveWithLock saves with optimistic locking (checks version)
func (r *GormPledgeRepository) SaveWithLock(ctx context.Context, pledge *donor.Pledge) error {
	result := r.db.WithContext(ctx).
		Model(pledge).
		Where("id = ? AND version = ?", pledge.ID, pledge.Version-1).
		Updates(map[string]interface{}{
			"total_paid":     pledge.TotalPaid,
			"total_paid_usd": pledge.TotalPaidUSD,
			"balance":        pledge.Balance,
			"balance_usd":    pledge.BalanceUSD,
			"status":         pledge.Status,
			"campaign":       pledge.Campaign,
			"notes":          pledge.Notes,
			"cancelled_at":   pledge.CancelledAt,
			"cancel_reason":  pledge.CancelReason,
			"version":        pledge.Version,
			"updated_at":     pledge.UpdatedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError("OPTIMISTIC_LOCK_FAILED", "Pledge was modified by another transaction")
	}
	return nil
}

// Delete deletes a pledge
func (r *GormPledgeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&donor.Pledge{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Count counts pledges matching the filter
func (r *GormPledgeRepository) Count(ctx context.Context, filter donor.PledgeFilter) (int64, error) {
	var count int64
	query := r.applyConditions(r.db.WithContext(ctx).Model(&donor.Pledge{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *GormPledgeRepository) applyFilter(query *gorm.DB, filter donor.PledgeFilter) *gorm.DB {
	query = r.applyConditions(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	orderBy := ValidateSortField(filter.OrderBy, PledgeSortFields, "pledge_date")
	orderDir := ValidateSortOrder(filter.OrderDir)
	return query.Order(orderBy + " " + orderDir)
}

func (r *GormPledgeRepository) applyConditions(query *gorm.DB, filter donor.PledgeFilter) *gorm.DB {
	if filter.ContactID != nil {
		query = query.Where("contact_id = ?", *filter.ContactID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Campaign != nil {
		query = query.Where("campaign = ?", *filter.Campaign)
	}
	if filter.FromDate != nil {
		query = query.Where("pledge_date >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("pledge_date <= ?", *filter.ToDate)
	}
	if filter.OpenOnly {
		query = query.Where("balance > 0 AND status = ?", donor.PledgeStatusActive)
	}
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(contact_name) LIKE ? OR LOWER(campaign) LIKE ?", pattern, pattern)
	}
	return query
}
