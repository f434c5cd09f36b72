package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/pledgehub/backend/internal/domain/plan"
	"github.com/pledgehub/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormPlanRepository implements plan.Repository using GORM
type GormPlanRepository struct {
	db *gorm.DB
}

// NewGormPlanRepository creates a new GormPlanRepository
func NewGormPlanRepository(db *gorm.DB) *GormPlanRepository {
	return &GormPlanRepository{db: db}
}

// FindByID finds a payment plan by its ID
func (r *GormPlanRepository) FindByID(ctx context.Context, id uuid.UUID) (*plan.PaymentPlan, error) {
	var p plan.PaymentPlan
	if err := r.db.WithContext(ctx).
		Preload("Installments", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence ASC")
		}).
		First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// FindByPledge finds all payment plans for a pledge
func (r *GormPlanRepository) FindByPledge(ctx context.Context, pledgeID uuid.UUID) ([]*plan.PaymentPlan, error) {
	var plans []*plan.PaymentPlan
	if err := r.db.WithContext(ctx).
		Preload("Installments", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence ASC")
		}).
		Where("pledge_id = ?", pledgeID).
		Order("created_at DESC").
		Find(&plans).Error; err != nil {
		return nil, err
	}
	return plans, nil
}

// FindAll finds all payment plans matching the filter
func (r *GormPlanRepository) FindAll(ctx context.Context, filter plan.Filter) (*shared.Paginated[*plan.PaymentPlan], error) {
	query := r.applyConditions(r.db.WithContext(ctx).Model(&plan.PaymentPlan{}), filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	orderBy := ValidateSortField(filter.OrderBy, PlanSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)

	var plans []*plan.PaymentPlan
	if err := query.
		Preload("Installments", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence ASC")
		}).
		Order(orderBy + " " + orderDir).
		Offset((filter.Page - 1) * filter.PageSize).
		Limit(filter.PageSize).
		Find(&plans).Error; err != nil {
		return nil, err
	}

	result := shared.NewPaginated(plans, total, filter.Page, filter.PageSize)
	return &result, nil
}

// FindDueBefore returns active plans whose next payment date is strictly
// before the cutoff.
func (r *GormPlanRepository) FindDueBefore(ctx context.Context, cutoff time.Time) ([]*plan.PaymentPlan, error) {
	var plans []*plan.PaymentPlan
	if err := r.db.WithContext(ctx).
		Preload("Installments", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence ASC")
		}).
		Where("status = ? AND next_payment_date IS NOT NULL AND next_payment_date < ?", plan.StatusActive, cutoff).
		Find(&plans).Error; err != nil {
		return nil, err
	}
	return plans, nil
}

// Save creates or updates a payment plan along with its installments.
// Installments are replaced wholesale so regenerated schedules do not leave
// stale lines behind.
func (r *GormPlanRepository) Save(ctx context.Context, p *plan.PaymentPlan) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("plan_id = ?", p.ID).Delete(&plan.Installment{}).Error; err != nil {
			return err
		}
		if err := tx.Omit("Installments").Save(p).Error; err != nil {
			return err
		}
		if len(p.Installments) > 0 {
			if err := tx.Create(&p.Installments).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete deletes a payment plan and its installments
func (r *GormPlanRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("plan_id = ?", id).Delete(&plan.Installment{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&plan.PaymentPlan{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// Count counts payment plans matching the filter
func (r *GormPlanRepository) Count(ctx context.Context, filter plan.Filter) (int64, error) {
	var count int64
	query := r.applyConditions(r.db.WithContext(ctx).Model(&plan.PaymentPlan{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *GormPlanRepository) applyConditions(query *gorm.DB, filter plan.Filter) *gorm.DB {
	if filter.PledgeID != nil {
		query = query.Where("pledge_id = ?", *filter.PledgeID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Frequency != nil {
		query = query.Where("frequency = ?", *filter.Frequency)
	}
	if filter.Distribution != nil {
		query = query.Where("distribution = ?", *filter.Distribution)
	}
	if filter.AutoRenew != nil {
		query = query.Where("auto_renew = ?", *filter.AutoRenew)
	}
	return query
}
