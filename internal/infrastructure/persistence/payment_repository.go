package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/pledgehub/backend/internal/domain/payment"
	"github.com/pledgehub/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// receiptSequence backs the per-year receipt number counter.
type receiptSequence struct {
	Year  int   `gorm:"primaryKey"`
	Value int64 `gorm:"not null"`
}

// TableName returns the table name for receipt sequences
func (receiptSequence) TableName() string {
	return "receipt_sequences"
}

// GormPaymentRepository implements payment.Repository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// FindByID finds a payment by its ID
func (r *GormPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*payment.Payment, error) {
	var p payment.Payment
	if err := r.db.WithContext(ctx).
		Preload("Allocations").
		First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// FindByReceiptNumber finds a payment by its receipt number
func (r *GormPaymentRepository) FindByReceiptNumber(ctx context.Context, receiptNumber string) (*payment.Payment, error) {
	var p payment.Payment
	if err := r.db.WithContext(ctx).
		Preload("Allocations").
		Where("receipt_number = ?", receiptNumber).
		First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// FindByPledge finds payments targeting a pledge, either directly or through
// a split allocation.
func (r *GormPaymentRepository) FindByPledge(ctx context.Context, pledgeID uuid.UUID, filter payment.Filter) (*shared.Paginated[*payment.Payment], error) {
	filter.PledgeID = &pledgeID
	return r.FindAll(ctx, filter)
}

// FindAll finds all payments matching the filter
func (r *GormPaymentRepository) FindAll(ctx context.Context, filter payment.Filter) (*shared.Paginated[*payment.Payment], error) {
	query := r.applyConditions(r.db.WithContext(ctx).Model(&payment.Payment{}), filter)

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

	orderBy := ValidateSortField(filter.OrderBy, PaymentSortFields, "payment_date")
	orderDir := ValidateSortOrder(filter.OrderDir)

	var payments []*payment.Payment
	if err := query.
		Preload("Allocations").
		Order(orderBy + " " + orderDir).
		Offset((filter.Page - 1) * filter.PageSize).
		Limit(filter.PageSize).
		Find(&payments).Error; err != nil {
		return nil, err
	}

	result := shared.NewPaginated(payments, total, filter.Page, filter.PageSize)
	return &result, nil
}

// Save creates or updates a payment along with its allocations. Allocations
// are replaced wholesale so removed lines do not linger.
func (r *GormPaymentRepository) Save(ctx context.Context, p *payment.Payment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("payment_id = ?", p.ID).Delete(&payment.Allocation{}).Error; err != nil {
			return err
		}
		if err := tx.Omit("Allocations").Save(p).Error; err != nil {
			return err
		}
		if len(p.Allocations) > 0 {
			if err := tx.Create(&p.Allocations).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete deletes a payment and its allocations
func (r *GormPaymentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("payment_id = ?", id).Delete(&payment.Allocation{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&payment.Payment{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// Count counts payments matching the filter
func (r *GormPaymentRepository) Count(ctx context.Context, filter payment.Filter) (int64, error) {
	var count int64
	query := r.applyConditions(r.db.WithContext(ctx).Model(&payment.Payment{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// NextReceiptSequence atomically increments and returns the receipt counter
// for the given year.
func (r *GormPaymentRepository) NextReceiptSequence(ctx context.Context, year int) (int64, error) {
	var seq int64
	err := r.db.WithContext(ctx).Raw(
		`INSERT INTO receipt_sequences (year, value) VALUES (?, 1)
		 ON CONFLICT (year) DO UPDATE SET value = receipt_sequences.value + 1
		 RETURNING value`,
		year,
	).Scan(&seq).Error
	if err != nil {
		return 0, err
	}
	return seq, nil
}

func (r *GormPaymentRepository) applyConditions(query *gorm.DB, filter payment.Filter) *gorm.DB {
	if filter.PledgeID != nil {
		query = query.Where(
			"pledge_id = ? OR id IN (?)",
			*filter.PledgeID,
			r.db.Model(&payment.Allocation{}).Select("payment_id").Where("pledge_id = ?", *filter.PledgeID),
		)
	}
	if filter.ContactID != nil {
		pledgeIDs := r.db.Table("pledges").Select("id").Where("contact_id = ?", *filter.ContactID)
		query = query.Where(
			"pledge_id IN (?) OR id IN (?)",
			pledgeIDs,
			r.db.Model(&payment.Allocation{}).Select("payment_id").Where("pledge_id IN (?)", pledgeIDs),
		)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Method != nil {
		query = query.Where("method = ?", *filter.Method)
	}
	if filter.FromDate != nil {
		query = query.Where("payment_date >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("payment_date <= ?", *filter.ToDate)
	}
	if filter.SplitOnly {
		query = query.Where("pledge_id IS NULL")
	}
	if filter.Search != "" {
		query = query.Where("receipt_number LIKE ?", "%"+filter.Search+"%")
	}
	return query
}
