package persistence

import (
	"gorm.io/gorm"

	"github.com/pledgehub/backend/internal/domain/donor"
	"github.com/pledgehub/backend/internal/domain/payment"
	"github.com/pledgehub/backend/internal/domain/plan"
)

// AutoMigrate creates the schema for all aggregates. Intended for tests
// and local sqlite setups; production schemas come from the versioned
// SQL migrations.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&donor.Contact{},
		&donor.Pledge{},
		&payment.Payment{},
		&payment.Allocation{},
		&plan.PaymentPlan{},
		&plan.Installment{},
		&receiptSequence{},
	)
}
