package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pledgehub/backend/internal/domain/payment"
	"github.com/pledgehub/backend/internal/domain/shared"
	"github.com/pledgehub/backend/internal/domain/shared/valueobject"
)

func setupPaymentTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&payment.Payment{}, &payment.Allocation{}, &receiptSequence{})
	require.NoError(t, err)

	return db
}

func newTestDirectPayment(t *testing.T, receipt string, pledgeID uuid.UUID, amount float64) *payment.Payment {
	t.Helper()
	money, err := valueobject.NewMoneyFromFloat(amount, valueobject.USD)
	require.NoError(t, err)
	p, err := payment.NewDirectPayment(receipt, pledgeID, money, decimal.NewFromInt(1), time.Now(), payment.MethodCash)
	require.NoError(t, err)
	return p
}

func TestGormPaymentRepository_SaveAndFind(t *testing.T) {
	db := setupPaymentTestDB(t)
	repo := NewGormPaymentRepository(db)
	ctx := context.Background()

	pledgeID := uuid.New()
	p := newTestDirectPayment(t, "PAY-2025-000001", pledgeID, 250)
	require.NoError(t, repo.Save(ctx, p))

	t.Run("finds by id", func(t *testing.T) {
		found, err := repo.FindByID(ctx, p.ID)
		require.NoError(t, err)
		require.NotNil(t, found.PledgeID)
		assert.Equal(t, pledgeID, *found.PledgeID)
		assert.True(t, found.Amount.Equal(decimal.NewFromInt(250)))
		assert.Empty(t, found.Allocations)
	})

	t.Run("finds by receipt number", func(t *testing.T) {
		found, err := repo.FindByReceiptNumber(ctx, "PAY-2025-000001")
		require.NoError(t, err)
		assert.Equal(t, p.ID, found.ID)
	})

	t.Run("returns ErrNotFound for unknown receipt", func(t *testing.T) {
		_, err := repo.FindByReceiptNumber(ctx, "PAY-2025-999999")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormPaymentRepository_SplitPayments(t *testing.T) {
	db := setupPaymentTestDB(t)
	repo := NewGormPaymentRepository(db)
	ctx := context.Background()

	pledgeA := uuid.New()
	pledgeB := uuid.New()

	money, err := valueobject.NewMoneyFromFloat(1000, valueobject.USD)
	require.NoError(t, err)
	split, err := payment.NewSplitPayment(
		"PAY-2025-000002", money, decimal.NewFromInt(1), time.Now(), payment.MethodBankTransfer,
		[]payment.AllocationEntry{
			{PledgeID: pledgeA, Amount: decimal.NewFromInt(600)},
			{PledgeID: pledgeB, Amount: decimal.NewFromInt(400)},
		},
	)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, split))

	t.Run("persists allocations", func(t *testing.T) {
		found, err := repo.FindByID(ctx, split.ID)
		require.NoError(t, err)
		require.Len(t, found.Allocations, 2)
		assert.True(t, found.IsSplit())
	})

	t.Run("finds by pledge through allocation", func(t *testing.T) {
		result, err := repo.FindByPledge(ctx, pledgeB, payment.Filter{})
		require.NoError(t, err)
		require.Len(t, result.Items, 1)
		assert.Equal(t, split.ID, result.Items[0].ID)
	})

	t.Run("replacing allocations drops stale lines", func(t *testing.T) {
		err := split.ReplaceAllocations(money, decimal.NewFromInt(1), []payment.AllocationEntry{
			{PledgeID: pledgeA, Amount: decimal.NewFromInt(1000)},
		})
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, split))

		found, err := repo.FindByID(ctx, split.ID)
		require.NoError(t, err)
		require.Len(t, found.Allocations, 1)
		assert.Equal(t, pledgeA, found.Allocations[0].PledgeID)

		var count int64
		require.NoError(t, db.Model(&payment.Allocation{}).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("split-only filter excludes direct payments", func(t *testing.T) {
		direct := newTestDirectPayment(t, "PAY-2025-000003", uuid.New(), 50)
		require.NoError(t, repo.Save(ctx, direct))

		result, err := repo.FindAll(ctx, payment.Filter{SplitOnly: true})
		require.NoError(t, err)
		require.Len(t, result.Items, 1)
		assert.Equal(t, split.ID, result.Items[0].ID)
	})
}

func TestGormPaymentRepository_FindAll(t *testing.T) {
	db := setupPaymentTestDB(t)
	repo := NewGormPaymentRepository(db)
	ctx := context.Background()

	pledgeID := uuid.New()
	for i, amount := range []float64{100, 200, 300} {
		p := newTestDirectPayment(t, receiptFor(i), pledgeID, amount)
		if i == 0 {
			require.NoError(t, p.Complete())
		}
		require.NoError(t, repo.Save(ctx, p))
	}

	t.Run("paginates with totals", func(t *testing.T) {
		result, err := repo.FindAll(ctx, payment.Filter{Filter: shared.Filter{Page: 1, PageSize: 2}})
		require.NoError(t, err)
		assert.Equal(t, int64(3), result.Total)
		assert.Len(t, result.Items, 2)
		assert.Equal(t, 2, result.TotalPages)
	})

	t.Run("filters by status", func(t *testing.T) {
		status := payment.StatusCompleted
		result, err := repo.FindAll(ctx, payment.Filter{Status: &status})
		require.NoError(t, err)
		assert.Len(t, result.Items, 1)
	})

	t.Run("counts", func(t *testing.T) {
		count, err := repo.Count(ctx, payment.Filter{})
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)
	})
}

func TestGormPaymentRepository_NextReceiptSequence(t *testing.T) {
	db := setupPaymentTestDB(t)
	repo := NewGormPaymentRepository(db)
	ctx := context.Background()

	first, err := repo.NextReceiptSequence(ctx, 2025)
	require.NoError(t, err)
	assert.Equal(t, int64(1), first)

	second, err := repo.NextReceiptSequence(ctx, 2025)
	require.NoError(t, err)
	assert.Equal(t, int64(2), second)

	// Counter is per year
	otherYear, err := repo.NextReceiptSequence(ctx, 2026)
	require.NoError(t, err)
	assert.Equal(t, int64(1), otherYear)
}

func receiptFor(i int) string {
	return []string{"PAY-2025-000010", "PAY-2025-000011", "PAY-2025-000012"}[i]
}
