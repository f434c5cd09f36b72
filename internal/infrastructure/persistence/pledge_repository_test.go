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

	"github.com/pledgehub/backend/internal/domain/donor"
	"github.com/pledgehub/backend/internal/domain/shared"
	"github.com/pledgehub/backend/internal/domain/shared/valueobject"
)

func setupPledgeTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&donor.Contact{}, &donor.Pledge{})
	require.NoError(t, err)

	return db
}

func newTestPledge(t *testing.T, contactID uuid.UUID, amount float64, currency valueobject.Currency, rate string) *donor.Pledge {
	t.Helper()
	money, err := valueobject.NewMoneyFromFloat(amount, currency)
	require.NoError(t, err)
	exchangeRate, err := decimal.NewFromString(rate)
	require.NoError(t, err)
	pledge, err := donor.NewPledge(contactID, "Test Donor", money, exchangeRate, time.Now())
	require.NoError(t, err)
	return pledge
}

func TestGormPledgeRepository_SaveAndFind(t *testing.T) {
	db := setupPledgeTestDB(t)
	repo := NewGormPledgeRepository(db)
	ctx := context.Background()

	contactID := uuid.New()
	pledge := newTestPledge(t, contactID, 1000, valueobject.USD, "1")
	require.NoError(t, repo.Save(ctx, pledge))

	t.Run("finds by id", func(t *testing.T) {
		found, err := repo.FindByID(ctx, pledge.ID)
		require.NoError(t, err)
		assert.Equal(t, contactID, found.ContactID)
		assert.True(t, found.Balance.Equal(decimal.NewFromInt(1000)))
		assert.Equal(t, donor.PledgeStatusActive, found.Status)
	})

	t.Run("finds by ids", func(t *testing.T) {
		other := newTestPledge(t, contactID, 500, valueobject.USD, "1")
		require.NoError(t, repo.Save(ctx, other))

		pledges, err := repo.FindByIDs(ctx, []uuid.UUID{pledge.ID, other.ID})
		require.NoError(t, err)
		assert.Len(t, pledges, 2)

		empty, err := repo.FindByIDs(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, empty)
	})

	t.Run("returns ErrNotFound for unknown id", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormPledgeRepository_Filters(t *testing.T) {
	db := setupPledgeTestDB(t)
	repo := NewGormPledgeRepository(db)
	ctx := context.Background()

	contactA := uuid.New()
	contactB := uuid.New()

	open := newTestPledge(t, contactA, 1000, valueobject.USD, "1")
	require.NoError(t, repo.Save(ctx, open))

	fulfilled := newTestPledge(t, contactA, 200, valueobject.USD, "1")
	require.NoError(t, fulfilled.ApplyPayment(decimal.NewFromInt(200), decimal.NewFromInt(200)))
	require.NoError(t, repo.Save(ctx, fulfilled))

	cancelled := newTestPledge(t, contactB, 300, valueobject.USD, "1")
	require.NoError(t, cancelled.Cancel("changed mind"))
	require.NoError(t, repo.Save(ctx, cancelled))

	t.Run("finds by contact", func(t *testing.T) {
		filter := donor.PledgeFilter{Filter: shared.DefaultFilter()}
		pledges, err := repo.FindByContact(ctx, contactA, filter)
		require.NoError(t, err)
		assert.Len(t, pledges, 2)
	})

	t.Run("finds open pledges only", func(t *testing.T) {
		filter := donor.PledgeFilter{Filter: shared.DefaultFilter()}
		pledges, err := repo.FindOpen(ctx, filter)
		require.NoError(t, err)
		require.Len(t, pledges, 1)
		assert.Equal(t, open.ID, pledges[0].ID)
	})

	t.Run("filters by status", func(t *testing.T) {
		status := donor.PledgeStatusCancelled
		filter := donor.PledgeFilter{Filter: shared.DefaultFilter(), Status: &status}
		pledges, err := repo.FindAll(ctx, filter)
		require.NoError(t, err)
		require.Len(t, pledges, 1)
		assert.Equal(t, cancelled.ID, pledges[0].ID)
	})

	t.Run("counts by status", func(t *testing.T) {
		status := donor.PledgeStatusFulfilled
		count, err := repo.Count(ctx, donor.PledgeFilter{Status: &status})
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})
}

func TestGormPledgeRepository_SaveWithLock(t *testing.T) {
	db := setupPledgeTestDB(t)
	repo := NewGormPledgeRepository(db)
	ctx := context.Background()

	pledge := newTestPledge(t, uuid.New(), 1000, valueobject.ILS, "3.65")
	require.NoError(t, repo.Save(ctx, pledge))

	t.Run("saves when version matches", func(t *testing.T) {
		require.NoError(t, pledge.ApplyPayment(decimal.NewFromInt(365), decimal.NewFromInt(100)))
		require.NoError(t, repo.SaveWithLock(ctx, pledge))

		found, err := repo.FindByID(ctx, pledge.ID)
		require.NoError(t, err)
		assert.True(t, found.TotalPaid.Equal(decimal.NewFromInt(365)))
		assert.True(t, found.Balance.Equal(decimal.NewFromInt(635)))
	})

	t.Run("rejects stale version", func(t *testing.T) {
		stale := *pledge
		stale.Version = pledge.Version + 5

		err := repo.SaveWithLock(ctx, &stale)
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "OPTIMISTIC_LOCK_FAILED", domainErr.Code)
	})
}
