package payment

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pledgehub/backend/internal/domain/currency"
	"github.com/pledgehub/backend/internal/domain/donor"
	"github.com/pledgehub/backend/internal/domain/payment"
	"github.com/pledgehub/backend/internal/domain/shared"
	"github.com/pledgehub/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// =============================================================================
// Mocks
// =============================================================================

type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*payment.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Payment), args.Error(1)
}

func (m *MockPaymentRepository) FindByReceiptNumber(ctx context.Context, receiptNumber string) (*payment.Payment, error) {
	args := m.Called(ctx, receiptNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Payment), args.Error(1)
}

func (m *MockPaymentRepository) FindByPledge(ctx context.Context, pledgeID uuid.UUID, filter payment.Filter) (*shared.Paginated[*payment.Payment], error) {
	args := m.Called(ctx, pledgeID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Paginated[*payment.Payment]), args.Error(1)
}

func (m *MockPaymentRepository) FindAll(ctx context.Context, filter payment.Filter) (*shared.Paginated[*payment.Payment], error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Paginated[*payment.Payment]), args.Error(1)
}

func (m *MockPaymentRepository) Save(ctx context.Context, p *payment.Payment) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockPaymentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockPaymentRepository) Count(ctx context.Context, filter payment.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPaymentRepository) NextReceiptSequence(ctx context.Context, year int) (int64, error) {
	args := m.Called(ctx, year)
	return args.Get(0).(int64), args.Error(1)
}

type MockPledgeRepository struct {
	mock.Mock
}

func (m *MockPledgeRepository) FindByID(ctx context.Context, id uuid.UUID) (*donor.Pledge, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*donor.Pledge), args.Error(1)
}

func (m *MockPledgeRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]donor.Pledge, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]donor.Pledge), args.Error(1)
}

func (m *MockPledgeRepository) FindByContact(ctx context.Context, contactID uuid.UUID, filter donor.PledgeFilter) ([]donor.Pledge, error) {
	args := m.Called(ctx, contactID, filter)
	return args.Get(0).([]donor.Pledge), args.Error(1)
}

func (m *MockPledgeRepository) FindAll(ctx context.Context, filter donor.PledgeFilter) ([]donor.Pledge, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]donor.Pledge), args.Error(1)
}

func (m *MockPledgeRepository) FindOpen(ctx context.Context, filter donor.PledgeFilter) ([]donor.Pledge, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]donor.Pledge), args.Error(1)
}

func (m *MockPledgeRepository) Save(ctx context.Context, pledge *donor.Pledge) error {
	args := m.Called(ctx, pledge)
	return args.Error(0)
}

func (m *MockPledgeRepository) SaveWithLock(ctx context.Context, pledge *donor.Pledge) error {
	args := m.Called(ctx, pledge)
	return args.Error(0)
}

func (m *MockPledgeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockPledgeRepository) Count(ctx context.Context, filter donor.PledgeFilter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

type MockRateProvider struct {
	mock.Mock
}

func (m *MockRateProvider) Current(ctx context.Context) (*currency.RateTable, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*currency.RateTable), args.Error(1)
}

// =============================================================================
// Helpers
// =============================================================================

func newTestService(t *testing.T) (*Service, *MockPaymentRepository, *MockPledgeRepository, *MockRateProvider) {
	t.Helper()
	paymentRepo := new(MockPaymentRepository)
	pledgeRepo := new(MockPledgeRepository)
	rates := new(MockRateProvider)
	svc := NewService(paymentRepo, pledgeRepo, rates, nil, zap.NewNop())
	return svc, paymentRepo, pledgeRepo, rates
}

func newTestPledge(t *testing.T) *donor.Pledge {
	t.Helper()
	amount, err := valueobject.NewMoneyFromFloat(1000, valueobject.USD)
	require.NoError(t, err)
	p, err := donor.NewPledge(uuid.New(), "Dana Levi", amount, decimal.NewFromInt(1), time.Now())
	require.NoError(t, err)
	return p
}

var paymentDate = time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

// =============================================================================
// Tests
// =============================================================================

func TestCreateDirectPayment(t *testing.T) {
	t.Run("completes and applies to the pledge", func(t *testing.T) {
		svc, paymentRepo, pledgeRepo, _ := newTestService(t)
		pledge := newTestPledge(t)

		pledgeRepo.On("FindByID", mock.Anything, pledge.ID).Return(pledge, nil)
		pledgeRepo.On("SaveWithLock", mock.Anything, pledge).Return(nil)
		paymentRepo.On("NextReceiptSequence", mock.Anything, 2024).Return(int64(1), nil)
		paymentRepo.On("Save", mock.Anything, mock.AnythingOfType("*payment.Payment")).Return(nil)

		resp, err := svc.CreateDirectPayment(context.Background(), CreateDirectPaymentRequest{
			PledgeID:    pledge.ID,
			Amount:      "250.00",
			Currency:    "USD",
			PaymentDate: paymentDate,
			Method:      "bank_transfer",
		})
		require.NoError(t, err)

		assert.Equal(t, "PAY-2024-000001", resp.ReceiptNumber)
		assert.Equal(t, "completed", resp.Status)
		assert.Equal(t, "250.00", resp.Amount)
		assert.True(t, pledge.TotalPaid.Equal(decimal.NewFromInt(250)))
		assert.True(t, pledge.Balance.Equal(decimal.NewFromInt(750)))
		paymentRepo.AssertExpectations(t)
		pledgeRepo.AssertExpectations(t)
	})

	t.Run("pending payment leaves the pledge untouched", func(t *testing.T) {
		svc, paymentRepo, pledgeRepo, _ := newTestService(t)
		pledge := newTestPledge(t)

		pledgeRepo.On("FindByID", mock.Anything, pledge.ID).Return(pledge, nil)
		paymentRepo.On("NextReceiptSequence", mock.Anything, 2024).Return(int64(2), nil)
		paymentRepo.On("Save", mock.Anything, mock.AnythingOfType("*payment.Payment")).Return(nil)

		resp, err := svc.CreateDirectPayment(context.Background(), CreateDirectPaymentRequest{
			PledgeID:    pledge.ID,
			Amount:      "100.00",
			Currency:    "USD",
			PaymentDate: paymentDate,
			Method:      "check",
			Pending:     true,
		})
		require.NoError(t, err)

		assert.Equal(t, "pending", resp.Status)
		assert.True(t, pledge.TotalPaid.IsZero())
		pledgeRepo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})

	t.Run("missing pledge is rejected", func(t *testing.T) {
		svc, _, pledgeRepo, _ := newTestService(t)
		missing := uuid.New()
		pledgeRepo.On("FindByID", mock.Anything, missing).Return(nil, nil)

		_, err := svc.CreateDirectPayment(context.Background(), CreateDirectPaymentRequest{
			PledgeID:    missing,
			Amount:      "100.00",
			Currency:    "USD",
			PaymentDate: paymentDate,
			Method:      "cash",
		})
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "REFERENCE_NOT_FOUND", domainErr.Code)
	})

	t.Run("resolves rate from the live table", func(t *testing.T) {
		svc, paymentRepo, pledgeRepo, rates := newTestService(t)
		pledge := newTestPledge(t)

		table := currency.NewRateTable(map[valueobject.Currency]decimal.Decimal{
			valueobject.ILS: decimal.NewFromFloat(3.65),
		}, time.Now(), "test")
		rates.On("Current", mock.Anything).Return(table, nil)
		pledgeRepo.On("FindByID", mock.Anything, pledge.ID).Return(pledge, nil)
		pledgeRepo.On("SaveWithLock", mock.Anything, pledge).Return(nil)
		paymentRepo.On("NextReceiptSequence", mock.Anything, 2024).Return(int64(3), nil)
		paymentRepo.On("Save", mock.Anything, mock.AnythingOfType("*payment.Payment")).Return(nil)

		resp, err := svc.CreateDirectPayment(context.Background(), CreateDirectPaymentRequest{
			PledgeID:    pledge.ID,
			Amount:      "365.00",
			Currency:    "ILS",
			PaymentDate: paymentDate,
			Method:      "cash",
		})
		require.NoError(t, err)
		assert.Equal(t, "100.00", resp.AmountUSD)
		assert.False(t, resp.RateDegraded)
	})

	t.Run("flags degraded rate", func(t *testing.T) {
		svc, paymentRepo, pledgeRepo, rates := newTestService(t)
		pledge := newTestPledge(t)

		table := currency.NewRateTable(map[valueobject.Currency]decimal.Decimal{}, time.Now(), "test")
		rates.On("Current", mock.Anything).Return(table, nil)
		pledgeRepo.On("FindByID", mock.Anything, pledge.ID).Return(pledge, nil)
		pledgeRepo.On("SaveWithLock", mock.Anything, pledge).Return(nil)
		paymentRepo.On("NextReceiptSequence", mock.Anything, 2024).Return(int64(4), nil)
		paymentRepo.On("Save", mock.Anything, mock.AnythingOfType("*payment.Payment")).Return(nil)

		resp, err := svc.CreateDirectPayment(context.Background(), CreateDirectPaymentRequest{
			PledgeID:    pledge.ID,
			Amount:      "100.00",
			Currency:    "EUR",
			PaymentDate: paymentDate,
			Method:      "cash",
		})
		require.NoError(t, err)
		assert.True(t, resp.RateDegraded)
	})
}

func TestCreateSplitPayment(t *testing.T) {
	t.Run("applies every allocation to its pledge", func(t *testing.T) {
		svc, paymentRepo, pledgeRepo, _ := newTestService(t)
		first := newTestPledge(t)
		second := newTestPledge(t)

		pledgeRepo.On("FindByIDs", mock.Anything, mock.Anything).Return([]donor.Pledge{*first, *second}, nil)
		pledgeRepo.On("FindByID", mock.Anything, first.ID).Return(first, nil)
		pledgeRepo.On("FindByID", mock.Anything, second.ID).Return(second, nil)
		pledgeRepo.On("SaveWithLock", mock.Anything, mock.AnythingOfType("*donor.Pledge")).Return(nil)
		paymentRepo.On("NextReceiptSequence", mock.Anything, 2024).Return(int64(5), nil)
		paymentRepo.On("Save", mock.Anything, mock.AnythingOfType("*payment.Payment")).Return(nil)

		resp, err := svc.CreateSplitPayment(context.Background(), CreateSplitPaymentRequest{
			Amount:      "1000.00",
			Currency:    "USD",
			PaymentDate: paymentDate,
			Method:      "check",
			Allocations: []AllocationRequest{
				{PledgeID: first.ID, Amount: "600"},
				{PledgeID: second.ID, Amount: "400"},
			},
		})
		require.NoError(t, err)

		assert.True(t, resp.Split)
		assert.Nil(t, resp.PledgeID)
		require.Len(t, resp.Allocations, 2)
		assert.True(t, first.TotalPaid.Equal(decimal.NewFromInt(600)))
		assert.True(t, second.TotalPaid.Equal(decimal.NewFromInt(400)))
	})

	t.Run("mismatched allocations are rejected with detail", func(t *testing.T) {
		svc, _, pledgeRepo, _ := newTestService(t)
		first := newTestPledge(t)
		second := newTestPledge(t)
		pledgeRepo.On("FindByIDs", mock.Anything, mock.Anything).Return([]donor.Pledge{*first, *second}, nil)

		_, err := svc.CreateSplitPayment(context.Background(), CreateSplitPaymentRequest{
			Amount:      "1000.00",
			Currency:    "USD",
			PaymentDate: paymentDate,
			Method:      "check",
			Allocations: []AllocationRequest{
				{PledgeID: first.ID, Amount: "600"},
				{PledgeID: second.ID, Amount: "399"},
			},
		})
		require.Error(t, err)
		var mismatch *payment.AllocationMismatchError
		require.ErrorAs(t, err, &mismatch)
		assert.True(t, mismatch.TotalAllocated.Equal(decimal.NewFromInt(999)))
		assert.True(t, mismatch.Difference.Equal(decimal.NewFromInt(1)))
	})

	t.Run("unknown pledge reference is rejected", func(t *testing.T) {
		svc, _, pledgeRepo, _ := newTestService(t)
		first := newTestPledge(t)
		unknown := uuid.New()
		pledgeRepo.On("FindByIDs", mock.Anything, mock.Anything).Return([]donor.Pledge{*first}, nil)

		_, err := svc.CreateSplitPayment(context.Background(), CreateSplitPaymentRequest{
			Amount:      "1000.00",
			Currency:    "USD",
			PaymentDate: paymentDate,
			Method:      "check",
			Allocations: []AllocationRequest{
				{PledgeID: first.ID, Amount: "600"},
				{PledgeID: unknown, Amount: "400"},
			},
		})
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "REFERENCE_NOT_FOUND", domainErr.Code)
	})
}

func TestUpdatePaymentShapeGuards(t *testing.T) {
	t.Run("direct update path rejects split payments", func(t *testing.T) {
		svc, paymentRepo, _, _ := newTestService(t)

		amount, err := valueobject.NewMoneyFromFloat(100, valueobject.USD)
		require.NoError(t, err)
		split, err := payment.NewSplitPayment("PAY-2024-000100", amount, decimal.NewFromInt(1), paymentDate, payment.MethodCash,
			[]payment.AllocationEntry{
				{PledgeID: uuid.New(), Amount: decimal.NewFromInt(60)},
				{PledgeID: uuid.New(), Amount: decimal.NewFromInt(40)},
			})
		require.NoError(t, err)
		paymentRepo.On("FindByID", mock.Anything, split.ID).Return(split, nil)

		_, err = svc.UpdateDirectPayment(context.Background(), split.ID, UpdateDirectPaymentRequest{
			Amount:      "120.00",
			Currency:    "USD",
			PaymentDate: paymentDate,
			Method:      "cash",
		})
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "WRONG_PAYMENT_SHAPE", domainErr.Code)
	})

	t.Run("split update path rejects direct payments", func(t *testing.T) {
		svc, paymentRepo, pledgeRepo, _ := newTestService(t)
		pledge := newTestPledge(t)

		amount, err := valueobject.NewMoneyFromFloat(100, valueobject.USD)
		require.NoError(t, err)
		direct, err := payment.NewDirectPayment("PAY-2024-000101", pledge.ID, amount, decimal.NewFromInt(1), paymentDate, payment.MethodCash)
		require.NoError(t, err)
		paymentRepo.On("FindByID", mock.Anything, direct.ID).Return(direct, nil)
		pledgeRepo.On("FindByIDs", mock.Anything, mock.Anything).Return([]donor.Pledge{*pledge}, nil)

		_, err = svc.UpdateSplitPayment(context.Background(), direct.ID, UpdateSplitPaymentRequest{
			Amount:   "100.00",
			Currency: "USD",
			Allocations: []AllocationRequest{
				{PledgeID: pledge.ID, Amount: "100"},
			},
		})
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "NOT_A_SPLIT_PAYMENT", domainErr.Code)
	})
}

func TestRefundPayment(t *testing.T) {
	svc, paymentRepo, pledgeRepo, _ := newTestService(t)
	pledge := newTestPledge(t)

	amount, err := valueobject.NewMoneyFromFloat(250, valueobject.USD)
	require.NoError(t, err)
	p, err := payment.NewDirectPayment("PAY-2024-000102", pledge.ID, amount, decimal.NewFromInt(1), paymentDate, payment.MethodCash)
	require.NoError(t, err)
	require.NoError(t, p.Complete())
	require.NoError(t, pledge.ApplyPayment(decimal.NewFromInt(250), decimal.NewFromInt(250)))

	paymentRepo.On("FindByID", mock.Anything, p.ID).Return(p, nil)
	paymentRepo.On("Save", mock.Anything, p).Return(nil)
	pledgeRepo.On("FindByID", mock.Anything, pledge.ID).Return(pledge, nil)
	pledgeRepo.On("SaveWithLock", mock.Anything, pledge).Return(nil)

	resp, err := svc.RefundPayment(context.Background(), p.ID)
	require.NoError(t, err)

	assert.Equal(t, "refunded", resp.Status)
	assert.True(t, pledge.TotalPaid.IsZero())
	assert.True(t, pledge.Balance.Equal(decimal.NewFromInt(1000)))
}
