package plan

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pledgehub/backend/internal/domain/shared"
	"github.com/pledgehub/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func usd(t *testing.T, amount float64) valueobject.Money {
	t.Helper()
	m, err := valueobject.NewMoneyFromFloat(amount, valueobject.USD)
	require.NoError(t, err)
	return m
}

func newMonthlyPlan(t *testing.T, total float64, count int) *PaymentPlan {
	t.Helper()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p, err := NewFixedPlan(uuid.New(), usd(t, total), FrequencyMonthly, count, start, false)
	require.NoError(t, err)
	return p
}

func TestNewFixedPlan(t *testing.T) {
	t.Run("materializes the schedule", func(t *testing.T) {
		p := newMonthlyPlan(t, 3000, 6)
		assert.Equal(t, DistributionFixed, p.Distribution)
		assert.Equal(t, StatusActive, p.Status)
		require.Len(t, p.Installments, 6)
		assert.True(t, p.InstallmentAmount.Equal(decimal.NewFromInt(500)))
		require.NotNil(t, p.NextPaymentDate)
		assert.Equal(t, p.StartDate, *p.NextPaymentDate)
		require.NotNil(t, p.EndDate)
		assert.Equal(t, p.StartDate.AddDate(0, 5, 0), *p.EndDate)
	})

	t.Run("one_time forces a single installment", func(t *testing.T) {
		start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		p, err := NewFixedPlan(uuid.New(), usd(t, 500), FrequencyOneTime, 12, start, false)
		require.NoError(t, err)
		assert.Equal(t, 1, p.NumberOfInstallments)
		require.Len(t, p.Installments, 1)
	})

	t.Run("rejects empty pledge", func(t *testing.T) {
		start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		_, err := NewFixedPlan(uuid.Nil, usd(t, 500), FrequencyMonthly, 5, start, false)
		assert.Error(t, err)
	})

	t.Run("rejects unknown frequency", func(t *testing.T) {
		start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		_, err := NewFixedPlan(uuid.New(), usd(t, 500), Frequency("daily"), 5, start, false)
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_FREQUENCY", domainErr.Code)
	})
}

func TestNewCustomPlan(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("derives total and count from the lines", func(t *testing.T) {
		lines := []CustomInstallmentEntry{
			{Date: start, Amount: decimal.NewFromInt(100)},
			{Date: start.AddDate(0, 1, 0), Amount: decimal.NewFromInt(250)},
			{Date: start.AddDate(0, 2, 0), Amount: decimal.NewFromFloat(49.50)},
		}
		p, err := NewCustomPlan(uuid.New(), valueobject.USD, FrequencyMonthly, lines, false)
		require.NoError(t, err)
		assert.Equal(t, DistributionCustom, p.Distribution)
		assert.Equal(t, 3, p.NumberOfInstallments)
		assert.True(t, p.TotalPlannedAmount.Equal(decimal.NewFromFloat(399.50)))
	})

	t.Run("rejects empty line set", func(t *testing.T) {
		_, err := NewCustomPlan(uuid.New(), valueobject.USD, FrequencyMonthly, nil, false)
		assert.Error(t, err)
	})

	t.Run("rejects non-positive line amount", func(t *testing.T) {
		lines := []CustomInstallmentEntry{{Date: start, Amount: decimal.Zero}}
		_, err := NewCustomPlan(uuid.New(), valueobject.USD, FrequencyMonthly, lines, false)
		assert.Error(t, err)
	})
}

func TestEditInstallmentPromotesToCustom(t *testing.T) {
	p := newMonthlyPlan(t, 3000, 6)
	third, err := p.GetInstallment(3)
	require.NoError(t, err)

	err = p.EditInstallment(3, third.DueDate, decimal.NewFromInt(600), "")
	require.NoError(t, err)

	assert.Equal(t, DistributionCustom, p.Distribution)
	assert.True(t, p.TotalPlannedAmount.Equal(decimal.NewFromInt(3100)))
	assert.Equal(t, 6, p.NumberOfInstallments)

	events := p.GetDomainEvents()
	var promoted bool
	for _, e := range events {
		if _, ok := e.(*PlanPromotedToCustomEvent); ok {
			promoted = true
		}
	}
	assert.True(t, promoted)

	t.Run("editing paid installment is rejected", func(t *testing.T) {
		require.NoError(t, p.PayInstallment(1, decimal.NewFromInt(500), time.Now()))
		err := p.EditInstallment(1, time.Now(), decimal.NewFromInt(700), "")
		assert.Error(t, err)
	})

	t.Run("unknown sequence is rejected", func(t *testing.T) {
		err := p.EditInstallment(99, time.Now(), decimal.NewFromInt(700), "")
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INSTALLMENT_NOT_FOUND", domainErr.Code)
	})
}

func TestRegenerateRestoresFixed(t *testing.T) {
	p := newMonthlyPlan(t, 3000, 6)
	third, err := p.GetInstallment(3)
	require.NoError(t, err)
	require.NoError(t, p.EditInstallment(3, third.DueDate, decimal.NewFromInt(600), ""))
	require.Equal(t, DistributionCustom, p.Distribution)

	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, p.Regenerate(usd(t, 2400), FrequencyQuarterly, 4, start))

	assert.Equal(t, DistributionFixed, p.Distribution)
	assert.Equal(t, FrequencyQuarterly, p.Frequency)
	assert.Equal(t, 4, p.NumberOfInstallments)
	assert.True(t, p.TotalPlannedAmount.Equal(decimal.NewFromInt(2400)))
	require.Len(t, p.Installments, 4)
	assert.True(t, p.InstallmentAmount.Equal(decimal.NewFromInt(600)))
}

func TestReconfigure(t *testing.T) {
	t.Run("regenerates schedule and keeps paid lines by count", func(t *testing.T) {
		p := newMonthlyPlan(t, 1200, 12)
		require.NoError(t, p.PayInstallment(1, decimal.NewFromInt(100), time.Now()))

		start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
		require.NoError(t, p.Reconfigure(usd(t, 1200), FrequencyMonthly, 6, start))

		require.Len(t, p.Installments, 6)
		assert.True(t, p.Installments[0].IsPaid)
		assert.False(t, p.Installments[1].IsPaid)
		require.NotNil(t, p.NextPaymentDate)
		assert.Equal(t, start.AddDate(0, 1, 0), *p.NextPaymentDate)
	})

	t.Run("rejected for custom plans", func(t *testing.T) {
		p := newMonthlyPlan(t, 1200, 12)
		inst, err := p.GetInstallment(1)
		require.NoError(t, err)
		require.NoError(t, p.EditInstallment(1, inst.DueDate, decimal.NewFromInt(200), ""))

		err = p.Reconfigure(usd(t, 1200), FrequencyMonthly, 6, time.Now())
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_DISTRIBUTION", domainErr.Code)
	})
}

func TestPayInstallment(t *testing.T) {
	t.Run("advances next payment date", func(t *testing.T) {
		p := newMonthlyPlan(t, 300, 3)
		require.NoError(t, p.PayInstallment(1, decimal.NewFromInt(100), time.Now()))

		require.NotNil(t, p.NextPaymentDate)
		assert.Equal(t, p.StartDate.AddDate(0, 1, 0), *p.NextPaymentDate)
		assert.Equal(t, StatusActive, p.Status)
	})

	t.Run("paying the final installment completes the plan", func(t *testing.T) {
		p := newMonthlyPlan(t, 300, 3)
		for seq := 1; seq <= 3; seq++ {
			require.NoError(t, p.PayInstallment(seq, decimal.NewFromInt(100), time.Now()))
		}
		assert.Equal(t, StatusCompleted, p.Status)
		assert.Nil(t, p.NextPaymentDate)
		assert.True(t, p.AllPaid())
	})

	t.Run("double payment is rejected", func(t *testing.T) {
		p := newMonthlyPlan(t, 300, 3)
		require.NoError(t, p.PayInstallment(1, decimal.NewFromInt(100), time.Now()))
		assert.Error(t, p.PayInstallment(1, decimal.NewFromInt(100), time.Now()))
	})

	t.Run("clears overdue status", func(t *testing.T) {
		p := newMonthlyPlan(t, 300, 3)
		require.NoError(t, p.MarkOverdue(p.StartDate.AddDate(0, 0, 1)))
		require.Equal(t, StatusOverdue, p.Status)

		require.NoError(t, p.PayInstallment(1, decimal.NewFromInt(100), time.Now()))
		assert.Equal(t, StatusActive, p.Status)
	})
}

func TestPlanLifecycle(t *testing.T) {
	t.Run("pause and resume", func(t *testing.T) {
		p := newMonthlyPlan(t, 300, 3)
		require.NoError(t, p.Pause())
		assert.Equal(t, StatusPaused, p.Status)
		assert.Error(t, p.PayInstallment(1, decimal.NewFromInt(100), time.Now()))

		require.NoError(t, p.Resume())
		assert.Equal(t, StatusActive, p.Status)
	})

	t.Run("cancel is terminal", func(t *testing.T) {
		p := newMonthlyPlan(t, 300, 3)
		require.NoError(t, p.Cancel("donor request"))
		assert.Equal(t, StatusCancelled, p.Status)
		assert.Error(t, p.Resume())
		assert.Error(t, p.Cancel("again"))
	})

	t.Run("overdue requires a lapsed next payment date", func(t *testing.T) {
		p := newMonthlyPlan(t, 300, 3)
		assert.Error(t, p.MarkOverdue(p.StartDate))
		require.NoError(t, p.MarkOverdue(p.StartDate.AddDate(0, 0, 1)))
		assert.Equal(t, StatusOverdue, p.Status)
	})
}

func TestRenew(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("starts a new cycle one period after the last installment", func(t *testing.T) {
		p, err := NewFixedPlan(uuid.New(), usd(t, 300), FrequencyMonthly, 3, start, true)
		require.NoError(t, err)
		for seq := 1; seq <= 3; seq++ {
			require.NoError(t, p.PayInstallment(seq, decimal.NewFromInt(100), time.Now()))
		}
		// auto-renew keeps the plan active instead of completing it
		require.Equal(t, StatusActive, p.Status)

		require.NoError(t, p.Renew())
		assert.Equal(t, start.AddDate(0, 3, 0), p.StartDate)
		require.Len(t, p.Installments, 3)
		assert.False(t, p.Installments[0].IsPaid)
	})

	t.Run("rejected with open installments", func(t *testing.T) {
		p, err := NewFixedPlan(uuid.New(), usd(t, 300), FrequencyMonthly, 3, start, true)
		require.NoError(t, err)
		assert.Error(t, p.Renew())
	})

	t.Run("rejected when auto-renew is off", func(t *testing.T) {
		p := newMonthlyPlan(t, 300, 3)
		assert.Error(t, p.Renew())
	})
}
