package plan

import (
	"math"

	"github.com/pledgehub/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// DrivingField identifies which input the caller fixed when sizing a
// plan: the total to spread, or the per-installment amount.
type DrivingField string

const (
	DrivingFieldTotal             DrivingField = "total"
	DrivingFieldInstallmentAmount DrivingField = "installment_amount"
)

// IsValid checks if the driving field is recognized
func (d DrivingField) IsValid() bool {
	return d == DrivingFieldTotal || d == DrivingFieldInstallmentAmount
}

// DistributeTotal spreads total across count installments. Every entry
// is rounded to 2 decimals and the last entry absorbs the rounding
// remainder, so the sequence sums exactly to round(total, 2).
func DistributeTotal(total decimal.Decimal, count int) ([]decimal.Decimal, error) {
	if count <= 0 {
		return nil, shared.NewDomainError("INVALID_INSTALLMENT_COUNT", "Installment count must be positive")
	}
	if total.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Total amount must be positive")
	}

	n := decimal.NewFromInt(int64(count))
	base := total.Div(n).Round(2)
	remainder := total.Sub(base.Mul(n)).Round(2)

	amounts := make([]decimal.Decimal, count)
	for i := 0; i < count-1; i++ {
		amounts[i] = base
	}
	amounts[count-1] = base.Add(remainder)

	return amounts, nil
}

// InstallmentFit describes how well a fixed per-installment amount
// covers a total. Difference is count*amount minus the total; manual
// sizing trusts the user's amount, so the difference is surfaced
// rather than corrected.
type InstallmentFit struct {
	Count      int
	Difference decimal.Decimal
}

// CountForInstallmentAmount derives the installment count when the
// per-installment amount is the driving field: ceil(total / amount).
func CountForInstallmentAmount(total, installmentAmount decimal.Decimal) (InstallmentFit, error) {
	if installmentAmount.LessThanOrEqual(decimal.Zero) {
		return InstallmentFit{}, shared.NewDomainError("INVALID_AMOUNT", "Installment amount must be positive")
	}
	if total.LessThanOrEqual(decimal.Zero) {
		return InstallmentFit{}, shared.NewDomainError("INVALID_AMOUNT", "Total amount must be positive")
	}

	ratio, _ := total.Div(installmentAmount).Float64()
	count := int(math.Ceil(ratio))
	if count < 1 {
		count = 1
	}

	covered := installmentAmount.Mul(decimal.NewFromInt(int64(count)))
	return InstallmentFit{
		Count:      count,
		Difference: covered.Sub(total),
	}, nil
}
