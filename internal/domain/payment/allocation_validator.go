package payment

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/pledgehub/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// AllocationTolerance is the maximum absolute difference allowed between
// the sum of allocation amounts and the payment amount. Amounts match to
// the cent; anything at or above one cent of drift is rejected.
var AllocationTolerance = decimal.NewFromFloat(0.01)

// AllocationEntry is the caller-supplied allocation line used to create
// or replace a payment's allocations. ID is set only when updating an
// existing allocation row.
type AllocationEntry struct {
	ID       *uuid.UUID
	PledgeID uuid.UUID
	Amount   decimal.Decimal
	Notes    string
}

// AllocationMismatchError reports that allocation amounts do not sum to
// the payment amount within tolerance. Difference is the absolute gap
// between the two totals.
type AllocationMismatchError struct {
	TotalAllocated decimal.Decimal
	PaymentAmount  decimal.Decimal
	Difference     decimal.Decimal
}

// Error implements the error interface
func (e *AllocationMismatchError) Error() string {
	return fmt.Sprintf("allocation total %s does not match payment amount %s (difference %s)",
		e.TotalAllocated.String(), e.PaymentAmount.String(), e.Difference.String())
}

// Code returns the domain error code for API mapping
func (e *AllocationMismatchError) Code() string {
	return "ALLOCATION_MISMATCH"
}

// ValidateAllocations checks a proposed allocation set against the
// payment amount. Structural problems (empty set, non-positive amounts,
// missing pledge references) are reported before the sum check.
func ValidateAllocations(entries []AllocationEntry, paymentAmount decimal.Decimal) error {
	if len(entries) == 0 {
		return shared.NewDomainError("INVALID_ALLOCATIONS", "A split payment requires at least one allocation")
	}

	total := decimal.Zero
	for i, e := range entries {
		if e.PledgeID == uuid.Nil {
			return shared.NewDomainError("INVALID_ALLOCATION_PLEDGE", fmt.Sprintf("Allocation %d is missing a pledge reference", i))
		}
		if e.Amount.LessThanOrEqual(decimal.Zero) {
			return shared.NewDomainError("INVALID_ALLOCATION_AMOUNT", fmt.Sprintf("Allocation %d amount must be positive", i))
		}
		if !e.Amount.Round(2).Equal(e.Amount) {
			return shared.NewDomainError("INVALID_ALLOCATION_AMOUNT", fmt.Sprintf("Allocation %d amount must be given to cent precision", i))
		}
		total = total.Add(e.Amount)
	}

	diff := total.Sub(paymentAmount).Abs()
	if diff.GreaterThanOrEqual(AllocationTolerance) {
		return &AllocationMismatchError{
			TotalAllocated: total,
			PaymentAmount:  paymentAmount,
			Difference:     diff,
		}
	}

	return nil
}

// ValidateAllocationOwnership verifies that every entry carrying an
// existing allocation id refers to an allocation of the given payment.
// Reusing an id from another payment is rejected.
func ValidateAllocationOwnership(entries []AllocationEntry, p *Payment) error {
	for _, e := range entries {
		if e.ID == nil {
			continue
		}
		if !p.HasAllocation(*e.ID) {
			return shared.NewDomainError("ALLOCATION_NOT_FOUND", fmt.Sprintf("Allocation %s does not belong to this payment", e.ID))
		}
	}
	return nil
}
