package plan

import (
	"fmt"
	"time"

	"github.com/pledgehub/backend/internal/domain/shared"
	"github.com/pledgehub/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Frequency represents how often a plan installment falls due
type Frequency string

const (
	FrequencyWeekly    Frequency = "weekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyBiannual  Frequency = "biannual"
	FrequencyAnnual    Frequency = "annual"
	FrequencyOneTime   Frequency = "one_time"
)

// IsValid checks if the frequency is recognized
func (f Frequency) IsValid() bool {
	switch f {
	case FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly, FrequencyBiannual, FrequencyAnnual, FrequencyOneTime:
		return true
	}
	return false
}

// String returns the string representation of Frequency
func (f Frequency) String() string {
	return string(f)
}

// dueDate returns the due date of the i-th installment (0-based)
func (f Frequency) dueDate(start time.Time, i int) time.Time {
	switch f {
	case FrequencyWeekly:
		return start.AddDate(0, 0, 7*i)
	case FrequencyMonthly:
		return start.AddDate(0, i, 0)
	case FrequencyQuarterly:
		return start.AddDate(0, 3*i, 0)
	case FrequencyBiannual:
		return start.AddDate(0, 6*i, 0)
	case FrequencyAnnual:
		return start.AddDate(i, 0, 0)
	default:
		return start
	}
}

// ScheduleEntry is one generated installment line
type ScheduleEntry struct {
	Number   int
	Date     time.Time
	Amount   decimal.Decimal
	Currency valueobject.Currency
}

// GenerateSchedule produces the ordered installment sequence for a
// fixed-distribution plan. The computation is pure: identical inputs
// always yield identical output. A one_time frequency produces a
// single entry at the start date regardless of count; count <= 0
// produces an empty sequence. An unrecognized frequency is an error
// rather than a silent monthly fallback.
func GenerateSchedule(start time.Time, frequency Frequency, count int, total decimal.Decimal, currency valueobject.Currency) ([]ScheduleEntry, error) {
	if !frequency.IsValid() {
		return nil, shared.NewDomainError("INVALID_FREQUENCY", fmt.Sprintf("Frequency %q is not recognized", frequency))
	}
	if count <= 0 {
		return []ScheduleEntry{}, nil
	}
	if frequency == FrequencyOneTime {
		count = 1
	}

	amounts, err := DistributeTotal(total, count)
	if err != nil {
		return nil, err
	}

	entries := make([]ScheduleEntry, count)
	for i := 0; i < count; i++ {
		entries[i] = ScheduleEntry{
			Number:   i + 1,
			Date:     frequency.dueDate(start, i),
			Amount:   amounts[i],
			Currency: currency,
		}
	}

	return entries, nil
}
