package currency

import (
	"fmt"
	"time"

	"github.com/pledgehub/backend/internal/domain/shared"
	"github.com/pledgehub/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// RateTable holds USD cross rates for currency conversion.
// Each rate is expressed as local currency units per 1 USD.
type RateTable struct {
	rates  map[valueobject.Currency]decimal.Decimal
	asOf   time.Time
	source string
}

// NewRateTable creates a rate table from a currency -> local-per-USD mapping
func NewRateTable(rates map[valueobject.Currency]decimal.Decimal, asOf time.Time, source string) *RateTable {
	copied := make(map[valueobject.Currency]decimal.Decimal, len(rates))
	for c, r := range rates {
		copied[c] = r
	}
	return &RateTable{rates: copied, asOf: asOf, source: source}
}

// Lookup returns the local-per-USD rate for a currency and whether it is present
func (t *RateTable) Lookup(c valueobject.Currency) (decimal.Decimal, bool) {
	if t == nil {
		return decimal.NewFromInt(1), false
	}
	if r, ok := t.rates[c]; ok && r.IsPositive() {
		return r, true
	}
	return decimal.NewFromInt(1), false
}

// AsOf returns when the rates were published
func (t *RateTable) AsOf() time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.asOf
}

// Source names where the rates came from
func (t *RateTable) Source() string {
	if t == nil {
		return ""
	}
	return t.source
}

// Rates returns a copy of the underlying mapping
func (t *RateTable) Rates() map[valueobject.Currency]decimal.Decimal {
	if t == nil {
		return nil
	}
	out := make(map[valueobject.Currency]decimal.Decimal, len(t.rates))
	for c, r := range t.rates {
		out[c] = r
	}
	return out
}

// Conversion is the result of a currency conversion. Degraded lists the
// currencies whose rate was missing from the table and defaulted to 1;
// callers must surface this rather than silently accept the fallback.
type Conversion struct {
	Amount   decimal.Decimal
	From     valueobject.Currency
	To       valueobject.Currency
	Degraded []valueobject.Currency
}

// IsDegraded reports whether any rate fell back to the default of 1
func (c Conversion) IsDegraded() bool {
	return len(c.Degraded) > 0
}

// Convert converts an amount between two currencies via the USD cross-rate
// table. Same-currency conversions and conversions without a table return the
// amount unchanged. The result is not rounded; callers round to 2 decimal
// places for display and storage.
func Convert(amount decimal.Decimal, from, to valueobject.Currency, table *RateTable) Conversion {
	if from == to || table == nil {
		return Conversion{Amount: amount, From: from, To: to}
	}

	var degraded []valueobject.Currency

	fromRate, ok := table.Lookup(from)
	if !ok {
		degraded = append(degraded, from)
	}
	toRate, ok := table.Lookup(to)
	if !ok {
		degraded = append(degraded, to)
	}

	usd := amount.Div(fromRate)
	return Conversion{
		Amount:   usd.Mul(toRate),
		From:     from,
		To:       to,
		Degraded: degraded,
	}
}

// ConvertChecked converts between currencies, rejecting targets outside the
// supported currency set instead of producing a silently wrong amount.
func ConvertChecked(amount decimal.Decimal, from, to valueobject.Currency, table *RateTable) (Conversion, error) {
	if !to.IsSupported() {
		return Conversion{}, shared.NewDomainError(
			"UNSUPPORTED_CURRENCY",
			fmt.Sprintf("Currency %q is not supported", to),
		)
	}
	if !from.IsSupported() {
		return Conversion{}, shared.NewDomainError(
			"UNSUPPORTED_CURRENCY",
			fmt.Sprintf("Currency %q is not supported", from),
		)
	}
	return Convert(amount, from, to, table), nil
}

// ToUSD converts an amount to USD using the table
func ToUSD(amount decimal.Decimal, from valueobject.Currency, table *RateTable) Conversion {
	return Convert(amount, from, valueobject.USD, table)
}
