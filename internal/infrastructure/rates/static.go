package rates

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pledgehub/backend/internal/domain/currency"
	"github.com/pledgehub/backend/internal/domain/shared/valueobject"
)

// StaticSource marks tables built from the compiled-in fallback rates
const StaticSource = "static-fallback"

// staticRates are approximate local-per-USD rates used when no feed is
// configured or reachable. They keep conversion working but should be
// treated as degraded.
var staticRates = map[valueobject.Currency]string{
	valueobject.USD: "1",
	valueobject.EUR: "0.92",
	valueobject.GBP: "0.79",
	valueobject.CAD: "1.36",
	valueobject.AUD: "1.52",
	valueobject.ILS: "3.65",
	valueobject.JPY: "149.50",
	valueobject.CHF: "0.88",
}

// StaticTable returns the compiled-in fallback rate table
func StaticTable() *currency.RateTable {
	rates := make(map[valueobject.Currency]decimal.Decimal, len(staticRates))
	for cur, raw := range staticRates {
		rates[cur] = decimal.RequireFromString(raw)
	}
	return currency.NewRateTable(rates, time.Time{}, StaticSource)
}

// StaticProvider always serves the static table. Used when no rate feed
// URL is configured.
type StaticProvider struct{}

// Current implements currency.Provider
// Invalidate is a no-op; static rates never change.
func (StaticProvider) Invalidate(context.Context) {}

func (StaticProvider) Current(_ context.Context) (*currency.RateTable, error) {
	return StaticTable(), nil
}
