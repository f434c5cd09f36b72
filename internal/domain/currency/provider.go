package currency

import "context"

// Provider supplies the current USD cross-rate table. Implementations
// fetch from an external source and may serve cached or static rates;
// a table whose Source reports a fallback is still usable but callers
// should surface the degradation.
type Provider interface {
	Current(ctx context.Context) (*RateTable, error)
}
