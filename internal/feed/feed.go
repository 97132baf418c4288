// Package feed loads bar series into the engine. A Source produces a
// complete, validated []core.Bar; the CSV source reads local files and
// the Binance source pages klines from the exchange REST API. Callers
// get a series that already passed core.ValidateBars, so everything
// downstream can assume strictly increasing close times.
package feed

import (
	"context"

	"github.com/quantlark/strata/internal/core"
)

// Source is a provider of bar data for a single symbol.
type Source interface {
	// Name identifies the source in logs and metrics labels.
	Name() string

	// Load fetches the full series. Implementations validate the
	// result before returning it, so a nil error means the bars are
	// ordered and usable.
	Load(ctx context.Context) ([]core.Bar, error)
}
