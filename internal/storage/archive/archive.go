// internal/storage/archive/archive.go
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quantlark/strata/internal/backtest"
	"github.com/quantlark/strata/internal/core"
	"github.com/quantlark/strata/internal/optimize"
	"github.com/quantlark/strata/internal/strategy"
)

const (
	runPrefix = "runs"

	resultArtifact   = "result.json"
	strategyArtifact = "strategy.json"
	sweepArtifact    = "sweep.json"
)

// Archive reads and writes run artifacts through a Storage backend
// using the runs/<id>/<artifact> layout.
type Archive struct {
	store Storage
}

// New wraps a backend in the run-artifact layout.
func New(store Storage) *Archive {
	return &Archive{store: store}
}

// NewRunID returns a sortable run identifier: a UTC timestamp plus a
// short random suffix to keep concurrent runs apart.
func NewRunID() string {
	return time.Now().UTC().Format("20060102T150405Z") + "-" + uuid.NewString()[:8]
}

func runKey(runID, artifact string) string {
	return runPrefix + "/" + runID + "/" + artifact
}

// SaveRun archives a backtest result together with the strategy that
// produced it.
func (a *Archive) SaveRun(ctx context.Context, runID string, res *backtest.Result, strat *strategy.Strategy) error {
	if err := a.writeJSON(ctx, runKey(runID, resultArtifact), res); err != nil {
		return err
	}
	if strat == nil {
		return nil
	}
	return a.writeJSON(ctx, runKey(runID, strategyArtifact), strat)
}

// SaveSweep archives a sweep leaderboard together with the strategy
// template it swept.
func (a *Archive) SaveSweep(ctx context.Context, runID string, sweep *optimize.Sweep, strat *strategy.Strategy) error {
	if err := a.writeJSON(ctx, runKey(runID, sweepArtifact), sweep); err != nil {
		return err
	}
	if strat == nil {
		return nil
	}
	return a.writeJSON(ctx, runKey(runID, strategyArtifact), strat)
}

// LoadResult retrieves an archived backtest result.
func (a *Archive) LoadResult(ctx context.Context, runID string) (*backtest.Result, error) {
	var res backtest.Result
	if err := a.readJSON(ctx, runKey(runID, resultArtifact), &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// LoadSweep retrieves an archived sweep leaderboard.
func (a *Archive) LoadSweep(ctx context.Context, runID string) (*optimize.Sweep, error) {
	var sweep optimize.Sweep
	if err := a.readJSON(ctx, runKey(runID, sweepArtifact), &sweep); err != nil {
		return nil, err
	}
	return &sweep, nil
}

// LoadStrategy retrieves and revalidates an archived strategy.
func (a *Archive) LoadStrategy(ctx context.Context, runID string) (*strategy.Strategy, error) {
	data, err := a.store.Read(ctx, runKey(runID, strategyArtifact))
	if err != nil {
		return nil, core.WrapError(core.ErrStorageFailed,
			fmt.Errorf("reading %s: %w", runKey(runID, strategyArtifact), err))
	}
	return strategy.ParseJSON(data)
}

// ListRuns returns the archived run IDs, sorted. Because IDs start
// with a UTC timestamp, sorted order is chronological.
func (a *Archive) ListRuns(ctx context.Context) ([]string, error) {
	keys, err := a.store.List(ctx, runPrefix)
	if err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, err)
	}

	seen := make(map[string]struct{})
	for _, key := range keys {
		parts := strings.Split(key, "/")
		if len(parts) >= 3 && parts[0] == runPrefix {
			seen[parts[1]] = struct{}{}
		}
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (a *Archive) writeJSON(ctx context.Context, key string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return core.WrapError(core.ErrStorageFailed, err)
	}
	if err := a.store.Write(ctx, key, data); err != nil {
		return core.WrapError(core.ErrStorageFailed,
			fmt.Errorf("writing %s: %w", key, err))
	}
	return nil
}

func (a *Archive) readJSON(ctx context.Context, key string, v any) error {
	data, err := a.store.Read(ctx, key)
	if err != nil {
		return core.WrapError(core.ErrStorageFailed,
			fmt.Errorf("reading %s: %w", key, err))
	}
	if err := json.Unmarshal(data, v); err != nil {
		return core.WrapError(core.ErrStorageFailed,
			fmt.Errorf("decoding %s: %w", key, err))
	}
	return nil
}
