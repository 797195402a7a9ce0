// Package optim searches model coefficients for the run that minimizes a
// tracked metric.
package optim

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/san-kum/dvdm/internal/config"
	"github.com/san-kum/dvdm/internal/dynamo"
	"github.com/san-kum/dvdm/internal/experiment"
	"github.com/san-kum/dvdm/internal/storage"
)

// GridSearch evaluates every combination of the listed coefficient values.
type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) (*GridSearch, error) {
	if len(params) == 0 || len(params) != len(ranges) {
		return nil, dynamo.ConfigErrorf("grid search needs one range per parameter, got %d names and %d ranges", len(params), len(ranges))
	}
	for i, r := range ranges {
		if len(r) == 0 {
			return nil, dynamo.ConfigErrorf("empty range for %s", params[i])
		}
	}
	return &GridSearch{paramNames: params, ranges: ranges}, nil
}

// ParseRange reads "name=v1,v2,...".
func ParseRange(s string) (string, []float64, error) {
	name, list, ok := strings.Cut(s, "=")
	if !ok || name == "" || list == "" {
		return "", nil, dynamo.ConfigErrorf("range %q is not name=v1,v2,...", s)
	}
	fields := strings.Split(list, ",")
	values := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return "", nil, dynamo.ConfigErrorf("range %s: %v", name, err)
		}
		values = append(values, v)
	}
	return name, values, nil
}

// Outcome is the result of one grid point.
type Outcome struct {
	Params map[string]float64
	Value  float64
	Err    error
}

// Best is the grid point with the smallest metric.
type Best struct {
	Params   map[string]float64
	Value    float64
	Outcomes []Outcome
}

// Search runs base once per grid point in memory and keeps the smallest
// value of metric. Runs that fail are recorded in Outcomes and skipped.
func (g *GridSearch) Search(ctx context.Context, base *config.Config, reg *experiment.Registry, logger *slog.Logger, metric string) (*Best, error) {
	if logger == nil {
		logger = slog.Default()
	}
	best := &Best{Value: math.Inf(1)}

	err := g.searchRecursive(ctx, 0, make(map[string]float64), func(params map[string]float64) error {
		cfg := base.Clone()
		for k, v := range params {
			cfg.Params[k] = v
		}
		out := Outcome{Params: params}
		out.Value, out.Err = evaluate(ctx, cfg, reg, logger, metric)
		if out.Err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
		best.Outcomes = append(best.Outcomes, out)
		logger.Debug("grid point", "params", params, metric, out.Value, "ok", out.Err == nil)

		if out.Err == nil && out.Value < best.Value {
			best.Value = out.Value
			best.Params = params
		}
		return nil
	})
	if err != nil {
		return best, err
	}
	if best.Params == nil {
		return best, fmt.Errorf("%w: no grid point completed", dynamo.ErrSolverDivergence)
	}
	return best, nil
}

func (g *GridSearch) searchRecursive(ctx context.Context, depth int, current map[string]float64, visit func(map[string]float64) error) error {
	if depth == len(g.paramNames) {
		return visit(current)
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64, len(current)+1)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		if err := g.searchRecursive(ctx, depth+1, newParams, visit); err != nil {
			return err
		}
	}
	return nil
}

func evaluate(ctx context.Context, cfg *config.Config, reg *experiment.Registry, logger *slog.Logger, metric string) (float64, error) {
	exp := experiment.New(cfg, storage.NewMemory())
	exp.SetLogger(logger)
	if err := exp.Setup(reg); err != nil {
		return 0, err
	}
	if _, err := exp.Prepare(); err != nil {
		return 0, err
	}
	result, err := exp.Run(ctx)
	if err != nil {
		return 0, err
	}
	v, ok := result.Metrics[metric]
	if !ok {
		names := make([]string, 0, len(result.Metrics))
		for name := range result.Metrics {
			names = append(names, name)
		}
		sort.Strings(names)
		return 0, dynamo.ConfigErrorf("metric %q not tracked for %s (have %v)", metric, cfg.Model, names)
	}
	return v, nil
}
