// Package optim searches erosion parameter space for settings that bring
// a run's score closest to a goal.
package optim

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"math"
	"strconv"
	"strings"
)

var (
	ErrNoAxes     = errors.New("optim: no parameters to search")
	ErrEmptyAxis  = errors.New("optim: parameter has no values")
	ErrNoResult   = errors.New("optim: every trial failed")
	ErrBadAxisDef = errors.New("optim: malformed parameter range")
)

// Objective evaluates one point of the grid. Lower is better.
type Objective func(ctx context.Context, params map[string]float64) (float64, error)

// Trial records one evaluated point.
type Trial struct {
	Params map[string]float64
	Value  float64
	Err    error
}

type Result struct {
	Best   map[string]float64
	Value  float64
	Trials []Trial
}

// GridSearch evaluates the cartesian product of its parameter ranges.
type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges}
}

// Size is the number of points Search will evaluate.
func (g *GridSearch) Size() int {
	if len(g.paramNames) == 0 {
		return 0
	}
	n := 1
	for _, r := range g.ranges {
		n *= len(r)
	}
	return n
}

// Search runs objective at every grid point in order. Failed trials are
// kept in the result but never win. Cancelling ctx stops the search and
// returns ctx.Err with the trials evaluated so far.
func (g *GridSearch) Search(ctx context.Context, objective Objective) (*Result, error) {
	if len(g.paramNames) == 0 || len(g.paramNames) != len(g.ranges) {
		return nil, ErrNoAxes
	}
	for i, r := range g.ranges {
		if len(r) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrEmptyAxis, g.paramNames[i])
		}
	}

	res := &Result{Value: math.Inf(1), Trials: make([]Trial, 0, g.Size())}
	if err := g.searchRecursive(ctx, 0, make(map[string]float64), objective, res); err != nil {
		return res, err
	}
	if res.Best == nil {
		return res, ErrNoResult
	}
	return res, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	objective Objective,
	res *Result,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if depth == len(g.paramNames) {
		point := maps.Clone(current)
		val, err := objective(ctx, point)
		res.Trials = append(res.Trials, Trial{Params: point, Value: val, Err: err})
		if err == nil && val < res.Value {
			res.Value = val
			res.Best = point
		}
		return nil
	}

	name := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		current[name] = val
		if err := g.searchRecursive(ctx, depth+1, current, objective, res); err != nil {
			return err
		}
	}
	delete(current, name)
	return nil
}

// ParseAxis reads a "name=v1,v2,..." or "name=lo:hi:count" definition.
func ParseAxis(def string) (string, []float64, error) {
	name, rhs, ok := strings.Cut(def, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" || rhs == "" {
		return "", nil, fmt.Errorf("%w: %q", ErrBadAxisDef, def)
	}

	if parts := strings.Split(rhs, ":"); len(parts) == 3 {
		lo, err1 := strconv.ParseFloat(parts[0], 64)
		hi, err2 := strconv.ParseFloat(parts[1], 64)
		n, err3 := strconv.Atoi(parts[2])
		if err := errors.Join(err1, err2, err3); err != nil || n < 1 {
			return "", nil, fmt.Errorf("%w: %q", ErrBadAxisDef, def)
		}
		return name, Linspace(lo, hi, n), nil
	}

	fields := strings.Split(rhs, ",")
	values := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return "", nil, fmt.Errorf("%w: %q: %v", ErrBadAxisDef, def, err)
		}
		values = append(values, v)
	}
	return name, values, nil
}

// Linspace returns n evenly spaced values from lo to hi inclusive.
func Linspace(lo, hi float64, n int) []float64 {
	if n == 1 {
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	return out
}
