// Package metrics observes height field snapshots taken during a run.
package metrics

import (
	"errors"
	"fmt"
	"math"
)

var ErrSizeMismatch = errors.New("metrics: height fields differ in size")

// Metric accumulates a value over a sequence of height snapshots.
type Metric interface {
	Name() string
	Observe(heights []float32)
	Value() float64
	Reset()
}

// Collect returns the current value of every metric keyed by name.
func Collect(ms ...Metric) map[string]float64 {
	out := make(map[string]float64, len(ms))
	for _, m := range ms {
		out[m.Name()] = m.Value()
	}
	return out
}

// MaterialDrift tracks the largest relative change in total height seen
// since the first observation. Thermal transport alone keeps it near
// zero; hydraulic runs drift by the sediment still in suspension.
type MaterialDrift struct {
	initial  float64
	maxDrift float64
	samples  int
}

func NewMaterialDrift() *MaterialDrift { return &MaterialDrift{} }

func (m *MaterialDrift) Name() string { return "material_drift" }

func (m *MaterialDrift) Observe(heights []float32) {
	total := Total(heights)
	if m.samples == 0 {
		m.initial = total
	}
	m.samples++
	if m.initial != 0 {
		drift := math.Abs(total-m.initial) / math.Abs(m.initial)
		m.maxDrift = math.Max(m.maxDrift, drift)
	}
}

func (m *MaterialDrift) Value() float64 { return m.maxDrift }

func (m *MaterialDrift) Reset() {
	m.initial = 0
	m.maxDrift = 0
	m.samples = 0
}

// Relief is the height range of the latest observation.
type Relief struct {
	value float64
}

func NewRelief() *Relief { return &Relief{} }

func (r *Relief) Name() string { return "relief" }

func (r *Relief) Observe(heights []float32) {
	if len(heights) == 0 {
		return
	}
	lo, hi := heights[0], heights[0]
	for _, h := range heights[1:] {
		lo = min(lo, h)
		hi = max(hi, h)
	}
	r.value = float64(hi - lo)
}

func (r *Relief) Value() float64 { return r.value }

func (r *Relief) Reset() { r.value = 0 }

func Total(heights []float32) float64 {
	var sum float64
	for _, h := range heights {
		sum += float64(h)
	}
	return sum
}

// CutFill summarizes where material left and where it settled.
type CutFill struct {
	Eroded    float64 // total height removed
	Deposited float64 // total height added
	MaxCut    float64
	MaxFill   float64
	Changed   int     // cells that moved by more than the tolerance
}

// Compare diffs two snapshots of the same grid. Changes no larger than
// tol are ignored.
func Compare(before, after []float32, tol float64) (CutFill, error) {
	if len(before) != len(after) {
		return CutFill{}, fmt.Errorf("%w: %d and %d", ErrSizeMismatch, len(before), len(after))
	}
	var cf CutFill
	for i := range before {
		d := float64(after[i]) - float64(before[i])
		if math.Abs(d) <= tol {
			continue
		}
		cf.Changed++
		if d < 0 {
			cf.Eroded -= d
			cf.MaxCut = math.Max(cf.MaxCut, -d)
		} else {
			cf.Deposited += d
			cf.MaxFill = math.Max(cf.MaxFill, d)
		}
	}
	return cf, nil
}

// Values flattens cf for storage alongside other metrics.
func (cf CutFill) Values() map[string]float64 {
	return map[string]float64{
		"eroded":        cf.Eroded,
		"deposited":     cf.Deposited,
		"max_cut":       cf.MaxCut,
		"max_fill":      cf.MaxFill,
		"changed_cells": float64(cf.Changed),
	}
}
