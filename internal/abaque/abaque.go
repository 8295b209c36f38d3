// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package abaque loads and queries the empirical (altitude, azimuth) ->
// dome-azimuth lookup table used to aim the dome slit at a tracked
// object, with circular-aware bilinear interpolation (queries outside
// the table are clamped to its edges) and a nearest-neighbor fallback
// when interpolation is impossible.
package abaque

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/relabs-tech/dome-tracker/internal/angle"
)

// Point is one calibration measurement: at a given object azimuth, the
// dome needed to be at domeAzimuth for the slit to align.
type Point struct {
	ObjectAzimuthDeg float64 `json:"object_azimuth"`
	DomeAzimuthDeg   float64 `json:"dome_azimuth"`
}

// altitudeRow is every calibration point measured at one altitude.
type altitudeRow struct {
	AltitudeDeg float64 `json:"altitude"`
	Points      []Point `json:"points"`
}

// document is the on-disk JSON shape: a flat list of altitude rows.
// This supersedes the original .xlsx workbook format (see DESIGN.md's
// Open Question 1) while preserving the same row/altitude/azimuth
// structure and interpolation semantics.
type document struct {
	Rows []altitudeRow `json:"rows"`
}

// Table is a loaded, queryable abaque.
type Table struct {
	byAltitude map[float64][]Point
	altGrid    []float64

	altMin, altMax float64
	azMin, azMax   float64
}

// Load reads an abaque document from path.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("abaque: read %s: %w", path, err)
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("abaque: parse %s: %w", path, err)
	}
	return newTable(doc), nil
}

func newTable(doc document) *Table {
	t := &Table{byAltitude: make(map[float64][]Point)}

	first := true
	for _, row := range doc.Rows {
		pts := append([]Point(nil), row.Points...)
		sort.Slice(pts, func(i, j int) bool { return pts[i].ObjectAzimuthDeg < pts[j].ObjectAzimuthDeg })
		t.byAltitude[row.AltitudeDeg] = pts
		t.altGrid = append(t.altGrid, row.AltitudeDeg)

		for _, p := range pts {
			if first {
				t.azMin, t.azMax = p.ObjectAzimuthDeg, p.ObjectAzimuthDeg
			} else {
				t.azMin = math.Min(t.azMin, p.ObjectAzimuthDeg)
				t.azMax = math.Max(t.azMax, p.ObjectAzimuthDeg)
			}
			first = false
		}
	}
	sort.Float64s(t.altGrid)
	if len(t.altGrid) > 0 {
		t.altMin, t.altMax = t.altGrid[0], t.altGrid[len(t.altGrid)-1]
	}
	return t
}

// interpAngle linearly interpolates between two circular angles at
// fraction frac in [0,1], taking the shortest wrap-aware path.
func interpAngle(a1, a2, frac float64) float64 {
	delta := a2 - a1
	if delta > 180 {
		delta -= 360
	} else if delta < -180 {
		delta += 360
	}
	return angle.Normalize360(a1 + frac*delta)
}

// getVal looks up the exact dome azimuth measured at (altitude,
// objectAzimuth), returning false if no exact row/point match exists.
func (t *Table) getVal(altitudeDeg, objectAzimuthDeg float64) (float64, bool) {
	pts, ok := t.byAltitude[altitudeDeg]
	if !ok {
		return 0, false
	}
	for _, p := range pts {
		if p.ObjectAzimuthDeg == objectAzimuthDeg {
			return p.DomeAzimuthDeg, true
		}
	}
	return 0, false
}

// bracket finds the two grid values straddling v, clamped to the
// available range, and returns their indices plus the interpolation
// fraction between them.
func bracket(grid []float64, v float64) (lo, hi int, frac float64) {
	if len(grid) == 1 {
		return 0, 0, 0
	}
	idx := sort.SearchFloat64s(grid, v)
	if idx == 0 {
		return 0, 1, 0
	}
	if idx >= len(grid) {
		return len(grid) - 2, len(grid) - 1, 1
	}
	lo, hi = idx-1, idx
	span := grid[hi] - grid[lo]
	if span == 0 {
		return lo, hi, 0
	}
	return lo, hi, (v - grid[lo]) / span
}

// interpolateCircular performs bilinear interpolation across the
// altitude/azimuth grid, first along azimuth within each bracketing
// altitude row, then along altitude, treating every interpolated angle
// as circular.
func (t *Table) interpolateCircular(altitudeDeg, objectAzimuthDeg float64) (float64, bool) {
	if len(t.altGrid) == 0 {
		return 0, false
	}
	altLoIdx, altHiIdx, altFrac := bracket(t.altGrid, altitudeDeg)
	altLo, altHi := t.altGrid[altLoIdx], t.altGrid[altHiIdx]

	rowLo, okLo := t.interpolateRow(altLo, objectAzimuthDeg)
	rowHi, okHi := t.interpolateRow(altHi, objectAzimuthDeg)
	if !okLo || !okHi {
		return 0, false
	}

	return interpAngle(rowLo, rowHi, altFrac), true
}

// interpolateRow interpolates the dome azimuth within a single
// altitude row's azimuth grid.
func (t *Table) interpolateRow(altitudeDeg, objectAzimuthDeg float64) (float64, bool) {
	pts, ok := t.byAltitude[altitudeDeg]
	if !ok || len(pts) == 0 {
		return 0, false
	}
	if v, exact := t.getVal(altitudeDeg, objectAzimuthDeg); exact {
		return v, true
	}

	azGrid := make([]float64, len(pts))
	for i, p := range pts {
		azGrid[i] = p.ObjectAzimuthDeg
	}
	lo, hi, frac := bracket(azGrid, objectAzimuthDeg)
	return interpAngle(pts[lo].DomeAzimuthDeg, pts[hi].DomeAzimuthDeg, frac), true
}

// nearestNeighbor falls back to the closest calibration point in
// normalized (altitude/90, azimuth/360) Euclidean space.
func (t *Table) nearestNeighbor(altitudeDeg, objectAzimuthDeg float64) float64 {
	bestDist := math.Inf(1)
	best := 0.0
	for alt, pts := range t.byAltitude {
		for _, p := range pts {
			dAlt := (altitudeDeg - alt) / 90.0
			dAz := angle.ShortestDistance(objectAzimuthDeg, p.ObjectAzimuthDeg) / 360.0
			dist := dAlt*dAlt + dAz*dAz
			if dist < bestDist {
				bestDist = dist
				best = p.DomeAzimuthDeg
			}
		}
	}
	return best
}

// Result is the outcome of a GetDomePosition lookup.
type Result struct {
	DomeAzimuthDeg float64
	Method         string // "interpolation", "extrapolation" or "nearest_neighbor"
}

// GetDomePosition resolves the dome azimuth the slit must be at for an
// object at the given altitude/azimuth. Queries outside the table's
// measured range are clamped to its edges, interpolated there and
// reported with Method "extrapolation"; nearest neighbor is used only
// when interpolation fails.
func (t *Table) GetDomePosition(altitudeDeg, objectAzimuthDeg float64) Result {
	objectAzimuthDeg = angle.Normalize360(objectAzimuthDeg)
	inBounds := altitudeDeg >= t.altMin && altitudeDeg <= t.altMax &&
		objectAzimuthDeg >= t.azMin && objectAzimuthDeg <= t.azMax

	if domeAz, ok := t.interpolateCircular(altitudeDeg, objectAzimuthDeg); ok {
		method := "interpolation"
		if !inBounds {
			method = "extrapolation"
		}
		return Result{DomeAzimuthDeg: domeAz, Method: method}
	}

	return Result{DomeAzimuthDeg: t.nearestNeighbor(altitudeDeg, objectAzimuthDeg), Method: "nearest_neighbor"}
}

// Diagnostics summarizes the loaded table for observability tooling.
type Diagnostics struct {
	AltitudeCount int       `json:"altitude_count"`
	Altitudes     []float64 `json:"altitudes"`
	AltitudeRange [2]float64 `json:"altitude_range"`
	AzimuthRange  [2]float64 `json:"azimuth_range"`
}

// GetDiagnostics returns a snapshot describing the loaded table.
func (t *Table) GetDiagnostics() Diagnostics {
	return Diagnostics{
		AltitudeCount: len(t.altGrid),
		Altitudes:     t.altGrid,
		AltitudeRange: [2]float64{t.altMin, t.altMax},
		AzimuthRange:  [2]float64{t.azMin, t.azMax},
	}
}
