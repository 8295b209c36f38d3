// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package catalog declares the narrow object-name-resolution boundary
// a tracking session depends on. Catalog/ephemeris lookup is out of
// scope (spec.md's Non-goals); this package is the interface plus an
// in-memory implementation useful for tests and small fixed
// deployments.
package catalog

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Object is a resolved catalog entry's fixed sky coordinates.
type Object struct {
	Name     string
	RADeg    float64
	DecDeg   float64
	IsPlanet bool
}

// Resolver looks up an object by name.
type Resolver interface {
	Resolve(name string) (Object, error)
}

// Static is an in-memory Resolver backed by a fixed name->Object map,
// sufficient for a dedicated observatory that tracks a small, known
// set of targets.
type Static struct {
	objects map[string]Object
}

// NewStatic builds a Static resolver from the given objects.
func NewStatic(objects []Object) *Static {
	s := &Static{objects: make(map[string]Object, len(objects))}
	for _, o := range objects {
		s.objects[o.Name] = o
	}
	return s
}

func (s *Static) Resolve(name string) (Object, error) {
	o, ok := s.objects[name]
	if !ok {
		return Object{}, fmt.Errorf("catalog: unknown object %q", name)
	}
	return o, nil
}

var _ Resolver = (*Static)(nil)

// LoadFile reads a fixed observatory catalog from a simple
// "name,ra_deg,dec_deg[,planet]" CSV-like text file, one object per
// line, blank lines and lines starting with "#" ignored. This mirrors
// the teacher's KEY=VALUE config parser's tolerance for comments and
// blank lines (internal/config/config.go's Load) without inheriting
// its key/value shape, since a catalog entry is positional fields, not
// settings.
func LoadFile(path string) ([]Object, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", path, err)
	}
	defer f.Close()

	var objects []Object
	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, ",")
		if len(fields) < 3 {
			return nil, fmt.Errorf("catalog: line %d: expected at least name,ra_deg,dec_deg", lineNum)
		}

		ra, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("catalog: line %d: invalid ra_deg: %w", lineNum, err)
		}
		dec, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
		if err != nil {
			return nil, fmt.Errorf("catalog: line %d: invalid dec_deg: %w", lineNum, err)
		}

		isPlanet := false
		if len(fields) >= 4 {
			isPlanet = strings.TrimSpace(strings.ToLower(fields[3])) == "planet"
		}

		objects = append(objects, Object{
			Name:     strings.TrimSpace(fields[0]),
			RADeg:    ra,
			DecDeg:   dec,
			IsPlanet: isPlanet,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return objects, nil
}
