// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStaticResolveKnownObject(t *testing.T) {
	r := NewStatic([]Object{{Name: "Vega", RADeg: 279.23, DecDeg: 38.78}})
	obj, err := r.Resolve("Vega")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if obj.RADeg != 279.23 {
		t.Errorf("RADeg = %v, want 279.23", obj.RADeg)
	}
}

func TestStaticResolveUnknownObject(t *testing.T) {
	r := NewStatic(nil)
	if _, err := r.Resolve("Nowhere"); err == nil {
		t.Fatal("expected an error resolving an unknown object")
	}
}

func TestLoadFileParsesObjectsAndSkipsComments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.txt")
	content := "# observatory target list\n\nVega,279.23,38.78\nJupiter,120.5,-5.2,planet\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	objects, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(objects) != 2 {
		t.Fatalf("len(objects) = %d, want 2", len(objects))
	}
	if objects[0].Name != "Vega" || objects[0].IsPlanet {
		t.Errorf("objects[0] = %+v, want Vega, not a planet", objects[0])
	}
	if objects[1].Name != "Jupiter" || !objects[1].IsPlanet {
		t.Errorf("objects[1] = %+v, want Jupiter, a planet", objects[1])
	}
}

func TestLoadFileRejectsMalformedLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.txt")
	if err := os.WriteFile(path, []byte("Vega,not-a-number,38.78\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected an error for a malformed ra_deg field")
	}
}
