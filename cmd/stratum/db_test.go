package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const seedYAML = `materials:
  - id: mw
    name: Mineral wool
    category: insulation
    conductivity: 0.035
    color: "255,200,180,40"
frames:
  - id: f1
    name: Timber frame
    width_mm: 90
    u_value: 1.3
glazing:
  - id: g1
    name: Triple low-e
    u_value: 0.6
    g_value: 0.5
`

func TestDBInit_MigratesAndSeeds(t *testing.T) {
	seed := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(seed, []byte(seedYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := writeConfig(t, "http://127.0.0.1:1", "seed: "+seed+"\n")

	out := mustRun(t, "db", "init", "-c", cfg)
	if !strings.Contains(out, "Migrated 7 tables") {
		t.Errorf("init output: %s", out)
	}
	if !strings.Contains(out, "Seeded 1 materials, 1 frame types, 1 glazing types") {
		t.Errorf("seed output: %s", out)
	}

	// Seeding is an upsert, so running it again is harmless.
	out = mustRun(t, "db", "seed", "-c", cfg)
	if !strings.Contains(out, "Seeded 1 materials") {
		t.Errorf("reseed output: %s", out)
	}
}

func TestDBSeed_NoFile(t *testing.T) {
	cfg := writeConfig(t, "http://127.0.0.1:1", "")
	mustRun(t, "db", "migrate", "-c", cfg)
	_, err := runCmd(t, "", "db", "seed", "-c", cfg)
	if err == nil || !strings.Contains(err.Error(), "no seed file") {
		t.Errorf("err = %v", err)
	}
}
