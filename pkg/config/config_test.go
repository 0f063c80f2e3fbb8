package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"voxelcore/pkg/volume"
)

// TestDefaultConfig verifies the defaults are usable as-is
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default config should be valid: %v", err)
	}

	if cfg.Processing.NumCores < 1 {
		t.Errorf("Expected at least one core, got %d", cfg.Processing.NumCores)
	}

	if len(cfg.Output.Axes) != 3 {
		t.Errorf("Expected 3 default axes, got %v", cfg.Output.Axes)
	}
}

// TestLoadConfigMissingFile verifies that a missing file yields the defaults
func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Volume.Resolution != DefaultConfig().Volume.Resolution {
		t.Errorf("Expected default resolution, got %v", cfg.Volume.Resolution)
	}
}

// TestSaveAndLoadConfig writes a modified config and reads it back
func TestSaveAndLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Volume.Resolution = [3]int{16, 8, 4}
	cfg.Volume.Storage = "pooled"
	cfg.Phantom.Kind = "shell"
	cfg.Transfer.Nodes = []ColorNode{
		{Position: 10, RGBA: [4]float32{1, 0, 0, 0.5}},
		{Position: 0, RGBA: [4]float32{0, 0, 0, 0}},
	}

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if loaded.Volume.Resolution != [3]int{16, 8, 4} {
		t.Errorf("Expected resolution [16 8 4], got %v", loaded.Volume.Resolution)
	}
	if loaded.Phantom.Kind != "shell" {
		t.Errorf("Expected phantom kind shell, got %s", loaded.Phantom.Kind)
	}
	if len(loaded.Transfer.Nodes) != 2 {
		t.Fatalf("Expected 2 transfer nodes, got %d", len(loaded.Transfer.Nodes))
	}
	if loaded.Storage().Location() != volume.Pooled {
		t.Errorf("Expected pooled storage, got %v", loaded.Storage().Location())
	}
}

// TestLoadConfigPartial verifies that unspecified keys keep their defaults
func TestLoadConfigPartial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	data := "volume:\n  resolution: [8, 8, 8]\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Volume.Resolution != [3]int{8, 8, 8} {
		t.Errorf("Expected resolution [8 8 8], got %v", cfg.Volume.Resolution)
	}
	if cfg.Volume.Spacing != DefaultConfig().Volume.Spacing {
		t.Errorf("Expected default spacing, got %v", cfg.Volume.Spacing)
	}
}

// TestValidate covers the rejected settings
func TestValidate(t *testing.T) {
	testCases := []struct {
		name   string
		modify func(*Config)
		want   string
	}{
		{"zero resolution", func(c *Config) { c.Volume.Resolution[1] = 0 }, "resolution[1]"},
		{"negative spacing", func(c *Config) { c.Volume.Spacing[2] = -1 }, "spacing[2]"},
		{"bad storage", func(c *Config) { c.Volume.Storage = "gpu" }, "storage"},
		{"too many nodes", func(c *Config) {
			c.Transfer.Nodes = make([]ColorNode, 100)
		}, "at most"},
	}

	for _, tc := range testCases {
		cfg := DefaultConfig()
		tc.modify(cfg)

		err := cfg.Validate()
		if err == nil {
			t.Errorf("%s: expected an error", tc.name)
			continue
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Errorf("%s: expected error mentioning %q, got %v", tc.name, tc.want, err)
		}
	}
}

// TestLoadConfigInvalid verifies parse and validation errors are reported
func TestLoadConfigInvalid(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("volume: [not, a, map"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	if _, err := LoadConfig(bad); err == nil {
		t.Errorf("Expected a parse error")
	}

	invalid := filepath.Join(dir, "invalid.yaml")
	if err := os.WriteFile(invalid, []byte("volume:\n  resolution: [0, 1, 1]\n"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	if _, err := LoadConfig(invalid); err == nil {
		t.Errorf("Expected a validation error")
	}
}

// TestColorMap verifies the transfer nodes are sorted into an evaluable map
func TestColorMap(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Transfer.Nodes = []ColorNode{
		{Position: 100, RGBA: [4]float32{1, 1, 1, 1}},
		{Position: 0, RGBA: [4]float32{0, 0, 0, 0}},
	}

	cm := cfg.ColorMap()
	got := cm.Evaluate(50)
	for i, want := range []float32{0.5, 0.5, 0.5, 0.5} {
		if got[i] < want-1e-6 || got[i] > want+1e-6 {
			t.Errorf("Channel %d at 50: expected %.3f, got %.3f", i, want, got[i])
		}
	}

	if cfg.Storage().Location() != volume.Host {
		t.Errorf("Expected host storage by default")
	}
}
