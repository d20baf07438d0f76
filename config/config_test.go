package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "firewall_config.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeConfig(t, `{
		"thresholds": {
			"syn_flood_threshold": 1000,
			"connection_threshold": 200,
			"packet_rate_threshold": 1000,
			"port_scan_threshold": 80,
			"icmp_flood_threshold": 1000
		},
		"whitelist": ["127.0.0.1", "192.168.1.0/24"],
		"block_duration": 600,
		"log_level": "DEBUG"
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Thresholds.SYNFloodThreshold != 1000 {
		t.Errorf("SYNFloodThreshold = %d", cfg.Thresholds.SYNFloodThreshold)
	}
	if cfg.BlockDuration != 600 {
		t.Errorf("BlockDuration = %d, want 600", cfg.BlockDuration)
	}
	if got := cfg.BlockFor(); got != 600*time.Second {
		t.Errorf("BlockFor = %v", got)
	}
	if len(cfg.Whitelist) != 2 {
		t.Errorf("Whitelist = %v", cfg.Whitelist)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("error = %v, want a not-found message", err)
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	path := writeConfig(t, `{not json`)
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
	if !strings.Contains(err.Error(), "invalid JSON") {
		t.Errorf("error = %v", err)
	}
}

func TestLoadMissingThresholds(t *testing.T) {
	// Two thresholds missing, one zero. The error must name all three so
	// the operator can fix the file in one pass.
	path := writeConfig(t, `{
		"thresholds": {
			"syn_flood_threshold": 1000,
			"connection_threshold": 200,
			"icmp_flood_threshold": 0
		}
	}`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, name := range []string{"packet_rate_threshold", "port_scan_threshold", "icmp_flood_threshold"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error does not name %s: %v", name, err)
		}
	}
	for _, name := range []string{"syn_flood_threshold", "connection_threshold"} {
		if strings.Contains(err.Error(), name) {
			t.Errorf("error names present threshold %s: %v", name, err)
		}
	}
}

func TestLoadNegativeThreshold(t *testing.T) {
	path := writeConfig(t, `{
		"thresholds": {
			"syn_flood_threshold": -5,
			"connection_threshold": 200,
			"packet_rate_threshold": 1000,
			"port_scan_threshold": 80,
			"icmp_flood_threshold": 1000
		}
	}`)

	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "syn_flood_threshold") {
		t.Fatalf("error = %v, want syn_flood_threshold named", err)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"thresholds": {
			"syn_flood_threshold": 1000,
			"connection_threshold": 200,
			"packet_rate_threshold": 1000,
			"port_scan_threshold": 80,
			"icmp_flood_threshold": 1000
		}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BlockDuration != 300 {
		t.Errorf("default BlockDuration = %d, want 300", cfg.BlockDuration)
	}
	if cfg.LogLevel != "INFO" {
		t.Errorf("default LogLevel = %q, want INFO", cfg.LogLevel)
	}
	if len(cfg.Whitelist) != 2 {
		t.Errorf("default Whitelist = %v, want loopback entries", cfg.Whitelist)
	}
}

func TestTemplateIsValidConfig(t *testing.T) {
	var cfg Config
	if err := json.Unmarshal([]byte(Template()), &cfg); err != nil {
		t.Fatalf("template is not valid JSON: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("template does not validate: %v", err)
	}
}

func TestWriteSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "firewall_config.json")
	if err := WriteSample(path); err != nil {
		t.Fatalf("WriteSample: %v", err)
	}
	if _, err := Load(path); err != nil {
		t.Fatalf("generated sample does not load: %v", err)
	}
	// Refuses to clobber an existing file.
	if err := WriteSample(path); err == nil {
		t.Fatal("WriteSample overwrote an existing file")
	}
}
