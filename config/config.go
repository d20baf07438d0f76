package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

const DefaultPath = "firewall_config.json"

// AttackSignature holds the five detection thresholds, each a maximum number
// of events per source within the rolling 60-second window.
type AttackSignature struct {
	SYNFloodThreshold   int `json:"syn_flood_threshold"`
	ConnectionThreshold int `json:"connection_threshold"`
	PacketRateThreshold int `json:"packet_rate_threshold"`
	PortScanThreshold   int `json:"port_scan_threshold"`
	ICMPFloodThreshold  int `json:"icmp_flood_threshold"`
}

// Config is the full daemon configuration, loaded from a JSON file.
type Config struct {
	Thresholds    AttackSignature `json:"thresholds"`
	Whitelist     []string        `json:"whitelist"`
	BlockDuration int             `json:"block_duration"` // seconds
	LogLevel      string          `json:"log_level"`

	// Optional integrations
	APIListen         string `json:"api_listen,omitempty"`
	DatabasePath      string `json:"database_path,omitempty"`
	GeoIPDatabase     string `json:"geoip_database,omitempty"`
	DiscordWebhookURL string `json:"discord_webhook_url,omitempty"`
}

// BlockFor returns the block duration as a time.Duration.
func (c *Config) BlockFor() time.Duration {
	return time.Duration(c.BlockDuration) * time.Second
}

// Load reads and validates the configuration file. Every threshold must be
// present and positive; the daemon refuses to start with partial defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file %q not found", path)
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid JSON in %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// Validate checks that every required threshold is present and positive.
func (c *Config) Validate() error {
	missing := c.missingThresholds()
	if len(missing) > 0 {
		return fmt.Errorf("missing or non-positive threshold values: %s", strings.Join(missing, ", "))
	}
	if c.BlockDuration < 0 {
		return fmt.Errorf("block_duration must be a positive number of seconds")
	}
	return nil
}

func (c *Config) missingThresholds() []string {
	var missing []string
	checks := []struct {
		name  string
		value int
	}{
		{"syn_flood_threshold", c.Thresholds.SYNFloodThreshold},
		{"connection_threshold", c.Thresholds.ConnectionThreshold},
		{"packet_rate_threshold", c.Thresholds.PacketRateThreshold},
		{"port_scan_threshold", c.Thresholds.PortScanThreshold},
		{"icmp_flood_threshold", c.Thresholds.ICMPFloodThreshold},
	}
	for _, check := range checks {
		if check.value <= 0 {
			missing = append(missing, check.name)
		}
	}
	return missing
}

func (c *Config) applyDefaults() {
	if c.BlockDuration == 0 {
		c.BlockDuration = 300
	}
	if c.LogLevel == "" {
		c.LogLevel = "INFO"
	}
	if c.Whitelist == nil {
		c.Whitelist = []string{"::1", "127.0.0.1"}
	}
}

// Template returns a sample configuration document, printed when the config
// file is missing or incomplete so the operator knows what to create.
func Template() string {
	sample := Config{
		Thresholds: AttackSignature{
			SYNFloodThreshold:   1000,
			ConnectionThreshold: 200,
			PacketRateThreshold: 1000,
			PortScanThreshold:   80,
			ICMPFloodThreshold:  1000,
		},
		Whitelist:     []string{"::1", "127.0.0.1", "192.168.1.0/24"},
		BlockDuration: 300,
		LogLevel:      "INFO",
	}
	out, _ := json.MarshalIndent(sample, "", "    ")
	return string(out)
}

// WriteSample writes the template to path unless the file already exists.
func WriteSample(path string) error {
	if path == "" {
		path = DefaultPath
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("configuration file already exists at %s", path)
	}
	return os.WriteFile(path, []byte(Template()+"\n"), 0644)
}

// Explain describes each configuration option for the operator. Shown next
// to the template on fatal configuration errors.
func Explain() string {
	return strings.Join([]string{
		"- syn_flood_threshold: max SYN packets per IP per minute",
		"- connection_threshold: max connections per IP per minute",
		"- packet_rate_threshold: max total packets per IP per minute",
		"- port_scan_threshold: max distinct ports accessed per IP per minute",
		"- icmp_flood_threshold: max ICMP packets per IP per minute",
		"- whitelist: IP addresses/CIDR ranges that are never blocked",
		"- block_duration: how long to block offenders (seconds)",
		"- log_level: DEBUG, INFO, WARNING or ERROR",
	}, "\n")
}
