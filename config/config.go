// Package config handles labreports configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable that overrides the config file location.
const EnvConfigPath = "LABREPORTS_CONFIG"

// Config is the root configuration structure.
type Config struct {
	Letterhead Letterhead    `yaml:"letterhead"`
	Assets     AssetsConfig  `yaml:"assets"`
	Export     ExportConfig  `yaml:"export"`
	Logging    LoggingConfig `yaml:"logging"`
}

// Letterhead holds the company profile printed on letterhead certificates.
type Letterhead struct {
	CompanyName  string   `yaml:"company_name"`
	AddressLines []string `yaml:"address_lines"`
	Phone        string   `yaml:"phone"`
	Email        string   `yaml:"email"`
	Website      string   `yaml:"website"`

	// Logo references are resolved through the asset loader.
	// An empty reference leaves the slot blank.
	LeftLogo   string `yaml:"left_logo"`
	CenterLogo string `yaml:"center_logo"`
	RightLogo  string `yaml:"right_logo"`

	ISOLabel string `yaml:"iso_label"`
	Terms    string `yaml:"terms"`
}

// AssetsConfig holds where logos and signature images are loaded from.
type AssetsConfig struct {
	Root        string `yaml:"root"`
	NABLLogo    string `yaml:"nabl_logo"`
	QAILogo     string `yaml:"qai_logo"`
	HTTPTimeout int    `yaml:"http_timeout_seconds"`

	// AllowedHosts lists the hosts http(s) references may be fetched from.
	// Empty disables remote references.
	AllowedHosts []string `yaml:"allowed_hosts"`
	// AllowPrivateNetworks permits allowlisted hosts that resolve to
	// loopback, private or link-local addresses.
	AllowPrivateNetworks bool `yaml:"allow_private_networks"`
}

// ExportConfig holds export driver settings.
type ExportConfig struct {
	// TempDir holds transient documents while they are handed to the saver.
	// Empty means os.TempDir().
	TempDir string `yaml:"temp_dir"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "text"
}

// DefaultTerms is printed verbatim in the footer of every letterhead page.
const DefaultTerms = "The results given in this report relate only to the sample(s) tested as received. " +
	"This report shall not be reproduced except in full without the written approval of the laboratory. " +
	"The report is not to be used for advertisement or as evidence in a court of law. " +
	"Samples will be retained for 30 days from the date of issue unless otherwise specified. " +
	"Total liability of the laboratory is limited to the invoiced amount."

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Letterhead: Letterhead{
			CompanyName:  "KTRC Testing & Research Centre",
			AddressLines: []string{"Plot 14, Industrial Area Phase II", "Bangalore, Karnataka 560058"},
			Phone:        "+91 80 2839 4400",
			Email:        "lab@ktrc.in",
			Website:      "www.ktrc.in",
			ISOLabel:     "ISO 9001:2015 CERTIFIED",
			Terms:        DefaultTerms,
		},
		Assets: AssetsConfig{
			Root:        "./assets",
			NABLLogo:    "nabl.png",
			QAILogo:     "qai.png",
			HTTPTimeout: 15,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load loads configuration from a file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault loads config from path, or returns default if not found.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}

	return Load(path)
}

// FromEnvironment loads .env (if present) and then the config file named by
// LABREPORTS_CONFIG, falling back to ./config.yaml.
func FromEnvironment() (*Config, error) {
	// A missing .env file is normal outside development.
	_ = godotenv.Load()

	path := os.Getenv(EnvConfigPath)
	if path == "" {
		path = "config.yaml"
	}
	return LoadOrDefault(filepath.Clean(path))
}
