// Package config loads the configuration structures named in spec.md §6:
// state.*, prefs.*, and config.* values, from a YAML file, a .env file, and
// process environment variables, in increasing precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// NumericFormat mirrors prefs.numeric_format.
type NumericFormat string

const (
	NumericThousandsCommas NumericFormat = "Thousands Commas"
	NumericNoCommas        NumericFormat = "No Commas"
	NumericScientific      NumericFormat = "Scientific Notation"
)

// StateConfig mirrors state.* in spec.md §6.
type StateConfig struct {
	DefaultParms           []string          `yaml:"default_parms"`
	DefaultDataElements    []string          `yaml:"default_data_elements"`
	ParmDefaults           map[string]float64 `yaml:"p_defaults"`
	SchemaVersion          string            `yaml:"schema_version" env:"ONTOCORE_SCHEMA_VERSION"`
	OntologyPath           string            `yaml:"ontology_path" env:"ONTOCORE_ONTOLOGY_PATH"`
	SchemaCacheDir         string            `yaml:"schema_cache_dir" env:"ONTOCORE_SCHEMA_CACHE_DIR"`
	ForceOntologyRebuild   bool              `yaml:"force_ontology_rebuild" env:"ONTOCORE_FORCE_ONTOLOGY_REBUILD"`
}

// PrefsConfig mirrors prefs.* in spec.md §6.
type PrefsConfig struct {
	Units            map[string]string `yaml:"units"`
	NumericFormat    NumericFormat     `yaml:"numeric_format" env:"ONTOCORE_NUMERIC_FORMAT"`
	NumericPrecision int               `yaml:"numeric_precision" env:"ONTOCORE_NUMERIC_PRECISION"`
}

// CoreConfig mirrors config.* in spec.md §6, plus the home/backup directories
// the Persistence component (§4.6) reads and writes.
type CoreConfig struct {
	LocalAdmin          bool     `yaml:"local_admin" env:"ONTOCORE_LOCAL_ADMIN"`
	DefaultDataElements []string `yaml:"default_data_elements"`
	HomeDir             string   `yaml:"home_dir" env:"ONTOCORE_HOME_DIR"`
	BackupDir           string   `yaml:"backup_dir" env:"ONTOCORE_BACKUP_DIR"`
	SnapshotCron        string   `yaml:"snapshot_cron" env:"ONTOCORE_SNAPSHOT_CRON"`
	OfflineClient       bool     `yaml:"offline_client" env:"ONTOCORE_OFFLINE_CLIENT"`
	PermissiveMode      bool     `yaml:"permissive_mode" env:"ONTOCORE_PERMISSIVE_MODE"`
	SessionSecret       string   `yaml:"session_secret" env:"ONTOCORE_SESSION_SECRET"`
}

// Config is the top-level configuration structure.
type Config struct {
	State   StateConfig   `yaml:"state"`
	Prefs   PrefsConfig   `yaml:"prefs"`
	Core    CoreConfig    `yaml:"config"`
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig mirrors pkg/logger.Config so the file/env layer can populate it.
type LoggingConfig struct {
	Level      string `yaml:"level" env:"LOG_LEVEL"`
	Format     string `yaml:"format" env:"LOG_FORMAT"`
	Output     string `yaml:"output" env:"LOG_OUTPUT"`
	FilePrefix string `yaml:"file_prefix" env:"LOG_FILE_PREFIX"`
}

// Defaults returns a Config populated with the defaults spec.md names
// throughout §3/§4 (e.g. Ctgcy 0.25, max_length 80 is applied at the schema
// layer, not here).
func Defaults() *Config {
	return &Config{
		State: StateConfig{
			SchemaVersion:  "1.0.0",
			SchemaCacheDir: ".ontocore/schema-cache",
		},
		Prefs: PrefsConfig{
			Units:            map[string]string{},
			NumericFormat:    NumericThousandsCommas,
			NumericPrecision: 2,
		},
		Core: CoreConfig{
			HomeDir:   ".ontocore/home",
			BackupDir: ".ontocore/backup",
		},
		Logging: LoggingConfig{Level: "info", Format: "text", Output: "stdout"},
	}
}

// Load reads an optional YAML file, then an optional .env file, then process
// environment variables, each layer overriding the previous one's fields when
// the corresponding tag is present and set.
func Load(yamlPath, envPath string) (*Config, error) {
	cfg := Defaults()

	if yamlPath != "" {
		data, err := os.ReadFile(yamlPath)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", yamlPath, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", yamlPath, err)
		}
	}

	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("load env file %s: %w", envPath, err)
		}
	}

	if err := envdecode.Decode(cfg); err != nil {
		// envdecode errors when none of the tagged fields have a matching
		// environment variable set; treat that as "no overrides".
		if !strings.Contains(err.Error(), "none of the target fields were set") {
			return nil, fmt.Errorf("decode environment: %w", err)
		}
	}

	return cfg, nil
}

// ParseNumericPrecision accepts either an integer string or an empty string
// (meaning "use the configured default"); it never returns an error, mapping
// anything unparsable to the provided default, consistent with the
// parametric engine's policy of never raising on malformed display hints.
func ParseNumericPrecision(raw string, fallback int) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
