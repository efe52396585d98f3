package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/lambentLogic/spectrum/schema"
)

// Default values for configuration.
const (
	DefaultPercent     = 50
	DefaultBatchSize   = 1
	DefaultPrecision   = 6
	DefaultResultLimit = 25
	MaxResultLimit     = 1000
	DefaultOutDir      = "model_snr_results"
)

// CacheVersion invalidates cached reports when the scoring pipeline changes.
const CacheVersion = 1

// DefaultWorkers is the default number of concurrent workers to use.
var DefaultWorkers = runtime.GOMAXPROCS(0)

// ProfileConfig holds profiling settings.
type ProfileConfig struct {
	Enabled bool
	Prefix  string
}

// ProcessProfilingConfig handles the profiling flag and sets up profiling configuration.
func ProcessProfilingConfig(profile *ProfileConfig, profilePrefix string) error {
	if profilePrefix != "" {
		profile.Enabled = true
		profile.Prefix = profilePrefix
	}
	return nil
}

// Config holds the runtime configuration for the analysis.
// This struct remains the "final, validated" config.
type Config struct {
	ModelPath  string // Path to a safetensors model directory or file
	ReportPath string // Path to an existing SNR report (selection-only runs)

	Percent   int      // Signed selection percentage (>= 0 top, < 0 bottom)
	Types     []string // Structural weight types to scan (empty means all weight types)
	Workers   int      // Worker pool size for scoring
	BatchSize int      // Progress reporting granularity, not a parallelism unit

	OutDir      string
	Output      schema.OutputMode
	OutputFile  string
	Precision   int
	ResultLimit int
	Width       int // Terminal width override (0 = auto-detect)

	CacheBackend   schema.CacheBackend
	CacheDBConnect string // Please use env var as this is plaintext

	RunBackend   schema.CacheBackend
	RunDBConnect string // Please use env var as this is plaintext

	UseColors bool // Enable colored labels in output
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// These are set manually from positional args, so no tag
	ModelPathStr  string
	ReportPathStr string

	Percent        int    `mapstructure:"percent"`
	Types          string `mapstructure:"types"`
	Workers        int    `mapstructure:"workers"`
	BatchSize      int    `mapstructure:"batch-size"`
	OutDir         string `mapstructure:"out-dir"`
	Output         string `mapstructure:"output"`
	OutputFile     string `mapstructure:"output-file"`
	Precision      int    `mapstructure:"precision"`
	Limit          int    `mapstructure:"limit"`
	Width          int    `mapstructure:"width"`
	CacheBackend   string `mapstructure:"cache-backend"`
	CacheDBConnect string `mapstructure:"cache-db-connect"`
	RunBackend     string `mapstructure:"run-backend"`
	RunDBConnect   string `mapstructure:"run-db-connect"`
	Color          string `mapstructure:"color"`
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	if c.Types != nil {
		clone.Types = make([]string, len(c.Types))
		copy(clone.Types, c.Types)
	}
	return &clone
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := validateBackendConfigs(cfg, input); err != nil {
		return err
	}
	return resolveModelPath(cfg, input)
}

// validateSimpleInputs handles the scalar fields that need only range checks.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.Percent = input.Percent
	if cfg.Percent < -100 || cfg.Percent > 100 {
		// Magnitudes beyond 100 are tolerated by the selection engine, but
		// at the CLI boundary they are almost always a typo.
		return fmt.Errorf("percent %d is outside [-100, 100]", cfg.Percent)
	}

	cfg.Workers = input.Workers
	if cfg.Workers < 1 {
		cfg.Workers = DefaultWorkers
	}

	cfg.BatchSize = input.BatchSize
	if cfg.BatchSize < 1 {
		cfg.BatchSize = DefaultBatchSize
	}

	cfg.Precision = input.Precision
	if cfg.Precision < 0 || cfg.Precision > 17 {
		return fmt.Errorf("precision %d is outside [0, 17]", cfg.Precision)
	}

	cfg.ResultLimit = input.Limit
	if cfg.ResultLimit < 1 || cfg.ResultLimit > MaxResultLimit {
		return fmt.Errorf("limit %d is outside [1, %d]", cfg.ResultLimit, MaxResultLimit)
	}

	cfg.Width = input.Width

	cfg.OutDir = input.OutDir
	if cfg.OutDir == "" {
		cfg.OutDir = DefaultOutDir
	}
	cfg.OutputFile = input.OutputFile

	switch out := schema.OutputMode(strings.ToLower(input.Output)); out {
	case schema.TextOut, schema.CSVOut, schema.JSONOut, schema.ParquetOut:
		cfg.Output = out
	default:
		return fmt.Errorf("invalid output '%s'. must be text, csv, json, parquet", input.Output)
	}

	cfg.Types = SplitTypes(input.Types)
	cfg.UseColors = parseBoolFlag(input.Color, true)
	return nil
}

// SplitTypes splits a comma-separated --types value into clean entries.
func SplitTypes(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	types := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			types = append(types, t)
		}
	}
	return types
}

// parseBoolFlag interprets yes/no style flag values.
func parseBoolFlag(raw string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "yes", "true", "1", "on":
		return true
	case "no", "false", "0", "off":
		return false
	default:
		return fallback
	}
}

// validateBackendConfigs validates cache and run-store backend configurations.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	cfg.CacheBackend = schema.CacheBackend(strings.ToLower(input.CacheBackend))
	if !validCacheBackend(cfg.CacheBackend) {
		return fmt.Errorf("invalid cache backend '%s'. must be sqlite, mysql, postgresql, none", input.CacheBackend)
	}
	cfg.CacheDBConnect = input.CacheDBConnect
	if err := ValidateDatabaseConnectionString(cfg.CacheBackend, cfg.CacheDBConnect); err != nil {
		return err
	}

	cfg.RunBackend = schema.CacheBackend(strings.ToLower(input.RunBackend))
	if cfg.RunBackend != "" {
		if !validCacheBackend(cfg.RunBackend) {
			return fmt.Errorf("invalid run backend '%s'. must be sqlite, mysql, postgresql, none", input.RunBackend)
		}
		cfg.RunDBConnect = input.RunDBConnect
		if err := ValidateDatabaseConnectionString(cfg.RunBackend, cfg.RunDBConnect); err != nil {
			return err
		}
		if cfg.RunDBConnect != "" && cfg.RunDBConnect == cfg.CacheDBConnect {
			return fmt.Errorf("run-db-connect must differ from cache-db-connect")
		}
	}
	return nil
}

func validCacheBackend(b schema.CacheBackend) bool {
	switch b {
	case schema.SQLiteBackend, schema.MySQLBackend, schema.PostgreSQLBackend, schema.NoneBackend:
		return true
	}
	return false
}

// ValidateDatabaseConnectionString validates the format of database connection
// strings for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.CacheBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("cache-db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("cache-db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// resolveModelPath validates the positional model path for scan-style commands.
// Selection-only commands pass a report path instead; both may be empty for
// commands that touch neither (cache/runs management).
func resolveModelPath(cfg *Config, input *ConfigRawInput) error {
	cfg.ReportPath = input.ReportPathStr
	cfg.ModelPath = input.ModelPathStr
	if cfg.ModelPath == "" {
		return nil
	}

	abs, err := filepath.Abs(cfg.ModelPath)
	if err != nil {
		return fmt.Errorf("cannot resolve model path %q: %w", cfg.ModelPath, err)
	}
	if _, err := os.Stat(abs); err != nil {
		return fmt.Errorf("model path does not exist: %s", abs)
	}
	cfg.ModelPath = abs
	return nil
}
