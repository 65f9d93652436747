package app

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/sitecfg"
	"github.com/agentstation/sitecfg/internal/store"
	"github.com/agentstation/sitecfg/pkg/constants"
	"github.com/agentstation/sitecfg/pkg/errors"
)

// Config holds the application configuration loaded from various sources
// including config files, environment variables, and .env files.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Format  string

	// Config file
	ConfigFile string

	// Platform
	Platform    string
	InstallBase string

	// Store
	StoreDriver  string
	StorePath    string
	HistoryLimit int
	LockFile     string
	storePathSet bool

	// Reconciliation
	Timeout       time.Duration
	WatchDebounce time.Duration

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string
}

// LoadConfig loads configuration from all sources in order of precedence:
// 1. Command-line flags (handled by cobra)
// 2. Environment variables (SITECFG_ prefix)
// 3. .env files
// 4. Config file (configFile, or ~/.sitecfg.yaml / ./.sitecfg.yaml)
// 5. Defaults
func LoadConfig(configFile string) (*Config, error) {
	// Load .env files first (before Viper env binding)
	loadEnvFiles()

	v := viper.New()
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if configFile == "" {
		configFile = os.Getenv(constants.EnvPrefix + "_CONFIG")
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		// Search for config in standard locations
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(constants.DefaultConfigName)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !stderrors.As(err, &notFound) {
			return nil, errors.NewConfigError("config", "failed to read config file", err)
		}
	}

	config := &Config{
		Format:     v.GetString("format"),
		ConfigFile: v.ConfigFileUsed(),

		Platform:    v.GetString("platform"),
		InstallBase: v.GetString("install_base"),

		StoreDriver:  v.GetString("store.driver"),
		StorePath:    v.GetString("store.path"),
		HistoryLimit: v.GetInt("history_limit"),
		LockFile:     v.GetString("lock_file"),
		storePathSet: v.IsSet("store.path"),

		Timeout:       v.GetDuration("timeout"),
		WatchDebounce: v.GetDuration("watch.debounce"),

		LogLevel:  firstNonEmpty(v.GetString("log_level"), os.Getenv("LOG_LEVEL")),
		LogFormat: firstNonEmpty(v.GetString("log_format"), getEnvOrDefault("LOG_FORMAT", "auto")),
		LogOutput: firstNonEmpty(v.GetString("log_output"), getEnvOrDefault("LOG_OUTPUT", "stderr")),
	}

	// Default store path depends on the driver
	if config.StorePath == "" {
		config.StorePath = defaultStorePath(store.Driver(config.StoreDriver))
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.driver", string(store.DriverYAML))
	v.SetDefault("history_limit", constants.DefaultHistoryLimit)
	v.SetDefault("timeout", constants.ReconcileTimeout)
	v.SetDefault("watch.debounce", constants.WatchDebounce)
	v.SetDefault("platform", constants.PlatformFile)
}

func defaultStorePath(driver store.Driver) string {
	dir := constants.DefaultStoreDir
	if home, err := os.UserHomeDir(); err == nil {
		dir = filepath.Join(home, constants.DefaultStoreDir)
	}
	if driver == store.DriverSQLite {
		return filepath.Join(dir, "sitecfg.db")
	}
	return dir
}

// UpdateFromFlags updates config values from parsed command flags.
// This should be called after cobra parses flags to ensure flag
// values take precedence over config file and env vars.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, format, logLevel string) {
	c.Verbose = verbose
	c.Quiet = quiet
	c.NoColor = noColor
	if format != "" {
		c.Format = format
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
}

// ClientOptions translates the configuration into client options.
func (c *Config) ClientOptions() ([]sitecfg.Option, error) {
	if c.Platform == "" {
		return nil, errors.NewConfigError("platform", "a platform description is required (--platform or SITECFG_PLATFORM)", nil)
	}

	driver := store.Driver(c.StoreDriver)
	switch driver {
	case store.DriverYAML, store.DriverSQLite, store.DriverMemory:
	default:
		return nil, errors.NewValidationError("store.driver", c.StoreDriver, "must be one of yaml, sqlite, memory")
	}

	opts := []sitecfg.Option{
		sitecfg.WithPlatformFile(c.Platform),
		sitecfg.WithStoreDriver(driver, c.StorePath),
		sitecfg.WithTimeout(c.Timeout),
	}
	if c.InstallBase != "" {
		opts = append(opts, sitecfg.WithInstallBase(c.InstallBase))
	}
	if c.HistoryLimit > 0 {
		opts = append(opts, sitecfg.WithHistoryLimit(c.HistoryLimit))
	}
	if c.LockFile != "" {
		opts = append(opts, sitecfg.WithLockFile(c.LockFile))
	}
	if c.WatchDebounce > 0 {
		opts = append(opts, sitecfg.WithWatchDebounce(c.WatchDebounce))
	}
	return opts, nil
}

// loadEnvFiles loads environment variables from .env files.
func loadEnvFiles() {
	// .env.local overrides .env
	envFiles := []string{
		".env",
		".env.local",
	}

	for _, envFile := range envFiles {
		_ = godotenv.Load(envFile)
	}
}

// getEnvOrDefault returns the environment variable value or the default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
