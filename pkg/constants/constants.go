// Package constants provides shared constants used throughout the sitecfg codebase.
// This includes timeouts, limits, file permissions, and default locations
// that should be consistent across the application.
package constants

import "time"

// Timeout constants define various timeout durations used in the application
const (
	// DefaultTimeout is the standard timeout for general operations
	DefaultTimeout = 10 * time.Second

	// ReconcileTimeout bounds one discover, reconcile and persist cycle
	ReconcileTimeout = 2 * time.Minute

	// LockTimeout is how long a caller waits for the configuration lock
	LockTimeout = 30 * time.Second

	// LockPollInterval is how often a blocked caller retries the lock
	LockPollInterval = 100 * time.Millisecond

	// WatchDebounce is how long watch mode waits for changes to settle
	WatchDebounce = 500 * time.Millisecond

	// ShutdownTimeout is the grace period for shutdown after an error or signal
	ShutdownTimeout = 5 * time.Second
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)

// Limit constants define various limits and capacities
const (
	// DefaultHistoryLimit is how many configurations a store keeps
	DefaultHistoryLimit = 50

	// MaxConcurrentSites is the maximum number of sites scanned concurrently
	MaxConcurrentSites = 8
)

// Path constants
const (
	// DefaultConfigName is the config file base name searched in $HOME and ./
	DefaultConfigName = ".sitecfg"

	// DefaultStoreDir is the store directory under the user's home
	DefaultStoreDir = ".sitecfg"

	// PlatformFile is the default platform description file name
	PlatformFile = "platform.yaml"

	// FeaturesDir is the directory holding features inside a site
	FeaturesDir = "features"

	// PluginsDir is the directory holding plugins inside a site
	PluginsDir = "plugins"

	// FeatureManifest is the manifest file inside a feature directory
	FeatureManifest = "feature.yaml"

	// LockFile is the advisory lock file inside the store directory
	LockFile = "sitecfg.lock"
)

// Store drivers
const (
	// StoreDriverYAML keeps configurations as YAML files
	StoreDriverYAML = "yaml"

	// StoreDriverSQLite keeps configurations in a SQLite database
	StoreDriverSQLite = "sqlite"
)

// Environment
const (
	// EnvPrefix is the prefix for environment variable overrides
	EnvPrefix = "SITECFG"
)
