package sitecfg

import (
	"os"
	"path/filepath"
	"time"

	"github.com/agentstation/sitecfg/internal/store"
	"github.com/agentstation/sitecfg/pkg/constants"
	"github.com/agentstation/sitecfg/pkg/errors"
	"github.com/agentstation/sitecfg/pkg/reconciler"
)

// options holds the client configuration.
type options struct {
	platformFile string
	installBase  string
	concurrency  int
	provider     reconciler.SnapshotProvider

	store        store.Store
	storeDriver  store.Driver
	storePath    string
	historyLimit int

	lockFile string
	noLock   bool

	timeout  time.Duration
	debounce time.Duration
}

// defaults returns options with default values.
func defaults() *options {
	storePath := constants.DefaultStoreDir
	if home, err := os.UserHomeDir(); err == nil {
		storePath = filepath.Join(home, constants.DefaultStoreDir)
	}
	return &options{
		concurrency:  constants.MaxConcurrentSites,
		storeDriver:  store.DriverYAML,
		storePath:    storePath,
		historyLimit: constants.DefaultHistoryLimit,
		timeout:      constants.ReconcileTimeout,
		debounce:     constants.WatchDebounce,
	}
}

// apply applies the given options.
func (o *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// lockPath returns the lock file, next to the store unless overridden.
// An empty path limits exclusion to this process.
func (o *options) lockPath() string {
	switch {
	case o.noLock:
		return ""
	case o.lockFile != "":
		return o.lockFile
	case o.store != nil || o.storeDriver == store.DriverMemory:
		return ""
	case o.storeDriver == store.DriverSQLite:
		return filepath.Join(filepath.Dir(o.storePath), constants.LockFile)
	default:
		return filepath.Join(o.storePath, constants.LockFile)
	}
}

// Option is a function that configures a Client.
type Option func(*options) error

// WithPlatformFile reads sites from the platform description at path.
func WithPlatformFile(path string) Option {
	return func(o *options) error {
		o.platformFile = path
		return nil
	}
}

// WithInstallBase sets the directory platform:/base/ URLs resolve against.
func WithInstallBase(dir string) Option {
	return func(o *options) error {
		o.installBase = dir
		return nil
	}
}

// WithConcurrency bounds how many sites are scanned at once.
func WithConcurrency(n int) Option {
	return func(o *options) error {
		if n <= 0 {
			return &errors.ValidationError{Field: "concurrency", Value: n, Message: "must be positive"}
		}
		o.concurrency = n
		return nil
	}
}

// WithSnapshotProvider discovers sites with provider instead of a platform file.
func WithSnapshotProvider(provider reconciler.SnapshotProvider) Option {
	return func(o *options) error {
		if provider == nil {
			return &errors.ValidationError{Field: "provider", Message: "cannot be nil"}
		}
		o.provider = provider
		return nil
	}
}

// WithStore uses an already opened store. The client closes it on Close.
func WithStore(s store.Store) Option {
	return func(o *options) error {
		if s == nil {
			return &errors.ValidationError{Field: "store", Message: "cannot be nil"}
		}
		o.store = s
		return nil
	}
}

// WithStoreDriver selects the store implementation and where it keeps data.
func WithStoreDriver(driver store.Driver, path string) Option {
	return func(o *options) error {
		o.storeDriver = driver
		o.storePath = path
		return nil
	}
}

// WithHistoryLimit sets how many configurations the store keeps.
func WithHistoryLimit(limit int) Option {
	return func(o *options) error {
		if limit <= 0 {
			return &errors.ValidationError{Field: "historyLimit", Value: limit, Message: "must be positive"}
		}
		o.historyLimit = limit
		return nil
	}
}

// WithLockFile sets the advisory lock file shared with other processes.
func WithLockFile(path string) Option {
	return func(o *options) error {
		o.lockFile = path
		return nil
	}
}

// WithoutFileLock limits reconciliation exclusion to this process.
func WithoutFileLock() Option {
	return func(o *options) error {
		o.noLock = true
		return nil
	}
}

// WithTimeout bounds each reconciliation. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(o *options) error {
		if d < 0 {
			return &errors.ValidationError{Field: "timeout", Value: d, Message: "cannot be negative"}
		}
		o.timeout = d
		return nil
	}
}

// WithWatchDebounce sets how long watch mode waits for changes to settle.
func WithWatchDebounce(d time.Duration) Option {
	return func(o *options) error {
		if d <= 0 {
			return &errors.ValidationError{Field: "debounce", Value: d, Message: "must be positive"}
		}
		o.debounce = d
		return nil
	}
}
