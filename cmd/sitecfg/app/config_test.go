package app

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/agentstation/sitecfg/pkg/constants"
	"github.com/agentstation/sitecfg/pkg/errors"
)

// TestLoadConfig verifies defaults when no config file exists.
func TestLoadConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	config, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}

	if config.StoreDriver != "yaml" {
		t.Errorf("StoreDriver = %q, want yaml", config.StoreDriver)
	}
	if !strings.HasSuffix(config.StorePath, constants.DefaultStoreDir) {
		t.Errorf("StorePath = %q, want suffix %q", config.StorePath, constants.DefaultStoreDir)
	}
	if config.Platform != constants.PlatformFile {
		t.Errorf("Platform = %q, want %q", config.Platform, constants.PlatformFile)
	}
	if config.HistoryLimit != constants.DefaultHistoryLimit {
		t.Errorf("HistoryLimit = %d, want %d", config.HistoryLimit, constants.DefaultHistoryLimit)
	}
	if config.Timeout != constants.ReconcileTimeout {
		t.Errorf("Timeout = %v, want %v", config.Timeout, constants.ReconcileTimeout)
	}
	if config.LogFormat == "" {
		t.Error("LogFormat not set to default")
	}
}

// TestLoadConfig_File verifies values read from an explicit config file.
func TestLoadConfig_File(t *testing.T) {
	t.Chdir(t.TempDir())
	path := filepath.Join(t.TempDir(), "sitecfg.yaml")
	content := `platform: /opt/app/platform.yaml
install_base: /opt/app
store:
  driver: sqlite
history_limit: 5
timeout: 30s
watch:
  debounce: 2s
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}

	if config.ConfigFile != path {
		t.Errorf("ConfigFile = %q, want %q", config.ConfigFile, path)
	}
	if config.Platform != "/opt/app/platform.yaml" {
		t.Errorf("Platform = %q", config.Platform)
	}
	if config.InstallBase != "/opt/app" {
		t.Errorf("InstallBase = %q", config.InstallBase)
	}
	if config.StoreDriver != "sqlite" {
		t.Errorf("StoreDriver = %q, want sqlite", config.StoreDriver)
	}
	if filepath.Base(config.StorePath) != "sitecfg.db" {
		t.Errorf("StorePath = %q, want sitecfg.db default for sqlite", config.StorePath)
	}
	if config.HistoryLimit != 5 {
		t.Errorf("HistoryLimit = %d, want 5", config.HistoryLimit)
	}
	if config.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", config.Timeout)
	}
	if config.WatchDebounce != 2*time.Second {
		t.Errorf("WatchDebounce = %v, want 2s", config.WatchDebounce)
	}
}

// TestLoadConfig_MissingExplicitFile verifies an explicit config path must exist.
func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("LoadConfig() should fail for a missing explicit file")
	}
	var configErr *errors.ConfigError
	if !stderrors.As(err, &configErr) {
		t.Errorf("error = %T, want *errors.ConfigError", err)
	}
}

// TestConfig_EnvironmentVariables verifies SITECFG_ overrides.
func TestConfig_EnvironmentVariables(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
	t.Setenv("SITECFG_PLATFORM", "/srv/platform.yaml")
	t.Setenv("SITECFG_STORE_DRIVER", "memory")
	t.Setenv("SITECFG_HISTORY_LIMIT", "7")
	t.Setenv("LOG_LEVEL", "debug")

	config, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}

	if config.Platform != "/srv/platform.yaml" {
		t.Errorf("Platform = %q", config.Platform)
	}
	if config.StoreDriver != "memory" {
		t.Errorf("StoreDriver = %q, want memory", config.StoreDriver)
	}
	if config.HistoryLimit != 7 {
		t.Errorf("HistoryLimit = %d, want 7", config.HistoryLimit)
	}
	if config.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", config.LogLevel)
	}
}

// TestConfig_UpdateFromFlags verifies flags override loaded values.
func TestConfig_UpdateFromFlags(t *testing.T) {
	config := &Config{Format: "yaml", LogLevel: "warn"}

	config.UpdateFromFlags(true, false, true, "", "")
	if !config.Verbose || !config.NoColor {
		t.Error("boolean flags not applied")
	}
	if config.Format != "yaml" || config.LogLevel != "warn" {
		t.Error("empty flag values should keep loaded values")
	}

	config.UpdateFromFlags(false, true, false, "json", "error")
	if config.Format != "json" {
		t.Errorf("Format = %q, want json", config.Format)
	}
	if config.LogLevel != "error" {
		t.Errorf("LogLevel = %q, want error", config.LogLevel)
	}
}

// TestConfig_ClientOptions verifies validation of client settings.
func TestConfig_ClientOptions(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
		count   int
	}{
		{
			name:    "missing platform",
			config:  Config{StoreDriver: "yaml"},
			wantErr: true,
		},
		{
			name:    "unknown driver",
			config:  Config{Platform: "platform.yaml", StoreDriver: "postgres"},
			wantErr: true,
		},
		{
			name:   "minimal",
			config: Config{Platform: "platform.yaml", StoreDriver: "yaml", StorePath: "/tmp/s"},
			count:  3,
		},
		{
			name: "everything",
			config: Config{
				Platform:      "platform.yaml",
				InstallBase:   "/opt/app",
				StoreDriver:   "sqlite",
				StorePath:     "/tmp/s.db",
				HistoryLimit:  3,
				LockFile:      "/tmp/s.lock",
				WatchDebounce: time.Second,
			},
			count: 7,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := tt.config.ClientOptions()
			if tt.wantErr {
				if err == nil {
					t.Fatal("ClientOptions() should fail")
				}
				return
			}
			if err != nil {
				t.Fatalf("ClientOptions() failed: %v", err)
			}
			if len(opts) != tt.count {
				t.Errorf("len(opts) = %d, want %d", len(opts), tt.count)
			}
		})
	}
}
