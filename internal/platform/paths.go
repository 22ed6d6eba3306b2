// Package platform resolves where orrery keeps its config file, preference and
// snapshot cache database, and dev logs.
package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// DefaultAppName names the per-user config and data directories.
const DefaultAppName = "orrery"

// Environment variables that pin one path regardless of platform defaults.
const (
	EnvConfigPath = "ORRERY_CONFIG"
	EnvDBPath     = "ORRERY_DB_PATH"
)

// Paths holds the resolved per-user locations orrery reads and writes.
type Paths struct {
	// ConfigPath is the TOML config file; a missing file means defaults.
	ConfigPath string
	DataDir    string
	// DBPath is the sqlite file holding preferences and cached snapshots.
	DBPath string
	LogDir string
}

// Overrides carries explicit path choices from flags.
type Overrides struct {
	ConfigPath string
	DBPath     string
}

// Resolved is Paths after flag and environment overrides.
type Resolved struct {
	Paths
	// DBPinned reports whether the database path came from a flag or the
	// environment, in which case it wins over the config file's [database] path.
	DBPinned bool
}

// Apply layers flag values, then ORRERY_CONFIG/ORRERY_DB_PATH, over p.
func (p Paths) Apply(o Overrides, getenv func(string) string) Resolved {
	if getenv == nil {
		getenv = os.Getenv
	}
	out := Resolved{Paths: p}
	if v := firstSet(o.ConfigPath, getenv(EnvConfigPath)); v != "" {
		out.ConfigPath = v
	}
	if v := firstSet(o.DBPath, getenv(EnvDBPath)); v != "" {
		out.DBPath = v
		out.DBPinned = true
	}
	return out
}

// firstSet returns the first non-blank value, trimmed.
func firstSet(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// Options selects the app directory name and dev-mode isolation.
type Options struct {
	AppName string
	DevMode bool
}

// DefaultPaths resolves paths for the default app name.
func DefaultPaths() (Paths, error) {
	return DefaultPathsWithOptions(Options{AppName: DefaultAppName})
}

// DefaultPathsWithOptions resolves paths from the OS user directories; dev mode
// appends "-dev" so development runs never touch the real snapshot cache.
func DefaultPathsWithOptions(opts Options) (Paths, error) {
	appName := strings.TrimSpace(opts.AppName)
	if appName == "" {
		appName = DefaultAppName
	}
	if opts.DevMode {
		appName += "-dev"
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		return Paths{}, fmt.Errorf("user config dir: %w", err)
	}
	dataDir := configDir
	if runtime.GOOS == "linux" {
		home, homeErr := os.UserHomeDir()
		if homeErr != nil {
			return Paths{}, fmt.Errorf("user home dir: %w", homeErr)
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	if runtime.GOOS == "windows" {
		if v := strings.TrimSpace(os.Getenv("LOCALAPPDATA")); v != "" {
			dataDir = v
		}
	}

	env := map[string]string{
		"XDG_CONFIG_HOME": os.Getenv("XDG_CONFIG_HOME"),
		"XDG_DATA_HOME":   os.Getenv("XDG_DATA_HOME"),
		"APPDATA":         os.Getenv("APPDATA"),
		"LOCALAPPDATA":    os.Getenv("LOCALAPPDATA"),
	}
	return PathsFor(runtime.GOOS, env, configDir, dataDir, appName)
}

// PathsFor resolves paths for goos with explicit env and base dirs. The
// database file is named after the app directory, e.g. "orrery-dev/orrery-dev.db".
func PathsFor(goos string, env map[string]string, userConfigDir, userDataDir, appName string) (Paths, error) {
	if userConfigDir == "" || userDataDir == "" {
		return Paths{}, fmt.Errorf("empty base dirs")
	}
	appName = strings.TrimSpace(appName)
	if appName == "" {
		return Paths{}, fmt.Errorf("empty app name")
	}

	configBase := userConfigDir
	dataBase := userDataDir

	switch goos {
	case "linux":
		if v := env["XDG_CONFIG_HOME"]; v != "" {
			configBase = v
		}
		if v := env["XDG_DATA_HOME"]; v != "" {
			dataBase = v
		}
	case "windows":
		if v := env["APPDATA"]; v != "" {
			configBase = v
		}
		if v := env["LOCALAPPDATA"]; v != "" {
			dataBase = v
		}
	case "darwin":
		// Keep os.UserConfigDir/UserCacheDir defaults for macOS.
	default:
		// Fallback for other platforms.
	}

	appConfigDir := filepath.Join(configBase, appName)
	appDataDir := filepath.Join(dataBase, appName)
	dbName := appName + ".db"
	return Paths{
		ConfigPath: filepath.Join(appConfigDir, "config.toml"),
		DataDir:    appDataDir,
		DBPath:     filepath.Join(appDataDir, dbName),
		LogDir:     filepath.Join(appDataDir, "log"),
	}, nil
}
