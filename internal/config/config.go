package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

type Config struct {
	Database    DatabaseConfig    `toml:"database"`
	Logging     LoggingConfig     `toml:"logging"`
	PCC         PCCConfig         `toml:"pcc"`
	View        ViewConfig        `toml:"view"`
	Interaction InteractionConfig `toml:"interaction"`
	Orbital     OrbitalConfig     `toml:"orbital"`
	Serve       ServeConfig       `toml:"serve"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
	// SnapshotRetention is how many cached snapshots are kept.
	SnapshotRetention int `toml:"snapshot_retention"`
}

type LoggingConfig struct {
	Level   string        `toml:"level"` // debug | info | warn | error
	DevFile DevFileConfig `toml:"dev_file"`
}

type DevFileConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

type PCCConfig struct {
	BaseURL      string `toml:"base_url"`
	Timeout      string `toml:"timeout"`
	PollInterval string `toml:"poll_interval"`
	// Concurrency bounds per-project fetches during one poll.
	Concurrency int `toml:"concurrency"`
}

type ViewConfig struct {
	Strategy        string `toml:"strategy"`
	FPS             int    `toml:"fps"`
	Background      string `toml:"background"`
	WorkOrderFilter string `toml:"work_order_filter"` // active | all
	CellWidth       int    `toml:"cell_width"`
	CellHeight      int    `toml:"cell_height"`
}

type InteractionConfig struct {
	DragThreshold float64 `toml:"drag_threshold"`
	ZoomFactor    float64 `toml:"zoom_factor"`
	MinScale      float64 `toml:"min_scale"`
	MaxScale      float64 `toml:"max_scale"`
}

type OrbitalConfig struct {
	FocusDuration string `toml:"focus_duration"`
	FocusFade     string `toml:"focus_fade"`
}

type ServeConfig struct {
	HTTPBind    string `toml:"http_bind"`
	APIEndpoint string `toml:"api_endpoint"`
	MCPEndpoint string `toml:"mcp_endpoint"`
}

func Default(dbPath string) Config {
	return Config{
		Database: DatabaseConfig{
			Path:              dbPath,
			SnapshotRetention: 20,
		},
		Logging: LoggingConfig{
			Level: "info",
			DevFile: DevFileConfig{
				Enabled: true,
				Dir:     ".orrery/log",
			},
		},
		PCC: PCCConfig{
			BaseURL:      "http://127.0.0.1:4010",
			Timeout:      "5s",
			PollInterval: "5s",
			Concurrency:  4,
		},
		View: ViewConfig{
			Strategy:        "orbital",
			FPS:             30,
			Background:      "#0b0f17",
			WorkOrderFilter: "active",
			CellWidth:       8,
			CellHeight:      16,
		},
		Interaction: InteractionConfig{
			DragThreshold: 4,
			ZoomFactor:    1.15,
			MinScale:      0.25,
			MaxScale:      4,
		},
		Orbital: OrbitalConfig{
			FocusDuration: "7s",
			FocusFade:     "1.8s",
		},
		Serve: ServeConfig{
			HTTPBind:    "127.0.0.1:5437",
			APIEndpoint: "/api/v1",
			MCPEndpoint: "/mcp",
		},
	}
}

func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return cfg, nil
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return errors.New("database path is required")
	}
	if c.Database.SnapshotRetention < 1 {
		return errors.New("database.snapshot_retention must be >= 1")
	}

	switch strings.TrimSpace(strings.ToLower(c.Logging.Level)) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}

	base, err := url.Parse(strings.TrimSpace(c.PCC.BaseURL))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return fmt.Errorf("invalid pcc.base_url: %q", c.PCC.BaseURL)
	}
	if _, err := positiveDuration("pcc.timeout", c.PCC.Timeout); err != nil {
		return err
	}
	if _, err := positiveDuration("pcc.poll_interval", c.PCC.PollInterval); err != nil {
		return err
	}
	if c.PCC.Concurrency < 1 {
		return errors.New("pcc.concurrency must be >= 1")
	}

	if strings.TrimSpace(c.View.Strategy) == "" {
		return errors.New("view.strategy is required")
	}
	if c.View.FPS < 1 || c.View.FPS > 120 {
		return fmt.Errorf("view.fps must be within [1,120]: %d", c.View.FPS)
	}
	switch strings.TrimSpace(strings.ToLower(c.View.WorkOrderFilter)) {
	case "", "active", "all":
	default:
		return fmt.Errorf("invalid view.work_order_filter: %q", c.View.WorkOrderFilter)
	}
	if c.View.CellWidth < 1 || c.View.CellHeight < 1 {
		return errors.New("view.cell_width and view.cell_height must be >= 1")
	}

	if c.Interaction.DragThreshold < 0 {
		return errors.New("interaction.drag_threshold must be >= 0")
	}
	if c.Interaction.ZoomFactor <= 1 {
		return errors.New("interaction.zoom_factor must be > 1")
	}
	if c.Interaction.MinScale <= 0 || c.Interaction.MaxScale < c.Interaction.MinScale {
		return errors.New("interaction.min_scale must be > 0 and <= interaction.max_scale")
	}

	focus, err := positiveDuration("orbital.focus_duration", c.Orbital.FocusDuration)
	if err != nil {
		return err
	}
	fade, err := positiveDuration("orbital.focus_fade", c.Orbital.FocusFade)
	if err != nil {
		return err
	}
	if fade > focus {
		return errors.New("orbital.focus_fade must not exceed orbital.focus_duration")
	}

	if strings.TrimSpace(c.Serve.HTTPBind) == "" {
		return errors.New("serve.http_bind is required")
	}
	for name, endpoint := range map[string]string{"serve.api_endpoint": c.Serve.APIEndpoint, "serve.mcp_endpoint": c.Serve.MCPEndpoint} {
		if !strings.HasPrefix(strings.TrimSpace(endpoint), "/") {
			return fmt.Errorf("%s must start with /: %q", name, endpoint)
		}
	}
	return nil
}

// Durations returns the parsed duration fields; callers validate first.
func (c PCCConfig) Durations() (timeout, poll time.Duration) {
	timeout, _ = time.ParseDuration(strings.TrimSpace(c.Timeout))
	poll, _ = time.ParseDuration(strings.TrimSpace(c.PollInterval))
	return timeout, poll
}

// Durations returns the parsed focus timing; callers validate first.
func (c OrbitalConfig) Durations() (focus, fade time.Duration) {
	focus, _ = time.ParseDuration(strings.TrimSpace(c.FocusDuration))
	fade, _ = time.ParseDuration(strings.TrimSpace(c.FocusFade))
	return focus, fade
}

func positiveDuration(field, raw string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", field, raw)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be > 0: %q", field, raw)
	}
	return d, nil
}

func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
