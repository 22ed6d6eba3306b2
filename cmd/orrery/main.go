package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/fang"
	charmLog "github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/hylla/orrery/internal/adapters/fixture"
	"github.com/hylla/orrery/internal/adapters/pcc"
	"github.com/hylla/orrery/internal/adapters/server"
	servercommon "github.com/hylla/orrery/internal/adapters/server/common"
	"github.com/hylla/orrery/internal/adapters/storage/sqlite"
	"github.com/hylla/orrery/internal/app"
	"github.com/hylla/orrery/internal/canvas"
	"github.com/hylla/orrery/internal/config"
	"github.com/hylla/orrery/internal/domain"
	"github.com/hylla/orrery/internal/interact"
	"github.com/hylla/orrery/internal/platform"
	"github.com/hylla/orrery/internal/tui"
	"github.com/hylla/orrery/internal/viz/catalog"
	"github.com/hylla/orrery/internal/viz/orbital"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// version stores a package-level helper value.
var version = "dev"

// program represents program data used by this package.
type program interface {
	Run() (tea.Model, error)
}

// programFactory stores a package-level helper value.
var programFactory = func(m tea.Model) program {
	return tea.NewProgram(m)
}

// serveCommandRunner starts the HTTP+MCP serve flow.
var serveCommandRunner = func(ctx context.Context, cfg server.Config, deps server.Dependencies) error {
	return server.Run(ctx, cfg, deps)
}

// main handles main.
func main() {
	root := newRootCommand(os.Stdout, os.Stderr)
	if err := fang.Execute(
		context.Background(),
		root,
		fang.WithVersion(version),
		fang.WithNotifySignal(os.Interrupt, syscall.SIGTERM),
	); err != nil {
		os.Exit(1)
	}
}

// run executes one command line against the given writers.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	root := newRootCommand(stdout, stderr)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	configPath  string
	dbPath      string
	appName     string
	fixturePath string
	devMode     bool
}

// newRootCommand builds the command tree. The root command runs the TUI.
func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{appName: platform.DefaultAppName}
	defaultDevMode := version == "dev"
	if envDev, ok := parseBoolEnv("ORRERY_DEV_MODE"); ok {
		defaultDevMode = envDev
	}
	if envApp := strings.TrimSpace(os.Getenv("ORRERY_APP_NAME")); envApp != "" {
		opts.appName = envApp
	}

	root := &cobra.Command{
		Use:           "orrery",
		Short:         "Watch AI work orders orbit by how much attention they need",
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context(), opts, stderr)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to config TOML")
	flags.StringVar(&opts.dbPath, "db", "", "path to sqlite database")
	flags.StringVar(&opts.appName, "app", opts.appName, "application name for config/data path resolution")
	flags.BoolVar(&opts.devMode, "dev", defaultDevMode, "use dev mode paths (<app>-dev)")
	flags.StringVar(&opts.fixturePath, "fixture", strings.TrimSpace(os.Getenv("ORRERY_FIXTURE")), "read snapshots from a JSON/YAML fixture instead of PCC")

	root.AddCommand(
		newServeCommand(opts, stderr),
		newSnapshotCommand(opts, stdout, stderr),
		newPathsCommand(opts, stdout),
	)
	return root
}

// newPathsCommand prints resolved runtime paths.
func newPathsCommand(opts *rootOptions, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print resolved config, data, and log paths",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			paths, err := platform.DefaultPathsWithOptions(platform.Options{
				AppName: opts.appName,
				DevMode: opts.devMode,
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(stdout, "app: %s\n", opts.appName)
			_, _ = fmt.Fprintf(stdout, "dev_mode: %t\n", opts.devMode)
			_, _ = fmt.Fprintf(stdout, "config: %s\n", paths.ConfigPath)
			_, _ = fmt.Fprintf(stdout, "data_dir: %s\n", paths.DataDir)
			_, _ = fmt.Fprintf(stdout, "db: %s\n", paths.DBPath)
			_, _ = fmt.Fprintf(stdout, "log_dir: %s\n", paths.LogDir)
			return nil
		},
	}
}

// serveOptions holds serve flag overrides; empty values keep the config.
type serveOptions struct {
	httpBind    string
	apiEndpoint string
	mcpEndpoint string
}

// newServeCommand runs the poller behind the HTTP API and MCP endpoints.
func newServeCommand(opts *rootOptions, stderr io.Writer) *cobra.Command {
	var serve serveOptions
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve snapshots over HTTP and MCP while polling the source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts, serve, stderr)
		},
	}
	cmd.Flags().StringVar(&serve.httpBind, "http", "", "HTTP listen address (default from config)")
	cmd.Flags().StringVar(&serve.apiEndpoint, "api-endpoint", "", "HTTP API base endpoint (default from config)")
	cmd.Flags().StringVar(&serve.mcpEndpoint, "mcp-endpoint", "", "MCP streamable HTTP endpoint (default from config)")
	return cmd
}

// snapshotOptions holds snapshot command flags.
type snapshotOptions struct {
	format   string
	outPath  string
	refresh  bool
	dataOnly bool
	list     bool
	limit    int
}

// newSnapshotCommand prints the current normalized snapshot or lists the cache.
func newSnapshotCommand(opts *rootOptions, stdout, stderr io.Writer) *cobra.Command {
	var snap snapshotOptions
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Print the current normalized snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSnapshot(cmd.Context(), opts, snap, stdout, stderr)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&snap.format, "format", "json", "output format: json or yaml")
	flags.StringVar(&snap.outPath, "out", "-", "output file path ('-' for stdout)")
	flags.BoolVar(&snap.refresh, "refresh", false, "poll the source instead of reading the cache")
	flags.BoolVar(&snap.dataOnly, "data", false, "print only the visualization data, usable as a --fixture")
	flags.BoolVar(&snap.list, "list", false, "list cached snapshots instead of printing one")
	flags.IntVar(&snap.limit, "limit", 20, "maximum cached snapshots listed by --list")
	return cmd
}

// session is the shared runtime every data-backed command opens.
type session struct {
	command    string
	configPath string
	cfg        config.Config
	logger     *runtimeLogger
	repo       *sqlite.Repository
	svc        *app.Service
	stderr     io.Writer
}

// openSession resolves paths and config, then opens logging, storage, and the service.
func openSession(opts *rootOptions, command string, stderr io.Writer) (*session, error) {
	paths, err := platform.DefaultPathsWithOptions(platform.Options{
		AppName: opts.appName,
		DevMode: opts.devMode,
	})
	if err != nil {
		return nil, err
	}

	resolved := paths.Apply(platform.Overrides{ConfigPath: opts.configPath, DBPath: opts.dbPath}, os.Getenv)
	configPath, dbPath, dbOverridden := resolved.ConfigPath, resolved.DBPath, resolved.DBPinned

	cfg, err := config.Load(configPath, config.Default(dbPath))
	if err != nil {
		return nil, fmt.Errorf("load config %q: %w", configPath, err)
	}
	if dbOverridden {
		cfg.Database.Path = dbPath
	}

	logger, err := newRuntimeLogger(stderr, opts.appName, opts.devMode, cfg.Logging, time.Now)
	if err != nil {
		return nil, fmt.Errorf("configure runtime logger: %w", err)
	}
	if command == "tui" {
		// The TUI owns the terminal; runtime logs go to the dev-file sink only.
		logger.SetConsoleEnabled(false)
	}
	s := &session{
		command:    command,
		configPath: configPath,
		cfg:        cfg,
		logger:     logger,
		stderr:     stderr,
	}

	logger.Info("startup configuration resolved", "app", opts.appName, "dev_mode", opts.devMode, "command", command)
	logger.Debug("runtime paths resolved", "config_path", configPath, "data_dir", paths.DataDir, "db_path", dbPath)
	logger.Info("configuration loaded", "config_path", configPath, "db_path", cfg.Database.Path, "log_level", cfg.Logging.Level)
	if devPath := logger.DevLogPath(); devPath != "" {
		logger.Info("dev file logging enabled", "path", devPath)
	}

	logger.Info("opening sqlite repository", "db_path", cfg.Database.Path)
	repo, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Error("sqlite open failed", "db_path", cfg.Database.Path, "err", err)
		s.Close()
		return nil, fmt.Errorf("open sqlite repository: %w", err)
	}
	s.repo = repo
	logger.Info("sqlite repository ready", "db_path", cfg.Database.Path, "migrations", "ensured")

	source, sourceName, err := newSnapshotSource(opts, cfg, logger.Library())
	if err != nil {
		s.Close()
		return nil, err
	}
	filter, err := domain.ParseWorkOrderFilter(cfg.View.WorkOrderFilter)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("view.work_order_filter: %w", err)
	}
	s.svc = app.NewService(repo, source, uuid.NewString, time.Now, app.ServiceConfig{
		SourceName:        sourceName,
		SnapshotRetention: cfg.Database.SnapshotRetention,
		DefaultStrategy:   cfg.View.Strategy,
		DefaultFilter:     filter,
	}, app.WithLogger(logger.Library()))
	logger.Debug("application service initialized", "source", sourceName, "default_strategy", cfg.View.Strategy)
	return s, nil
}

// Close releases storage and log sinks.
func (s *session) Close() {
	if s == nil {
		return
	}
	if s.repo != nil {
		if err := s.repo.Close(); err != nil {
			s.logger.Warn("sqlite close failed", "db_path", s.cfg.Database.Path, "err", err)
		}
	}
	if err := s.logger.Close(); err != nil && s.logger.shouldLogToSink(s.logger.consoleSink) {
		_, _ = fmt.Fprintf(s.stderr, "warning: close runtime log sink: %v\n", err)
	}
}

// newSnapshotSource picks the fixture file when one is given, otherwise the PCC client.
func newSnapshotSource(opts *rootOptions, cfg config.Config, logger *charmLog.Logger) (app.SnapshotSource, string, error) {
	if path := strings.TrimSpace(opts.fixturePath); path != "" {
		logger.Info("using fixture snapshot source", "path", path)
		return fixture.NewSource(path, time.Now), "fixture", nil
	}
	timeout, _ := cfg.PCC.Durations()
	client, err := pcc.New(
		cfg.PCC.BaseURL,
		timeout,
		pcc.WithConcurrency(cfg.PCC.Concurrency),
		pcc.WithLogger(logger),
	)
	if err != nil {
		return nil, "", fmt.Errorf("configure pcc client: %w", err)
	}
	logger.Info("using pcc snapshot source", "base_url", client.BaseURL())
	return client, "pcc", nil
}

// runTUI runs the interactive visualization.
func runTUI(ctx context.Context, opts *rootOptions, stderr io.Writer) error {
	s, err := openSession(opts, "tui", stderr)
	if err != nil {
		return err
	}
	defer s.Close()

	s.logger.Info("command flow start", "command", "tui")
	m := tui.NewModel(s.svc, catalog.Default(orbitalConfig(s.cfg)), tuiOptions(s.cfg, s.logger.Library())...)
	s.logger.Info("starting tui program loop")
	if _, err := programFactory(m).Run(); err != nil {
		s.logger.Error("tui program terminated with error", "err", err)
		return fmt.Errorf("run tui program: %w", err)
	}
	if err := ctx.Err(); err != nil {
		s.logger.Info("tui program interrupted", "err", err)
	}
	s.logger.Info("command flow complete", "command", "tui")
	return nil
}

// orbitalConfig maps configured focus timing into the orbital strategies.
func orbitalConfig(cfg config.Config) orbital.Config {
	focus, fade := cfg.Orbital.Durations()
	return orbital.Config{FocusDuration: focus, FocusFade: fade}
}

// tuiOptions maps persisted config values into model options.
func tuiOptions(cfg config.Config, logger *charmLog.Logger) []tui.Option {
	_, poll := cfg.PCC.Durations()
	opts := []tui.Option{
		tui.WithFPS(cfg.View.FPS),
		tui.WithPollInterval(poll),
		tui.WithCellMetrics(canvas.Metrics{
			CellWidth:  float64(cfg.View.CellWidth),
			CellHeight: float64(cfg.View.CellHeight),
		}),
		tui.WithInteraction(interact.Config{
			DragThreshold: cfg.Interaction.DragThreshold,
			ZoomFactor:    cfg.Interaction.ZoomFactor,
			MinScale:      cfg.Interaction.MinScale,
			MaxScale:      cfg.Interaction.MaxScale,
		}),
		tui.WithLogger(logger),
	}
	if bg := strings.TrimSpace(cfg.View.Background); bg != "" {
		opts = append(opts, tui.WithBackground(lipgloss.Color(bg)))
	}
	return opts
}

// runServe polls the source in the background and serves the latest snapshot.
func runServe(ctx context.Context, opts *rootOptions, flags serveOptions, stderr io.Writer) error {
	s, err := openSession(opts, "serve", stderr)
	if err != nil {
		return err
	}
	defer s.Close()

	cfg := server.Config{
		HTTPBind:      firstNonEmpty(flags.httpBind, s.cfg.Serve.HTTPBind),
		APIEndpoint:   firstNonEmpty(flags.apiEndpoint, s.cfg.Serve.APIEndpoint),
		MCPEndpoint:   firstNonEmpty(flags.mcpEndpoint, s.cfg.Serve.MCPEndpoint),
		ServerName:    opts.appName,
		ServerVersion: version,
	}
	_, poll := s.cfg.PCC.Durations()
	lib := s.logger.Library()
	poller := app.NewPoller(s.svc, poll, func(r app.Refresh, err error) {
		if err != nil {
			return
		}
		if r.Stale {
			lib.Warn("serving cached snapshot", "fetched_at", r.FetchedAt, "err", r.Err)
			return
		}
		lib.Debug("snapshot refreshed", "projects", len(r.Data.Nodes), "work_orders", len(r.Data.WorkOrderNodes))
	})

	s.logger.Info("command flow start", "command", "serve", "http_bind", cfg.HTTPBind, "poll_interval", poller.Interval())
	g, gctx := errgroup.WithContext(ctx)
	serveCtx, stop := context.WithCancel(gctx)
	defer stop()
	g.Go(func() error {
		return poller.Run(serveCtx)
	})
	g.Go(func() error {
		defer stop()
		return serveCommandRunner(serveCtx, cfg, server.Dependencies{
			Service: servercommon.NewAppServiceAdapter(s.svc),
			Latest:  s.svc.Latest,
			Logger:  lib,
		})
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("command flow failed", "command", "serve", "err", err)
		return fmt.Errorf("run serve command: %w", err)
	}
	s.logger.Info("command flow complete", "command", "serve")
	return nil
}

// runSnapshot prints one snapshot, or the cache listing with --list.
func runSnapshot(ctx context.Context, opts *rootOptions, flags snapshotOptions, stdout, stderr io.Writer) error {
	format, err := fixture.ParseFormat(flags.format)
	if err != nil {
		return err
	}
	s, err := openSession(opts, "snapshot", stderr)
	if err != nil {
		return err
	}
	defer s.Close()

	if flags.list {
		infos, err := s.repo.ListSnapshots(ctx, flags.limit)
		if err != nil {
			return fmt.Errorf("list snapshots: %w", err)
		}
		return writeSnapshotList(stdout, infos)
	}

	snap, err := s.svc.CurrentSnapshot(ctx, flags.refresh)
	if err != nil {
		s.logger.Error("command flow failed", "command", "snapshot", "err", err)
		return fmt.Errorf("snapshot: %w", err)
	}
	var encoded strings.Builder
	if flags.dataOnly {
		err = fixture.Encode(&encoded, snap.Data, format)
	} else {
		err = encodeSnapshot(&encoded, snap, format)
	}
	if err != nil {
		return err
	}
	return writeOutput(flags.outPath, stdout, []byte(encoded.String()))
}

// encodeSnapshot writes the export envelope in format.
func encodeSnapshot(w io.Writer, snap app.Snapshot, format fixture.Format) error {
	switch format {
	case fixture.FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(snap); err != nil {
			return fmt.Errorf("encode snapshot yaml: %w", err)
		}
		return enc.Close()
	default:
		encoded, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return fmt.Errorf("encode snapshot json: %w", err)
		}
		encoded = append(encoded, '\n')
		_, err = w.Write(encoded)
		return err
	}
}

// writeSnapshotList prints one line per cached snapshot.
func writeSnapshotList(w io.Writer, infos []sqlite.SnapshotInfo) error {
	if len(infos) == 0 {
		_, err := fmt.Fprintln(w, "no cached snapshots")
		return err
	}
	for _, info := range infos {
		if _, err := fmt.Fprintf(w, "%s  %s  %-8s  projects=%d  work_orders=%d\n",
			info.ID, info.FetchedAt.UTC().Format(time.RFC3339), info.Source, info.Projects, info.WorkOrders); err != nil {
			return err
		}
	}
	return nil
}

// writeOutput writes content to outPath, or stdout for "-".
func writeOutput(outPath string, stdout io.Writer, content []byte) error {
	if outPath == "" || outPath == "-" {
		if _, err := stdout.Write(content); err != nil {
			return fmt.Errorf("write snapshot to stdout: %w", err)
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create snapshot output dir: %w", err)
	}
	if err := os.WriteFile(outPath, content, 0o644); err != nil {
		return fmt.Errorf("write snapshot file: %w", err)
	}
	return nil
}

// firstNonEmpty returns the first value that is not blank.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// parseBoolEnv parses input into a normalized form.
func parseBoolEnv(name string) (bool, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
