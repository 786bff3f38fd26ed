package cli

import (
	stdcontext "context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Paintersrp/cmdlaunch/internal/catalog"
	"github.com/Paintersrp/cmdlaunch/internal/config"
	"github.com/Paintersrp/cmdlaunch/internal/engine"
	"github.com/Paintersrp/cmdlaunch/internal/launcher"
	"github.com/Paintersrp/cmdlaunch/internal/logging"
	"github.com/Paintersrp/cmdlaunch/internal/store"
)

func NewRootCmd() *cobra.Command {
	root, _ := newRootCommand()
	return root
}

func newRootCommand() (*cobra.Command, *context) {
	ctx := &context{}

	root := &cobra.Command{
		Use:   "cmdlaunch",
		Short: "Save shell commands and launch them in a terminal or in the background",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return ctx.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			ctx.close()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&ctx.storePath, "file", "f", "", "Path to the command list (default: store.path from config)")
	flags.StringVar(&ctx.configPath, "config", "", "Path to a cmdlaunch.yaml config file")
	flags.StringVar(&ctx.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.StringVar(&ctx.logFile, "log-file", "", "Write logs to this file instead of stderr")

	root.AddCommand(newListCmd(ctx))
	root.AddCommand(newAddCmd(ctx))
	root.AddCommand(newEditCmd(ctx))
	root.AddCommand(newRemoveCmd(ctx))
	root.AddCommand(newDuplicateCmd(ctx))
	root.AddCommand(newRunCmd(ctx))
	root.AddCommand(newTuiCmd(ctx))
	root.AddCommand(newServeCmd(ctx))
	root.AddCommand(newExportCmd(ctx))
	root.AddCommand(newImportCmd(ctx))
	root.AddCommand(newConfigCmd(ctx))

	root.SilenceUsage = true
	root.SilenceErrors = true

	return root, ctx
}

// Execute runs the CLI entrypoint.
func Execute() {
	ctx, stop := signal.NotifyContext(stdcontext.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCmd()
	root.SetContext(ctx)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// context holds the state shared by subcommands. Dependencies are built on
// first use so commands that only print configuration never touch the store.
type context struct {
	storePath  string
	configPath string
	logLevel   string
	logFile    string

	mu      sync.Mutex
	cfg     *config.Config
	logger  zerolog.Logger
	logSink io.Closer
	store   *store.Store
	catalog *catalog.Catalog
	service *engine.Service
}

func (c *context) setup(cmd *cobra.Command) error {
	bootstrap, err := logging.New(cmd.ErrOrStderr(), c.logLevel, true)
	if err != nil {
		return err
	}
	cfg, err := config.Load(c.configPath, bootstrap)
	if err != nil {
		return err
	}
	if c.storePath != "" {
		cfg.Store.Path = c.storePath
	}
	if c.logLevel != "" {
		cfg.Log.Level = c.logLevel
	}
	if c.logFile != "" {
		cfg.Log.File = c.logFile
	}
	c.cfg = cfg

	if cfg.Log.File != "" {
		return c.redirectLogs(cfg.Log.File)
	}
	logger, err := logging.New(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Pretty && isTerminal(cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	c.logger = logger
	return nil
}

// redirectLogs sends every subsequent log record to path.
func (c *context) redirectLogs(path string) error {
	f, err := logging.OpenFile(path)
	if err != nil {
		return err
	}
	logger, err := logging.New(f, c.config().Log.Level, false)
	if err != nil {
		_ = f.Close()
		return err
	}
	c.mu.Lock()
	if c.logSink != nil {
		_ = c.logSink.Close()
	}
	c.logSink = f
	c.logger = logger
	c.mu.Unlock()
	return nil
}

// defaultLogFile places the TUI log next to the command list.
func (c *context) defaultLogFile() string {
	return filepath.Join(filepath.Dir(c.config().Store.Path), "cmdlaunch.log")
}

func (c *context) config() *config.Config {
	if c.cfg == nil {
		c.cfg = config.Default()
	}
	return c.cfg
}

func (c *context) log() zerolog.Logger {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.logger
}

func (c *context) getStore() *store.Store {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		c.store = store.New(c.config().Store.Path, store.WithLogger(c.logger))
	}
	return c.store
}

// getCatalog loads the command list on first use.
func (c *context) getCatalog() (*catalog.Catalog, error) {
	st := c.getStore()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.catalog != nil {
		return c.catalog, nil
	}
	cat := catalog.New(st)
	if err := cat.Reload(); err != nil {
		return nil, err
	}
	c.catalog = cat
	return cat, nil
}

func (c *context) getService() *engine.Service {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.service == nil {
		cfg := c.config()
		l := launcher.New(
			launcher.WithTerminals(cfg.Launch.Terminals),
			launcher.WithLogger(c.logger),
		)
		c.service = engine.NewService(l, engine.NewRegistry(),
			engine.WithReapInterval(cfg.Reap.Interval),
			engine.WithGracePeriod(cfg.Terminate.GracePeriod),
			engine.WithMaxConcurrentLaunches(cfg.Launch.MaxConcurrent),
			engine.WithLogger(c.logger),
		)
	}
	return c.service
}

func (c *context) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.service != nil {
		c.service.Close()
	}
	if c.logSink != nil {
		_ = c.logSink.Close()
		c.logSink = nil
	}
}
