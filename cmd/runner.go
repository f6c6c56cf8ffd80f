package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/crate/internal/discogs"
	"github.com/desertthunder/crate/internal/metrics"
	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/pgstore"
	"github.com/desertthunder/crate/internal/repositories"
	"github.com/desertthunder/crate/internal/shared"
	"github.com/desertthunder/crate/internal/tasks"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Storage, the API client and the engine are opened on first use by [Runner.open].
type Runner struct {
	config      *shared.Config
	configPath  string
	logger      *log.Logger
	output      io.Writer
	registry    *prometheus.Registry
	metrics     *metrics.Metrics
	openBrowser shared.BrowserOpener

	db         *sql.DB
	pg         *pgstore.Store
	logFile    *os.File
	users      *repositories.UserRepository
	store      tasks.Store
	collection *repositories.CollectionRepository
	client     *discogs.Client
	engine     *tasks.CatalogEngine
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config      *shared.Config
	ConfigPath  string
	Logger      *log.Logger
	Output      io.Writer
	Registry    *prometheus.Registry
	OpenBrowser shared.BrowserOpener
	Client      *discogs.Client
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
		opts.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	if opts.OpenBrowser == nil {
		opts.OpenBrowser = shared.OpenBrowser
	}

	return &Runner{
		config:      opts.Config,
		configPath:  opts.ConfigPath,
		logger:      opts.Logger,
		output:      opts.Output,
		registry:    opts.Registry,
		metrics:     metrics.New(opts.Registry),
		openBrowser: opts.OpenBrowser,
		client:      opts.Client,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, usersCommand, syncCommand, collectionCommand, releaseCommand, serveCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Before loads the configuration named by the root --config flag and applies its log settings.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	r.configPath = cmd.String("config")

	config, err := shared.LoadConfigOrDefault(r.configPath)
	if err != nil {
		return ctx, err
	}
	r.config = config

	if config.Log.File != "" {
		logger, f, err := shared.NewFileLogger(config.Log.File)
		if err != nil {
			return ctx, err
		}
		r.logger, r.logFile = logger, f
	}

	level, err := shared.ParseLogLevel(config.Log.Level)
	if err != nil {
		return ctx, err
	}
	if cmd.Bool("verbose") {
		level = log.DebugLevel
	}
	shared.SetLogLevel(r.logger, level)
	return ctx, nil
}

// After releases whatever [Runner.open] acquired.
func (r *Runner) After(ctx context.Context, cmd *cli.Command) error {
	return r.Close()
}

// SetLogger replaces the logger, e.g. while a TUI owns the terminal.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// open wires the database, catalog store, API client and engine once.
func (r *Runner) open(ctx context.Context) error {
	if r.engine != nil {
		return nil
	}

	cfg := r.config.Database
	db, err := shared.NewDatabase(cfg.Path)
	if err != nil {
		return err
	}
	shared.ConfigureDatabase(db, cfg.Path, cfg.MaxOpenConns, cfg.MaxIdleConns)

	if err := shared.RunMigrations(ctx, db); err != nil {
		db.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	var store tasks.Store
	var pg *pgstore.Store
	switch cfg.Driver {
	case "", "sqlite3":
		store = repositories.NewCatalogRepository(db)
	case "postgres":
		pg, err = pgstore.Open(ctx, cfg.DSN, int32(cfg.MaxOpenConns), r.logger)
		if err != nil {
			db.Close()
			return err
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			pg.Close()
			db.Close()
			return err
		}
		store = pg
	default:
		db.Close()
		return fmt.Errorf("%w: %s", shared.ErrUnsupportedDriver, cfg.Driver)
	}

	r.db, r.pg, r.store = db, pg, store
	r.users = repositories.NewUserRepository(db)
	r.collection = repositories.NewCollectionRepository(db)
	if r.client == nil {
		r.client = discogs.NewClientFromConfig(r.config, r.logger, r.metrics)
	}

	r.engine = tasks.NewCatalogEngine(r.users, r.store, r.client, tasks.EngineOptions{
		PageSize:         r.config.Sync.PageSize,
		WriteConcurrency: r.config.Sync.WriteConcurrency,
		RunTimeout:       r.config.Sync.RunTimeout.Duration,
		Logger:           r.logger,
		Metrics:          r.metrics,
	})
	r.logger.Debug("runner opened", "driver", cfg.Driver, "path", cfg.Path)
	return nil
}

// readable fails when catalog rows are not in the SQLite file the read path queries.
func (r *Runner) readable() error {
	if r.config.Database.Driver == "postgres" {
		return fmt.Errorf("%w: collection reads use the sqlite3 catalog, sync writes to postgres", shared.ErrNotImplemented)
	}
	return nil
}

// Close releases the database handles and log file.
func (r *Runner) Close() error {
	var errs []error
	if r.pg != nil {
		r.pg.Close()
		r.pg = nil
	}
	if r.db != nil {
		errs = append(errs, r.db.Close())
		r.db = nil
	}
	if r.logFile != nil {
		errs = append(errs, r.logFile.Close())
		r.logFile = nil
	}
	r.engine = nil
	return errors.Join(errs...)
}

// resolveUser finds a user by username or id. An empty name selects the only stored user.
func (r *Runner) resolveUser(ctx context.Context, name string) (*models.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		users, err := r.users.List(ctx)
		if err != nil {
			return nil, err
		}
		switch len(users) {
		case 0:
			return nil, fmt.Errorf("%w: no users, run 'crate auth login' first", shared.ErrUserNotFound)
		case 1:
			return users[0], nil
		default:
			return nil, fmt.Errorf("%w: --user is required when %d users exist", shared.ErrMissingArgument, len(users))
		}
	}

	user, err := r.users.GetByUsername(ctx, name)
	if errors.Is(err, shared.ErrUserNotFound) {
		return r.users.Get(ctx, name)
	}
	return user, err
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
