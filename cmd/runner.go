package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/altplay/internal/auth"
	"github.com/desertthunder/altplay/internal/models"
	"github.com/desertthunder/altplay/internal/providers"
	"github.com/desertthunder/altplay/internal/repositories"
	"github.com/desertthunder/altplay/internal/resolver"
	"github.com/desertthunder/altplay/internal/server"
	"github.com/desertthunder/altplay/internal/services"
	"github.com/desertthunder/altplay/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// Resolver is everything the commands need from a resolution pipeline.
//
// Satisfied by the local [resolver.Pipeline] and by [services.BackendService].
type Resolver interface {
	server.Resolver
	Resolve(ctx context.Context, track models.TrackRef) (*models.StreamDescriptor, error)
}

var (
	_ Resolver = (*resolver.Pipeline)(nil)
	_ Resolver = (*services.BackendService)(nil)
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	loaded     bool
	logger     *log.Logger
	output     io.Writer
	httpClient *http.Client
	db         *sql.DB
	store      models.StateStore
	resolver   Resolver
	backend    *services.BackendService
	catalog    *services.CatalogService
	session    *auth.Session
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Store and Resolver replace what the runner would otherwise build from the config.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Logger     *log.Logger
	Output     io.Writer
	HTTPClient *http.Client
	Store      models.StateStore
	Resolver   Resolver
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	loaded := opts.Config != nil
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		loaded:     loaded,
		logger:     opts.Logger,
		output:     opts.Output,
		httpClient: opts.HTTPClient,
		store:      opts.Store,
		resolver:   opts.Resolver,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		serveCommand, searchCommand, trendingCommand, resolveCommand, playCommand,
		authCommand, libraryCommand, historyCommand, setupCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// app is the root command; main runs it with os.Args.
func (r *Runner) app() *cli.Command {
	return &cli.Command{
		Name:    "altplay",
		Usage:   "Search, resolve and play audio through fallback stream providers",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
				Sources: cli.EnvVars(shared.EnvPrefix + "CONFIG"),
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error); overrides the config",
			},
		},
		Before:   r.before,
		After:    r.after,
		Commands: r.register(),
	}
}

// before loads the configuration unless one was injected and applies the log settings.
func (r *Runner) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if !r.loaded {
		path := cmd.String("config")
		config, err := shared.LoadConfigWithEnv(path, ".env")
		if err != nil {
			return ctx, err
		}
		r.config, r.configPath, r.loaded = config, path, true
	}

	level := r.config.Log.Level
	if l := cmd.String("log-level"); l != "" {
		level = l
	}
	shared.SetLogLevel(r.logger, shared.ParseLogLevel(level))
	return ctx, nil
}

func (r *Runner) after(ctx context.Context, cmd *cli.Command) error {
	r.close()
	return nil
}

// SetLogger replaces the logger used by every component built afterwards.
func (r *Runner) SetLogger(logger *log.Logger) {
	logger.SetLevel(r.logger.GetLevel())
	r.logger = logger
}

// openStore opens the configured database (running migrations) unless a store was injected.
func (r *Runner) openStore() (models.StateStore, error) {
	if r.store != nil {
		return r.store, nil
	}
	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database (run 'altplay setup database'?): %w", err)
	}
	r.db = db
	r.store = repositories.NewStateRepository(db)
	return r.store, nil
}

// history is nil when the store is not backed by the database.
func (r *Runner) history() *repositories.HistoryRepository {
	if r.db == nil {
		return nil
	}
	return repositories.NewHistoryRepository(r.db)
}

// close releases the database along with everything built on top of it.
func (r *Runner) close() {
	if r.db == nil {
		return
	}
	if err := r.db.Close(); err != nil {
		r.logger.Warn("failed to close database", "error", err)
	}
	r.db, r.store = nil, nil
	r.backend, r.catalog, r.session = nil, nil, nil
}

// clients wires the session, the authenticated request client and the two API clients on top of it.
//
// The session refreshes through the backend's /refresh-token and persists every token in the store.
func (r *Runner) clients() (*services.BackendService, *services.CatalogService, *auth.Session, error) {
	if r.backend != nil {
		return r.backend, r.catalog, r.session, nil
	}

	store, err := r.openStore()
	if err != nil {
		return nil, nil, nil, err
	}

	var backend *services.BackendService
	refresher := auth.RefresherFunc(func(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
		return backend.Refresh(ctx, refreshToken)
	})
	session, err := auth.Restore(store, refresher, auth.WithLogger(r.logger))
	if err != nil {
		r.logger.Warn("ignoring unreadable saved session", "error", err)
	}

	client := services.NewClient(services.ClientOptions{
		BackendURL: r.config.Backend.URL,
		CatalogURL: r.config.Backend.CatalogURL,
		Tokens:     session,
		HTTPClient: r.httpClient,
		Timeout:    r.config.Backend.Timeout,
		Logger:     r.logger,
	})
	backend = services.NewBackendService(client)

	r.backend, r.catalog, r.session = backend, services.NewCatalogService(client), session
	return r.backend, r.catalog, r.session, nil
}

// pipeline builds the local resolution pipeline from the provider config.
func (r *Runner) pipeline() *resolver.Pipeline {
	registry := providers.FromConfig(r.config.Providers, r.httpClient, r.logger)
	r.logger.Debug("providers", "streams", registry.StreamNames(), "search", registry.SearchNames())
	return resolver.NewPipeline(registry, r.logger)
}

// pickResolver returns the injected resolver, the backend client with --backend, or the local pipeline.
func (r *Runner) pickResolver(cmd *cli.Command) (Resolver, error) {
	if r.resolver != nil {
		return r.resolver, nil
	}
	if cmd.Bool("backend") {
		backend, _, _, err := r.clients()
		if err != nil {
			return nil, err
		}
		return backend, nil
	}
	return r.pipeline(), nil
}

func backendFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "backend",
		Usage: "Resolve through the altplay backend API instead of the local providers",
	}
}

func formatFlag(value string) cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: txt, json, csv or markdown",
		Value:   value,
	}
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
