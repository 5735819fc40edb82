package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/coursechat/internal/courses"
	"github.com/desertthunder/coursechat/internal/identity"
	"github.com/desertthunder/coursechat/internal/loop"
	"github.com/desertthunder/coursechat/internal/repositories"
	"github.com/desertthunder/coursechat/internal/services"
	"github.com/desertthunder/coursechat/internal/session"
	"github.com/desertthunder/coursechat/internal/shared"
	"github.com/desertthunder/coursechat/internal/study"
	"github.com/urfave/cli/v3"
)

const closeTimeout = 5 * time.Second

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	transport  services.Transport
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	input      io.Reader
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	// Transport replaces the HTTP backend client when set.
	Transport  services.Transport
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Input      io.Reader
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
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		transport:  opts.Transport,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		input:      opts.Input,
	}
}

// SetLogger replaces the logger used by commands started after the call.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, chatCommand, sendCommand, checkCommand, coursesCommand, historyCommand, apiCommand, devServerCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// backend returns the transport commands talk to the assistant through.
func (r *Runner) backend() services.Transport {
	if r.transport != nil {
		return r.transport
	}
	return services.NewClient(services.ClientOpts{
		BaseURL:    r.config.Backend.BaseURL,
		HTTPClient: r.httpClient,
		Token:      r.config.Backend.Token,
		RateLimit:  r.config.Backend.RateLimit,
		Timeout:    r.config.Backend.Timeout,
		Logger:     r.logger,
	})
}

// openDatabase opens the SQLite database and applies pending migrations.
func (r *Runner) openDatabase() (*sql.DB, error) {
	db, err := shared.OpenDatabase(r.config.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// appOpts selects the optional parts of an [app].
type appOpts struct {
	notify     func(session.Event)
	transcript bool
}

// app is the wired session graph shared by the commands that talk to the backend.
type app struct {
	db         *sql.DB
	identity   *identity.Installation
	loop       *loop.Loop
	store      *courses.Store
	session    *session.Synchronizer
	transcript repositories.Recorder
	logger     *log.Logger

	stopLoop context.CancelFunc
}

// open wires the database, identity, course store and session, and starts the event loop.
//
// The caller must call [app.close].
func (r *Runner) open(opts appOpts) (*app, error) {
	if err := r.config.Validate(); err != nil {
		return nil, err
	}

	db, err := r.openDatabase()
	if err != nil {
		return nil, err
	}

	installation := identity.NewInstallation(repositories.NewInstallationRepository(db), r.logger)
	if _, err := installation.Load(); err != nil {
		db.Close()
		return nil, err
	}

	transport := r.backend()
	store, err := courses.NewStore(courses.Opts{
		Storage:   courses.NewFileStorage(r.config.CoursesPath()),
		Transport: transport,
		Identity:  installation,
		Logger:    r.logger,
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	l := loop.New()
	a := &app{db: db, identity: installation, loop: l, store: store, transcript: repositories.NoopRecorder{}, logger: r.logger}

	if opts.transcript {
		repo := repositories.NewTranscriptRepository(db)
		a.transcript = repositories.NewTranscriptWriter(repo, shared.GenerateID(), 0, r.logger)
	}

	controller, err := study.New(study.Opts{
		Transport: transport,
		Identity:  installation,
		Courses:   store,
		Loop:      l,
		Logger:    r.logger,
	})
	if err != nil {
		a.closeStorage(context.Background())
		return nil, err
	}

	a.session, err = session.New(session.Opts{
		Transport:    transport,
		Identity:     installation,
		Courses:      store,
		Study:        controller,
		Loop:         l,
		Transcript:   a.transcript,
		Notify:       opts.notify,
		PollInterval: r.config.Session.PollInterval,
		Logger:       r.logger,
	})
	if err != nil {
		a.closeStorage(context.Background())
		return nil, err
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	a.stopLoop = cancel
	go l.Run(loopCtx)

	return a, nil
}

// start opens the app and initializes the session.
func (r *Runner) start(ctx context.Context, opts appOpts) (*app, error) {
	a, err := r.open(opts)
	if err != nil {
		return nil, err
	}
	if err := a.session.Init(ctx); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

// close stops polling and the loop, then flushes pending writes.
func (a *app) close() {
	a.session.StopPolling()
	a.stopLoop()
	<-a.loop.Done()

	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := a.closeStorage(ctx); err != nil {
		a.logger.Error("failed to save state on exit", "error", err)
	}
}

func (a *app) closeStorage(ctx context.Context) error {
	storeErr := a.store.Close(ctx)
	if err := a.transcript.Close(); err != nil {
		a.logger.Warn("failed to close transcript", "error", err)
	}
	if err := a.db.Close(); err != nil && storeErr == nil {
		return err
	}
	return storeErr
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
