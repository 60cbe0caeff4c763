package cli

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/dmitrijs2005/aikea/internal/bucket"
	"github.com/dmitrijs2005/aikea/internal/logging"
	"github.com/dmitrijs2005/aikea/internal/server"
	"github.com/dmitrijs2005/aikea/internal/server/config"
)

// Gateway is the part of the facade the commands use.
type Gateway interface {
	Upload(ctx context.Context, in bucket.UploadInput) (*bucket.StoredFileRecord, error)
	Delete(ctx context.Context, id string) error
	ListAll(ctx context.Context) ([]bucket.StoredFileRecord, error)
	SearchByPattern(ctx context.Context, pattern string) ([]bucket.StoredFileRecord, error)
	SearchByTags(ctx context.Context, tag1, tag2, tag3 string) ([]bucket.StoredFileRecord, error)
	SearchByExternalID(ctx context.Context, id string) ([]bucket.StoredFileRecord, error)
	FindByID(ctx context.Context, id string) (*bucket.StoredFileRecord, error)
	Stats() bucket.Stats
	Diagnose(ctx context.Context) bucket.Diagnostics
}

// Connector builds a gateway from cfg. The closer is called when the
// command finishes.
type Connector func(ctx context.Context, cfg *config.Config, logger logging.Logger) (Gateway, io.Closer, error)

type App struct {
	config  *config.Config
	out     io.Writer
	errOut  io.Writer
	connect Connector

	gateway Gateway
	closer  io.Closer

	tokenPrompt bool
	asJSON      bool
}

// NewApp returns an App writing to stdout/stderr and connecting with
// server.BuildGateway.
func NewApp() *App {
	c := &config.Config{}
	c.LoadDefaults()
	return &App{
		config:  c,
		out:     os.Stdout,
		errOut:  os.Stderr,
		connect: defaultConnect,
	}
}

func defaultConnect(ctx context.Context, cfg *config.Config, logger logging.Logger) (Gateway, io.Closer, error) {
	g, _, closer, err := server.BuildGateway(ctx, cfg, logger, nil)
	if err != nil {
		return nil, nil, err
	}
	return g, closer, nil
}

// logger writes human-readable records to errOut so stdout stays parseable.
func (a *App) logger() logging.Logger {
	level := slog.LevelWarn
	if a.config.Debug {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(a.errOut, &slog.HandlerOptions{Level: level})
	return logging.NewSlogLogger(slog.New(h))
}

func (a *App) open(ctx context.Context) error {
	if a.gateway != nil {
		return nil
	}
	g, closer, err := a.connect(ctx, a.config, a.logger())
	if err != nil {
		return err
	}
	a.gateway, a.closer = g, closer
	return nil
}

func (a *App) close() error {
	if a.closer == nil {
		return nil
	}
	err := a.closer.Close()
	a.closer = nil
	return err
}

// Run executes the command line in args.
func (a *App) Run(ctx context.Context, args []string) error {
	root := a.NewRootCommand()
	root.SetArgs(args)
	root.SetOut(a.out)
	root.SetErr(a.errOut)
	defer a.close()
	return root.ExecuteContext(ctx)
}
