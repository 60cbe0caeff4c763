// Package httpapi exposes the storage gateway over a small REST surface.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/aikea/internal/bucket"
	"github.com/dmitrijs2005/aikea/internal/logging"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// maxUploadSize bounds the multipart body accepted by the upload route.
const maxUploadSize = 64 << 20

const shutdownTimeout = 10 * time.Second

// Gateway is the facade the handlers call.
type Gateway interface {
	IsConfigured() bool
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

type Server struct {
	address   string
	gateway   Gateway
	logger    logging.Logger
	jwtSecret []byte
	metrics   http.Handler
	filesDir  string
	engine    *gin.Engine
}

type Option func(*Server)

// WithAuthSecret guards upload and delete with HS256 bearer tokens signed
// with secret. An empty secret leaves them open.
func WithAuthSecret(secret string) Option {
	return func(s *Server) {
		if secret != "" {
			s.jwtSecret = []byte(secret)
		}
	}
}

// WithMetrics mounts h on /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithFiles serves dir under /files, where the disk blob store points its
// URLs.
func WithFiles(dir string) Option {
	return func(s *Server) { s.filesDir = dir }
}

func NewServer(address string, g Gateway, l logging.Logger, opts ...Option) *Server {
	s := &Server{
		address: address,
		gateway: g,
		logger:  l.With("module", "http_server"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.engine = s.routes()
	return s
}

// Handler returns the configured router.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(s.logger))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	r.Use(cors.New(corsConfig))

	r.GET("/healthz", s.health)
	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics))
	}
	if s.filesDir != "" {
		r.Static("/files", s.filesDir)
	}

	api := r.Group("/api/bucket")
	{
		api.GET("/pdfs", s.listAll)
		api.GET("/pdf/:id", s.findByID)
		api.GET("/pdfs/external/:externalId", s.searchByExternalID)
		api.GET("/pdfs/search", s.searchByPattern)
		api.GET("/pdfs/tags", s.searchByTags)
		api.GET("/stats", s.stats)
		api.GET("/diagnostics", s.diagnostics)

		guarded := api.Group("")
		if s.jwtSecret != nil {
			guarded.Use(s.bearerAuth())
		}
		guarded.POST("/upload", s.upload)
		guarded.DELETE("/:id", s.delete)
	}

	return r
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "Starting HTTP server", "address", s.address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "Stopping HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
