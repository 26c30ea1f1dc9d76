package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"pdftools/config"
)

// Server is the HTTP front end over a Runner.
type Server struct {
	cfg  *config.Config
	jobs *JobStore
	srv  *http.Server
	log  logrus.FieldLogger
}

// NewServer wires routes, job storage and the HTTP server from cfg.
func NewServer(cfg *config.Config, runner Runner, log logrus.FieldLogger) (*Server, error) {
	jobs, err := NewJobStore(cfg.TempDir, cfg.TTL, log)
	if err != nil {
		return nil, err
	}

	h := NewHandler(runner, jobs, cfg.MaxFileSize(), log)
	router := NewRouter(h, cfg.CORSOrigin, log)

	return &Server{
		cfg:  cfg,
		jobs: jobs,
		log:  log,
		srv: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Port),
			Handler:      router,
			ReadTimeout:  ServerReadTimeout,
			WriteTimeout: ServerWriteTimeout,
			IdleTimeout:  ServerIdleTimeout,
		},
	}, nil
}

// Handler exposes the router.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.jobs.StartReaper(ctx, ReapInterval)

	errCh := make(chan error, 1)
	go func() {
		s.log.WithFields(logrus.Fields{
			"addr":          s.srv.Addr,
			"max_file_size": s.cfg.MaxFileSize(),
			"temp_dir":      s.cfg.TempDir,
			"ttl":           s.cfg.TTL.String(),
		}).Info("server starting")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), GracefulShutdownTimeout)
	defer cancel()

	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	s.log.Info("server exited gracefully")
	return nil
}
