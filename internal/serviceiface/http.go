package serviceiface

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"AdvisorDesk/internal/logger"

	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// HTTPService runs a handler on addr until Stop.
type HTTPService struct {
	name   string
	server *http.Server
	ln     net.Listener
}

func NewHTTPService(name, addr string, handler http.Handler) *HTTPService {
	return &HTTPService{
		name: name,
		server: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

func (s *HTTPService) Name() string {
	return s.name
}

// Start binds the listener synchronously so port conflicts fail startup.
func (s *HTTPService) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("%s listen on %s: %w", s.name, s.server.Addr, err)
	}
	s.ln = ln
	logger.L().Info("service listening", zap.String("service", s.name), zap.String("addr", ln.Addr().String()))
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L().Error("service stopped unexpectedly", zap.String("service", s.name), zap.Error(err))
		}
	}()
	return nil
}

func (s *HTTPService) Stop() error {
	if s.ln == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// Addr is the bound address, useful when started on port 0.
func (s *HTTPService) Addr() string {
	if s.ln == nil {
		return s.server.Addr
	}
	return s.ln.Addr().String()
}
