package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	readHeaderTimeoutConstant     = 10 * time.Second
	idleTimeoutConstant           = 120 * time.Second
	shutdownTimeoutConstant       = 10 * time.Second
	listenNetworkConstant         = "tcp"
	listenErrorTemplateConstant   = "unable to listen on %s: %w"
	shutdownErrorTemplateConstant = "server shutdown failed: %w"
	serverStartedMessageConstant  = "Serving repodiff"
	serverStoppedMessageConstant  = "Stopped serving repodiff"
	addressFieldNameConstant      = "address"
)

// Server runs an HTTP handler until its context is cancelled.
type Server struct {
	listenAddress string
	httpServer    *http.Server
	logger        *zap.Logger
}

// NewServer constructs a Server listening on listenAddress.
func NewServer(listenAddress string, handler http.Handler, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		listenAddress: listenAddress,
		httpServer: &http.Server{
			Addr:              listenAddress,
			Handler:           handler,
			ReadHeaderTimeout: readHeaderTimeoutConstant,
			IdleTimeout:       idleTimeoutConstant,
		},
		logger: logger,
	}
}

// Run listens on the configured address and serves until ctx is cancelled.
func (server *Server) Run(ctx context.Context) error {
	listener, listenError := net.Listen(listenNetworkConstant, server.listenAddress)
	if listenError != nil {
		return fmt.Errorf(listenErrorTemplateConstant, server.listenAddress, listenError)
	}
	return server.Serve(ctx, listener)
}

// Serve accepts connections on listener until ctx is cancelled, then shuts down gracefully.
func (server *Server) Serve(ctx context.Context, listener net.Listener) error {
	server.logger.Info(serverStartedMessageConstant, zap.String(addressFieldNameConstant, listener.Addr().String()))

	serveErrors := make(chan error, 1)
	go func() {
		serveErrors <- server.httpServer.Serve(listener)
	}()

	select {
	case serveError := <-serveErrors:
		if errors.Is(serveError, http.ErrServerClosed) {
			return nil
		}
		return serveError
	case <-ctx.Done():
	}

	shutdownContext, cancel := context.WithTimeout(context.Background(), shutdownTimeoutConstant)
	defer cancel()
	if shutdownError := server.httpServer.Shutdown(shutdownContext); shutdownError != nil {
		return fmt.Errorf(shutdownErrorTemplateConstant, shutdownError)
	}
	<-serveErrors

	server.logger.Info(serverStoppedMessageConstant, zap.String(addressFieldNameConstant, listener.Addr().String()))
	return nil
}
