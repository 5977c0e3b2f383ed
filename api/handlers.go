package api

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/rpc/v2"

	cjson "github.com/ava-labs/avalanchego/utils/json"
	log "github.com/inconshreveable/log15"

	"github.com/lattica-labs/execution-engine/engine"
)

// NewHandler builds the gorilla/rpc mux exposing svc under Name, the way
// timestampvm.VM.CreateHandlers registers its own Service: one codec for
// both "application/json" and its charset variant, one RegisterService
// call.
func NewHandler(svc *Service) (http.Handler, error) {
	server := rpc.NewServer()
	codec := cjson.NewCodec()
	server.RegisterCodec(codec, "application/json")
	server.RegisterCodec(codec, "application/json;charset=UTF-8")
	if err := server.RegisterService(svc, Name); err != nil {
		return nil, err
	}
	return server, nil
}

// Server is a standalone HTTP listener serving the execution engine's
// JSON-RPC surface, grounded on the bls signer's json-rpc.Server: a
// *http.Server paired with an explicit net.Listener so callers can read
// back the bound address (useful when Addr is "" and the OS picks a
// port), plus a graceful Close.
type Server struct {
	httpServer *http.Server
	listener   net.Listener
}

// Serve starts listening on addr and dispatching JSON-RPC requests
// against eng. addr may be "host:0" to let the OS choose a port.
func Serve(addr string, eng *engine.Engine) (*Server, error) {
	handler, err := NewHandler(NewService(eng))
	if err != nil {
		return nil, err
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	httpServer := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error("api server exited", "err", err)
		}
	}()

	return &Server{httpServer: httpServer, listener: listener}, nil
}

// Addr returns the server's bound network address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Close gracefully shuts the HTTP server down.
func (s *Server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
