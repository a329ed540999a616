package rpc

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"runtime"
	"time"

	"github.com/oklog/ulid/v2"

	"warden/cmd/identity"
	"warden/cmd/internal/rbac"
)

// Graph is the slice of the permission graph the RPC surface exposes.
type Graph interface {
	ByUser(ctx context.Context, userID int32) ([]rbac.Role, error)
	ByRole(ctx context.Context, roleID int32) ([]rbac.Permission, error)
	CreateRole(ctx context.Context, name string, description *string, permissionIDs []int32) (rbac.Role, error)
	CreatePermissions(ctx context.Context, entries []rbac.PermissionEntry) ([]rbac.Permission, error)
}

// Server accepts TCP connections and serves framed msgpack requests.
// Handler work across all connections is bounded by a worker semaphore.
type Server struct {
	log   *slog.Logger
	svc   *identity.Service
	graph Graph

	// workers bounds concurrent request handling across connections.
	workers chan struct{}
}

// NewServer constructs the RPC server. workers <= 0 defaults to twice the
// CPU count.
func NewServer(log *slog.Logger, svc *identity.Service, graph Graph, workers int) (*Server, error) {
	if log == nil {
		log = slog.Default()
	}
	if svc == nil {
		return nil, errors.New("rpc: nil identity service")
	}
	if graph == nil {
		return nil, errors.New("rpc: nil graph")
	}
	if workers <= 0 {
		workers = runtime.NumCPU() * 2
	}
	return &Server{
		log:     log,
		svc:     svc,
		graph:   graph,
		workers: make(chan struct{}, workers),
	}, nil
}

// Serve accepts connections on ln until ctx is canceled. It owns ln and
// closes it on return.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	defer func() { _ = ln.Close() }()

	// Canceling the context unblocks Accept by closing the listener.
	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	s.log.Info("rpc server listening", "addr", ln.Addr().String())

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("rpc: accept: %w", err)
		}
		go s.serveConn(ctx, conn)
	}
}

// serveConn reads frames sequentially and answers each on the same
// connection. Requests from different connections are processed
// concurrently up to the worker bound.
func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	defer func() { _ = conn.Close() }()

	connID := newConnID()
	log := s.log.With("conn_id", connID, "remote", conn.RemoteAddr().String())
	log.Debug("rpc connection opened")

	for {
		msg, err := ReadMessage(conn)
		if err != nil {
			log.Debug("rpc connection closed", "err", err)
			return
		}

		select {
		case s.workers <- struct{}{}:
		case <-ctx.Done():
			return
		}
		resp := s.dispatch(ctx, log, msg)
		<-s.workers

		if err := WriteMessage(conn, resp); err != nil {
			log.Debug("rpc write failed", "err", err)
			return
		}
	}
}

func newConnID() string {
	id, err := ulid.New(ulid.Timestamp(time.Now().UTC()), rand.Reader)
	if err != nil {
		return "unknown"
	}
	return id.String()
}
