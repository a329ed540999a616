// Package app wires the Warden runtime: config, logging, database pool,
// the identity facade and both transport servers.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"warden/cmd/identity"
	authapi "warden/cmd/internal/auth/api"
	"warden/cmd/internal/auth/rpc"
	"warden/cmd/internal/auth/session"
	"warden/cmd/internal/rbac"
)

// App is the Warden runtime. It owns the database pool and both servers.
type App struct {
	cfg Config
	log Logger

	pool  *pgxpool.Pool
	users *identity.PostgresStore
	graph *rbac.Graph
	svc   *identity.Service

	auth *authapi.Handler
	rpc  *rpc.Server
}

// New constructs a fully wired App. The database is mandatory: Warden
// cannot answer permission checks without it.
func New(ctx context.Context, cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel)
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("app: WARDEN_DATABASE_URL is required")
	}

	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("app: connect database: %w", err)
	}

	users, err := identity.NewPostgresStore(pool)
	if err != nil {
		pool.Close()
		return nil, err
	}
	graph, err := rbac.NewGraph(log, pool, rbac.WithAdminEmail(cfg.AdminEmail))
	if err != nil {
		pool.Close()
		return nil, err
	}

	svc := identity.NewService(log, users, graph, session.NewStore())

	auth, err := authapi.NewHandler(log, authapi.LoadConfigFromEnv(), svc, graph)
	if err != nil {
		pool.Close()
		return nil, err
	}
	rpcSrv, err := rpc.NewServer(log, svc, graph, cfg.RPCWorkers)
	if err != nil {
		pool.Close()
		return nil, err
	}

	a := &App{
		cfg:   cfg,
		log:   log,
		pool:  pool,
		users: users,
		graph: graph,
		svc:   svc,
		auth:  auth,
		rpc:   rpcSrv,
	}

	if err := a.bootstrap(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return a, nil
}

// Run starts the HTTP and RPC servers and blocks until context
// cancellation or a fatal server error.
func (a *App) Run(ctx context.Context) error {
	defer a.pool.Close()

	mux := http.NewServeMux()
	registerHTTP(mux, a.log, a.pool, a.auth)

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           WithRequestLogging(mux, a.log),
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	ln, err := net.Listen("tcp", a.cfg.RPCAddr)
	if err != nil {
		return fmt.Errorf("app: rpc listen: %w", err)
	}

	a.log.Info("server.start", "http_addr", a.cfg.HTTPAddr, "rpc_addr", a.cfg.RPCAddr)

	rpcCtx, stopRPC := context.WithCancel(ctx)
	defer stopRPC()

	errCh := make(chan error, 2)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		if err := a.rpc.Serve(rpcCtx, ln); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		stopRPC()
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	a.log.Info("server.stopped")
	return nil
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
