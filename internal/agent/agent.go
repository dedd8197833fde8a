package agent

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"reflect"
	"sync"
	"time"

	"github.com/mwantia/fabric/pkg/container"
	"github.com/mwantia/linkfilter/internal/api"
	config "github.com/mwantia/linkfilter/internal/config/server"
	"github.com/mwantia/linkfilter/pkg/db/store"
	"github.com/mwantia/linkfilter/pkg/log"
	"gorm.io/gorm/logger"
)

type LinkFilterAgent struct {
	mutex sync.RWMutex
	wait  sync.WaitGroup

	cfg   *config.BaseServerConfig
	sc    *container.ServiceContainer
	log   log.LoggerService
	store *store.SQLiteStore
	http  *http.Server

	serveErr error
}

func NewAgent(cfg *config.BaseServerConfig) *LinkFilterAgent {
	return &LinkFilterAgent{
		cfg: cfg,
		sc:  container.NewServiceContainer(),
		log: log.NewLoggerService("linkfilter", cfg.Log),
	}
}

func (lfa *LinkFilterAgent) setupStore(ctx context.Context) error {
	level := logger.Silent
	if lfa.cfg.Metadata.SQLite.Debug {
		level = logger.Info
	}

	st, err := store.NewSQLiteStore(store.SQLiteConfig{
		Path:     lfa.cfg.Metadata.SQLite.Path,
		LogLevel: level,
	})
	if err != nil {
		return err
	}

	if err := st.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to %s: %w", lfa.cfg.Metadata.SQLite.Path, err)
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return err
	}

	lfa.store = st
	return nil
}

func (lfa *LinkFilterAgent) setupServices() error {
	errs := container.Errors{}

	lfa.log.Debug("Registering 'LoggerService'...")
	errs.Add(container.Register[log.LoggerServiceImpl](lfa.sc,
		container.With[log.LoggerService](),
		container.WithInstance(lfa.log)))

	lfa.log.Debug("Registering 'LinkStore'...")
	errs.Add(container.Register[*store.SQLiteStore](lfa.sc,
		container.With[store.LinkStore](),
		container.WithInstance(lfa.store)))

	return errs.Errors()
}

// resolve looks up the service registered for T
func resolve[T any](ctx context.Context, sc *container.ServiceContainer) (T, error) {
	var zero T
	typ := reflect.TypeOf((*T)(nil)).Elem()

	ok, resolved := sc.ResolveByType(ctx, typ)
	if !ok {
		return zero, fmt.Errorf("no service registered for %s", typ)
	}
	service, ok := resolved.(T)
	if !ok {
		return zero, fmt.Errorf("resolved %T is not a %s", resolved, typ)
	}
	return service, nil
}

// setupHTTP starts serving the link API on listener. A serve error is kept
// for Serve to return and stops the agent through cancel.
func (lfa *LinkFilterAgent) setupHTTP(ctx context.Context, listener net.Listener, cancel context.CancelFunc) error {
	read, err := time.ParseDuration(lfa.cfg.HTTP.ReadTimeout)
	if err != nil {
		return fmt.Errorf("http.read_timeout: %w", err)
	}
	write, err := time.ParseDuration(lfa.cfg.HTTP.WriteTimeout)
	if err != nil {
		return fmt.Errorf("http.write_timeout: %w", err)
	}

	links, err := resolve[store.LinkStore](ctx, lfa.sc)
	if err != nil {
		return err
	}
	logger, err := resolve[log.LoggerService](ctx, lfa.sc)
	if err != nil {
		return err
	}

	server := api.NewServer(links, logger.Named("api"), lfa.cfg)
	lfa.http = &http.Server{
		Handler:      server.Handler(),
		ReadTimeout:  read,
		WriteTimeout: write,
	}

	lfa.wait.Add(1)
	go func() {
		defer lfa.wait.Done()

		lfa.log.Info("Serving link API on %s", listener.Addr())
		if err := lfa.http.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lfa.log.Error("Link API stopped: %v", err)

			lfa.mutex.Lock()
			lfa.serveErr = fmt.Errorf("link API stopped: %w", err)
			lfa.mutex.Unlock()
			cancel()
		}
	}()
	return nil
}

func (lfa *LinkFilterAgent) Serve(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt)
	defer cancel()

	listener, err := net.Listen("tcp", lfa.cfg.HTTP.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", lfa.cfg.HTTP.Address, err)
	}
	return lfa.serve(ctx, listener)
}

// serve runs the agent on listener until ctx is done or the link API fails
func (lfa *LinkFilterAgent) serve(ctx context.Context, listener net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lfa.mutex.Lock()

	if err := lfa.setupStore(ctx); err != nil {
		listener.Close()
		lfa.mutex.Unlock()
		return err
	}
	defer lfa.store.Close()

	if err := lfa.setupServices(); err != nil {
		listener.Close()
		lfa.mutex.Unlock()
		return err
	}

	if err := lfa.setupHTTP(ctx, listener, cancel); err != nil {
		listener.Close()
		lfa.mutex.Unlock()
		return err
	}

	lfa.mutex.Unlock()
	<-ctx.Done()

	timeout, err := time.ParseDuration(lfa.cfg.ShutdownTimeout)
	if err != nil {
		// Set default of 60 seconds if error
		timeout = 60 * time.Second
	}

	shutdown, cancelShutdown := context.WithTimeout(context.Background(), timeout)
	defer cancelShutdown()

	lfa.log.Info("Shutting down...")
	if err := lfa.http.Shutdown(shutdown); err != nil {
		lfa.log.Warn("Link API shutdown: %v", err)
	}

	if err := lfa.sc.Cleanup(shutdown); err != nil {
		return fmt.Errorf("failed to complete service container cleanup: %w", err)
	}

	lfa.wait.Wait()

	lfa.mutex.RLock()
	defer lfa.mutex.RUnlock()
	return lfa.serveErr
}
