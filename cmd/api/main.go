package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"medical-access-ledger/internal/adapters/auth/jwtauth"
	"medical-access-ledger/internal/adapters/auth/remote"
	"medical-access-ledger/internal/adapters/storage/leveldbstore"
	mem "medical-access-ledger/internal/adapters/storage/memory"
	pg "medical-access-ledger/internal/adapters/storage/postgres"
	"medical-access-ledger/internal/domain/ledger"
	"medical-access-ledger/internal/platform/config"
	"medical-access-ledger/internal/platform/logger"
	"medical-access-ledger/internal/ports/auth"
	"medical-access-ledger/internal/router"
)

// @title        Medical Access Ledger API
// @version      1.0
// @description  Registro médico por paciente, permisos de lectura por médico y log de eventos append-only.
// @BasePath     /
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		Level:  logger.ParseLevel(cfg.LogLevel),
		Format: logger.ParseFormat(cfg.LogFormat),
		App:    cfg.AppName,
	})

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
}

func run(cfg config.Config, log logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closer, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closer.Close()

	verifier, err := newVerifier(cfg, log)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr: cfg.Addr(),
		Handler: router.NewRouter(router.Options{
			AuthVerifier: verifier,
			Store:        store,
			Logger:       log,
		}),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", map[string]any{"addr": cfg.Addr()})
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

	log.Info("shutting down", map[string]any{"timeout": cfg.ShutdownTimeout.String()})
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// openStore: DB_DSN => postgres, LEDGER_DATA_DIR => leveldb, si no => memoria.
func openStore(ctx context.Context, cfg config.Config, log logger.Logger) (ledger.Store, io.Closer, error) {
	switch {
	case cfg.DBDSN != "":
		db, err := pg.Open(cfg.DBDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := pg.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		log.Info("using postgres store", nil)
		return pg.NewStore(db), db, nil

	case cfg.DataDir != "":
		s, err := leveldbstore.Open(cfg.DataDir)
		if err != nil {
			return nil, nil, err
		}
		log.Info("using leveldb store", map[string]any{"dir": cfg.DataDir})
		return s, s, nil

	default:
		log.Warn("using in-memory store; data is lost on restart", nil)
		return mem.NewStore(), nopCloser{}, nil
	}
}

// newVerifier: JWT_SECRET => jwt, IDENTITY_BASE_URL => servicio remoto, si no => modo dev.
func newVerifier(cfg config.Config, log logger.Logger) (auth.AuthVerifier, error) {
	switch {
	case cfg.JWTSecret != "":
		v, err := jwtauth.NewVerifier(jwtauth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer})
		if err != nil {
			return nil, err
		}
		log.Info("auth: jwt", nil)
		return v, nil

	case cfg.IdentityBaseURL != "":
		client, err := remote.NewClient(remote.Config{BaseURL: cfg.IdentityBaseURL, APIKey: cfg.IdentityAPIKey})
		if err != nil {
			return nil, err
		}
		log.Info("auth: remote identity service", map[string]any{"base_url": cfg.IdentityBaseURL})
		return remote.NewVerifier(client), nil

	default:
		log.Warn("auth: dev mode, trusting X-Debug-User-ID", nil)
		return nil, nil
	}
}
