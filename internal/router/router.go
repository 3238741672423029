package router

import (
	"net/http"

	mem "medical-access-ledger/internal/adapters/storage/memory"
	_ "medical-access-ledger/internal/docs"
	"medical-access-ledger/internal/domain/ledger"
	"medical-access-ledger/internal/middleware"
	"medical-access-ledger/internal/platform/logger"
	"medical-access-ledger/internal/ports/auth"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Options struct {
	AuthVerifier auth.AuthVerifier // puede ser nil (modo dev)

	// Opcional: si no viene, in-memory. main decide postgres/leveldb.
	Store ledger.Store

	Logger logger.Logger
}

func NewRouter(opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Use(middleware.AuthContext(opts.AuthVerifier))
	r.Use(middleware.RequestLog(log))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/swagger/*", httpSwagger.WrapHandler)

	store := opts.Store
	if store == nil {
		store = mem.NewStore()
	}

	gw := ledger.NewGateway(store, log)
	ledger.RegisterRoutes(r, gw)

	return r
}
