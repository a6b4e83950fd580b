package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Daskott/favdial/favorites"
	"github.com/Daskott/favdial/gstorage"
	"github.com/Daskott/favdial/logger"
	"github.com/Daskott/favdial/shared"
	"github.com/Daskott/favdial/work"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const SHUTDOWN_TIMEOUT = 5 * time.Second

// Options are the services the HTTP API runs on. Backup is nil when backups
// are disabled.
type Options struct {
	Config  *shared.Config
	Manager *favorites.Manager
	Adapter *work.WorkerPoolAdapter
	Backup  *gstorage.Backup
	Logger  *zap.SugaredLogger
}

type Server struct {
	manager *favorites.Manager
	router  *mux.Router
	logg    *zap.SugaredLogger
}

func New(manager *favorites.Manager, logg *zap.SugaredLogger) *Server {
	s := &Server{manager: manager, router: mux.NewRouter(), logg: logger.OrNop(logg)}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	s.router.Use(s.loggingMiddleware)
	s.router.HandleFunc("/health", s.health).Methods("GET")

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.Use(contentTypeMiddleware)

	api.HandleFunc("/favorites", s.listFavorites).Methods("GET")
	api.HandleFunc("/favorites", s.addFavorite).Methods("POST")
	api.HandleFunc("/favorites/{id}", s.getFavorite).Methods("GET")
	api.HandleFunc("/favorites/{id}", s.removeFavorite).Methods("DELETE")
	api.HandleFunc("/favorites/{id}/position", s.moveFavorite).Methods("PUT")
	api.HandleFunc("/favorites/{id}/routing", s.updateRouting).Methods("PUT")
	api.HandleFunc("/favorites/{id}/name", s.renameFavorite).Methods("PUT")
	api.HandleFunc("/favorites/{id}/target", s.resolveTarget).Methods("GET")
	api.HandleFunc("/favorites/{id}/refresh", s.refreshFavorite).Methods("POST")
	api.HandleFunc("/favorites/{id}/avatar", s.getAvatar).Methods("GET")
	api.HandleFunc("/favorites/{id}/avatar", s.updateAvatar).Methods("PUT")
	api.HandleFunc("/favorites/{id}/avatar", s.clearAvatar).Methods("DELETE")
	api.HandleFunc("/gc", s.collectGarbage).Methods("POST")
}

// Start serves the API until SIGINT/SIGTERM, running the periodic jobs on
// opts.Adapter, then shuts everything down.
func Start(opts Options) {
	logg := logger.OrNop(opts.Logger)
	s := New(opts.Manager, logg)

	if err := registerJobs(opts); err != nil {
		logg.Fatal(err)
	}
	opts.Adapter.Start()

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%v", opts.Config.Server.Port),
		Handler: s.Handler(),
	}

	go serve(httpServer, logg)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	cleanup(opts, httpServer, logg)
}

func serve(server *http.Server, logg *zap.SugaredLogger) {
	logg.Infof("favdial server is listening on port:%v", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Fatal(err)
	}
}

func cleanup(opts Options, server *http.Server, logg *zap.SugaredLogger) {
	// Shutdown server gracefully
	ctxShutDown, cancel := context.WithTimeout(context.Background(), SHUTDOWN_TIMEOUT)
	defer cancel()
	if err := server.Shutdown(ctxShutDown); err != nil {
		logg.Errorf("favdial server shutdown failed:%+s", err)
	}

	// Stop periodic jobs & pending tasks
	opts.Adapter.Stop()

	if opts.Backup != nil {
		if _, err := opts.Backup.Run(context.Background()); err != nil {
			logg.Errorf("final backup failed: %v", err)
		}
	}

	logg.Infof("favdial server stopped properly")
}
