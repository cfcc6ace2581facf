package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sectorsguard/src/handler"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	logger "github.com/sirupsen/logrus"
)

// Routes are the handlers mounted under /validations.
type Routes struct {
	ValidateDataset http.HandlerFunc
	ValidateAll     http.HandlerFunc
	Datasets        http.HandlerFunc
	Results         http.HandlerFunc
	ResultsSummary  http.HandlerFunc
	Exceptions      http.HandlerFunc
	GetConfig       http.HandlerFunc
	PutConfig       http.HandlerFunc
}

// NewRouter builds the HTTP surface. Nil routes are not mounted.
func NewRouter(routes Routes) http.Handler {
	r := chi.NewRouter()
	// === Global Middleware ===
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	// Public routes
	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.WithError(err).Error(" \"/health error")
		}
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/validations", func(v chi.Router) {
		mount := func(method, pattern string, h http.HandlerFunc) {
			if h != nil {
				v.Method(method, pattern, h)
			}
		}
		mount(http.MethodPost, "/", routes.ValidateAll)
		mount(http.MethodGet, "/datasets", routes.Datasets)
		mount(http.MethodGet, "/results", routes.Results)
		mount(http.MethodGet, "/results/summary", routes.ResultsSummary)
		mount(http.MethodGet, "/exceptions", routes.Exceptions)
		mount(http.MethodGet, "/config/{dataset}", routes.GetConfig)
		mount(http.MethodPut, "/config/{dataset}", routes.PutConfig)
		mount(http.MethodPost, "/{dataset}", routes.ValidateDataset)
	})

	return r
}

// RoutesFor wires the validation handlers to their collaborators.
func RoutesFor(
	runner handler.ValidationRunner,
	datasets handler.DatasetLister,
	history handler.ResultHistory,
	local handler.LocalResults,
	configs handler.ConfigStore,
	exceptions handler.ExceptionLister,
) Routes {
	return Routes{
		ValidateDataset: handler.ValidateDatasetHandler(runner),
		ValidateAll:     handler.ValidateAllHandler(runner),
		Datasets:        handler.DatasetsHandler(datasets),
		Results:         handler.ResultsHandler(history, local),
		ResultsSummary:  handler.ResultsSummaryHandler(history, nil),
		Exceptions:      handler.ExceptionsHandler(exceptions),
		GetConfig:       handler.GetConfigHandler(configs),
		PutConfig:       handler.PutConfigHandler(configs),
	}
}

func StartServer(port string, h http.Handler) {
	// Graceful server
	// Server setup
	addr := ":" + port
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Infof("Listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server crashed")
		}
	}()

	// Shutdown on SIGINT or SIGTERM
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Shutdown error")
	}
}
