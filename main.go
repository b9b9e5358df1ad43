package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/username/optifolio/src/config"
	"github.com/username/optifolio/src/database"
	"github.com/username/optifolio/src/handlers"
	"github.com/username/optifolio/src/logger"
	"github.com/username/optifolio/src/processors"
	"github.com/username/optifolio/src/security"
	"github.com/username/optifolio/src/services"
)

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)
	logger.L.Info("Starting optifolio server")

	database.InitDB(config.Cfg.DatabasePath)
	defer database.DB.Close()

	resultCache := cache.New(30*time.Minute, 10*time.Minute)
	quoteCache := cache.New(config.Cfg.QuoteCacheTTL, 2*config.Cfg.QuoteCacheTTL)

	authService := security.NewAuthService(config.Cfg.JWTSecret)
	txStore := services.NewTransactionStore(database.DB)
	posStore := services.NewPositionStore(database.DB)
	reconciler := processors.NewReconciler()
	importService := services.NewImportService(txStore, posStore, reconciler, resultCache)
	quoteService, err := services.NewQuoteService(config.Cfg.QuoteBaseURL, config.Cfg.QuoteHTTPTimeout, quoteCache)
	if err != nil {
		logger.L.Error("Failed to initialize quote service", "error", err)
		os.Exit(1)
	}

	userHandler := handlers.NewUserHandler(database.DB, authService)
	uploadHandler := handlers.NewUploadHandler(importService)
	positionHandler := handlers.NewPositionHandler(posStore, quoteService)
	transactionHandler := handlers.NewTransactionHandler(txStore, posStore)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(handlers.CORSMiddleware)
	r.Use(handlers.RateLimitMiddleware(rate.Limit(10), 30))

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", userHandler.Register)
		r.Post("/auth/login", userHandler.Login)
		r.Post("/auth/refresh", userHandler.RefreshToken)

		r.Group(func(r chi.Router) {
			r.Use(handlers.AuthMiddleware(authService))
			r.Post("/auth/logout", userHandler.Logout)
			r.Post("/imports", uploadHandler.HandleUpload)
			r.Get("/imports/latest", uploadHandler.HandleLatestImport)
			r.Post("/reconcile", uploadHandler.HandleReconcile)
			r.Get("/positions", positionHandler.GetPositions)
			r.Get("/quotes", positionHandler.GetQuote)
			r.Get("/transactions", transactionHandler.GetTransactions)
			r.Get("/transactions/export", transactionHandler.ExportTransactions)
			r.Delete("/transactions", transactionHandler.DeleteTransactions)
		})
	})

	server := &http.Server{
		Addr:         ":" + config.Cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		logger.L.Info("HTTP server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.L.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.L.Error("Graceful shutdown failed", "error", err)
	}
}
