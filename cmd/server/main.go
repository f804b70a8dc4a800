package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"

	"github.com/consiglab/importer/internal/config"
	"github.com/consiglab/importer/internal/db"
	"github.com/consiglab/importer/internal/importer"
	"github.com/consiglab/importer/internal/middleware"
	"github.com/consiglab/importer/internal/repository"
	"github.com/consiglab/importer/internal/storage"
	"github.com/consiglab/importer/pkg/logger"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(".")
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	conn, err := db.NewConnection(ctx, cfg.DB)
	if err != nil {
		log.Fatal(ctx, "failed to connect to database", "error", err)
	}
	defer conn.Close()

	if err := db.RunMigrations(cfg.DB.URL(), "./migrations"); err != nil {
		log.Fatal(ctx, "failed to run migrations", "error", err)
	}

	store, err := storage.NewLocalStore(cfg.Import.UploadDir)
	if err != nil {
		log.Fatal(ctx, "failed to prepare upload store", "error", err)
	}

	clienteRepo := repository.NewClienteRepository(conn.Pool)
	contratoRepo := repository.NewContratoRepository(conn.Pool)
	jobRepo := repository.NewImportJobRepository(conn.Pool)

	service := importer.NewService(clienteRepo, contratoRepo, jobRepo, store, log, cfg.Import.Presets, cfg.Import.MaxFileSize)
	handler := importer.NewHTTPHandler(service, log)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
	})

	mux := handler.Routes()
	root := middleware.Logging(log)(corsHandler.Handler(mux))

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      root,
		ReadTimeout:  15 * time.Minute, // uploads can be large
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info(ctx, "starting import server", "addr", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(ctx, "failed to start server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info(ctx, "shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal(ctx, "server forced to shutdown", "error", err)
	}

	log.Info(ctx, "server exited")
}
