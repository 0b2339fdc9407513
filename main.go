package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/tagvault/backend/config"
	"github.com/tagvault/backend/database"
	"github.com/tagvault/backend/gallery"
	"github.com/tagvault/backend/handlers"
	"github.com/tagvault/backend/logger"
	"github.com/tagvault/backend/media"
	"github.com/tagvault/backend/realtime"
	"github.com/tagvault/backend/repository"
	"github.com/tagvault/backend/tagging"
	"github.com/tagvault/backend/workers"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Info: No .env file found or error loading: %v", err)
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	zlog, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize logger: %v", err)
	}
	defer zlog.Sync()

	db, err := database.InitGormDB(cfg.DatabasePath)
	if err != nil {
		zlog.Fatal("failed to initialize database", zap.Error(err))
	}
	if err := database.AutoMigrateModels(db); err != nil {
		zlog.Fatal("failed to migrate database", zap.Error(err))
	}

	ctx := context.Background()

	var store media.Store
	switch cfg.StorageBackend {
	case config.StorageBackendS3:
		store, err = media.NewS3Storage(ctx, cfg.S3, zlog)
	default:
		store, err = media.NewLocalStorage(cfg.MediaStoragePath, cfg.PublicBaseURL, zlog)
	}
	if err != nil {
		zlog.Fatal("failed to initialize media store", zap.Error(err))
	}

	imageRepo := repository.NewImageRepository(db)

	galleryStore := gallery.NewStore(imageRepo, zlog)
	if err := galleryStore.Load(); err != nil {
		zlog.Fatal("failed to load gallery snapshot", zap.Error(err))
	}

	hub := realtime.NewHub(zlog)
	go hub.Run()
	go hub.Watch(galleryStore.Subscribe())

	processor := workers.NewImageProcessor(store, imageRepo,
		cfg.ThumbnailMaxSize, cfg.WorkerQueueSize, cfg.NumWorkers,
		galleryStore.Refresh, zlog)

	tagger := tagging.NewClient(cfg, zlog)
	fetcher := media.NewFetcher(zlog)
	uploader := gallery.NewUploader(tagger, store, imageRepo, galleryStore, processor, zlog)

	imageHandler := &handlers.ImageHandler{Uploader: uploader, Gallery: galleryStore, Logger: zlog}
	fetchHandler := &handlers.FetchHandler{Fetcher: fetcher, Logger: zlog}
	taggingHandler := &handlers.TaggingHandler{Tagger: tagger, Logger: zlog}

	r := chi.NewRouter()

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(corsHandler.Handler)

	// stored objects are static assets and stay outside the auth gate
	if cfg.StorageBackend == config.StorageBackendLocal {
		r.Get("/media/*", handlers.AssetServer(cfg.MediaStoragePath))
	}

	r.Group(func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return handlers.BasicAuth(cfg, next)
		})

		r.Route("/api", func(r chi.Router) {
			// the websocket route is long-lived and must stay outside the timeout
			r.Get("/ws", hub.ServeWS)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Timeout(60 * time.Second))
				r.Route("/images", func(r chi.Router) {
					r.Get("/", imageHandler.ListImages)
					r.Post("/", imageHandler.UploadImage)
					r.Post("/fetch", fetchHandler.FetchFromURL)
					r.Delete("/{image_id}", imageHandler.DeleteImage)
				})
				r.Post("/tags", taggingHandler.GenerateTags)
			})
		})

		r.Handle("/metrics", promhttp.Handler())
	})

	// no WriteTimeout: websocket connections outlive any fixed deadline
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		zlog.Info("server listening",
			zap.String("addr", server.Addr),
			zap.String("storage_backend", cfg.StorageBackend),
			zap.Bool("basic_auth", cfg.BasicAuthEnabled()))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal("server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	zlog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error("server shutdown error", zap.Error(err))
	}
	processor.Stop()
}
