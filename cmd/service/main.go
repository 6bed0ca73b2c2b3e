package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"

	_ "github.com/bulatminnakhmetov/brigadka-gallery/docs"
	client "github.com/bulatminnakhmetov/brigadka-gallery/internal/client/gallery"
	"github.com/bulatminnakhmetov/brigadka-gallery/internal/config"
	handler "github.com/bulatminnakhmetov/brigadka-gallery/internal/handler/gallery"
	"github.com/bulatminnakhmetov/brigadka-gallery/internal/logger"
	"github.com/bulatminnakhmetov/brigadka-gallery/internal/service/gallery"
	"github.com/bulatminnakhmetov/brigadka-gallery/internal/service/preview"
)

// @title           Brigadka Gallery
// @version         1.0
// @description     Browser view of the image gallery API.
// @BasePath        /
func main() {
	cfg, err := config.Load()
	if err != nil {
		// logger is not configured yet
		zap.NewExample().Fatal("failed to load config", zap.Error(err))
	}

	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		zap.NewExample().Fatal("failed to create logger", zap.Error(err))
	}
	defer log.Sync()

	log.Info("using gallery API", zap.String("url", cfg.API.BaseURL))

	api := client.NewClient(cfg.API.BaseURL)
	previews := preview.NewStore()

	svc := gallery.NewService(api, previews, gallery.Options{
		PlaceholderURL: cfg.Gallery.PlaceholderURL,
		MaxFileSize:    cfg.Gallery.MaxUploadSize,
	}, log.Named("gallery"))

	// Initial fetch; the page shows the loading banner until it lands
	go svc.List(context.Background())

	galleryHandler := handler.NewHandler(svc, previews, cfg.Gallery.MaxUploadSize, log.Named("http"))

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logger.Middleware(log))
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	galleryHandler.RegisterRoutes(r)

	server := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: r,
	}

	go func() {
		log.Info("server is starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("could not start server", zap.String("addr", server.Addr), zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop

	log.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Closing the service ends the websocket streams so Shutdown does not wait on them
	svc.Close()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}
	previews.Close()

	log.Info("server gracefully stopped")
}
