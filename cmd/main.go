package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	v1handlers "github.com/deepgram/threadgate/internal/api/v1/handlers"
	v1mware "github.com/deepgram/threadgate/internal/api/v1/middleware"
	"github.com/deepgram/threadgate/internal/config"
	"github.com/deepgram/threadgate/internal/services"
	"github.com/deepgram/threadgate/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// a missing .env is normal outside local development
	envErr := godotenv.Load()

	serverCfg := config.GetServerConfig()
	logger.Setup(serverCfg.LogLevel, serverCfg.LogFormat)
	if envErr != nil {
		log.Debug().Err(envErr).Msg("No .env file loaded")
	}

	upstreamCfg, err := config.LoadUpstreamConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	svc, err := services.InitializeServices(upstreamCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}

	server := &http.Server{
		Addr:              ":" + serverCfg.Port,
		Handler:           setupRouter(svc, serverCfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("addr", server.Addr).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("ListenAndServe error")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// hijacked WebSocket connections are not covered by Shutdown
	svc.GetConnectionManager().CloseAll()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
	svc.Close()

	log.Info().Msg("Server stopped")
}

func setupRouter(svc *services.Services, serverCfg config.ServerConfig) http.Handler {
	router := mux.NewRouter()
	router.Use(v1mware.RequestID, v1mware.RequestLogger)

	v1handlers.RegisterRoutes(router, svc)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Debug().Str("path", r.URL.Path).Msg("No route matched")
		http.NotFound(w, r)
	})

	return cors.New(cors.Options{
		AllowedOrigins:   serverCfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{v1mware.RequestIDHeader},
		AllowCredentials: true,
	}).Handler(router)
}
