package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/tendant/simple-upload/pkg/simpleupload/api"
	"github.com/tendant/simple-upload/pkg/simpleupload/config"
)

// serverEnv holds process-level settings that sit outside the upload
// pipeline configuration.
type serverEnv struct {
	Port        string `env:"PORT" env-default:"8080"`
	Environment string `env:"ENVIRONMENT" env-default:"development"`

	// JWTSecret enables bearer-token verification on the upload API
	// when set. The token's "sub" claim is recorded on uploaded
	// objects.
	JWTSecret string `env:"UPLOAD_JWT_SECRET"`
}

func main() {
	var env serverEnv
	if err := cleanenv.ReadEnv(&env); err != nil {
		slog.Error("failed to read environment", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load(
		config.WithEnv(""),
		config.WithPort(env.Port),
		config.WithEnvironment(env.Environment),
	)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	svc, err := cfg.BuildService()
	if err != nil {
		slog.Error("failed to build upload service", "error", err)
		os.Exit(1)
	}

	handler := api.NewUploadHandler(svc)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	if env.JWTSecret != "" {
		tokenAuth := jwtauth.New("HS256", []byte(env.JWTSecret), nil)
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(tokenAuth))
			r.Use(jwtauth.Authenticator)
			r.Mount("/api/v1/uploads", handler.Routes())
		})
	} else {
		r.Mount("/api/v1/uploads", handler.Routes())
	}

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: r,
	}

	go func() {
		slog.Info("upload server starting",
			"port", cfg.Port,
			"env", cfg.Environment,
			"storage", cfg.Storage.Type,
			"key_prefix", cfg.KeyPrefix,
			"presign_expiry", cfg.PresignExpiry,
			"auth", env.JWTSecret != "")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("forced shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("server exited")
}
