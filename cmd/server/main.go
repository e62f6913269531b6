package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/series-locker/backend/internal/auth"
	"github.com/series-locker/backend/internal/config"
	"github.com/series-locker/backend/internal/mail"
	"github.com/series-locker/backend/internal/middleware"
	"github.com/series-locker/backend/internal/series"
	"github.com/series-locker/backend/internal/store"
	"github.com/series-locker/backend/internal/web"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET must be set")
		os.Exit(1)
	}

	// ── MongoDB ──────────────────────────────────────────────
	mongoClient, err := store.ConnectMongo(ctx, cfg.MongoURI)
	if err != nil {
		slog.Error("mongo connect", "err", err)
		os.Exit(1)
	}
	defer mongoClient.Disconnect(ctx)
	db := mongoClient.Database(cfg.MongoDB)
	if err := store.EnsureIndexes(ctx, db); err != nil {
		slog.Error("mongo indexes", "err", err)
		os.Exit(1)
	}
	users := store.NewUserStore(db)
	seriesStore := store.NewSeriesStore(db)

	// ── Redis ────────────────────────────────────────────────
	rdb, err := store.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		slog.Error("redis connect", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()
	rateCounter := store.NewRateCounter(rdb)

	// ── Services ─────────────────────────────────────────────
	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.JWTExpires)
	mailer := mail.NewSMTPMailer(cfg)
	debug := !cfg.Production()

	// ── Handlers ─────────────────────────────────────────────
	authHandler := auth.NewHandler(users, tokens, mailer, cfg)
	seriesHandler := series.NewHandler(seriesStore, debug)

	// ── Router ───────────────────────────────────────────────
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(chimw.Compress(5))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RateLimit(rateCounter, cfg.RateLimitMax))

		r.Route("/v1/users", func(r chi.Router) {
			r.Post("/signup", authHandler.Signup)
			r.Post("/login", authHandler.Login)
			r.Get("/logout", authHandler.Logout)
			r.Post("/forgotPassword", authHandler.ForgotPassword)
			r.Patch("/resetPassword/{token}", authHandler.ResetPassword)
		})

		r.Route("/v1/series", func(r chi.Router) {
			r.Use(middleware.RequireAuth(tokens, users, debug))
			r.Get("/", seriesHandler.List)
			r.Post("/", seriesHandler.Create)
			r.Get("/{id}", seriesHandler.Get)
			r.Patch("/{id}", seriesHandler.Update)
			r.Delete("/{id}", seriesHandler.Delete)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		web.JSON(w, http.StatusNotFound, map[string]string{
			"status":  "fail",
			"message": "Could not find " + r.URL.Path + " on this server.",
		})
	})

	// ── Server ───────────────────────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		slog.Info("listening", "port", cfg.Port, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")
	shutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	srv.Shutdown(shutCtx)
}
