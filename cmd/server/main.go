package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/soaringjerry/Encuesta/internal/api"
	"github.com/soaringjerry/Encuesta/internal/config"
	dbstore "github.com/soaringjerry/Encuesta/internal/db"
	"github.com/soaringjerry/Encuesta/internal/middleware"
	"github.com/soaringjerry/Encuesta/internal/services"
	"github.com/soaringjerry/Encuesta/internal/session"
	"github.com/soaringjerry/Encuesta/internal/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	commit, buildTime := utils.BuildInfo()

	gdb, err := dbstore.Open(dbstore.Config{Driver: cfg.DBDriver, DSN: cfg.DBDSN, LogLevel: cfg.DBLogLevel})
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	store, err := dbstore.NewStore(gdb)
	if err != nil {
		log.Fatalf("store: %v", err)
	}
	ctx := context.Background()
	if err := MigrateAndImport(ctx, gdb, store, cfg.MigrationsDir, cfg.SchemaPath); err != nil {
		log.Fatalf("%v", err)
	}

	var sessions services.SessionStore
	switch cfg.SessionBackend {
	case "redis":
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("redis %s: %v", cfg.RedisAddr, err)
		}
		defer rdb.Close()
		sessions = session.NewRedisStore(rdb, "encuesta:", cfg.SessionTTL)
	default:
		sessions = session.NewMemoryStore(cfg.SessionTTL)
	}

	router := mux.NewRouter()
	api.NewRouter(api.Deps{
		Store:    store,
		Sessions: sessions,
		Signer:   middleware.NewSessionSigner(cfg.SessionSecret, cfg.SessionTTL),
		Scorer:   services.NewScoringEngine(services.ScoreThresholds{Mild: cfg.ScoreMild, Intense: cfg.ScoreIntense}),
	}).Register(router)

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		locale := middleware.LocaleFromContext(r.Context())
		ok := store.Ping(r.Context()) == nil
		if !ok {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":     ok,
			"name":   "Encuesta API",
			"locale": locale,
			"msg":    utils.T(locale, "health.ok"),
			"commit": commit,
		})
	}).Methods(http.MethodGet)
	router.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"commit": commit, "build_time": buildTime})
	}).Methods(http.MethodGet)
	if cfg.StaticDir != "" {
		router.PathPrefix("/").Handler(http.FileServer(http.Dir(cfg.StaticDir)))
	}

	handler := middleware.RequestLog(
		middleware.CORS(cfg.CORS)(
			middleware.SecureHeaders(
				middleware.NoStore(
					middleware.LocaleMiddleware(router)))))

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}
	go func() {
		log.Printf("Encuesta server listening on %s (db=%s, sessions=%s)", cfg.Addr, cfg.DBDriver, cfg.SessionBackend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("forced shutdown: %v", err)
	}
	if sqlDB, err := gdb.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
