package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"mockingbird/internal/config"
	"mockingbird/internal/server"
	"mockingbird/internal/session"
	"mockingbird/internal/snapshot"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := newLogger(cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	store, err := newSnapshotStore(cfg.Snapshot)
	if err != nil {
		log.Fatal("snapshot store", zap.Error(err))
	}
	log.Info("snapshot store ready", zap.String("backend", cfg.Snapshot.Backend))

	sessions := session.NewManager(log, store, session.Options{
		Entry:    cfg.Entry,
		Debounce: cfg.Debounce,
	})

	handler := server.NewHandler(sessions, log)
	srv := server.New(cfg.Port, withCORS(server.BuildMux(handler)), log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			log.Fatal("server", zap.Error(err))
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown", zap.Error(err))
	}
	sessions.CloseAll()
}

func newLogger(env string) (*zap.Logger, error) {
	if strings.EqualFold(env, "production") {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func newSnapshotStore(cfg config.SnapshotConfig) (snapshot.Store, error) {
	switch cfg.Backend {
	case "memory":
		return snapshot.NewMemoryStore(), nil
	case "file":
		return snapshot.NewFileStore(cfg.FileDir)
	case "postgres":
		return snapshot.NewPostgresStore(cfg.DSN)
	case "s3":
		return snapshot.NewS3Store(snapshot.S3Config{
			Endpoint:  cfg.Endpoint,
			Region:    cfg.Region,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			Bucket:    cfg.Bucket,
			UseSSL:    cfg.UseSSL,
		})
	default:
		return nil, fmt.Errorf("unknown snapshot backend %q", cfg.Backend)
	}
}

// withCORS allows the editor frontend on another origin to talk to the API.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := strings.TrimSpace(r.Header.Get("Origin"))
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Vary", "Origin")
		} else {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization")
		if r.Method == http.MethodOptions {
			return
		}
		next.ServeHTTP(w, r)
	})
}
