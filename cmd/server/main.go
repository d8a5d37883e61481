package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/splitit-app/splitit/internal/auth"
	"github.com/splitit-app/splitit/internal/server"
	"github.com/splitit-app/splitit/internal/splitter"
	"github.com/splitit-app/splitit/internal/storage/sqlite"
	"github.com/splitit-app/splitit/pkg/logging"
)

const tokenDuration = 24 * time.Hour

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func main() {
	logging.Setup()

	dbPath := getEnv("DB_PATH", "./data/splitit.db")
	port := getEnv("PORT", "8080")
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		slog.Error("JWT_SECRET is required")
		os.Exit(1)
	}

	policy := splitter.Policy(getEnv("SPLIT_POLICY", string(splitter.PolicyLowestTotal)))

	store, err := sqlite.New(dbPath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", dbPath)

	authn := auth.NewPasswordAuthenticator(store)
	jwtManager := auth.NewJWTManager(jwtSecret, tokenDuration)

	srv := server.New(store, authn, jwtManager, policy)

	// Wrap with h2c so HTTP/2 clients work without TLS termination here.
	handler := h2c.NewHandler(srv.Handler(), &http2.Server{})

	addr := fmt.Sprintf(":%s", port)
	slog.Info("Server starting", "address", addr, "policy", string(policy))
	if err := http.ListenAndServe(addr, handler); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
