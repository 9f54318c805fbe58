package main

import (
	"context"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"path"
	"runtime"
	"strings"
	"time"

	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/joho/godotenv/autoload"

	"bookshelf/internal/logger"
	"bookshelf/internal/openlibrary"
	"bookshelf/internal/response"
	"bookshelf/internal/server"
	"bookshelf/internal/storage/books"
	"bookshelf/internal/storage/reviews"
)

func getEnvOrDefault(key, default_ string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}

	return default_
}

func getBoolEnv(key string) bool {
	if val := strings.ToLower(os.Getenv(key)); val == "yes" || val == "on" || val == "true" {
		return true
	}

	return false
}

var (
	logLevel     = strings.ToLower(getEnvOrDefault("LOG_LEVEL", "debug"))
	dbConnStr    = os.Getenv("DATABASE_URL")
	bindAddr     = getEnvOrDefault("BIND_ADDR", ":8080")
	debugMode    = getBoolEnv("DEBUG_MODE")
	catalogUrl   = getEnvOrDefault("OPENLIBRARY_URL", "https://openlibrary.org")
	coversUrl    = getEnvOrDefault("COVERS_URL", "https://covers.openlibrary.org")
	templatesDir = getEnvOrDefault("TEMPLATES_DIR", "web/templates")
)

func main() {
	_, thisFile, _, _ := runtime.Caller(0)

	var lvl slog.Level
	err := lvl.UnmarshalText([]byte(logLevel))
	if err != nil {
		lvl = slog.LevelDebug
	}
	logger.SetupSLog(lvl, path.Dir(path.Dir(path.Dir(thisFile))), middleware.RequestIDKey)

	if err != nil {
		slog.Error("Invalid log level specified in LOG_LEVEL, one of debug, info, warn or error expected")
		os.Exit(1)
	}

	cfg, err := pgxpool.ParseConfig(dbConnStr)
	if err != nil {
		slog.Error("Failed to parse DATABASE_URL: " + err.Error())
		os.Exit(1)
	}

	cfg.ConnConfig.Tracer = logger.NewPGXTracer()

	pg, err := pgxpool.NewWithConfig(context.Background(), cfg)
	if err != nil {
		slog.Error("failed to create postgres pool: " + err.Error())
		os.Exit(1)
	}

	tpls, err := template.ParseGlob(path.Join(templatesDir, "*.html"))
	if err != nil {
		slog.Error("Failed to parse templates from " + templatesDir + ": " + err.Error())
		os.Exit(1)
	}

	catalog := openlibrary.NewClient(
		&http.Client{Timeout: 15 * time.Second},
		catalogUrl, coversUrl, slog.Default())

	r := chi.NewRouter()
	r.Use(middleware.RequestID)

	r.Mount("/", server.Handler(
		books.NewPGXRepository(pg, slog.Default()),
		reviews.NewPGXRepository(pg, slog.Default()),
		catalog,
		&response.Responder{DebugMode: debugMode, Templates: tpls},
	))

	slog.Error("aborting: " + http.ListenAndServe(bindAddr, r).Error())
	os.Exit(1)
}
