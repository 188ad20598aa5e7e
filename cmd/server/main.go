package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	recruitrag "github.com/devMohamedYusri/Recruit-Rag"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (JSON or YAML)")
	addr := flag.String("addr", ":8080", "Listen address")
	flag.Parse()

	// Structured JSON logging.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	// .env is optional; real environment variables win.
	if err := godotenv.Load(); err == nil {
		slog.Info("loaded .env")
	}

	cfg := recruitrag.DefaultConfig()
	if *configPath != "" {
		if err := loadConfigFile(*configPath, &cfg); err != nil {
			slog.Error("loading config", "path", *configPath, "error", err)
			os.Exit(1)
		}
	}
	applyEnv(&cfg)

	apiKey := os.Getenv("RECRUITRAG_API_KEY")
	corsOrigins := os.Getenv("RECRUITRAG_CORS_ORIGINS")

	engine, err := recruitrag.New(cfg)
	if err != nil {
		slog.Error("creating engine", "error", err)
		os.Exit(1)
	}
	defer engine.Close()

	h := newHandler(engine)
	mux := http.NewServeMux()

	mux.HandleFunc("GET /projects", h.handleListProjects)
	mux.HandleFunc("GET /projects/{project_id}", h.handleProjectDetail)
	mux.HandleFunc("DELETE /projects/{project_id}", h.handleDeleteProject)
	mux.HandleFunc("POST /projects/{project_id}/upload", h.handleUpload)
	mux.HandleFunc("POST /projects/{project_id}/process", h.handleProcess)
	mux.HandleFunc("PUT /projects/{project_id}/job-description", h.handleSaveJobDescription)
	mux.HandleFunc("GET /projects/{project_id}/job-description", h.handleGetJobDescription)
	mux.HandleFunc("POST /projects/{project_id}/screen", h.handleScreen)
	mux.HandleFunc("POST /projects/{project_id}/search", h.handleSearch)
	mux.HandleFunc("GET /projects/{project_id}/vector-info", h.handleVectorInfo)
	mux.HandleFunc("GET /projects/{project_id}/assets", h.handleListAssets)
	mux.HandleFunc("DELETE /projects/{project_id}/assets/{name}", h.handleDeleteAsset)
	mux.HandleFunc("GET /projects/{project_id}/resumes", h.handleListResumes)
	mux.HandleFunc("GET /projects/{project_id}/resumes/{file_id}", h.handleGetResume)
	mux.HandleFunc("GET /projects/{project_id}/usage", h.handleUsageSummary)
	mux.HandleFunc("GET /projects/{project_id}/usage/files", h.handleUsageByFile)
	mux.HandleFunc("GET /projects/{project_id}/usage/logs", h.handleUsageLogs)
	mux.HandleFunc("GET /health", h.handleHealth)

	srv := &http.Server{
		Addr:         *addr,
		Handler:      wrap(mux, apiKey, corsOrigins),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // screening streams can run for minutes
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown on SIGTERM/SIGINT.
	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", *addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("server stopped")
}

// loadConfigFile decodes a JSON or YAML config file by extension.
func loadConfigFile(path string, cfg *recruitrag.Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	default:
		return json.Unmarshal(data, cfg)
	}
}

// applyEnv overrides config fields from environment variables.
func applyEnv(cfg *recruitrag.Config) {
	if v := os.Getenv("RECRUITRAG_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("RECRUITRAG_UPLOAD_DIR"); v != "" {
		cfg.UploadDir = v
	}
	if v := os.Getenv("RECRUITRAG_GENERATION_MODEL"); v != "" {
		cfg.Generation.Model = v
	}
	if v := os.Getenv("RECRUITRAG_EMBEDDING_MODEL"); v != "" {
		cfg.Embedding.Model = v
	}
	if v := os.Getenv("RECRUITRAG_CV_EXTRACTION_MODEL"); v != "" {
		cfg.CVExtractionModelID = v
	}
	if v := os.Getenv("RECRUITRAG_EMBEDDING_DIM"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.EmbeddingDim = n
		}
	}
	if v := os.Getenv("RECRUITRAG_LLM_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.LLMConcurrencyLimit = n
		}
	}

	// Well-known provider keys.
	applyProviderKey(&cfg.Generation)
	applyProviderKey(&cfg.GenerationFallback)
	applyProviderKey(&cfg.Embedding)
}

func applyProviderKey(c *recruitrag.LLMConfig) {
	if c.APIKey != "" {
		return
	}
	switch c.Provider {
	case "gemini":
		c.APIKey = os.Getenv("GEMINI_API_KEY")
	case "groq":
		c.APIKey = os.Getenv("GROQ_API_KEY")
	}
}
