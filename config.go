package recruitrag

import (
	"os"
	"path/filepath"
)

// Config holds all configuration for the Recruit-Rag engine.
type Config struct {
	// DBPath is the full path to the SQLite database file.
	// If empty, defaults to ~/.recruitrag/<DBName>.db
	DBPath string `json:"db_path" yaml:"db_path"`

	// DBName is the name for the database (used when DBPath is empty).
	// Defaults to "recruitrag".
	DBName string `json:"db_name" yaml:"db_name"`

	// StorageDir controls where the database is created when DBPath is not
	// explicitly set. "home" (default) uses ~/.recruitrag/, "local" uses the
	// current working directory.
	StorageDir string `json:"storage_dir" yaml:"storage_dir"`

	// UploadDir is the root directory for stored asset files. Each project
	// gets its own subdirectory. Defaults to "assets/files".
	UploadDir string `json:"upload_dir" yaml:"upload_dir"`

	// Upload limits, enforced both before and after archive expansion.
	UploadMaxFiles       int `json:"upload_max_files" yaml:"upload_max_files"`               // default 200
	UploadMaxTotalSizeMB int `json:"upload_max_total_size_mb" yaml:"upload_max_total_size_mb"` // default 50

	// FileDefaultChunkSize is the copy buffer size for streaming uploads to
	// disk, in bytes. Defaults to 1 MiB.
	FileDefaultChunkSize int `json:"file_default_chunk_size" yaml:"file_default_chunk_size"`

	// LLM providers. Generation is the primary chat/extraction provider;
	// GenerationFallback, when configured, wraps it in a composite provider
	// that retries failed calls against the secondary. Embedding is used for
	// all vector work and never falls back.
	Generation         LLMConfig `json:"generation" yaml:"generation"`
	GenerationFallback LLMConfig `json:"generation_fallback" yaml:"generation_fallback"`
	Embedding          LLMConfig `json:"embedding" yaml:"embedding"`

	// CVExtractionModelID optionally overrides the generation model for the
	// structured-extraction fallback path. Empty means use Generation.Model.
	CVExtractionModelID string `json:"cv_extraction_model_id" yaml:"cv_extraction_model_id"`

	// LLMConcurrencyLimit bounds parallel in-flight LLM calls across the
	// extraction and screening fan-outs. Default 50.
	LLMConcurrencyLimit int `json:"llm_concurrency_limit" yaml:"llm_concurrency_limit"`

	// EmbeddingDim is the dense vector dimensionality (must match the
	// embedding model). Default 768.
	EmbeddingDim int `json:"embedding_dim" yaml:"embedding_dim"`

	// VectorDistance is the distance metric for dense search: "cosine"
	// (default), "l2" or "l1".
	VectorDistance string `json:"vector_distance" yaml:"vector_distance"`

	// MinTopCount is the default floor for the smart-screen top tier.
	MinTopCount int `json:"min_top_count" yaml:"min_top_count"`
}

// LLMConfig configures a single LLM provider endpoint.
type LLMConfig struct {
	Provider string `json:"provider" yaml:"provider"` // gemini, groq, custom
	Model    string `json:"model" yaml:"model"`
	BaseURL  string `json:"base_url" yaml:"base_url"`
	APIKey   string `json:"api_key" yaml:"api_key"`
}

// DefaultConfig returns a Config with the stock limits and model selection.
// Database is stored in ~/.recruitrag/recruitrag.db by default.
func DefaultConfig() Config {
	return Config{
		DBName:               "recruitrag",
		StorageDir:           "home",
		UploadDir:            "assets/files",
		UploadMaxFiles:       200,
		UploadMaxTotalSizeMB: 50,
		FileDefaultChunkSize: 1 << 20,
		Generation: LLMConfig{
			Provider: "gemini",
			Model:    "gemini-2.0-flash",
		},
		GenerationFallback: LLMConfig{
			Provider: "groq",
			Model:    "llama-3.3-70b-versatile",
		},
		Embedding: LLMConfig{
			Provider: "gemini",
			Model:    "gemini-embedding-001",
		},
		LLMConcurrencyLimit: 50,
		EmbeddingDim:        768,
		VectorDistance:      "cosine",
		MinTopCount:         5,
	}
}

// resolveDBPath computes the final database path from config fields.
func (c *Config) resolveDBPath() string {
	if c.DBPath != "" {
		return c.DBPath
	}

	name := c.DBName
	if name == "" {
		name = "recruitrag"
	}

	switch c.StorageDir {
	case "local", "cwd":
		return name + ".db"
	default: // "home" or empty
		home, err := os.UserHomeDir()
		if err != nil {
			return name + ".db" // fallback to cwd
		}
		return filepath.Join(home, ".recruitrag", name+".db")
	}
}

// maxUploadBytes returns the upload size limit in bytes.
func (c *Config) maxUploadBytes() int64 {
	return int64(c.UploadMaxTotalSizeMB) << 20
}
