// Package recruitrag is a resume screening engine: projects collect
// uploaded resumes, an ingestion pipeline turns them into structured
// records and hybrid-indexed chunks, and a two-tier screening pipeline
// ranks candidates against the project's job description.
package recruitrag

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/semaphore"

	"github.com/devMohamedYusri/Recruit-Rag/llm"
	"github.com/devMohamedYusri/Recruit-Rag/parser"
	"github.com/devMohamedYusri/Recruit-Rag/screening"
	"github.com/devMohamedYusri/Recruit-Rag/store"
	"github.com/devMohamedYusri/Recruit-Rag/upload"
	"github.com/devMohamedYusri/Recruit-Rag/usage"
	"github.com/devMohamedYusri/Recruit-Rag/vector"
)

// Engine wires the full pipeline: uploads, ingestion, vector index,
// screening and usage accounting over one SQLite database. Safe for
// concurrent use.
type Engine struct {
	cfg       Config
	store     *store.Store
	provider  llm.Provider // generation, possibly a fallback composite
	extractor llm.Provider // generation with the extraction model override
	embedder  llm.Provider
	indexer   *vector.Indexer
	tracker   *usage.Tracker
	screener  *screening.Screener
	expander  *upload.Expander
	parsers   *parser.Registry
	sem       *semaphore.Weighted
}

// New creates an Engine from configuration. The database schema is
// created on first open.
func New(cfg Config) (*Engine, error) {
	if cfg.EmbeddingDim <= 0 {
		return nil, fmt.Errorf("%w: embedding_dim must be positive", ErrInvalidConfig)
	}
	if cfg.UploadMaxFiles <= 0 || cfg.UploadMaxTotalSizeMB <= 0 {
		return nil, fmt.Errorf("%w: upload limits must be positive", ErrInvalidConfig)
	}

	provider, err := buildGeneration(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	extractor, err := buildExtractor(cfg, provider)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	embedder, err := llm.NewProvider(providerConfig(cfg.Embedding, cfg.EmbeddingDim))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	dbPath := cfg.resolveDBPath()
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	st, err := store.New(dbPath, cfg.EmbeddingDim, cfg.VectorDistance)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	tracker := usage.NewTracker(st)
	concurrency := cfg.LLMConcurrencyLimit
	if concurrency <= 0 {
		concurrency = 50
	}

	e := &Engine{
		cfg:       cfg,
		store:     st,
		provider:  provider,
		extractor: extractor,
		embedder:  embedder,
		indexer:   vector.New(st, embedder),
		tracker:   tracker,
		screener:  screening.New(provider, tracker, concurrency),
		expander: upload.New(cfg.UploadDir, upload.Limits{
			MaxFiles:      cfg.UploadMaxFiles,
			MaxTotalBytes: cfg.maxUploadBytes(),
			CopyChunkSize: cfg.FileDefaultChunkSize,
		}),
		parsers: parser.NewRegistry(),
		sem:     semaphore.NewWeighted(int64(concurrency)),
	}
	if cfg.CVExtractionModelID != "" {
		slog.Info("extraction fallback model override", "model", extractor.ModelID())
	}
	slog.Info("engine ready", "db", dbPath, "embedding_dim", cfg.EmbeddingDim,
		"generation_model", provider.ModelID())
	return e, nil
}

// buildGeneration composes the generation provider, wrapping the primary
// in a fallback composite when a secondary is configured.
func buildGeneration(cfg Config) (llm.Provider, error) {
	primary, err := llm.NewProvider(providerConfig(cfg.Generation, cfg.EmbeddingDim))
	if err != nil {
		return nil, err
	}
	fb := cfg.GenerationFallback
	if fb.Provider == "" || fb.APIKey == "" {
		return primary, nil
	}
	secondary, err := llm.NewProvider(providerConfig(fb, cfg.EmbeddingDim))
	if err != nil {
		return nil, err
	}
	return llm.NewFallback(primary, secondary), nil
}

// buildExtractor returns the provider used by the extraction fallback
// path. With no CVExtractionModelID override the generation provider is
// shared; otherwise a sibling of the primary is built with the override
// model, without fallback wrapping, so extraction usage logs name the
// model that actually ran.
func buildExtractor(cfg Config, generation llm.Provider) (llm.Provider, error) {
	if cfg.CVExtractionModelID == "" {
		return generation, nil
	}
	ec := cfg.Generation
	ec.Model = cfg.CVExtractionModelID
	return llm.NewProvider(providerConfig(ec, cfg.EmbeddingDim))
}

func providerConfig(c LLMConfig, embeddingDim int) llm.Config {
	return llm.Config{
		Provider:     c.Provider,
		Model:        c.Model,
		BaseURL:      c.BaseURL,
		APIKey:       c.APIKey,
		EmbeddingDim: embeddingDim,
	}
}

// Close flushes pending usage writes and closes the database.
func (e *Engine) Close() error {
	e.tracker.Flush()
	return e.store.Close()
}

// UploadFiles validates, expands and persists an upload bundle for a
// project, creating the project on first reference. Returns one asset
// record per stored file.
func (e *Engine) UploadFiles(ctx context.Context, projectID string, files []upload.File) ([]store.Asset, error) {
	if err := e.store.EnsureProject(ctx, projectID); err != nil {
		return nil, err
	}

	stored, err := e.expander.Expand(projectID, files)
	if err != nil {
		return nil, err
	}

	assets := make([]store.Asset, 0, len(stored))
	for _, s := range stored {
		a := store.Asset{
			ProjectID:  projectID,
			Name:       s.Name,
			MIMEType:   s.ContentType,
			SizeBytes:  s.SizeBytes,
			StorageURL: s.Path,
		}
		id, err := e.store.InsertAsset(ctx, a)
		if err != nil {
			return nil, fmt.Errorf("%w: recording asset %s: %v", ErrStorageFailed, s.Name, err)
		}
		a.ID = id
		assets = append(assets, a)
	}
	slog.Info("upload stored", "project", projectID, "files", len(assets))
	return assets, nil
}

// SaveJobDescription creates or updates the project's job description.
func (e *Engine) SaveJobDescription(ctx context.Context, jd store.JobDescription) error {
	if err := e.store.EnsureProject(ctx, jd.ProjectID); err != nil {
		return err
	}
	return e.store.SaveJobDescription(ctx, jd)
}

// GetJobDescription returns the project's job description.
func (e *Engine) GetJobDescription(ctx context.Context, projectID string) (*store.JobDescription, error) {
	jd, err := e.store.GetJobDescription(ctx, projectID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrJobDescriptionNotFound
	}
	return jd, err
}

// ScreenRequest selects the screening mode and scope.
type ScreenRequest struct {
	ProjectID string

	// FileIDs optionally restricts screening to a subset of resumes.
	FileIDs []string

	// Smart selects the two-tier pipeline; false screens every resume
	// with the full LLM evaluation.
	Smart bool

	// MinTopCount is the smart-screen top-tier floor. Zero means the
	// configured default.
	MinTopCount int

	// Anonymize redacts candidate identity from every result.
	Anonymize bool
}

func (e *Engine) jdContext(ctx context.Context, projectID string) (*store.JobDescription, string, error) {
	jd, err := e.GetJobDescription(ctx, projectID)
	if err != nil {
		return nil, "", err
	}
	jdContext, err := screening.BuildJDContext(jd)
	if err != nil {
		return nil, "", err
	}
	return jd, jdContext, nil
}

// smartInput ranks the project's candidates via hybrid retrieval and
// resolves their resumes.
func (e *Engine) smartInput(ctx context.Context, req ScreenRequest, jd *store.JobDescription) (screening.SmartInput, error) {
	in := screening.SmartInput{MinTopCount: req.MinTopCount}
	if in.MinTopCount <= 0 {
		in.MinTopCount = e.cfg.MinTopCount
	}

	hits, err := e.indexer.Query(ctx, req.ProjectID, jd.Description, vector.RankingTopK)
	if err != nil {
		return in, err
	}
	candidates := vector.Aggregate(hits)
	if len(req.FileIDs) > 0 {
		keep := make(map[string]bool, len(req.FileIDs))
		for _, id := range req.FileIDs {
			keep[id] = true
		}
		filtered := candidates[:0]
		for _, c := range candidates {
			if keep[c.FileID] {
				filtered = append(filtered, c)
			}
		}
		candidates = filtered
	}
	in.Candidates = candidates

	fileIDs := make([]string, len(candidates))
	for i, c := range candidates {
		fileIDs[i] = c.FileID
	}
	resumes, err := e.store.ListResumes(ctx, req.ProjectID, fileIDs)
	if err != nil {
		return in, err
	}
	in.Resumes = make(map[string]*store.Resume, len(resumes))
	for i := range resumes {
		in.Resumes[resumes[i].FileID] = &resumes[i]
	}
	return in, nil
}

// Screen runs the selected screening pipeline and returns all results.
func (e *Engine) Screen(ctx context.Context, req ScreenRequest) ([]screening.Result, error) {
	jd, jdContext, err := e.jdContext(ctx, req.ProjectID)
	if err != nil {
		return nil, err
	}

	var results []screening.Result
	if req.Smart {
		in, err := e.smartInput(ctx, req, jd)
		if err != nil {
			return nil, err
		}
		results, err = e.screener.SmartScreen(ctx, req.ProjectID, jdContext, jd.Description, in)
		if err != nil {
			return nil, err
		}
	} else {
		resumes, err := e.store.ListResumes(ctx, req.ProjectID, req.FileIDs)
		if err != nil {
			return nil, err
		}
		results = e.screener.ScreenFull(ctx, req.ProjectID, jdContext, resumes)
	}

	if req.Anonymize {
		screening.Anonymize(results)
	}
	return results, nil
}

// ScreenStream runs the selected screening pipeline, emitting NDJSON
// records through emit as results complete.
func (e *Engine) ScreenStream(ctx context.Context, req ScreenRequest, emit screening.Emit) error {
	jd, jdContext, err := e.jdContext(ctx, req.ProjectID)
	if err != nil {
		return err
	}

	if req.Smart {
		in, err := e.smartInput(ctx, req, jd)
		if err != nil {
			return err
		}
		return e.screener.SmartScreenStream(ctx, req.ProjectID, jdContext, jd.Description, in, req.Anonymize, emit)
	}

	resumes, err := e.store.ListResumes(ctx, req.ProjectID, req.FileIDs)
	if err != nil {
		return err
	}
	return e.screener.ScreenFullStream(ctx, req.ProjectID, jdContext, resumes, req.Anonymize, emit)
}

// SearchVectors runs an ad-hoc hybrid search over a project's chunks.
func (e *Engine) SearchVectors(ctx context.Context, projectID, text string, topK int) ([]store.PointHit, error) {
	if topK <= 0 {
		topK = vector.SearchTopK
	}
	info, err := e.indexer.Info(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !info.Exists {
		return nil, ErrNoChunks
	}
	return e.indexer.Query(ctx, projectID, text, topK)
}

// VectorInfo describes the project's vector collection.
func (e *Engine) VectorInfo(ctx context.Context, projectID string) (*vector.Info, error) {
	return e.indexer.Info(ctx, projectID)
}

// ListProjects returns all projects.
func (e *Engine) ListProjects(ctx context.Context) ([]store.Project, error) {
	return e.store.ListProjects(ctx)
}

// ProjectDetail returns one project with its entity counts.
func (e *Engine) ProjectDetail(ctx context.Context, projectID string) (*store.ProjectDetail, error) {
	d, err := e.store.GetProjectDetail(ctx, projectID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProjectNotFound
	}
	return d, err
}

// DeleteProject removes a project, its rows, its vector collection and
// its stored files.
func (e *Engine) DeleteProject(ctx context.Context, projectID string) error {
	exists, err := e.store.ProjectExists(ctx, projectID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrProjectNotFound
	}

	if err := e.indexer.Drop(ctx, projectID); err != nil {
		return err
	}
	if err := e.store.DeleteProject(ctx, projectID); err != nil {
		return err
	}
	dir := filepath.Join(e.cfg.UploadDir, projectID)
	if err := os.RemoveAll(dir); err != nil {
		slog.Warn("removing project files failed", "project", projectID, "error", err)
	}
	slog.Info("project deleted", "project", projectID)
	return nil
}

// ListAssets returns the project's uploaded files.
func (e *Engine) ListAssets(ctx context.Context, projectID string) ([]store.Asset, error) {
	return e.store.ListAssets(ctx, projectID)
}

// DeleteAsset removes one uploaded file and its record.
func (e *Engine) DeleteAsset(ctx context.Context, projectID, name string) error {
	a, err := e.store.GetAsset(ctx, projectID, name)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrAssetNotFound
	}
	if err != nil {
		return err
	}
	if err := e.store.DeleteAsset(ctx, projectID, name); err != nil {
		return err
	}
	if err := os.Remove(a.StorageURL); err != nil && !os.IsNotExist(err) {
		slog.Warn("removing asset file failed", "path", a.StorageURL, "error", err)
	}
	return nil
}

// ListResumes returns the project's processed resumes, optionally
// filtered by file IDs.
func (e *Engine) ListResumes(ctx context.Context, projectID string, fileIDs []string) ([]store.Resume, error) {
	return e.store.ListResumes(ctx, projectID, fileIDs)
}

// GetResume returns one resume by file ID.
func (e *Engine) GetResume(ctx context.Context, projectID, fileID string) (*store.Resume, error) {
	r, err := e.store.GetResume(ctx, projectID, fileID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrResumeNotFound
	}
	return r, err
}

// UsageSummary aggregates a project's LLM usage.
func (e *Engine) UsageSummary(ctx context.Context, projectID string) (*store.UsageSummary, error) {
	e.tracker.Flush()
	return e.store.GetUsageSummary(ctx, projectID)
}

// UsageByFile returns per-file usage aggregations.
func (e *Engine) UsageByFile(ctx context.Context, projectID string) ([]store.FileUsage, error) {
	e.tracker.Flush()
	return e.store.GetUsageByFile(ctx, projectID)
}

// UsageLogs returns a page of raw usage records plus the total count.
func (e *Engine) UsageLogs(ctx context.Context, projectID string, limit, offset int) ([]store.UsageLog, int, error) {
	e.tracker.Flush()
	return e.store.ListUsageLogs(ctx, projectID, limit, offset)
}
