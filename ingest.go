package recruitrag

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/devMohamedYusri/Recruit-Rag/chunker"
	"github.com/devMohamedYusri/Recruit-Rag/parser"
	"github.com/devMohamedYusri/Recruit-Rag/store"
	"github.com/devMohamedYusri/Recruit-Rag/usage"
)

const (
	structureBatchSize = 3
	chunkInsertBatch   = 200
)

// IngestRequest selects which assets to process.
type IngestRequest struct {
	ProjectID string

	// AssetNames optionally restricts processing to a subset of the
	// project's assets. Empty means all.
	AssetNames []string

	// Reset deletes the project's resumes and chunks first; the vector
	// collection is dropped and recreated by the indexer.
	Reset bool
}

// IngestError is one per-file failure collected during ingestion.
type IngestError struct {
	FileID string `json:"file_id"`
	Error  string `json:"error"`
}

// IngestResult summarizes one ingestion run.
type IngestResult struct {
	Processed     int           `json:"processed"`
	ChunksCreated int           `json:"chunks_created"`
	Errors        []IngestError `json:"errors"`
}

// extraction is the Phase E outcome for one asset. For the local method
// content is plain text; for the LLM fallback it is the structured JSON
// the provider returned.
type extraction struct {
	asset   store.Asset
	content string
	method  string
}

// structuredResume is the canonical object the generation service
// produces, both from batch structuring and from the extraction fallback.
type structuredResume struct {
	CandidateName string          `json:"candidate_name"`
	ContactInfo   map[string]any  `json:"contact_info"`
	ParsedData    json.RawMessage `json:"parsed_data"`
}

// ProcessResumes runs the three ingestion phases over the selected
// assets: extraction (local with LLM fallback), structuring, then
// chunking and vector indexing. Per-file failures are collected in the
// result; only project-level failures return an error.
func (e *Engine) ProcessResumes(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	exists, err := e.store.ProjectExists(ctx, req.ProjectID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrProjectNotFound
	}

	assets, err := e.selectAssets(ctx, req)
	if err != nil {
		return nil, err
	}

	if req.Reset {
		if err := e.store.DeleteResumesByProject(ctx, req.ProjectID); err != nil {
			return nil, err
		}
		if err := e.store.DeleteChunksByProject(ctx, req.ProjectID); err != nil {
			return nil, err
		}
		slog.Info("ingest reset", "project", req.ProjectID)
	}

	result := &IngestResult{Errors: []IngestError{}}

	extracted := e.extractPhase(ctx, assets, result)
	resumes := e.structurePhase(ctx, req.ProjectID, extracted, result)
	e.chunkPhase(ctx, req, resumes, result)

	result.Processed = len(resumes)
	slog.Info("ingest finished", "project", req.ProjectID,
		"processed", result.Processed, "chunks", result.ChunksCreated,
		"errors", len(result.Errors))
	return result, nil
}

func (e *Engine) selectAssets(ctx context.Context, req IngestRequest) ([]store.Asset, error) {
	assets, err := e.store.ListAssets(ctx, req.ProjectID)
	if err != nil {
		return nil, err
	}
	if len(req.AssetNames) == 0 {
		return assets, nil
	}
	keep := make(map[string]bool, len(req.AssetNames))
	for _, n := range req.AssetNames {
		keep[n] = true
	}
	filtered := assets[:0]
	for _, a := range assets {
		if keep[a.Name] {
			filtered = append(filtered, a)
		}
	}
	return filtered, nil
}

// extractPhase fans out per-asset extraction under the LLM concurrency
// bound. Failed assets are recorded and skipped.
func (e *Engine) extractPhase(ctx context.Context, assets []store.Asset, result *IngestResult) []extraction {
	type slot struct {
		ext extraction
		err error
	}
	slots := make([]slot, len(assets))

	var wg sync.WaitGroup
	for i := range assets {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := e.sem.Acquire(ctx, 1); err != nil {
				slots[i].err = err
				return
			}
			defer e.sem.Release(1)
			slots[i].ext, slots[i].err = e.extractOne(ctx, &assets[i])
		}(i)
	}
	wg.Wait()

	extracted := make([]extraction, 0, len(assets))
	for i := range slots {
		if slots[i].err != nil {
			result.Errors = append(result.Errors, IngestError{
				FileID: assets[i].Name,
				Error:  slots[i].err.Error(),
			})
			continue
		}
		extracted = append(extracted, slots[i].ext)
	}
	return extracted
}

// extractOne attempts local extraction and validation, falling back to
// provider-side structured extraction on failure.
func (e *Engine) extractOne(ctx context.Context, asset *store.Asset) (extraction, error) {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(asset.Name), "."))

	content, localErr := e.extractLocal(ctx, asset, ext)
	if localErr == nil {
		return extraction{asset: *asset, content: content, method: store.MethodLocal}, nil
	}
	slog.Info("local extraction rejected, using LLM fallback",
		"file_id", asset.Name, "reason", localErr)

	structured, err := e.extractFallback(ctx, asset)
	if err != nil {
		return extraction{}, fmt.Errorf("%w: %v (local: %v)", ErrExtractionFailed, err, localErr)
	}
	return extraction{asset: *asset, content: structured, method: store.MethodLLMFallback}, nil
}

func (e *Engine) extractLocal(ctx context.Context, asset *store.Asset, ext string) (string, error) {
	loader, err := e.parsers.Get(ext)
	if err != nil {
		return "", err
	}
	content, err := loader.Load(ctx, asset.StorageURL)
	if err != nil {
		return "", err
	}
	if ok, reason := parser.ValidateResume(content); !ok {
		return "", fmt.Errorf("validation failed: %s", reason)
	}
	return content, nil
}

func (e *Engine) extractFallback(ctx context.Context, asset *store.Asset) (string, error) {
	start := time.Now()
	ref, err := e.extractor.UploadFile(ctx, asset.StorageURL, asset.MIMEType)
	if err != nil {
		return "", err
	}
	res, err := e.extractor.ExtractResume(ctx, ref)
	if err != nil {
		return "", err
	}
	e.tracker.Record(asset.ProjectID, asset.Name, e.extractor.ModelID(),
		usage.ActionCVExtractionFallback, res.Usage, time.Since(start))
	return string(res.Content), nil
}

// structurePhase turns extractions into resume rows. Fallback items carry
// structured JSON already; local items go through batched structuring.
func (e *Engine) structurePhase(ctx context.Context, projectID string, extracted []extraction, result *IngestResult) []store.Resume {
	var local []extraction
	var resumes []store.Resume

	for _, ex := range extracted {
		if ex.method == store.MethodLLMFallback {
			r, err := e.storeStructured(ctx, projectID, ex.asset.Name, ex.content, ex.content, ex.method)
			if err != nil {
				result.Errors = append(result.Errors, IngestError{FileID: ex.asset.Name, Error: err.Error()})
				continue
			}
			resumes = append(resumes, *r)
			continue
		}
		local = append(local, ex)
	}

	for start := 0; start < len(local); start += structureBatchSize {
		end := start + structureBatchSize
		if end > len(local) {
			end = len(local)
		}
		resumes = append(resumes, e.structureBatch(ctx, projectID, local[start:end], result)...)
	}
	return resumes
}

// structureBatch sends one batch to the generation service. A length
// mismatch fills missing slots with Unknown records; a failed call stores
// every item with empty parsed_data so the chunker's raw path fires.
func (e *Engine) structureBatch(ctx context.Context, projectID string, batch []extraction, result *IngestResult) []store.Resume {
	texts := make([]string, len(batch))
	for i, ex := range batch {
		texts[i] = ex.content
	}

	start := time.Now()
	var items []json.RawMessage
	res, err := e.provider.StructureResumeBatch(ctx, texts)
	if err != nil {
		slog.Error("structuring batch failed", "project", projectID, "size", len(batch), "error", err)
	} else {
		e.tracker.Record(projectID, "", e.provider.ModelID(),
			usage.ActionCVStructuringBatch, res.Usage, time.Since(start))
		items = res.Items
		if len(items) != len(batch) {
			slog.Warn("structuring batch length mismatch",
				"project", projectID, "want", len(batch), "got", len(items))
		}
	}

	resumes := make([]store.Resume, 0, len(batch))
	for i, ex := range batch {
		structured := `{"candidate_name": "Unknown", "contact_info": {}, "parsed_data": {}}`
		if i < len(items) {
			structured = string(items[i])
		}
		r, err := e.storeStructured(ctx, projectID, ex.asset.Name, structured, ex.content, ex.method)
		if err != nil {
			result.Errors = append(result.Errors, IngestError{FileID: ex.asset.Name, Error: err.Error()})
			continue
		}
		resumes = append(resumes, *r)
	}
	return resumes
}

// storeStructured decodes one structured-resume object and upserts the
// resume row. Undecodable objects degrade to an Unknown record with empty
// parsed_data rather than failing the file.
func (e *Engine) storeStructured(ctx context.Context, projectID, fileID, structured, fullContent, method string) (*store.Resume, error) {
	var s structuredResume
	if err := json.Unmarshal([]byte(structured), &s); err != nil {
		slog.Warn("structured resume is not valid JSON", "file_id", fileID, "error", err)
		s = structuredResume{}
	}
	if s.CandidateName == "" {
		s.CandidateName = "Unknown"
	}
	if s.ContactInfo == nil {
		s.ContactInfo = map[string]any{}
	}
	if len(s.ParsedData) == 0 {
		s.ParsedData = json.RawMessage("{}")
	}

	r := store.Resume{
		ProjectID:        projectID,
		FileID:           fileID,
		CandidateName:    s.CandidateName,
		ContactInfo:      s.ContactInfo,
		FullContent:      fullContent,
		ParsedData:       s.ParsedData,
		ExtractionMethod: method,
	}
	id, err := e.store.UpsertResume(ctx, r)
	if err != nil {
		return nil, err
	}
	r.ID = id
	return &r, nil
}

// chunkPhase produces chunks for every stored resume, persists them in
// batches and hands the full set to the vector indexer.
func (e *Engine) chunkPhase(ctx context.Context, req IngestRequest, resumes []store.Resume, result *IngestResult) {
	var all []store.Chunk
	for i := range resumes {
		r := &resumes[i]
		if !req.Reset {
			if err := e.store.DeleteChunksByFile(ctx, req.ProjectID, r.FileID); err != nil {
				result.Errors = append(result.Errors, IngestError{FileID: r.FileID, Error: err.Error()})
				continue
			}
		}
		all = append(all, chunker.ChunksForResume(r)...)
	}

	for start := 0; start < len(all); start += chunkInsertBatch {
		end := start + chunkInsertBatch
		if end > len(all) {
			end = len(all)
		}
		batch := all[start:end]
		ids, err := e.store.InsertChunks(ctx, batch)
		if err != nil {
			result.Errors = append(result.Errors, IngestError{FileID: "chunk_insert", Error: err.Error()})
			return
		}
		for i := range batch {
			batch[i].ID = ids[i]
		}
	}
	result.ChunksCreated = len(all)

	if err := e.indexer.Upsert(ctx, req.ProjectID, all, req.Reset); err != nil {
		result.Errors = append(result.Errors, IngestError{
			FileID: "vector_upsert",
			Error:  fmt.Sprintf("%v: %v", ErrVectorUpsertFailed, err),
		})
	}
}
