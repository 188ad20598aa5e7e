// Package vector maintains the per-project hybrid index: dense embeddings
// plus a BM25 keyword side, queried together and fused with Reciprocal
// Rank Fusion, then aggregated from chunk hits to resume-level scores.
package vector

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/devMohamedYusri/Recruit-Rag/store"
)

// Embedder is the slice of the generation service the indexer needs.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Query defaults.
const (
	RankingTopK = 1000 // candidate ranking feed
	SearchTopK  = 5    // ad-hoc search
)

const embedBatchSize = 100

// Indexer owns the vector collections of all projects.
type Indexer struct {
	store    *store.Store
	embedder Embedder
}

// New creates an Indexer over the given store and embedder.
func New(s *store.Store, e Embedder) *Indexer {
	return &Indexer{store: s, embedder: e}
}

// CollectionName returns the collection for a project.
func CollectionName(projectID string) string {
	return "project_" + projectID
}

// Upsert indexes the chunks of a project. With reset the collection is
// dropped and recreated first.
func (ix *Indexer) Upsert(ctx context.Context, projectID string, chunks []store.Chunk, reset bool) error {
	name := CollectionName(projectID)
	if reset {
		if err := ix.store.DropCollection(ctx, name); err != nil {
			return fmt.Errorf("dropping collection %s: %w", name, err)
		}
	}
	if err := ix.store.EnsureCollection(ctx, name); err != nil {
		return fmt.Errorf("creating collection %s: %w", name, err)
	}
	if len(chunks) == 0 {
		return nil
	}

	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Content
		}
		embeddings, err := ix.embedder.EmbedDocuments(ctx, texts)
		if err != nil {
			return fmt.Errorf("embedding chunk batch: %w", err)
		}
		if len(embeddings) != len(batch) {
			return fmt.Errorf("embedding count mismatch: got %d for %d chunks", len(embeddings), len(batch))
		}

		points := make([]store.VectorPoint, len(batch))
		for i, c := range batch {
			points[i] = store.VectorPoint{
				ChunkID:   c.ID,
				FileID:    c.FileID,
				Text:      c.Content,
				Embedding: embeddings[i],
			}
		}
		if err := ix.store.UpsertPoints(ctx, name, points); err != nil {
			return fmt.Errorf("upserting points: %w", err)
		}
	}

	slog.Info("vector: indexed chunks", "project", projectID, "chunks", len(chunks), "reset", reset)
	return nil
}

// Query runs a hybrid search: dense KNN and BM25 keyword prefetches fused
// with RRF. Hits are chunk-level, sorted by fused score descending.
func (ix *Indexer) Query(ctx context.Context, projectID, text string, topK int) ([]store.PointHit, error) {
	name := CollectionName(projectID)
	exists, err := ix.store.CollectionExists(ctx, name)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}

	embedding, err := ix.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	dense, err := ix.store.DenseSearch(ctx, name, embedding, topK)
	if err != nil {
		return nil, fmt.Errorf("dense search: %w", err)
	}

	var keyword []store.PointHit
	if match := ftsMatchQuery(text); match != "" {
		keyword, err = ix.store.KeywordSearch(ctx, name, match, topK)
		if err != nil {
			return nil, fmt.Errorf("keyword search: %w", err)
		}
	}

	return fuseRRF(dense, keyword, topK), nil
}

// Info describes one project's collection.
type Info struct {
	Collection string `json:"collection"`
	Exists     bool   `json:"exists"`
	Points     int    `json:"points"`
	Dimension  int    `json:"dimension"`
}

// Info returns collection metadata for a project.
func (ix *Indexer) Info(ctx context.Context, projectID string) (*Info, error) {
	name := CollectionName(projectID)
	info := &Info{Collection: name, Dimension: ix.store.EmbeddingDim()}

	exists, err := ix.store.CollectionExists(ctx, name)
	if err != nil {
		return nil, err
	}
	info.Exists = exists
	if exists {
		info.Points, err = ix.store.CollectionCount(ctx, name)
		if err != nil {
			return nil, err
		}
	}
	return info, nil
}

// Drop removes a project's collection, ignoring a missing one.
func (ix *Indexer) Drop(ctx context.Context, projectID string) error {
	return ix.store.DropCollection(ctx, CollectionName(projectID))
}
