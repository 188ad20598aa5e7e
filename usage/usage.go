// Package usage wraps LLM calls with token and latency accounting. Writes
// are asynchronous and never fail the primary call.
package usage

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/devMohamedYusri/Recruit-Rag/llm"
	"github.com/devMohamedYusri/Recruit-Rag/store"
)

// Action types, one per LLM call site.
const (
	ActionScreening            = "screening"
	ActionCVExtractionFallback = "cv_extraction_fallback"
	ActionCVStructuringBatch   = "cv_structuring_batch"
	ActionJDExtraction         = "jd_extraction"
	ActionGeneration           = "generation"
)

const writeTimeout = 10 * time.Second

// Tracker records usage logs for a store.
type Tracker struct {
	store *store.Store
	wg    sync.WaitGroup
}

// NewTracker creates a Tracker writing to s.
func NewTracker(s *store.Store) *Tracker {
	return &Tracker{store: s}
}

// Record writes one usage row asynchronously. fileID may be empty for
// calls not scoped to a file. Failures are logged and swallowed.
func (t *Tracker) Record(projectID, fileID, modelID, action string, u llm.Usage, latency time.Duration) {
	row := store.UsageLog{
		ProjectID:        projectID,
		FileID:           fileID,
		ModelID:          modelID,
		ActionType:       action,
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
		LatencyMS:        float64(latency) / float64(time.Millisecond),
	}

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		if err := t.store.InsertUsageLog(ctx, row); err != nil {
			slog.Warn("usage: log write failed",
				"project", projectID, "action", action, "error", err)
		}
	}()
}

// TrackGenerate runs a generation call and records its usage on success.
func (t *Tracker) TrackGenerate(ctx context.Context, p llm.Provider, projectID, fileID, action, prompt string, cfg llm.GenerateConfig) (*llm.Response, error) {
	start := time.Now()
	resp, err := p.Generate(ctx, prompt, cfg)
	if err != nil {
		return nil, err
	}
	t.Record(projectID, fileID, p.ModelID(), action, resp.Usage, time.Since(start))
	return resp, nil
}

// Flush blocks until all pending writes have completed. Call before
// shutdown or in tests.
func (t *Tracker) Flush() {
	t.wg.Wait()
}
