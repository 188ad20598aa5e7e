// Package screening evaluates candidates against a project's job
// description: full LLM screening with bounded fan-out, cheap keyword
// light screening, and the dynamic tier split between them.
package screening

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/devMohamedYusri/Recruit-Rag/llm"
	"github.com/devMohamedYusri/Recruit-Rag/store"
	"github.com/devMohamedYusri/Recruit-Rag/usage"
	"github.com/devMohamedYusri/Recruit-Rag/vector"
)

// Screener runs screening pipelines against one generation provider.
// Safe for concurrent use.
type Screener struct {
	provider llm.Provider
	tracker  *usage.Tracker
	sem      *semaphore.Weighted
}

// New creates a Screener with the given LLM fan-out bound.
func New(provider llm.Provider, tracker *usage.Tracker, concurrency int) *Screener {
	if concurrency <= 0 {
		concurrency = 50
	}
	return &Screener{
		provider: provider,
		tracker:  tracker,
		sem:      semaphore.NewWeighted(int64(concurrency)),
	}
}

var screenGenerateConfig = llm.GenerateConfig{
	Temperature:     0.1,
	MaxOutputTokens: 4096,
	JSONResponse:    true,
}

// ScreenFull runs full LLM screening over all resumes with bounded
// parallelism. Per-candidate failures become error-shaped results, never
// errors. Result order matches the input order.
func (s *Screener) ScreenFull(ctx context.Context, projectID, jdContext string, resumes []store.Resume) []Result {
	results := make([]Result, len(resumes))
	var wg sync.WaitGroup
	for i := range resumes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = s.screenGated(ctx, projectID, jdContext, &resumes[i])
		}(i)
	}
	wg.Wait()
	return results
}

// screenGated acquires the fan-out semaphore before screening.
func (s *Screener) screenGated(ctx context.Context, projectID, jdContext string, resume *store.Resume) Result {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return errorResult(resume, "Screening failed: "+err.Error(), s.provider.ModelID())
	}
	defer s.sem.Release(1)
	return s.screenOne(ctx, projectID, jdContext, resume)
}

// screenOne evaluates a single resume with the full LLM screen.
func (s *Screener) screenOne(ctx context.Context, projectID, jdContext string, resume *store.Resume) Result {
	prompt := fmt.Sprintf(`%s

%s

Now analyze the following resume:

RESUME (file_id: %s):
%s

Return ONLY the JSON screening result.`,
		jdContext, llm.ScreeningSystemPrompt, resume.FileID, resume.FullContent)

	resp, err := s.tracker.TrackGenerate(ctx, s.provider, projectID, resume.FileID,
		usage.ActionScreening, prompt, screenGenerateConfig)
	if err != nil {
		slog.Error("screening: LLM call failed", "file_id", resume.FileID, "error", err)
		return errorResult(resume, "Screening failed: "+err.Error(), s.provider.ModelID())
	}

	result, err := parseScreenResult(resp.Content)
	if err != nil {
		slog.Error("screening: JSON parse failed", "file_id", resume.FileID, "error", err)
		return errorResult(resume, "Failed to parse LLM response", s.provider.ModelID())
	}

	result.attachIdentity(resume)
	result.calibrate(resume.FullContent)
	result.Meta = Meta{Method: methodLLM, Model: s.provider.ModelID(), Usage: &resp.Usage}
	return *result
}

// SmartInput feeds a smart screen: the ranked candidate list from the
// vector aggregation plus the resumes it refers to.
type SmartInput struct {
	Candidates  []vector.RankedCandidate // sorted by score descending
	Resumes     map[string]*store.Resume // keyed by file_id
	MinTopCount int
}

// tiers applies the dynamic split to the candidate list.
func (in *SmartInput) tiers() (top, bottom []vector.RankedCandidate) {
	scores := make([]float64, len(in.Candidates))
	for i, c := range in.Candidates {
		scores[i] = c.Score
	}
	split := DynamicSplit(scores, in.MinTopCount)
	return in.Candidates[:split], in.Candidates[split:]
}

// SmartScreen runs the two-tier pipeline: full LLM screening on the top
// tier, keyword light screening on the bottom tier. Returns top-tier
// results first, each tier in rank order.
func (s *Screener) SmartScreen(ctx context.Context, projectID, jdContext, jdDescription string, in SmartInput) ([]Result, error) {
	top, bottom := in.tiers()

	keywords := s.jdKeywords(ctx, projectID, jdDescription, len(bottom))

	topResumes := resumesFor(top, in.Resumes)
	results := s.ScreenFull(ctx, projectID, jdContext, topResumes)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, c := range bottom {
		resume, ok := in.Resumes[c.FileID]
		if !ok {
			slog.Warn("screening: ranked candidate has no resume", "file_id", c.FileID)
			continue
		}
		matched, missing := matchKeywords(resume.FullContent, keywords)
		results = append(results, lightResult(resume, c.Score, matched, missing))
	}
	return results, nil
}

// jdKeywords fetches the light-screen keyword set, once per invocation.
// Extraction failure degrades to an empty set rather than failing the
// whole screen.
func (s *Screener) jdKeywords(ctx context.Context, projectID, jdDescription string, bottomCount int) []string {
	if bottomCount == 0 {
		return nil
	}
	keywords, err := s.ExtractJDKeywords(ctx, projectID, jdDescription)
	if err != nil {
		slog.Warn("screening: JD keyword extraction failed", "error", err)
		return nil
	}
	return keywords
}

func resumesFor(candidates []vector.RankedCandidate, byFileID map[string]*store.Resume) []store.Resume {
	resumes := make([]store.Resume, 0, len(candidates))
	for _, c := range candidates {
		if r, ok := byFileID[c.FileID]; ok {
			resumes = append(resumes, *r)
		} else {
			slog.Warn("screening: ranked candidate has no resume", "file_id", c.FileID)
		}
	}
	return resumes
}
