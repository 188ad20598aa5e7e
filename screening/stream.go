package screening

import (
	"context"
	"log/slog"
	"sync"

	"github.com/devMohamedYusri/Recruit-Rag/store"
)

// Emit writes one NDJSON line. Implementations typically json-encode v
// and flush.
type Emit func(v interface{}) error

// FullMeta is the first stream line in full mode.
type FullMeta struct {
	Signal string `json:"signal"`
	Total  int    `json:"total"`
}

// SmartMeta is the first stream line in smart mode.
type SmartMeta struct {
	Signal          string `json:"signal"`
	Total           int    `json:"total"`
	TopTierCount    int    `json:"top_tier_count"`
	BottomTierCount int    `json:"bottom_tier_count"`
}

// Complete is the final stream line.
type Complete struct {
	Signal string `json:"signal"`
}

func complete() Complete { return Complete{Signal: "complete"} }

// ScreenFullStream streams full-screen results as they complete: a meta
// line, one result line per resume in completion order, then complete.
func (s *Screener) ScreenFullStream(ctx context.Context, projectID, jdContext string, resumes []store.Resume, anonymize bool, emit Emit) error {
	if err := emit(FullMeta{Signal: "meta", Total: len(resumes)}); err != nil {
		return err
	}

	ch := make(chan Result, len(resumes))
	var wg sync.WaitGroup
	for i := range resumes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ch <- s.screenGated(ctx, projectID, jdContext, &resumes[i])
		}(i)
	}
	go func() {
		wg.Wait()
		close(ch)
	}()

	for result := range ch {
		if anonymize {
			result.anonymize()
		}
		if err := emit(result); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return emit(complete())
}

// SmartScreenStream streams the two-tier screen: a meta line announcing
// tier sizes, the bottom tier in rank order, the top tier in completion
// order, then complete.
func (s *Screener) SmartScreenStream(ctx context.Context, projectID, jdContext, jdDescription string, in SmartInput, anonymize bool, emit Emit) error {
	top, bottom := in.tiers()

	topResumes := resumesFor(top, in.Resumes)
	bottomResumes := resumesFor(bottom, in.Resumes)

	if err := emit(SmartMeta{
		Signal:          "meta",
		Total:           len(topResumes) + len(bottomResumes),
		TopTierCount:    len(topResumes),
		BottomTierCount: len(bottomResumes),
	}); err != nil {
		return err
	}

	// Launch the top tier before emitting light results so LLM calls
	// overlap the cheap bottom-tier pass.
	ch := make(chan Result, len(topResumes))
	var wg sync.WaitGroup
	for i := range topResumes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ch <- s.screenGated(ctx, projectID, jdContext, &topResumes[i])
		}(i)
	}
	go func() {
		wg.Wait()
		close(ch)
	}()

	// Bottom tier: deterministic rank order, no LLM call per candidate.
	keywords := s.jdKeywords(ctx, projectID, jdDescription, len(bottom))
	bottomByFile := make(map[string]float64, len(bottom))
	for _, c := range bottom {
		bottomByFile[c.FileID] = c.Score
	}
	for i := range bottomResumes {
		r := &bottomResumes[i]
		matched, missing := matchKeywords(r.FullContent, keywords)
		result := lightResult(r, bottomByFile[r.FileID], matched, missing)
		if anonymize {
			result.anonymize()
		}
		if err := emit(result); err != nil {
			return err
		}
	}

	for result := range ch {
		if anonymize {
			result.anonymize()
		}
		if err := emit(result); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		slog.Warn("screening: stream cancelled", "project", projectID)
		return err
	}
	return emit(complete())
}
