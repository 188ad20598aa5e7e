package screening

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/devMohamedYusri/Recruit-Rag/llm"
	"github.com/devMohamedYusri/Recruit-Rag/store"
	"github.com/devMohamedYusri/Recruit-Rag/usage"
	"github.com/devMohamedYusri/Recruit-Rag/vector"
)

// fakeProvider answers screening prompts with canned JSON and keyword
// extraction prompts with a fixed list.
type fakeProvider struct {
	llm.Provider
	screenJSON   string
	generateErr  error
	keywordCalls atomic.Int64
	screenCalls  atomic.Int64
}

func (p *fakeProvider) ModelID() string { return "fake-model" }

func (p *fakeProvider) Generate(ctx context.Context, prompt string, cfg llm.GenerateConfig) (*llm.Response, error) {
	if p.generateErr != nil {
		return nil, p.generateErr
	}
	if strings.HasPrefix(prompt, "Extract 5-10") {
		p.keywordCalls.Add(1)
		return &llm.Response{Content: `["go", "kubernetes"]`}, nil
	}
	p.screenCalls.Add(1)
	return &llm.Response{
		Content: p.screenJSON,
		Usage:   llm.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}, nil
}

func newTestScreener(t *testing.T, p llm.Provider) (*Screener, *usage.Tracker) {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "screen.db"), 4, "cosine")
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.EnsureProject(context.Background(), "p1"); err != nil {
		t.Fatal(err)
	}
	tracker := usage.NewTracker(s)
	return New(p, tracker, 4), tracker
}

const goodScreenJSON = `{
	"fit_score": 78,
	"fit_label": "High Match",
	"executive_summary": "Strong Go background.",
	"key_match_analysis": {"strengths": ["Go"], "missing_critical_skills": []},
	"flags": {"red_flags": [], "yellow_flags": []},
	"interview_prep": {"interview_recommendation": "Recommended", "suggested_questions": ["Describe a Go service you built."]}
}`

func testResumes(n int) []store.Resume {
	resumes := make([]store.Resume, n)
	for i := range resumes {
		resumes[i] = store.Resume{
			ID:            int64(i + 1),
			ProjectID:     "p1",
			FileID:        fmt.Sprintf("p1_cv%d.pdf", i+1),
			CandidateName: fmt.Sprintf("Candidate %d", i+1),
			ContactInfo:   map[string]any{"email": "x@y.com"},
			FullContent:   strings.Repeat("go kubernetes experience ", 10),
		}
	}
	return resumes
}

func TestScreenFull(t *testing.T) {
	p := &fakeProvider{screenJSON: goodScreenJSON}
	s, tracker := newTestScreener(t, p)

	resumes := testResumes(3)
	results := s.ScreenFull(context.Background(), "p1", "JD CONTEXT", resumes)
	tracker.Flush()

	if len(results) != 3 {
		t.Fatalf("got %d results", len(results))
	}
	for i, r := range results {
		if r.FitScore != 78 || r.FitLabel != LabelHigh {
			t.Errorf("result %d = %d/%q", i, r.FitScore, r.FitLabel)
		}
		if r.CVID != fmt.Sprint(i+1) {
			t.Errorf("result %d cv_id = %q", i, r.CVID)
		}
		if r.Meta.Method != methodLLM || r.Meta.Model != "fake-model" {
			t.Errorf("result %d meta = %+v", i, r.Meta)
		}
		if r.Meta.Usage == nil || r.Meta.Usage.TotalTokens != 15 {
			t.Errorf("result %d usage = %+v", i, r.Meta.Usage)
		}
	}
}

func TestScreenFullMaterializesErrors(t *testing.T) {
	p := &fakeProvider{generateErr: errors.New("upstream timeout")}
	s, _ := newTestScreener(t, p)

	results := s.ScreenFull(context.Background(), "p1", "JD", testResumes(2))
	if len(results) != 2 {
		t.Fatalf("got %d results", len(results))
	}
	for _, r := range results {
		if r.FitLabel != LabelError || r.FitScore != 0 {
			t.Errorf("result = %d/%q", r.FitScore, r.FitLabel)
		}
		if !strings.Contains(r.ExecutiveSummary, "upstream timeout") {
			t.Errorf("summary = %q", r.ExecutiveSummary)
		}
	}
}

func TestScreenFullBadJSONMaterializesError(t *testing.T) {
	p := &fakeProvider{screenJSON: "sorry, I cannot help"}
	s, _ := newTestScreener(t, p)

	results := s.ScreenFull(context.Background(), "p1", "JD", testResumes(1))
	if results[0].FitLabel != LabelError {
		t.Errorf("label = %q", results[0].FitLabel)
	}
	if results[0].ExecutiveSummary != "Failed to parse LLM response" {
		t.Errorf("summary = %q", results[0].ExecutiveSummary)
	}
}

func smartInput(resumes []store.Resume, scores []float64, minTop int) SmartInput {
	byFile := make(map[string]*store.Resume, len(resumes))
	candidates := make([]vector.RankedCandidate, len(resumes))
	for i := range resumes {
		byFile[resumes[i].FileID] = &resumes[i]
		candidates[i] = vector.RankedCandidate{FileID: resumes[i].FileID, Score: scores[i]}
	}
	return SmartInput{Candidates: candidates, Resumes: byFile, MinTopCount: minTop}
}

func TestSmartScreenTiers(t *testing.T) {
	p := &fakeProvider{screenJSON: goodScreenJSON}
	s, tracker := newTestScreener(t, p)

	resumes := testResumes(4)
	in := smartInput(resumes, []float64{0.95, 0.90, 0.30, 0.20}, 2)

	results, err := s.SmartScreen(context.Background(), "p1", "JD CONTEXT", "Go role", in)
	if err != nil {
		t.Fatalf("SmartScreen: %v", err)
	}
	tracker.Flush()

	if len(results) != 4 {
		t.Fatalf("got %d results", len(results))
	}
	// Top tier first (LLM), bottom tier after (light).
	for i := 0; i < 2; i++ {
		if results[i].Meta.Method != methodLLM {
			t.Errorf("result %d method = %q", i, results[i].Meta.Method)
		}
	}
	for i := 2; i < 4; i++ {
		if results[i].FitLabel != LabelLight {
			t.Errorf("result %d label = %q", i, results[i].FitLabel)
		}
		if results[i].Meta.Tier != tierLight {
			t.Errorf("result %d tier = %q", i, results[i].Meta.Tier)
		}
	}

	// Light score is the vector score scaled to 0-100.
	if results[2].FitScore != 30 || results[3].FitScore != 20 {
		t.Errorf("light scores = %d, %d", results[2].FitScore, results[3].FitScore)
	}
	// Keywords were present in every resume body.
	if len(results[2].MatchedKeywords) != 2 || len(results[2].MissingKeywords) != 0 {
		t.Errorf("keywords = %v / %v", results[2].MatchedKeywords, results[2].MissingKeywords)
	}

	// JD keyword extraction runs once per invocation, not per candidate.
	if got := p.keywordCalls.Load(); got != 1 {
		t.Errorf("keyword calls = %d, want 1", got)
	}
	if got := p.screenCalls.Load(); got != 2 {
		t.Errorf("screen calls = %d, want 2", got)
	}
}

func TestSmartScreenEmpty(t *testing.T) {
	p := &fakeProvider{screenJSON: goodScreenJSON}
	s, _ := newTestScreener(t, p)

	results, err := s.SmartScreen(context.Background(), "p1", "JD", "desc", SmartInput{MinTopCount: 5})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("results = %+v", results)
	}
	if p.keywordCalls.Load() != 0 {
		t.Error("keyword extraction called for empty candidate list")
	}
}
