package screening

import (
	"context"
	"testing"
)

// collectEmit records every streamed value.
func collectEmit(lines *[]interface{}) Emit {
	return func(v interface{}) error {
		*lines = append(*lines, v)
		return nil
	}
}

func TestScreenFullStream(t *testing.T) {
	p := &fakeProvider{screenJSON: goodScreenJSON}
	s, _ := newTestScreener(t, p)

	resumes := testResumes(3)
	var lines []interface{}
	err := s.ScreenFullStream(context.Background(), "p1", "JD", resumes, false, collectEmit(&lines))
	if err != nil {
		t.Fatalf("ScreenFullStream: %v", err)
	}

	if len(lines) != 5 {
		t.Fatalf("got %d lines, want meta + 3 results + complete", len(lines))
	}
	meta, ok := lines[0].(FullMeta)
	if !ok || meta.Signal != "meta" || meta.Total != 3 {
		t.Errorf("first line = %#v", lines[0])
	}
	for i := 1; i <= 3; i++ {
		r, ok := lines[i].(Result)
		if !ok {
			t.Fatalf("line %d = %#v, want Result", i, lines[i])
		}
		if r.Meta.Method != methodLLM {
			t.Errorf("line %d method = %q", i, r.Meta.Method)
		}
	}
	done, ok := lines[4].(Complete)
	if !ok || done.Signal != "complete" {
		t.Errorf("last line = %#v", lines[4])
	}
}

func TestScreenFullStreamAnonymize(t *testing.T) {
	p := &fakeProvider{screenJSON: goodScreenJSON}
	s, _ := newTestScreener(t, p)

	var lines []interface{}
	err := s.ScreenFullStream(context.Background(), "p1", "JD", testResumes(2), true, collectEmit(&lines))
	if err != nil {
		t.Fatal(err)
	}
	for _, line := range lines {
		r, ok := line.(Result)
		if !ok {
			continue
		}
		if r.CandidateName != "[REDACTED]" || len(r.ContactInfo) != 0 {
			t.Errorf("result not anonymized: %q %v", r.CandidateName, r.ContactInfo)
		}
	}
}

func TestSmartScreenStream(t *testing.T) {
	p := &fakeProvider{screenJSON: goodScreenJSON}
	s, _ := newTestScreener(t, p)

	resumes := testResumes(10)
	scores := []float64{0.95, 0.95, 0.95, 0.4, 0.4, 0.4, 0.4, 0.4, 0.4, 0.4}
	in := smartInput(resumes, scores, 5)

	var lines []interface{}
	err := s.SmartScreenStream(context.Background(), "p1", "JD", "Go role", in, false, collectEmit(&lines))
	if err != nil {
		t.Fatalf("SmartScreenStream: %v", err)
	}

	if len(lines) != 12 {
		t.Fatalf("got %d lines, want meta + 10 results + complete", len(lines))
	}
	meta, ok := lines[0].(SmartMeta)
	if !ok {
		t.Fatalf("first line = %#v", lines[0])
	}
	if meta.Signal != "meta" || meta.Total != 10 || meta.TopTierCount != 5 || meta.BottomTierCount != 5 {
		t.Errorf("meta = %+v", meta)
	}
	if _, ok := lines[len(lines)-1].(Complete); !ok {
		t.Errorf("last line = %#v", lines[len(lines)-1])
	}

	// Light results come before full results, in rank order.
	var lightIDs []string
	var fullCount int
	for _, line := range lines[1 : len(lines)-1] {
		r := line.(Result)
		if r.FitLabel == LabelLight {
			if fullCount > 0 {
				t.Error("light result emitted after a full result")
			}
			lightIDs = append(lightIDs, r.CVID)
		} else {
			fullCount++
		}
	}
	if fullCount != 5 {
		t.Errorf("full results = %d, want 5", fullCount)
	}
	want := []string{"6", "7", "8", "9", "10"}
	if len(lightIDs) != len(want) {
		t.Fatalf("light results = %v", lightIDs)
	}
	for i, id := range want {
		if lightIDs[i] != id {
			t.Errorf("light result %d cv_id = %q, want %q", i, lightIDs[i], id)
		}
	}

	// One JD keyword extraction for the whole bottom tier.
	if got := p.keywordCalls.Load(); got != 1 {
		t.Errorf("keyword calls = %d, want 1", got)
	}
}

func TestSmartScreenStreamAllTop(t *testing.T) {
	p := &fakeProvider{screenJSON: goodScreenJSON}
	s, _ := newTestScreener(t, p)

	resumes := testResumes(3)
	in := smartInput(resumes, []float64{0.9, 0.88, 0.86}, 5)

	var lines []interface{}
	err := s.SmartScreenStream(context.Background(), "p1", "JD", "desc", in, false, collectEmit(&lines))
	if err != nil {
		t.Fatal(err)
	}
	meta := lines[0].(SmartMeta)
	if meta.TopTierCount != 3 || meta.BottomTierCount != 0 {
		t.Errorf("meta = %+v", meta)
	}
	if p.keywordCalls.Load() != 0 {
		t.Error("keyword extraction called with empty bottom tier")
	}
}
