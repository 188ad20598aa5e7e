package screening

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/devMohamedYusri/Recruit-Rag/llm"
	"github.com/devMohamedYusri/Recruit-Rag/usage"
)

// ExtractJDKeywords asks the generation service for the 5-10 critical
// keywords of a job description. Called once per smart-screen invocation.
func (s *Screener) ExtractJDKeywords(ctx context.Context, projectID, jdDescription string) ([]string, error) {
	resp, err := s.tracker.TrackGenerate(ctx, s.provider, projectID, "",
		usage.ActionJDExtraction, llm.JDKeywordExtractionPrompt+jdDescription,
		llm.GenerateConfig{JSONResponse: true})
	if err != nil {
		return nil, err
	}
	return parseKeywords(resp.Content)
}

// parseKeywords accepts either a bare JSON array or an object wrapping one.
func parseKeywords(content string) ([]string, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var keywords []string
	if err := json.Unmarshal([]byte(content), &keywords); err == nil {
		return keywords, nil
	}

	var wrapped map[string][]string
	if err := json.Unmarshal([]byte(content), &wrapped); err == nil {
		for _, v := range wrapped {
			return v, nil
		}
	}
	return nil, fmt.Errorf("keyword response is not a JSON string array")
}

// matchKeywords partitions keywords into those present in content
// (case-insensitive substring) and those missing. Both slices are non-nil
// so they serialize as JSON arrays.
func matchKeywords(content string, keywords []string) (matched, missing []string) {
	matched, missing = []string{}, []string{}
	haystack := strings.ToLower(content)
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(haystack, strings.ToLower(kw)) {
			matched = append(matched, kw)
		} else {
			missing = append(missing, kw)
		}
	}
	return matched, missing
}
