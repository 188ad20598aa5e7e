package screening

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/devMohamedYusri/Recruit-Rag/store"
)

// ErrPromptInjection is returned when the job description or its extra
// screening instructions trip the injection guard.
var ErrPromptInjection = errors.New("screening: potential prompt injection detected in job description")

// injectionPatterns are matched case-insensitively against the JD
// description and prompt before any text reaches the model.
var injectionPatterns = []string{
	"ignore previous instructions",
	"system prompt",
	"you are now",
	"jailbreak",
}

// BuildJDContext assembles the prompt fragment representing the job and
// runs the injection guard. Optional blocks appear only when present.
func BuildJDContext(jd *store.JobDescription) (string, error) {
	if err := checkInjection(jd); err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "=== JOB DESCRIPTION ===\nTitle: %s\n\n%s", jd.Title, jd.Description)
	if jd.Prompt != "" {
		fmt.Fprintf(&sb, "\n\nADDITIONAL SCREENING INSTRUCTIONS:\n%s", jd.Prompt)
	}
	if jd.CustomRubric != "" {
		fmt.Fprintf(&sb, "\n\nCUSTOM EVALUATION RUBRIC:\n%s", jd.CustomRubric)
	}
	if len(jd.Weights) > 0 {
		weights, err := json.Marshal(jd.Weights)
		if err != nil {
			return "", fmt.Errorf("encoding weights: %w", err)
		}
		fmt.Fprintf(&sb, "\n\nSCORING WEIGHTS:\n%s", weights)
	}
	sb.WriteString("\n=== END JOB DESCRIPTION ===")
	return sb.String(), nil
}

func checkInjection(jd *store.JobDescription) error {
	haystack := strings.ToLower(jd.Description + " " + jd.Prompt)
	for _, pattern := range injectionPatterns {
		if strings.Contains(haystack, pattern) {
			return fmt.Errorf("%w: %q", ErrPromptInjection, pattern)
		}
	}
	return nil
}
