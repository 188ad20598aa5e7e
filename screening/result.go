package screening

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/devMohamedYusri/Recruit-Rag/llm"
	"github.com/devMohamedYusri/Recruit-Rag/store"
)

// Fit labels.
const (
	LabelLow       = "Low Match"
	LabelMedium    = "Medium Match"
	LabelHigh      = "High Match"
	LabelExcellent = "Excellent Match"
	LabelError     = "Error"
	LabelLight     = "Light Match"
)

// Screen methods reported in meta.
const (
	methodLLM   = "LLM Screen"
	methodLight = "Light Screen (Keyword Match)"
	tierLight   = "Standard Tier"
)

// ExperienceAnalysis is the experience block of a screening result.
type ExperienceAnalysis struct {
	TotalRelevantExperienceYears float64 `json:"total_relevant_experience_years"`
	RequiredYears                float64 `json:"required_years"`
	SeniorityLevel               string  `json:"seniority_level"`
	SeniorityAlignment           string  `json:"seniority_alignment"`
	RoleFitJustification         string  `json:"role_fit_justification"`
}

// KeyMatchAnalysis summarizes the candidate-to-JD match.
type KeyMatchAnalysis struct {
	Strengths             []string           `json:"strengths"`
	MissingCriticalSkills []string           `json:"missing_critical_skills"`
	ExperienceAnalysis    ExperienceAnalysis `json:"experience_analysis"`
}

// Flags carries screening concerns.
type Flags struct {
	RedFlags    []string `json:"red_flags"`
	YellowFlags []string `json:"yellow_flags"`
}

// InterviewPrep is the interview guidance block.
type InterviewPrep struct {
	InterviewRecommendation string   `json:"interview_recommendation,omitempty"`
	SuggestedQuestions      []string `json:"suggested_questions"`
}

// Meta describes how a result was produced.
type Meta struct {
	Method string     `json:"method"`
	Model  string     `json:"model"`
	Usage  *llm.Usage `json:"usage,omitempty"`
	Tier   string     `json:"tier,omitempty"`
}

// Result is one candidate's screening outcome, full or light.
type Result struct {
	FitScore         int              `json:"fit_score"`
	FitLabel         string           `json:"fit_label"`
	ExecutiveSummary string           `json:"executive_summary"`
	KeyMatchAnalysis KeyMatchAnalysis `json:"key_match_analysis"`
	Flags            Flags            `json:"flags"`
	InterviewPrep    InterviewPrep    `json:"interview_prep"`
	MatchedKeywords  []string         `json:"matched_keywords,omitempty"`
	MissingKeywords  []string         `json:"missing_keywords,omitempty"`
	CVID             string           `json:"cv_id"`
	CandidateName    string           `json:"candidate_name"`
	ContactInfo      map[string]any   `json:"contact_info"`
	Meta             Meta             `json:"meta"`
}

// labelForScore maps a fit score to its band label.
func labelForScore(score int) string {
	switch {
	case score <= 30:
		return LabelLow
	case score <= 60:
		return LabelMedium
	case score <= 85:
		return LabelHigh
	default:
		return LabelExcellent
	}
}

// attachIdentity fills the candidate fields from the resume row.
func (r *Result) attachIdentity(resume *store.Resume) {
	r.CVID = strconv.FormatInt(resume.ID, 10)
	r.CandidateName = resume.CandidateName
	r.ContactInfo = resume.ContactInfo
}

// calibrate applies the two deterministic post-LLM adjustments: a floor of
// 5 for zero scores on substantive resumes, and a not-recommended
// interview block below 20.
func (r *Result) calibrate(fullContent string) {
	if r.FitScore == 0 && len(strings.TrimSpace(fullContent)) > 50 {
		r.FitScore = 5
		r.FitLabel = labelForScore(r.FitScore)
	}
	if r.FitScore < 20 {
		r.InterviewPrep = InterviewPrep{
			InterviewRecommendation: "Not recommended for interview based on current resume evidence.",
			SuggestedQuestions:      []string{},
		}
	}
}

// errorResult materializes a failed screening as an error-shaped result so
// it can be emitted alongside good results.
func errorResult(resume *store.Resume, summary, model string) Result {
	r := Result{
		FitScore:         0,
		FitLabel:         LabelError,
		ExecutiveSummary: summary,
		KeyMatchAnalysis: KeyMatchAnalysis{
			Strengths:             []string{},
			MissingCriticalSkills: []string{},
			ExperienceAnalysis: ExperienceAnalysis{
				SeniorityLevel:       "Unknown",
				SeniorityAlignment:   "Unknown",
				RoleFitJustification: "Screening failed",
			},
		},
		Flags:         Flags{RedFlags: []string{"Screening error"}, YellowFlags: []string{}},
		InterviewPrep: InterviewPrep{SuggestedQuestions: []string{}},
		Meta:          Meta{Method: methodLLM, Model: model},
	}
	r.attachIdentity(resume)
	return r
}

// lightResult builds the keyword-match result for a bottom-tier candidate.
// No LLM call is involved.
func lightResult(resume *store.Resume, vectorScore float64, matched, missing []string) Result {
	score := vectorScore
	if score > 1.0 {
		score = 1.0
	}
	r := Result{
		FitScore:         int(score*100 + 0.5),
		FitLabel:         LabelLight,
		ExecutiveSummary: "Candidate processed via Light Screen (Standard Tier).",
		KeyMatchAnalysis: KeyMatchAnalysis{
			Strengths:             []string{},
			MissingCriticalSkills: []string{},
			ExperienceAnalysis: ExperienceAnalysis{
				SeniorityLevel:       "Unverified",
				SeniorityAlignment:   "Unverified",
				RoleFitJustification: "Light Screen: Detailed analysis skipped.",
			},
		},
		Flags:           Flags{RedFlags: []string{}, YellowFlags: []string{}},
		InterviewPrep:   InterviewPrep{SuggestedQuestions: []string{}},
		MatchedKeywords: matched,
		MissingKeywords: missing,
		Meta:            Meta{Method: methodLight, Model: "N/A", Tier: tierLight},
	}
	r.attachIdentity(resume)
	return r
}

// parseScreenResult decodes the LLM's JSON into a Result, tolerating
// markdown fences the model should not emit but sometimes does.
func parseScreenResult(content string) (*Result, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var r Result
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// Anonymize redacts identity from every result in place.
func Anonymize(results []Result) {
	for i := range results {
		results[i].anonymize()
	}
}

func (r *Result) anonymize() {
	r.CandidateName = "[REDACTED]"
	r.ContactInfo = map[string]any{}
}
