package parser

import (
	"strings"
	"unicode"
)

// resumeKeywords are section markers a genuine resume is expected to
// contain at least two of, case-insensitively.
var resumeKeywords = []string{
	"experience", "education", "skills", "summary", "objective", "work",
	"projects", "certifications", "qualifications", "employment",
	"profile", "contact",
}

const (
	minResumeChars   = 100
	minKeywordHits   = 2
	maxGarbledRatio  = 0.3
	garbledMinSample = 1
)

// ValidateResume reports whether extracted text looks like a usable
// resume. It checks three things: enough non-whitespace content, at least
// two resume section keywords, and a bounded ratio of characters outside
// the Latin and Arabic ranges (a high ratio means the extractor produced
// mojibake rather than text).
//
// On failure the second return value names the failed check.
func ValidateResume(content string) (bool, string) {
	nonWS := 0
	for _, r := range content {
		if !unicode.IsSpace(r) {
			nonWS++
		}
	}
	if nonWS < minResumeChars {
		return false, "too short"
	}

	lower := strings.ToLower(content)
	hits := 0
	for _, kw := range resumeKeywords {
		if strings.Contains(lower, kw) {
			hits++
			if hits >= minKeywordHits {
				break
			}
		}
	}
	if hits < minKeywordHits {
		return false, "missing resume keywords"
	}

	if garbledRatio(content) > maxGarbledRatio {
		return false, "garbled text"
	}
	return true, ""
}

// garbledRatio is the fraction of runes outside ASCII (U+0000-U+007F),
// Latin Extended (U+00C0-U+024F) and Arabic (U+0600-U+06FF).
func garbledRatio(content string) float64 {
	total, garbled := 0, 0
	for _, r := range content {
		total++
		switch {
		case r <= 0x007F:
		case r >= 0x00C0 && r <= 0x024F:
		case r >= 0x0600 && r <= 0x06FF:
		default:
			garbled++
		}
	}
	if total < garbledMinSample {
		return 0
	}
	return float64(garbled) / float64(total)
}
