package vector

import (
	"sort"
	"strings"
	"unicode"

	"github.com/devMohamedYusri/Recruit-Rag/store"
)

const rrfK = 60 // RRF constant (standard value from literature)

// fuseRRF combines the dense and keyword rankings with Reciprocal Rank
// Fusion: score = sum over lists of 1 / (k + rank).
func fuseRRF(dense, keyword []store.PointHit, maxResults int) []store.PointHit {
	type fusedEntry struct {
		hit   store.PointHit
		score float64
	}
	fused := make(map[int64]*fusedEntry)

	add := func(hits []store.PointHit) {
		for rank, h := range hits {
			entry, ok := fused[h.ChunkID]
			if !ok {
				entry = &fusedEntry{hit: h}
				fused[h.ChunkID] = entry
			}
			entry.score += 1.0 / float64(rrfK+rank+1)
		}
	}
	add(dense)
	add(keyword)

	entries := make([]*fusedEntry, 0, len(fused))
	for _, e := range fused {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].score != entries[j].score {
			return entries[i].score > entries[j].score
		}
		return entries[i].hit.ChunkID < entries[j].hit.ChunkID
	})

	if maxResults > 0 && len(entries) > maxResults {
		entries = entries[:maxResults]
	}

	results := make([]store.PointHit, len(entries))
	for i, e := range entries {
		results[i] = e.hit
		results[i].Score = e.score
	}
	return results
}

// ftsMatchQuery turns free text into an FTS5 OR-of-terms match expression.
// Terms are lowercased, quoted, and deduplicated. Returns "" when the text
// yields no usable terms.
func ftsMatchQuery(text string) string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := make(map[string]bool)
	var terms []string
	for _, f := range fields {
		if len(f) < 2 || seen[f] {
			continue
		}
		seen[f] = true
		terms = append(terms, `"`+f+`"`)
	}
	if len(terms) == 0 {
		return ""
	}
	return strings.Join(terms, " OR ")
}

// RankedCandidate is a resume-level aggregation of chunk hits.
type RankedCandidate struct {
	FileID  string  `json:"file_id"`
	Score   float64 `json:"score"`
	Preview string  `json:"preview"`
}

const topChunksPerFile = 3

// Aggregate groups chunk hits by file, scores each file as the mean of its
// top-3 chunk scores, and returns candidates sorted by score descending.
// Preview is the first chunk text seen for the file in rank order.
func Aggregate(hits []store.PointHit) []RankedCandidate {
	type fileAgg struct {
		scores  []float64
		preview string
	}
	byFile := make(map[string]*fileAgg)
	var order []string

	for _, h := range hits {
		agg, ok := byFile[h.FileID]
		if !ok {
			agg = &fileAgg{preview: h.Text}
			byFile[h.FileID] = agg
			order = append(order, h.FileID)
		}
		agg.scores = append(agg.scores, h.Score)
	}

	candidates := make([]RankedCandidate, 0, len(byFile))
	for _, fileID := range order {
		agg := byFile[fileID]
		scores := agg.scores
		sort.Sort(sort.Reverse(sort.Float64Slice(scores)))
		if len(scores) > topChunksPerFile {
			scores = scores[:topChunksPerFile]
		}
		sum := 0.0
		for _, s := range scores {
			sum += s
		}
		candidates = append(candidates, RankedCandidate{
			FileID:  fileID,
			Score:   sum / float64(len(scores)),
			Preview: agg.preview,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	return candidates
}
