// Package chunker turns processed resumes into retrieval chunks. Resumes
// with structured sections get one chunk per section item in a fixed order;
// resumes without structure fall back to a recursive character splitter
// over the raw text.
package chunker

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/devMohamedYusri/Recruit-Rag/store"
)

// parsedResume mirrors the structured map produced by the generation
// service. All keys are optional.
type parsedResume struct {
	Summary        string     `json:"summary"`
	WorkHistory    []workItem `json:"work_history"`
	Education      []eduItem  `json:"education"`
	Skills         []string   `json:"skills"`
	Certifications []string   `json:"certifications"`
	Projects       []projItem `json:"projects"`
	Languages      []string   `json:"languages"`
}

type workItem struct {
	Title       string `json:"title"`
	Company     string `json:"company"`
	Dates       string `json:"dates"`
	Description string `json:"description"`
}

type eduItem struct {
	Degree      string `json:"degree"`
	Institution string `json:"institution"`
	Dates       string `json:"dates"`
}

type projItem struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// section pairs a section_type label with the texts it contributes.
type section struct {
	name    string
	itemsOf func(p *parsedResume) []string
}

// sections is the fixed emission order. chunk_order numbering follows this
// order and is stable across re-ingestion of the same parsed data.
var sections = []section{
	{"summary", func(p *parsedResume) []string {
		if strings.TrimSpace(p.Summary) == "" {
			return nil
		}
		return []string{p.Summary}
	}},
	{"work_history", func(p *parsedResume) []string {
		out := make([]string, 0, len(p.WorkHistory))
		for _, w := range p.WorkHistory {
			out = append(out, fmt.Sprintf("%s at %s (%s)\n%s", w.Title, w.Company, w.Dates, w.Description))
		}
		return out
	}},
	{"education", func(p *parsedResume) []string {
		out := make([]string, 0, len(p.Education))
		for _, e := range p.Education {
			out = append(out, fmt.Sprintf("%s at %s (%s)", e.Degree, e.Institution, e.Dates))
		}
		return out
	}},
	{"skills", joinedSection("Skills: ", func(p *parsedResume) []string { return p.Skills })},
	{"certifications", joinedSection("Certifications: ", func(p *parsedResume) []string { return p.Certifications })},
	{"projects", func(p *parsedResume) []string {
		out := make([]string, 0, len(p.Projects))
		for _, pr := range p.Projects {
			out = append(out, fmt.Sprintf("Project: %s\n%s", pr.Name, pr.Description))
		}
		return out
	}},
	{"languages", joinedSection("Languages: ", func(p *parsedResume) []string { return p.Languages })},
}

// joinedSection emits a single "{prefix}a, b, c" chunk when the list is
// non-empty.
func joinedSection(prefix string, list func(p *parsedResume) []string) func(p *parsedResume) []string {
	return func(p *parsedResume) []string {
		items := list(p)
		if len(items) == 0 {
			return nil
		}
		return []string{prefix + strings.Join(items, ", ")}
	}
}

// ChunksForResume produces the chunk set for one resume. Structured
// resumes emit section chunks; anything else goes through the raw
// splitter over full_content.
func ChunksForResume(r *store.Resume) []store.Chunk {
	if r.HasParsedData() {
		var parsed parsedResume
		if err := json.Unmarshal(r.ParsedData, &parsed); err == nil {
			if chunks := sectionChunks(r, &parsed); len(chunks) > 0 {
				return chunks
			}
		}
	}
	return rawChunks(r)
}

func sectionChunks(r *store.Resume, parsed *parsedResume) []store.Chunk {
	var chunks []store.Chunk
	order := 1
	for _, sec := range sections {
		for _, text := range sec.itemsOf(parsed) {
			// Formatted items with missing fields leave stray whitespace,
			// e.g. a work entry with an empty description.
			text = strings.TrimSpace(text)
			if text == "" {
				continue
			}
			chunks = append(chunks, store.Chunk{
				ProjectID:   r.ProjectID,
				FileID:      r.FileID,
				Content:     text,
				SectionType: sec.name,
				ChunkOrder:  order,
			})
			order++
		}
	}
	return chunks
}

func rawChunks(r *store.Resume) []store.Chunk {
	pieces := SplitText(r.FullContent)
	chunks := make([]store.Chunk, 0, len(pieces))
	for i, text := range pieces {
		chunks = append(chunks, store.Chunk{
			ProjectID:   r.ProjectID,
			FileID:      r.FileID,
			Content:     text,
			SectionType: "raw",
			ChunkOrder:  i + 1,
		})
	}
	return chunks
}
