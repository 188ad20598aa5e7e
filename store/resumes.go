package store

import (
	"context"
	"database/sql"
	"encoding/json"
)

// Resume represents a processed candidate. ContactInfo and ParsedData are
// stored as JSON columns.
type Resume struct {
	ID               int64             `json:"id"`
	ProjectID        string            `json:"project_id"`
	FileID           string            `json:"file_id"`
	CandidateName    string            `json:"candidate_name"`
	ContactInfo      map[string]any    `json:"contact_info"`
	FullContent      string            `json:"full_content"`
	ParsedData       json.RawMessage   `json:"parsed_data"`
	ExtractionMethod string            `json:"extraction_method"`
	CreatedAt        string            `json:"created_at"`
}

// Extraction methods.
const (
	MethodLocal       = "local"
	MethodLLMFallback = "llm_fallback"
)

// HasParsedData reports whether parsed_data carries structured sections.
// An absent, null, or empty JSON object means the chunker takes the raw
// splitter path.
func (r *Resume) HasParsedData() bool {
	trimmed := string(r.ParsedData)
	return trimmed != "" && trimmed != "null" && trimmed != "{}"
}

// UpsertResume inserts or replaces the resume for (project_id, file_id).
// Returns the resume ID.
func (s *Store) UpsertResume(ctx context.Context, r Resume) (int64, error) {
	contact, err := json.Marshal(r.ContactInfo)
	if err != nil {
		return 0, err
	}
	parsed := r.ParsedData
	if len(parsed) == 0 {
		parsed = json.RawMessage("{}")
	}

	// RETURNING gives the row's own id on both branches of the upsert;
	// LastInsertId would report the connection's last insert, which is a
	// different row when the conflict branch fires.
	var id int64
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO resumes (project_id, file_id, candidate_name, contact_info, full_content, parsed_data, extraction_method)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_id, file_id) DO UPDATE SET
			candidate_name = excluded.candidate_name,
			contact_info = excluded.contact_info,
			full_content = excluded.full_content,
			parsed_data = excluded.parsed_data,
			extraction_method = excluded.extraction_method
		RETURNING id
	`, r.ProjectID, r.FileID, r.CandidateName, string(contact),
		r.FullContent, string(parsed), r.ExtractionMethod).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// GetResume retrieves a resume by its project-scoped file id.
func (s *Store) GetResume(ctx context.Context, projectID, fileID string) (*Resume, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, project_id, file_id, candidate_name, contact_info, full_content, parsed_data, extraction_method, created_at
		FROM resumes WHERE project_id = ? AND file_id = ?
	`, projectID, fileID)
	return scanResume(row.Scan)
}

// ListResumes returns resumes in a project, optionally filtered to a set of
// file ids. An empty filter returns all.
func (s *Store) ListResumes(ctx context.Context, projectID string, fileIDs []string) ([]Resume, error) {
	query := `
		SELECT id, project_id, file_id, candidate_name, contact_info, full_content, parsed_data, extraction_method, created_at
		FROM resumes WHERE project_id = ?`
	args := []interface{}{projectID}
	if len(fileIDs) > 0 {
		query += " AND file_id IN (?" + repeatPlaceholders(len(fileIDs)-1) + ")"
		for _, id := range fileIDs {
			args = append(args, id)
		}
	}
	query += " ORDER BY file_id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var resumes []Resume
	for rows.Next() {
		r, err := scanResume(rows.Scan)
		if err != nil {
			return nil, err
		}
		resumes = append(resumes, *r)
	}
	return resumes, rows.Err()
}

// DeleteResumesByProject removes all resumes and chunks for a project.
// Used by the reset path before re-ingestion.
func (s *Store) DeleteResumesByProject(ctx context.Context, projectID string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM chunks WHERE project_id = ?", projectID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			"DELETE FROM resumes WHERE project_id = ?", projectID)
		return err
	})
}

func scanResume(scan func(...interface{}) error) (*Resume, error) {
	r := &Resume{}
	var name, contact, content, parsed sql.NullString
	if err := scan(&r.ID, &r.ProjectID, &r.FileID, &name, &contact,
		&content, &parsed, &r.ExtractionMethod, &r.CreatedAt); err != nil {
		return nil, err
	}
	r.CandidateName = name.String
	r.FullContent = content.String
	if contact.Valid && contact.String != "" {
		if err := json.Unmarshal([]byte(contact.String), &r.ContactInfo); err != nil {
			r.ContactInfo = map[string]any{}
		}
	}
	if r.ContactInfo == nil {
		r.ContactInfo = map[string]any{}
	}
	if parsed.Valid {
		r.ParsedData = json.RawMessage(parsed.String)
	}
	return r, nil
}

func repeatPlaceholders(n int) string {
	s := ""
	for i := 0; i < n; i++ {
		s += ", ?"
	}
	return s
}
