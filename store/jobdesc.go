package store

import (
	"context"
	"database/sql"
	"encoding/json"
)

// JobDescription is the single JD per project, create-or-update semantics.
type JobDescription struct {
	ID           int64              `json:"id"`
	ProjectID    string             `json:"project_id"`
	Title        string             `json:"title"`
	Description  string             `json:"description"`
	Prompt       string             `json:"prompt,omitempty"`
	Weights      map[string]float64 `json:"weights,omitempty"`
	CustomRubric string             `json:"custom_rubric,omitempty"`
	CreatedAt    string             `json:"created_at"`
	UpdatedAt    string             `json:"updated_at"`
}

// SaveJobDescription creates or updates the project's job description.
func (s *Store) SaveJobDescription(ctx context.Context, jd JobDescription) error {
	var weights interface{}
	if len(jd.Weights) > 0 {
		b, err := json.Marshal(jd.Weights)
		if err != nil {
			return err
		}
		weights = string(b)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO job_descriptions (project_id, title, description, prompt, weights, custom_rubric)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			prompt = excluded.prompt,
			weights = excluded.weights,
			custom_rubric = excluded.custom_rubric,
			updated_at = CURRENT_TIMESTAMP
	`, jd.ProjectID, jd.Title, jd.Description, jd.Prompt, weights, jd.CustomRubric)
	return err
}

// GetJobDescription retrieves the project's JD, or sql.ErrNoRows.
func (s *Store) GetJobDescription(ctx context.Context, projectID string) (*JobDescription, error) {
	jd := &JobDescription{}
	var prompt, weights, rubric sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, project_id, title, description, prompt, weights, custom_rubric, created_at, updated_at
		FROM job_descriptions WHERE project_id = ?
	`, projectID).Scan(&jd.ID, &jd.ProjectID, &jd.Title, &jd.Description,
		&prompt, &weights, &rubric, &jd.CreatedAt, &jd.UpdatedAt)
	if err != nil {
		return nil, err
	}
	jd.Prompt = prompt.String
	jd.CustomRubric = rubric.String
	if weights.Valid && weights.String != "" {
		if err := json.Unmarshal([]byte(weights.String), &jd.Weights); err != nil {
			jd.Weights = nil
		}
	}
	return jd, nil
}
