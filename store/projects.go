package store

import (
	"context"
	"database/sql"
)

// Project represents a row in the projects table.
type Project struct {
	ID        int64  `json:"id"`
	ProjectID string `json:"project_id"`
	CreatedAt string `json:"created_at"`
}

// ProjectDetail aggregates entity counts for one project.
type ProjectDetail struct {
	Project
	AssetCount        int  `json:"asset_count"`
	ResumeCount       int  `json:"resume_count"`
	ChunkCount        int  `json:"chunk_count"`
	HasJobDescription bool `json:"has_job_description"`
}

// EnsureProject creates the project row if it does not exist yet.
// Projects are created on first reference.
func (s *Store) EnsureProject(ctx context.Context, projectID string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO projects (project_id) VALUES (?)", projectID)
	return err
}

// ProjectExists reports whether a project row exists.
func (s *Store) ProjectExists(ctx context.Context, projectID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM projects WHERE project_id = ?", projectID).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListProjects returns all projects ordered by creation time.
func (s *Store) ListProjects(ctx context.Context) ([]Project, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, project_id, created_at FROM projects ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ID, &p.ProjectID, &p.CreatedAt); err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// GetProjectDetail returns a project with entity counts, or sql.ErrNoRows.
func (s *Store) GetProjectDetail(ctx context.Context, projectID string) (*ProjectDetail, error) {
	d := &ProjectDetail{}
	err := s.db.QueryRowContext(ctx,
		"SELECT id, project_id, created_at FROM projects WHERE project_id = ?",
		projectID).Scan(&d.ID, &d.ProjectID, &d.CreatedAt)
	if err != nil {
		return nil, err
	}

	counts := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM assets WHERE project_id = ?", &d.AssetCount},
		{"SELECT COUNT(*) FROM resumes WHERE project_id = ?", &d.ResumeCount},
		{"SELECT COUNT(*) FROM chunks WHERE project_id = ?", &d.ChunkCount},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query, projectID).Scan(c.dest); err != nil {
			return nil, err
		}
	}

	var jd int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM job_descriptions WHERE project_id = ?", projectID).Scan(&jd); err != nil {
		return nil, err
	}
	d.HasJobDescription = jd > 0
	return d, nil
}

// DeleteProject removes a project and all rows it owns. The caller drops the
// vector collection separately.
func (s *Store) DeleteProject(ctx context.Context, projectID string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, q := range []string{
			"DELETE FROM usage_logs WHERE project_id = ?",
			"DELETE FROM chunks WHERE project_id = ?",
			"DELETE FROM resumes WHERE project_id = ?",
			"DELETE FROM job_descriptions WHERE project_id = ?",
			"DELETE FROM assets WHERE project_id = ?",
			"DELETE FROM projects WHERE project_id = ?",
		} {
			if _, err := tx.ExecContext(ctx, q, projectID); err != nil {
				return err
			}
		}
		return nil
	})
}
