package store

import (
	"context"
	"database/sql"
)

// Asset represents a row in the assets table.
type Asset struct {
	ID         int64  `json:"id"`
	ProjectID  string `json:"project_id"`
	Name       string `json:"name"`
	MIMEType   string `json:"mime_type"`
	SizeBytes  int64  `json:"size_bytes"`
	StorageURL string `json:"storage_url"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

// InsertAsset creates an asset record. Returns the asset ID.
func (s *Store) InsertAsset(ctx context.Context, a Asset) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO assets (project_id, name, mime_type, size_bytes, storage_url)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(project_id, name) DO UPDATE SET
			mime_type = excluded.mime_type,
			size_bytes = excluded.size_bytes,
			storage_url = excluded.storage_url,
			updated_at = CURRENT_TIMESTAMP
	`, a.ProjectID, a.Name, a.MIMEType, a.SizeBytes, a.StorageURL)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetAsset retrieves an asset by its project-scoped name.
func (s *Store) GetAsset(ctx context.Context, projectID, name string) (*Asset, error) {
	a := &Asset{}
	var mime sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, project_id, name, mime_type, size_bytes, storage_url, created_at, updated_at
		FROM assets WHERE project_id = ? AND name = ?
	`, projectID, name).Scan(&a.ID, &a.ProjectID, &a.Name, &mime,
		&a.SizeBytes, &a.StorageURL, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.MIMEType = mime.String
	return a, nil
}

// ListAssets returns all assets in a project ordered by creation time.
func (s *Store) ListAssets(ctx context.Context, projectID string) ([]Asset, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, name, mime_type, size_bytes, storage_url, created_at, updated_at
		FROM assets WHERE project_id = ? ORDER BY created_at DESC
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assets []Asset
	for rows.Next() {
		var a Asset
		var mime sql.NullString
		if err := rows.Scan(&a.ID, &a.ProjectID, &a.Name, &mime,
			&a.SizeBytes, &a.StorageURL, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		a.MIMEType = mime.String
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

// DeleteAsset removes one asset record by name.
func (s *Store) DeleteAsset(ctx context.Context, projectID, name string) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM assets WHERE project_id = ? AND name = ?", projectID, name)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
