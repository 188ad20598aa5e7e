package store

import (
	"context"
	"database/sql"
)

// Chunk represents a retrieval unit emitted by the chunker.
type Chunk struct {
	ID          int64  `json:"id"`
	ProjectID   string `json:"project_id"`
	FileID      string `json:"file_id"`
	Content     string `json:"content"`
	SectionType string `json:"section_type"`
	ChunkOrder  int    `json:"chunk_order"`
}

// Metadata returns the chunk payload map carried into the vector index.
func (c *Chunk) Metadata() map[string]string {
	return map[string]string{
		"file_id":      c.FileID,
		"section_type": c.SectionType,
	}
}

// InsertChunks inserts a batch of chunks in one transaction and returns
// their IDs.
func (s *Store) InsertChunks(ctx context.Context, chunks []Chunk) ([]int64, error) {
	ids := make([]int64, len(chunks))
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO chunks (project_id, file_id, content, section_type, chunk_order)
			VALUES (?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, c := range chunks {
			res, err := stmt.ExecContext(ctx,
				c.ProjectID, c.FileID, c.Content, c.SectionType, c.ChunkOrder)
			if err != nil {
				return err
			}
			ids[i], err = res.LastInsertId()
			if err != nil {
				return err
			}
		}
		return nil
	})
	return ids, err
}

// GetChunksByProject returns all chunks in a project ordered by file then
// chunk order. This is the upsert feed for the vector indexer.
func (s *Store) GetChunksByProject(ctx context.Context, projectID string) ([]Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, file_id, content, section_type, chunk_order
		FROM chunks WHERE project_id = ? ORDER BY file_id, chunk_order
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.ID, &c.ProjectID, &c.FileID,
			&c.Content, &c.SectionType, &c.ChunkOrder); err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// DeleteChunksByFile removes all chunks for one resume. Used when a single
// resume is reprocessed.
func (s *Store) DeleteChunksByFile(ctx context.Context, projectID, fileID string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM chunks WHERE project_id = ? AND file_id = ?", projectID, fileID)
	return err
}

// DeleteChunksByProject removes every chunk in a project. Used by the
// ingestion reset path.
func (s *Store) DeleteChunksByProject(ctx context.Context, projectID string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM chunks WHERE project_id = ?", projectID)
	return err
}

// CountChunks returns the number of chunks in a project.
func (s *Store) CountChunks(ctx context.Context, projectID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM chunks WHERE project_id = ?", projectID).Scan(&n)
	return n, err
}
