package store

import (
	"context"
	"database/sql"
	"fmt"
)

// VectorPoint is one chunk's entry in a project collection: the dense
// embedding plus the payload the query side returns.
type VectorPoint struct {
	ChunkID   int64
	FileID    string
	Text      string
	Embedding []float32
}

// PointHit is a scored hit from a dense or keyword search. Higher scores
// are better on both sides.
type PointHit struct {
	ChunkID int64   `json:"chunk_id"`
	FileID  string  `json:"file_id"`
	Text    string  `json:"text"`
	Score   float64 `json:"score"`
}

// A collection is a pair of virtual tables sharing the chunk id as key:
// <name>_vec (vec0, dense KNN) and <name>_bm25 (fts5, keyword side).

// EnsureCollection creates the collection's table pair if missing.
func (s *Store) EnsureCollection(ctx context.Context, name string) error {
	if !validIdent(name) {
		return fmt.Errorf("invalid collection name: %q", name)
	}
	ddl := fmt.Sprintf(`
		CREATE VIRTUAL TABLE IF NOT EXISTS %s_vec USING vec0(
			chunk_id INTEGER PRIMARY KEY,
			embedding float[%d] distance_metric=%s
		);
		CREATE VIRTUAL TABLE IF NOT EXISTS %s_bm25 USING fts5(
			text,
			file_id UNINDEXED,
			tokenize='porter unicode61'
		);
	`, name, s.embeddingDim, s.distance, name)
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

// DropCollection removes the collection's table pair.
func (s *Store) DropCollection(ctx context.Context, name string) error {
	if !validIdent(name) {
		return fmt.Errorf("invalid collection name: %q", name)
	}
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(
		"DROP TABLE IF EXISTS %s_vec; DROP TABLE IF EXISTS %s_bm25;", name, name))
	return err
}

// CollectionExists reports whether the collection's vec table is present.
func (s *Store) CollectionExists(ctx context.Context, name string) (bool, error) {
	if !validIdent(name) {
		return false, fmt.Errorf("invalid collection name: %q", name)
	}
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?",
		name+"_vec").Scan(&n)
	return n > 0, err
}

// CollectionCount returns the number of points in a collection.
func (s *Store) CollectionCount(ctx context.Context, name string) (int, error) {
	if !validIdent(name) {
		return 0, fmt.Errorf("invalid collection name: %q", name)
	}
	var n int
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM %s_vec", name)).Scan(&n)
	return n, err
}

// UpsertPoints writes a batch of points into both sides of the collection
// in one transaction.
func (s *Store) UpsertPoints(ctx context.Context, name string, points []VectorPoint) error {
	if !validIdent(name) {
		return fmt.Errorf("invalid collection name: %q", name)
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		vecStmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
			"INSERT OR REPLACE INTO %s_vec (chunk_id, embedding) VALUES (?, ?)", name))
		if err != nil {
			return err
		}
		defer vecStmt.Close()

		delStmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
			"DELETE FROM %s_bm25 WHERE rowid = ?", name))
		if err != nil {
			return err
		}
		defer delStmt.Close()

		ftsStmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
			"INSERT INTO %s_bm25 (rowid, text, file_id) VALUES (?, ?, ?)", name))
		if err != nil {
			return err
		}
		defer ftsStmt.Close()

		for _, p := range points {
			if _, err := vecStmt.ExecContext(ctx, p.ChunkID, serializeFloat32(p.Embedding)); err != nil {
				return err
			}
			if _, err := delStmt.ExecContext(ctx, p.ChunkID); err != nil {
				return err
			}
			if _, err := ftsStmt.ExecContext(ctx, p.ChunkID, p.Text, p.FileID); err != nil {
				return err
			}
		}
		return nil
	})
}

// DenseSearch performs a KNN search over the collection's vec0 table.
func (s *Store) DenseSearch(ctx context.Context, name string, embedding []float32, k int) ([]PointHit, error) {
	if !validIdent(name) {
		return nil, fmt.Errorf("invalid collection name: %q", name)
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT v.chunk_id, v.distance, b.text, b.file_id
		FROM %s_vec v
		JOIN %s_bm25 b ON b.rowid = v.chunk_id
		WHERE v.embedding MATCH ? AND k = ?
		ORDER BY v.distance
	`, name, name), serializeFloat32(embedding), k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []PointHit
	for rows.Next() {
		var h PointHit
		var distance float64
		if err := rows.Scan(&h.ChunkID, &distance, &h.Text, &h.FileID); err != nil {
			return nil, err
		}
		h.Score = distanceToScore(distance, s.distance)
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// KeywordSearch performs a BM25-ranked full-text search over the keyword
// side. match must be a valid FTS5 match expression.
func (s *Store) KeywordSearch(ctx context.Context, name, match string, k int) ([]PointHit, error) {
	if !validIdent(name) {
		return nil, fmt.Errorf("invalid collection name: %q", name)
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT rowid, rank, text, file_id
		FROM %s_bm25
		WHERE %s_bm25 MATCH ?
		ORDER BY rank
		LIMIT ?
	`, name, name), match, k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []PointHit
	for rows.Next() {
		var h PointHit
		var rank float64
		if err := rows.Scan(&h.ChunkID, &rank, &h.Text, &h.FileID); err != nil {
			return nil, err
		}
		// FTS5 rank is negative, lower = better.
		h.Score = -rank
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// distanceToScore converts a vec0 distance to a similarity score in which
// higher is better.
func distanceToScore(distance float64, metric string) float64 {
	if metric == "cosine" {
		return 1.0 - distance
	}
	return 1.0 / (1.0 + distance)
}
