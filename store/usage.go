package store

import (
	"context"
	"database/sql"
)

// UsageLog is one append-only record of an LLM call.
type UsageLog struct {
	ID               int64   `json:"id"`
	ProjectID        string  `json:"project_id"`
	FileID           string  `json:"file_id,omitempty"`
	ModelID          string  `json:"model_id"`
	ActionType       string  `json:"action_type"`
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	LatencyMS        float64 `json:"latency_ms"`
	CreatedAt        string  `json:"created_at"`
}

// UsageTotals holds aggregate token counts over a set of logs.
type UsageTotals struct {
	Requests         int     `json:"requests"`
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	AvgLatencyMS     float64 `json:"avg_latency_ms"`
}

// UsageBreakdown is one group of a per-action or per-model aggregation.
type UsageBreakdown struct {
	Key string `json:"key"`
	UsageTotals
}

// UsageSummary aggregates a project's usage: grand totals plus per-action
// and per-model breakdowns.
type UsageSummary struct {
	Totals   UsageTotals      `json:"totals"`
	ByAction []UsageBreakdown `json:"by_action"`
	ByModel  []UsageBreakdown `json:"by_model"`
}

// FileUsage is the per-file usage aggregation.
type FileUsage struct {
	FileID string `json:"file_id"`
	UsageTotals
	Models  string `json:"models"`
	Actions string `json:"actions"`
}

// InsertUsageLog appends one usage record.
func (s *Store) InsertUsageLog(ctx context.Context, u UsageLog) error {
	var fileID interface{}
	if u.FileID != "" {
		fileID = u.FileID
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO usage_logs (project_id, file_id, model_id, action_type,
			prompt_tokens, completion_tokens, total_tokens, latency_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, u.ProjectID, fileID, u.ModelID, u.ActionType,
		u.PromptTokens, u.CompletionTokens, u.TotalTokens, u.LatencyMS)
	return err
}

// GetUsageSummary returns project-wide totals with per-action and per-model
// breakdowns.
func (s *Store) GetUsageSummary(ctx context.Context, projectID string) (*UsageSummary, error) {
	summary := &UsageSummary{}

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(prompt_tokens), 0), COALESCE(SUM(completion_tokens), 0),
			COALESCE(SUM(total_tokens), 0), COALESCE(AVG(latency_ms), 0)
		FROM usage_logs WHERE project_id = ?
	`, projectID).Scan(&summary.Totals.Requests, &summary.Totals.PromptTokens,
		&summary.Totals.CompletionTokens, &summary.Totals.TotalTokens,
		&summary.Totals.AvgLatencyMS)
	if err != nil {
		return nil, err
	}

	summary.ByAction, err = s.usageBreakdown(ctx, projectID, "action_type")
	if err != nil {
		return nil, err
	}
	summary.ByModel, err = s.usageBreakdown(ctx, projectID, "model_id")
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// usageBreakdown groups usage by one column. column is a fixed identifier
// chosen by the caller, never user input.
func (s *Store) usageBreakdown(ctx context.Context, projectID, column string) ([]UsageBreakdown, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+column+`, COUNT(*), COALESCE(SUM(prompt_tokens), 0),
			COALESCE(SUM(completion_tokens), 0), COALESCE(SUM(total_tokens), 0),
			COALESCE(AVG(latency_ms), 0)
		FROM usage_logs WHERE project_id = ?
		GROUP BY `+column+`
		ORDER BY SUM(total_tokens) DESC
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []UsageBreakdown
	for rows.Next() {
		var g UsageBreakdown
		if err := rows.Scan(&g.Key, &g.Requests, &g.PromptTokens,
			&g.CompletionTokens, &g.TotalTokens, &g.AvgLatencyMS); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// GetUsageByFile returns the per-file usage aggregation for a project,
// including the distinct models and action types that touched each file.
func (s *Store) GetUsageByFile(ctx context.Context, projectID string) ([]FileUsage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT file_id, COUNT(*), COALESCE(SUM(prompt_tokens), 0),
			COALESCE(SUM(completion_tokens), 0), COALESCE(SUM(total_tokens), 0),
			COALESCE(AVG(latency_ms), 0),
			GROUP_CONCAT(DISTINCT model_id), GROUP_CONCAT(DISTINCT action_type)
		FROM usage_logs
		WHERE project_id = ? AND file_id IS NOT NULL
		GROUP BY file_id
		ORDER BY SUM(total_tokens) DESC
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []FileUsage
	for rows.Next() {
		var f FileUsage
		var models, actions sql.NullString
		if err := rows.Scan(&f.FileID, &f.Requests, &f.PromptTokens,
			&f.CompletionTokens, &f.TotalTokens, &f.AvgLatencyMS,
			&models, &actions); err != nil {
			return nil, err
		}
		f.Models = models.String
		f.Actions = actions.String
		files = append(files, f)
	}
	return files, rows.Err()
}

// ListUsageLogs returns a page of raw usage records, newest first, plus the
// total record count for the project.
func (s *Store) ListUsageLogs(ctx context.Context, projectID string, limit, offset int) ([]UsageLog, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM usage_logs WHERE project_id = ?", projectID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, COALESCE(file_id, ''), model_id, action_type,
			prompt_tokens, completion_tokens, total_tokens, latency_ms, created_at
		FROM usage_logs WHERE project_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, projectID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var logs []UsageLog
	for rows.Next() {
		var u UsageLog
		if err := rows.Scan(&u.ID, &u.ProjectID, &u.FileID, &u.ModelID, &u.ActionType,
			&u.PromptTokens, &u.CompletionTokens, &u.TotalTokens, &u.LatencyMS, &u.CreatedAt); err != nil {
			return nil, 0, err
		}
		logs = append(logs, u)
	}
	return logs, total, rows.Err()
}
