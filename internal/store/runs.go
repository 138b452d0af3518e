package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"docintake/internal/intake"
	"docintake/internal/services"
)

// SaveRun inserts or replaces the audit record for a run.
func (s *Store) SaveRun(ctx context.Context, record intake.RunRecord) error {
	if record.ID == "" {
		return services.Wrap(services.ErrValidation, "store", "save run", "run id required", nil)
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}
	var finished sql.NullString
	if !record.FinishedAt.IsZero() {
		finished = sql.NullString{String: formatTime(record.FinishedAt), Valid: true}
	}
	_, err = s.execWithRetry(ctx,
		`INSERT INTO runs (
            id, document_id, actor, status, error_kind, error_text, record_json, started_at, finished_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            status = excluded.status,
            error_kind = excluded.error_kind,
            error_text = excluded.error_text,
            record_json = excluded.record_json,
            finished_at = excluded.finished_at`,
		record.ID,
		record.DocumentID,
		nullableString(record.Actor),
		string(record.Status),
		nullableString(record.ErrorKind),
		nullableString(record.ErrorText),
		string(payload),
		formatTime(record.StartedAt),
		finished,
	)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

// GetRun fetches a run by identifier.
func (s *Store) GetRun(ctx context.Context, id string) (intake.RunRecord, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, "SELECT record_json FROM runs WHERE id = ?", id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return intake.RunRecord{}, services.Wrap(services.ErrNotFound, "store", "get run", "run "+id+" not found", nil)
	}
	if err != nil {
		return intake.RunRecord{}, fmt.Errorf("get run: %w", err)
	}
	return decodeRun(payload)
}

// ListRuns returns runs newest first. An empty documentID lists every run;
// limit <= 0 means no limit.
func (s *Store) ListRuns(ctx context.Context, documentID string, limit int) ([]intake.RunRecord, error) {
	query := "SELECT record_json FROM runs"
	args := []any{}
	if documentID != "" {
		query += " WHERE document_id = ?"
		args = append(args, documentID)
	}
	query += " ORDER BY started_at DESC, id"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var records []intake.RunRecord
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		record, err := decodeRun(payload)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return records, nil
}

func decodeRun(payload string) (intake.RunRecord, error) {
	var record intake.RunRecord
	if err := json.Unmarshal([]byte(payload), &record); err != nil {
		return intake.RunRecord{}, fmt.Errorf("decode run: %w", err)
	}
	return record, nil
}
