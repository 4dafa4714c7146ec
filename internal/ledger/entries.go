package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// OutcomeSuccess marks a request that produced a transcription. Failures are
// recorded with their failure kind.
const OutcomeSuccess = "success"

// OutcomeWriteFailed marks a successful request whose transcription could not
// be saved. It still counts against the daily quota.
const OutcomeWriteFailed = "write_failed"

// Entry is one transcription request as seen by the service.
type Entry struct {
	ID              int64
	RunID           string
	ModelKey        string
	Model           string
	GroupIndex      int
	Pages           []int
	Outcome         string
	ErrorMessage    string
	PromptTokens    int64
	CandidateTokens int64
	ThoughtTokens   int64
	TotalTokens     int64
	Duration        time.Duration
	OutputPath      string
	CreatedAt       time.Time
}

// Succeeded reports whether the request produced a transcription.
func (e Entry) Succeeded() bool {
	return e.Outcome == OutcomeSuccess
}

// Record appends an entry. CreatedAt defaults to now.
func (s *Store) Record(ctx context.Context, entry Entry) (int64, error) {
	if s == nil || s.db == nil {
		return 0, errors.New("ledger not open")
	}
	ctx = ensureContext(ctx)
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if strings.TrimSpace(entry.Outcome) == "" {
		return 0, errors.New("ledger entry outcome required")
	}

	var id int64
	err := retryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx, `INSERT INTO requests (
			run_id, model_key, model, group_index, pages, outcome, error_message,
			prompt_tokens, candidate_tokens, thought_tokens, total_tokens,
			duration_ms, output_path, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			entry.RunID, entry.ModelKey, entry.Model, entry.GroupIndex, encodePages(entry.Pages),
			entry.Outcome, nullableString(entry.ErrorMessage),
			entry.PromptTokens, entry.CandidateTokens, entry.ThoughtTokens, entry.TotalTokens,
			entry.Duration.Milliseconds(), nullableString(entry.OutputPath), entry.CreatedAt.UnixMilli(),
		)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("record request: %w", err)
	}
	return id, nil
}

// CountSince returns how many requests were sent to modelKey at or after since.
func (s *Store) CountSince(ctx context.Context, modelKey string, since time.Time) (int, error) {
	if s == nil || s.db == nil {
		return 0, errors.New("ledger not open")
	}
	ctx = ensureContext(ctx)
	var count int
	err := retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx,
			"SELECT COUNT(1) FROM requests WHERE model_key = ? AND created_at >= ?",
			modelKey, since.UnixMilli(),
		).Scan(&count)
	})
	if err != nil {
		return 0, fmt.Errorf("count requests: %w", err)
	}
	return count, nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("ledger not open")
	}
	ctx = ensureContext(ctx)
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `SELECT
		id, run_id, model_key, model, group_index, pages, outcome, error_message,
		prompt_tokens, candidate_tokens, thought_tokens, total_tokens,
		duration_ms, output_path, created_at
		FROM requests ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent requests: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry      Entry
			pages      string
			errMessage sql.NullString
			outputPath sql.NullString
			durationMS int64
			createdMS  int64
		)
		if err := rows.Scan(
			&entry.ID, &entry.RunID, &entry.ModelKey, &entry.Model, &entry.GroupIndex, &pages,
			&entry.Outcome, &errMessage,
			&entry.PromptTokens, &entry.CandidateTokens, &entry.ThoughtTokens, &entry.TotalTokens,
			&durationMS, &outputPath, &createdMS,
		); err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		entry.Pages = decodePages(pages)
		entry.ErrorMessage = errMessage.String
		entry.OutputPath = outputPath.String
		entry.Duration = time.Duration(durationMS) * time.Millisecond
		entry.CreatedAt = time.UnixMilli(createdMS)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate requests: %w", err)
	}
	return entries, nil
}

func encodePages(pages []int) string {
	parts := make([]string, len(pages))
	for i, page := range pages {
		parts[i] = strconv.Itoa(page)
	}
	return strings.Join(parts, ",")
}

func decodePages(value string) []int {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	fields := strings.Split(value, ",")
	pages := make([]int, 0, len(fields))
	for _, field := range fields {
		page, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil {
			continue
		}
		pages = append(pages, page)
	}
	return pages
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
