package store

import (
	"fmt"
	"time"
)

// UsageRecord is one immutable row of the usage ledger.
type UsageRecord struct {
	Provider         string
	PromptTokens     int64
	CompletionTokens int64
	TotalTokens      int64
	Cost             float64
	Timestamp        time.Time
}

// TokenTotals holds per-provider aggregate sums.
type TokenTotals struct {
	PromptTokens     int64
	CompletionTokens int64
	TotalTokens      int64
	Cost             float64
}

// RecordUsage appends one usage row for a provider call. A single INSERT;
// concurrent appends never interleave partial writes.
func (s *Store) RecordUsage(provider string, promptTokens, completionTokens, totalTokens int, cost float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT INTO api_usage (api, prompt_tokens, completion_tokens, tokens_used, cost)
		 VALUES (?, ?, ?, ?, ?)`,
		provider, promptTokens, completionTokens, totalTokens, cost,
	)
	if err != nil {
		return fmt.Errorf("failed to record usage: %w", err)
	}
	return nil
}

// AggregateUsage returns per-provider element-wise sums over the whole
// ledger.
func (s *Store) AggregateUsage() (map[string]TokenTotals, error) {
	rows, err := s.db.Query(
		`SELECT api,
		        SUM(prompt_tokens),
		        SUM(completion_tokens),
		        SUM(tokens_used),
		        SUM(cost)
		 FROM api_usage GROUP BY api`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate usage: %w", err)
	}
	defer rows.Close()

	totals := make(map[string]TokenTotals)
	for rows.Next() {
		var provider string
		var t TokenTotals
		if err := rows.Scan(&provider, &t.PromptTokens, &t.CompletionTokens, &t.TotalTokens, &t.Cost); err != nil {
			return nil, fmt.Errorf("failed to scan usage row: %w", err)
		}
		totals[provider] = t
	}
	return totals, rows.Err()
}

// RecentUsage returns the n most recent ledger rows, newest first.
func (s *Store) RecentUsage(n int) ([]UsageRecord, error) {
	rows, err := s.db.Query(
		`SELECT api, prompt_tokens, completion_tokens, tokens_used, cost, timestamp
		 FROM api_usage
		 ORDER BY timestamp DESC, rowid DESC
		 LIMIT ?`, n,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent usage: %w", err)
	}
	defer rows.Close()

	var records []UsageRecord
	for rows.Next() {
		var r UsageRecord
		if err := rows.Scan(&r.Provider, &r.PromptTokens, &r.CompletionTokens, &r.TotalTokens, &r.Cost, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan usage row: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
