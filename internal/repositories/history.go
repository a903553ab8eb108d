package repositories

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// DefaultHistoryLimit bounds [HistoryRepository.Recent] when no limit is given.
const DefaultHistoryLimit = 20

// HistoryEntry is one recorded search.
type HistoryEntry struct {
	ID          int64
	Query       string
	ResultCount int
	SearchedAt  time.Time
}

// HistoryRepository records searches in the search_history table.
type HistoryRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewHistoryRepository creates a new HistoryRepository with the given database connection
func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db, now: time.Now}
}

// Record stores a search. Blank queries are ignored.
func (r *HistoryRepository) Record(query string, resultCount int) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	_, err := r.db.Exec(
		`INSERT INTO search_history (query, result_count, searched_at) VALUES (?, ?, ?)`,
		query, resultCount, r.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record search: %w", err)
	}
	return nil
}

// Recent lists the latest searches, newest first.
func (r *HistoryRepository) Recent(limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	rows, err := r.db.Query(`
		SELECT id, query, result_count, searched_at
		FROM search_history
		ORDER BY searched_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query search history: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.ID, &e.Query, &e.ResultCount, &e.SearchedAt); err != nil {
			return nil, fmt.Errorf("failed to scan search history: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Clear removes all history.
func (r *HistoryRepository) Clear() (int64, error) {
	res, err := r.db.Exec(`DELETE FROM search_history`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear search history: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
