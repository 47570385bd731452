package db

import (
	"context"
	"fmt"
)

// SourceCount stores per-source corpus counts.
type SourceCount struct {
	Source string `json:"source"`
	Total  int64  `json:"total"`
	Unique int64  `json:"unique"`
}

// CorpusStats is the read model returned by the stats command and the
// status API.
type CorpusStats struct {
	TotalRecords  int64         `json:"total_records"`
	UniqueRecords int64         `json:"unique_records"`
	Duplicates    int64         `json:"duplicates"`
	DuplicateRate float64       `json:"duplicate_rate"`
	Sources       []SourceCount `json:"sources"`
}

// QueryCorpusStats returns totals and a per-source breakdown.
func (p *Pool) QueryCorpusStats(ctx context.Context) (*CorpusStats, error) {
	stats := &CorpusStats{
		Sources: make([]SourceCount, 0, 32),
	}

	const totalsQuery = `
SELECT
	COUNT(*)::BIGINT AS total,
	COUNT(*) FILTER (WHERE NOT r.is_duplicate)::BIGINT AS unique_records,
	COUNT(*) FILTER (WHERE r.is_duplicate)::BIGINT AS duplicates
FROM news.records r
`
	if err := p.QueryRow(ctx, totalsQuery).Scan(
		&stats.TotalRecords,
		&stats.UniqueRecords,
		&stats.Duplicates,
	); err != nil {
		return nil, fmt.Errorf("query corpus totals: %w", err)
	}

	if stats.TotalRecords > 0 {
		stats.DuplicateRate = float64(stats.Duplicates) / float64(stats.TotalRecords) * 100
	}

	const sourcesQuery = `
SELECT
	r.source,
	COUNT(*)::BIGINT AS total,
	COUNT(*) FILTER (WHERE NOT r.is_duplicate)::BIGINT AS unique_records
FROM news.records r
GROUP BY r.source
ORDER BY r.source
`
	rows, err := p.Query(ctx, sourcesQuery)
	if err != nil {
		return nil, fmt.Errorf("query per-source counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var row SourceCount
		if err := rows.Scan(&row.Source, &row.Total, &row.Unique); err != nil {
			return nil, fmt.Errorf("scan source count row: %w", err)
		}
		stats.Sources = append(stats.Sources, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate source count rows: %w", err)
	}

	return stats, nil
}
