package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// ErrDuplicateKey reports a unique-constraint conflict on insert. The
// pipeline treats it as "record already exists" rather than a failure.
var ErrDuplicateKey = errors.New("record already exists")

// ExistsByURL is the cheapest duplicate pre-check and runs before any
// hashing or embedding work.
func (p *Pool) ExistsByURL(ctx context.Context, url string) (bool, error) {
	const q = `
SELECT EXISTS (
	SELECT 1
	FROM news.records r
	WHERE r.url = $1
)
`
	var exists bool
	if err := p.QueryRow(ctx, q, url).Scan(&exists); err != nil {
		return false, fmt.Errorf("check url existence: %w", err)
	}
	return exists, nil
}

// FindByContentHash returns the stored record with the given fingerprint,
// or nil when none exists.
func (p *Pool) FindByContentHash(ctx context.Context, hash string) (*Record, error) {
	const q = `
SELECT
	r.record_id,
	r.title,
	r.url,
	r.source,
	r.published_at,
	r.scraped_at,
	r.content_hash,
	r.is_duplicate,
	r.duplicate_of
FROM news.records r
WHERE r.content_hash = $1
LIMIT 1
`
	record, err := scanRecordRow(p.QueryRow(ctx, q, hash))
	if err != nil {
		return nil, fmt.Errorf("find record by content hash: %w", err)
	}
	return record, nil
}

// GetRecord fetches one record by id, or nil when it does not exist.
func (p *Pool) GetRecord(ctx context.Context, id int64) (*Record, error) {
	const q = `
SELECT
	r.record_id,
	r.title,
	r.url,
	r.source,
	r.published_at,
	r.scraped_at,
	r.content_hash,
	r.is_duplicate,
	r.duplicate_of
FROM news.records r
WHERE r.record_id = $1
`
	record, err := scanRecordRow(p.QueryRow(ctx, q, id))
	if err != nil {
		return nil, fmt.Errorf("get record %d: %w", id, err)
	}
	return record, nil
}

// ListRecordsByIDs resolves vector search hits back to store rows. Missing
// ids are skipped silently; the vector index may lag behind deletions.
func (p *Pool) ListRecordsByIDs(ctx context.Context, ids []int64) ([]Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	q := fmt.Sprintf(`
SELECT
	r.record_id,
	r.title,
	r.url,
	r.source,
	r.published_at,
	r.scraped_at,
	r.content_hash,
	r.is_duplicate,
	r.duplicate_of
FROM news.records r
WHERE r.record_id IN (%s)
`, strings.Join(placeholders, ", "))

	rows, err := p.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query records by ids: %w", err)
	}
	defer rows.Close()

	records := make([]Record, 0, len(ids))
	for rows.Next() {
		record, err := scanRecordFields(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan record row: %w", err)
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate record rows: %w", err)
	}
	return records, nil
}

// InsertRecord persists a record, duplicate flags included, in one write.
// Returns ErrDuplicateKey on url/content_hash conflicts.
func (p *Pool) InsertRecord(ctx context.Context, record *Record) error {
	if p == nil || p.gdb == nil {
		return fmt.Errorf("database pool is not initialized")
	}
	if err := p.gdb.WithContext(ctx).Create(record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("insert record url=%s: %w", record.URL, err)
	}
	return nil
}

// SetRecordEmbedding stores the vector on a canonical record after the
// index upsert succeeded, keeping the embedding column in step with the
// external index.
func (p *Pool) SetRecordEmbedding(ctx context.Context, id int64, embedding []float32) error {
	if p == nil || p.gdb == nil {
		return fmt.Errorf("database pool is not initialized")
	}
	err := p.gdb.WithContext(ctx).
		Model(&Record{}).
		Where("record_id = ?", id).
		Update("embedding", embedding).Error
	if err != nil {
		return fmt.Errorf("set embedding for record %d: %w", id, err)
	}
	return nil
}

// ListRecordIDsOlderThan selects retention-sweep candidates by scraped_at.
func (p *Pool) ListRecordIDsOlderThan(ctx context.Context, cutoff time.Time) ([]int64, error) {
	const q = `
SELECT r.record_id
FROM news.records r
WHERE r.scraped_at < $1
ORDER BY r.record_id
`
	rows, err := p.Query(ctx, q, cutoff.UTC())
	if err != nil {
		return nil, fmt.Errorf("query aged records: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan aged record id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate aged record ids: %w", err)
	}
	return ids, nil
}

// DeleteRecord removes a store row. The caller removes the vector
// first. Deleting a row that is already gone is not an error; the
// sweep only cares that the row no longer exists.
func (p *Pool) DeleteRecord(ctx context.Context, id int64) error {
	if _, err := p.Exec(ctx, `DELETE FROM news.records WHERE record_id = $1`, id); err != nil {
		return fmt.Errorf("delete record %d: %w", id, err)
	}
	return nil
}

// ListRecentRecords returns the newest records, optionally canonical only.
func (p *Pool) ListRecentRecords(ctx context.Context, limit int, uniqueOnly bool) ([]Record, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be > 0")
	}

	const q = `
SELECT
	r.record_id,
	r.title,
	r.url,
	r.source,
	r.published_at,
	r.scraped_at,
	r.content_hash,
	r.is_duplicate,
	r.duplicate_of
FROM news.records r
WHERE ($1 = FALSE OR r.is_duplicate = FALSE)
ORDER BY r.published_at DESC, r.record_id DESC
LIMIT $2
`
	rows, err := p.Query(ctx, q, uniqueOnly, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent records: %w", err)
	}
	defer rows.Close()

	records := make([]Record, 0, limit)
	for rows.Next() {
		record, err := scanRecordFields(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan recent record: %w", err)
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recent records: %w", err)
	}
	return records, nil
}

func scanRecordRow(row *Row) (*Record, error) {
	record, err := scanRecordFields(row.Scan)
	if IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

func scanRecordFields(scan func(dest ...any) error) (*Record, error) {
	var record Record
	if err := scan(
		&record.ID,
		&record.Title,
		&record.URL,
		&record.Source,
		&record.PublishedAt,
		&record.ScrapedAt,
		&record.ContentHash,
		&record.IsDuplicate,
		&record.DuplicateOf,
	); err != nil {
		return nil, err
	}
	return &record, nil
}
