package db

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Record maps news.records, one row per fetched article.
//
// ContentHash is computed once when the record is built and never mutated.
// Embedding is set only on canonical records that were indexed. IsDuplicate
// implies DuplicateOf points at a canonical (non-duplicate) record.
type Record struct {
	ID          int64      `gorm:"column:record_id;primaryKey;autoIncrement" json:"record_id"`
	Title       string     `gorm:"column:title;type:text;not null" json:"title"`
	Content     string     `gorm:"column:content;type:text;not null;default:''" json:"content"`
	URL         string     `gorm:"column:url;type:text;not null;uniqueIndex:ux_records_url" json:"url"`
	Source      string     `gorm:"column:source;type:text;not null;index:ix_records_source_published,priority:1" json:"source"`
	Author      string     `gorm:"column:author;type:text;not null;default:''" json:"author,omitempty"`
	Language    string     `gorm:"column:language;type:text;not null;default:''" json:"language,omitempty"`
	PublishedAt time.Time  `gorm:"column:published_at;type:timestamptz;not null;index:ix_records_source_published,priority:2" json:"published_at"`
	ScrapedAt   time.Time  `gorm:"column:scraped_at;type:timestamptz;not null;index" json:"scraped_at"`
	ContentHash string     `gorm:"column:content_hash;type:char(64);not null;uniqueIndex:ux_records_content_hash" json:"content_hash"`
	Embedding   []float32  `gorm:"column:embedding;type:jsonb;serializer:json" json:"-"`
	IsDuplicate bool       `gorm:"column:is_duplicate;not null;default:false;index" json:"is_duplicate"`
	DuplicateOf *int64     `gorm:"column:duplicate_of;type:bigint" json:"duplicate_of,omitempty"`
	CreatedAt   time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()" json:"-"`
}

func (Record) TableName() string { return "news.records" }

// NewRecord builds a record with its content hash fixed at creation time.
func NewRecord(title, content, url, source string, publishedAt, scrapedAt time.Time) Record {
	return Record{
		Title:       title,
		Content:     content,
		URL:         url,
		Source:      source,
		PublishedAt: publishedAt.UTC(),
		ScrapedAt:   scrapedAt.UTC(),
		ContentHash: HashContent(title, content),
	}
}

// HashContent returns the hex SHA-256 digest of title+content.
func HashContent(title, content string) string {
	sum := sha256.Sum256([]byte(title + content))
	return hex.EncodeToString(sum[:])
}

func autoMigrateModels() []any {
	return []any{
		&Record{},
	}
}
