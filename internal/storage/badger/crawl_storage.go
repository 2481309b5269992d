package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/lustro/internal/models"
)

// CrawlStorage persists completed crawl results. Only finished
// CrawlStats are stored; in-flight crawl state never touches the store.
type CrawlStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewCrawlStorage creates crawl result storage on an open connection
func NewCrawlStorage(db *BadgerDB, logger arbor.ILogger) *CrawlStorage {
	return &CrawlStorage{
		db:     db,
		logger: logger,
	}
}

// SaveCrawl stores a completed crawl, overwriting any previous record
// with the same ID.
func (s *CrawlStorage) SaveCrawl(ctx context.Context, stats *models.CrawlStats) error {
	if stats == nil || stats.ID == "" {
		return fmt.Errorf("crawl stats missing ID")
	}

	if err := s.db.Store().Upsert(stats.ID, stats); err != nil {
		return fmt.Errorf("failed to save crawl %s: %w", stats.ID, err)
	}

	s.logger.Debug().
		Str("crawl_id", stats.ID).
		Int("pages_crawled", stats.PagesCrawled).
		Msg("Crawl result saved")

	return nil
}

// GetCrawl retrieves a stored crawl by ID
func (s *CrawlStorage) GetCrawl(ctx context.Context, crawlID string) (*models.CrawlStats, error) {
	var stats models.CrawlStats
	if err := s.db.Store().Get(crawlID, &stats); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("crawl %s not found", crawlID)
		}
		return nil, fmt.Errorf("failed to load crawl %s: %w", crawlID, err)
	}
	return &stats, nil
}

// ListCrawls returns stored crawls, optionally filtered by start URL
func (s *CrawlStorage) ListCrawls(ctx context.Context, startURL string) ([]models.CrawlStats, error) {
	var crawls []models.CrawlStats

	var query *badgerhold.Query
	if startURL != "" {
		query = badgerhold.Where("StartURL").Eq(startURL).Index("StartURL")
	} else {
		query = &badgerhold.Query{}
	}

	if err := s.db.Store().Find(&crawls, query); err != nil {
		return nil, fmt.Errorf("failed to list crawls: %w", err)
	}
	return crawls, nil
}

// DeleteCrawl removes a stored crawl by ID
func (s *CrawlStorage) DeleteCrawl(ctx context.Context, crawlID string) error {
	if err := s.db.Store().Delete(crawlID, models.CrawlStats{}); err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to delete crawl %s: %w", crawlID, err)
	}
	return nil
}
