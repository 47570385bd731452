package pipeline

import (
	"context"
	"fmt"

	"horse.fit/driftnet/internal/globaltime"
)

// CleanupResult summarizes one retention sweep.
type CleanupResult struct {
	Deleted        int
	VectorFailures int
}

// CleanupOlderThan removes records scraped more than the given number
// of days ago. For each record the vector is removed first, then the
// store row; a vector removal failure is logged and the row is deleted
// anyway, leaving at worst an orphaned point the index tolerates.
func (s *Service) CleanupOlderThan(ctx context.Context, days int) (*CleanupResult, error) {
	if days <= 0 {
		return nil, fmt.Errorf("retention days must be positive, got %d", days)
	}

	cutoff := globaltime.UTC().AddDate(0, 0, -days)
	ids, err := s.store.ListRecordIDsOlderThan(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list aged records: %w", err)
	}

	result := &CleanupResult{}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if err := s.index.Delete(ctx, id); err != nil {
			result.VectorFailures++
			s.logger.Warn().Err(err).Int64("record_id", id).Msg("vector removal failed, deleting row anyway")
		}

		if err := s.store.DeleteRecord(ctx, id); err != nil {
			return result, fmt.Errorf("delete record %d: %w", id, err)
		}
		result.Deleted++
	}

	s.logger.Info().
		Time("cutoff", cutoff).
		Int("deleted", result.Deleted).
		Int("vector_failures", result.VectorFailures).
		Msg("retention sweep complete")
	return result, nil
}
