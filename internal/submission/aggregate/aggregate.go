// Package aggregate merges both stores into one read-only listing. It never
// writes through to either store.
package aggregate

import (
	"context"
	"sort"

	"github.com/constructoai/backoffice/internal/submission/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Stores []domain.Store
	Log    *zap.Logger
}

type Service struct {
	stores []domain.Store
	log    *zap.Logger
}

func New(p Params) *Service {
	return &Service{
		stores: p.Stores,
		log:    p.Log.Named("submission.aggregate"),
	}
}

// ListAll returns every submission from both stores, tagged with its origin,
// ordered by created_at descending. Rows with an unknown creation time sort
// last. Ties keep merge order; only the timestamp ordering is guaranteed
// across runs.
func (s *Service) ListAll(ctx context.Context) ([]domain.Record, error) {
	var merged []domain.Record
	for _, store := range s.stores {
		records, err := store.ListRecords(ctx)
		if err != nil {
			return nil, err
		}
		merged = append(merged, records...)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		a, b := merged[i].CreatedAt, merged[j].CreatedAt
		if a.IsZero() {
			return false
		}
		if b.IsZero() {
			return true
		}
		return a.After(b)
	})
	return merged, nil
}

// CountByStatus tallies the merged listing per status.
func (s *Service) CountByStatus(ctx context.Context) (map[domain.Status]int, error) {
	records, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	counts := make(map[domain.Status]int, 3)
	for _, record := range records {
		counts[record.Status]++
	}
	return counts, nil
}
