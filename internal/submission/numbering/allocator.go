// Package numbering allocates submission numbers of the form YYYY-NNN,
// unique across both stores combined.
package numbering

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/constructoai/backoffice/internal/clock"
	"github.com/constructoai/backoffice/internal/submission/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Stores []domain.Store
	Clock  clock.Clock
	Log    *zap.Logger
}

type Allocator struct {
	stores []domain.Store
	clock  clock.Clock
	log    *zap.Logger
}

func New(p Params) *Allocator {
	return &Allocator{
		stores: p.Stores,
		clock:  p.Clock,
		log:    p.Log.Named("submission.numbering"),
	}
}

// Next returns the next free number for the current year: the maximum
// sequence observed across both stores, plus one.
//
// Known race: allocation is read-then-compute-then-insert with no
// transaction spanning the two stores, so two near-simultaneous creations
// (one in each store) can receive the same number. Duplicates are repaired
// after the fact; see the repair package.
//
// Malformed numbers in either store (non-numeric suffix from manual edits)
// are logged and treated as sequence 0; they never abort allocation. When
// every store is empty or unreachable the first number of the year is
// returned.
func (a *Allocator) Next(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	year := a.clock.Now().Year()
	max := 0
	reachable := 0

	for _, store := range a.stores {
		records, err := store.ListRecords(ctx)
		if err != nil {
			a.log.Warn("store unreachable during allocation, skipping",
				zap.String("origin", string(store.Origin())),
				zap.Error(err),
			)
			continue
		}
		reachable++

		for _, record := range records {
			seq, ok := a.sequenceOf(record, year)
			if ok && seq > max {
				max = seq
			}
		}
	}

	if reachable == 0 {
		a.log.Warn("no store reachable, starting the year sequence over", zap.Int("year", year))
	}

	return Format(year, max+1), nil
}

// Verify reports whether the number is currently unused in both stores.
func (a *Allocator) Verify(ctx context.Context, number string) (bool, error) {
	for _, store := range a.stores {
		_, err := store.FindByNumber(ctx, number)
		if err == nil {
			return false, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return false, err
		}
	}
	return true, nil
}

func (a *Allocator) sequenceOf(record domain.Record, year int) (int, bool) {
	suffix, ok := strings.CutPrefix(record.Number, fmt.Sprintf("%04d-", year))
	if !ok {
		return 0, false
	}

	seq, err := strconv.Atoi(suffix)
	if err != nil || seq < 0 {
		a.log.Warn("malformed submission number, treating as sequence 0",
			zap.String("origin", string(record.Origin)),
			zap.Int64("row_id", record.ID),
			zap.String("number", record.Number),
		)
		return 0, true
	}
	return seq, true
}

// Format renders a submission number. The zero-padded three digit sequence
// is a persisted wire format shared with previously issued client links.
func Format(year, seq int) string {
	return fmt.Sprintf("%04d-%03d", year, seq)
}
