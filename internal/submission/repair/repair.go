// Package repair detects and fixes submission numbers duplicated across the
// two stores, the after-the-fact remedy for the unlocked allocation race.
package repair

import (
	"context"
	"regexp"
	"sort"
	"time"

	"github.com/constructoai/backoffice/internal/submission/domain"
	"github.com/constructoai/backoffice/internal/submission/numbering"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Occurrence is one row holding a contested number.
type Occurrence struct {
	Origin     domain.Origin `json:"origin"`
	RowID      int64         `json:"row_id"`
	ClientName string        `json:"client_name"`
	CreatedAt  time.Time     `json:"created_at"`
}

// DuplicateGroup is a number held by more than one row.
type DuplicateGroup struct {
	Number      string       `json:"number"`
	Occurrences []Occurrence `json:"occurrences"`
}

// RowError reports one row the repair pass could not fix.
type RowError struct {
	Origin domain.Origin `json:"origin"`
	RowID  int64         `json:"row_id"`
	Number string        `json:"number"`
	Reason string        `json:"reason"`
}

// Report summarizes a repair pass: exactly what succeeded and what did not.
// Malformed lists rows whose number does not follow the YYYY-NNN shape;
// those are surfaced for manual correction, never renumbered automatically.
type Report struct {
	GroupsFound int        `json:"groups_found"`
	Fixed       int        `json:"fixed"`
	Failed      []RowError `json:"failed,omitempty"`
	Malformed   []RowError `json:"malformed,omitempty"`
}

var wellFormedNumber = regexp.MustCompile(`^\d{4}-\d+$`)

type Params struct {
	fx.In

	Stores    []domain.Store
	Allocator *numbering.Allocator
	Log       *zap.Logger
}

type Service struct {
	stores    []domain.Store
	allocator *numbering.Allocator
	log       *zap.Logger
}

func New(p Params) *Service {
	return &Service{
		stores:    p.Stores,
		allocator: p.Allocator,
		log:       p.Log.Named("submission.repair"),
	}
}

// FindDuplicateNumbers scans both stores and groups every number held by
// more than one row. A store that cannot be read fails the whole scan;
// detection against half the data would report false positives.
func (s *Service) FindDuplicateNumbers(ctx context.Context) ([]DuplicateGroup, error) {
	groups, _, err := s.scan(ctx)
	return groups, err
}

// scan reads both stores once and splits rows into duplicate groups and
// malformed-number rows.
func (s *Service) scan(ctx context.Context) ([]DuplicateGroup, []RowError, error) {
	byNumber := map[string][]Occurrence{}
	var order []string
	var malformed []RowError

	for _, store := range s.stores {
		records, err := store.ListRecords(ctx)
		if err != nil {
			return nil, nil, err
		}
		for _, record := range records {
			if record.Number == "" {
				continue
			}
			if !wellFormedNumber.MatchString(record.Number) {
				malformed = append(malformed, RowError{
					Origin: record.Origin,
					RowID:  record.ID,
					Number: record.Number,
					Reason: domain.ErrMalformedData.Error(),
				})
				continue
			}
			if _, seen := byNumber[record.Number]; !seen {
				order = append(order, record.Number)
			}
			byNumber[record.Number] = append(byNumber[record.Number], Occurrence{
				Origin:     record.Origin,
				RowID:      record.ID,
				ClientName: record.ClientName,
				CreatedAt:  record.CreatedAt,
			})
		}
	}

	var groups []DuplicateGroup
	for _, number := range order {
		occurrences := byNumber[number]
		if len(occurrences) < 2 {
			continue
		}
		sort.SliceStable(occurrences, func(i, j int) bool {
			return occurrences[i].CreatedAt.Before(occurrences[j].CreatedAt)
		})
		groups = append(groups, DuplicateGroup{Number: number, Occurrences: occurrences})
	}
	return groups, malformed, nil
}

// RepairDuplicates renumbers every duplicate except the earliest-created
// occurrence of each group. Each replacement number is allocated against
// live state, so earlier fixes in the same pass are visible to later ones.
// A failed row update is recorded and does not abort the remaining groups.
// Running the pass twice with no intervening writes fixes nothing the
// second time.
func (s *Service) RepairDuplicates(ctx context.Context) (Report, error) {
	groups, malformed, err := s.scan(ctx)
	if err != nil {
		return Report{}, err
	}

	for _, row := range malformed {
		s.log.Warn("malformed submission number, skipping repair",
			zap.String("origin", string(row.Origin)),
			zap.Int64("row_id", row.RowID),
			zap.String("number", row.Number),
		)
	}

	report := Report{GroupsFound: len(groups), Malformed: malformed}
	for _, group := range groups {
		// The earliest occurrence keeps its number untouched.
		for _, occurrence := range group.Occurrences[1:] {
			fresh, err := s.allocator.Next(ctx)
			if err != nil {
				report.Failed = append(report.Failed, rowError(occurrence, group.Number, err))
				continue
			}

			store := s.storeFor(occurrence.Origin)
			if store == nil {
				report.Failed = append(report.Failed, RowError{
					Origin: occurrence.Origin,
					RowID:  occurrence.RowID,
					Number: group.Number,
					Reason: "no store registered for origin",
				})
				continue
			}

			if err := store.UpdateNumber(ctx, occurrence.RowID, fresh); err != nil {
				report.Failed = append(report.Failed, rowError(occurrence, group.Number, err))
				continue
			}

			s.log.Info("renumbered duplicate submission",
				zap.String("origin", string(occurrence.Origin)),
				zap.Int64("row_id", occurrence.RowID),
				zap.String("old_number", group.Number),
				zap.String("new_number", fresh),
			)
			report.Fixed++
		}
	}
	return report, nil
}

func (s *Service) storeFor(origin domain.Origin) domain.Store {
	for _, store := range s.stores {
		if store.Origin() == origin {
			return store
		}
	}
	return nil
}

func rowError(occurrence Occurrence, number string, err error) RowError {
	return RowError{
		Origin: occurrence.Origin,
		RowID:  occurrence.RowID,
		Number: number,
		Reason: err.Error(),
	}
}
