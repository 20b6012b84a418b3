// Package resolver locates the submission owning an access token, whichever
// store it lives in, and applies status transitions.
package resolver

import (
	"context"
	"errors"

	"github.com/constructoai/backoffice/internal/clock"
	"github.com/constructoai/backoffice/internal/submission/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	// Stores are consulted in order; the document store is wired first so it
	// takes lookup precedence over the legacy store.
	Stores []domain.Store
	Clock  clock.Clock
	Log    *zap.Logger
}

type Service struct {
	stores []domain.Store
	clock  clock.Clock
	log    *zap.Logger
}

func New(p Params) *Service {
	return &Service{
		stores: p.Stores,
		clock:  p.Clock,
		log:    p.Log.Named("submission.resolver"),
	}
}

// Resolve returns the canonical submission for a token. The document store
// is checked first, then the legacy store. A token held by both stores
// would be a uniqueness bug; the first match wins, and the shadowed match
// is logged rather than silently ignored. Once a match is in hand, a
// failure in a later store degrades the duplicate check, not the resolve.
func (s *Service) Resolve(ctx context.Context, token string) (domain.Submission, error) {
	if token == "" {
		return domain.Submission{}, domain.ErrNotFound
	}

	var found *domain.Submission
	for _, store := range s.stores {
		sub, err := store.FindByToken(ctx, token)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			if found != nil {
				s.log.Warn("store unreachable during duplicate token check",
					zap.String("origin", string(store.Origin())),
					zap.Error(err),
				)
				continue
			}
			return domain.Submission{}, err
		}

		if found != nil {
			s.log.Warn("token resolves in more than one store",
				zap.String("kept_origin", string(found.Origin)),
				zap.String("shadowed_origin", string(store.Origin())),
				zap.String("number", sub.Number),
			)
			continue
		}
		found = sub
	}

	if found == nil {
		return domain.Submission{}, domain.ErrNotFound
	}
	return *found, nil
}

// SetStatus sets the status of the submission owning the token and stamps
// decided_at with the current time, regardless of the previous status. The
// data layer deliberately allows leaving a decided state again; restricting
// decisions to pending submissions is the caller's concern.
func (s *Service) SetStatus(ctx context.Context, token string, status domain.Status) (domain.Submission, error) {
	if !status.Valid() {
		return domain.Submission{}, domain.ErrInvalidStatus
	}
	if token == "" {
		return domain.Submission{}, domain.ErrNotFound
	}

	decidedAt := s.clock.Now()
	updated := false
	for _, store := range s.stores {
		ok, err := store.UpdateStatusByToken(ctx, token, status, decidedAt)
		if err != nil {
			return domain.Submission{}, err
		}
		if ok {
			updated = true
			break
		}
	}

	if !updated {
		return domain.Submission{}, domain.ErrNotFound
	}
	return s.Resolve(ctx, token)
}
