package domain

import (
	"context"
	"time"
)

// Store is the abstraction both physical stores implement. Cross-store
// components (allocator, repairer, resolver, aggregator, token guard)
// depend only on this interface, never on store-specific row shapes.
//
// Read methods report I/O failures wrapped in ErrStoreUnavailable. Write
// methods touch exactly one column group; the repair pass is the only
// caller allowed to rewrite numbers or tokens after creation.
type Store interface {
	Origin() Origin

	// ListRecords returns every row normalized into the cross-store shape,
	// tolerating absent optional columns by default-filling.
	ListRecords(ctx context.Context) ([]Record, error)

	// FindByToken returns the full canonical submission owning the token,
	// or ErrNotFound.
	FindByToken(ctx context.Context, token string) (*Submission, error)

	// FindByNumber returns the normalized row holding the number, or
	// ErrNotFound.
	FindByNumber(ctx context.Context, number string) (*Record, error)

	// UpdateStatusByToken sets status and decided_at on the row owning the
	// token. Returns false when no row matched.
	UpdateStatusByToken(ctx context.Context, token string, status Status, decidedAt time.Time) (bool, error)

	// UpdateNumber rewrites the submission number of one row. Used only by
	// the duplicate repair pass.
	UpdateNumber(ctx context.Context, id int64, number string) error

	// SetTokenIfEmpty sets the token on a row only when it currently has
	// none. Returns false when the row already had a token or did not exist.
	SetTokenIfEmpty(ctx context.Context, id int64, token string) (bool, error)

	// Delete hard-deletes a row. No tombstones.
	Delete(ctx context.Context, id int64) error
}

// BareRestorer is implemented by stores able to recreate a minimal row
// (number, client, token, created_at) from a token snapshot entry. Only the
// legacy store supports this; document rows are not reconstructible without
// their uploaded payload.
type BareRestorer interface {
	RestoreBare(ctx context.Context, entry TokenExportEntry) error
}
