package resolver

import (
	"context"
	"testing"
	"time"

	"github.com/constructoai/backoffice/internal/clock"
	"github.com/constructoai/backoffice/internal/config"
	"github.com/constructoai/backoffice/internal/store/document"
	"github.com/constructoai/backoffice/internal/store/legacy"
	"github.com/constructoai/backoffice/internal/submission/domain"
	"github.com/constructoai/backoffice/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newFixture(t *testing.T) (*legacy.Store, *document.Store, *clock.FakeClock, *Service) {
	t.Helper()
	cfg := config.Config{BaseURL: "http://localhost:8080"}

	conn, err := db.OpenInMemory()
	require.NoError(t, err)
	leg := legacy.NewWithDB(conn, cfg, zap.NewNop())
	require.NoError(t, leg.Migrate(context.Background()))

	conn2, err := db.OpenInMemory()
	require.NoError(t, err)
	doc := document.NewWithDB(conn2, cfg, zap.NewNop())
	require.NoError(t, doc.Migrate(context.Background()))

	clk := clock.NewFakeClock(time.Date(2025, 5, 10, 14, 0, 0, 0, time.UTC))
	svc := New(Params{Stores: []domain.Store{doc, leg}, Clock: clk, Log: zap.NewNop()})
	return leg, doc, clk, svc
}

func strptr(v string) *string { return &v }

func TestResolveFindsTokenInEitherStore(t *testing.T) {
	ctx := context.Background()
	leg, doc, clk, svc := newFixture(t)

	require.NoError(t, leg.Insert(ctx, &legacy.Submission{
		Number: "2025-001", ClientName: "Tremblay", Token: strptr("tok-legacy"),
		CreatedAt: clk.Now(), UpdatedAt: clk.Now(),
	}))
	require.NoError(t, doc.Insert(ctx, &document.Submission{
		Number: "2025-002", ClientName: "Gagnon", FileType: ".pdf", FileName: "quote.pdf",
		Token: strptr("tok-doc"), CreatedAt: clk.Now(),
	}))

	fromLegacy, err := svc.Resolve(ctx, "tok-legacy")
	require.NoError(t, err)
	assert.Equal(t, domain.OriginLegacy, fromLegacy.Origin)
	assert.Equal(t, "2025-001", fromLegacy.Number)

	fromDoc, err := svc.Resolve(ctx, "tok-doc")
	require.NoError(t, err)
	assert.Equal(t, domain.OriginDocument, fromDoc.Origin)
	assert.Equal(t, "2025-002", fromDoc.Number)
}

func TestResolveUnknownToken(t *testing.T) {
	_, _, _, svc := newFixture(t)

	_, err := svc.Resolve(context.Background(), "no-such-token")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Resolve(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestResolveDocumentStoreWins(t *testing.T) {
	ctx := context.Background()
	leg, doc, clk, svc := newFixture(t)

	// The same token living in both stores is a uniqueness bug; the
	// document store answer is kept.
	require.NoError(t, leg.Insert(ctx, &legacy.Submission{
		Number: "2025-001", ClientName: "Shadowed", Token: strptr("tok-both"),
		CreatedAt: clk.Now(), UpdatedAt: clk.Now(),
	}))
	require.NoError(t, doc.Insert(ctx, &document.Submission{
		Number: "2025-002", ClientName: "Kept", FileType: ".pdf", FileName: "quote.pdf",
		Token: strptr("tok-both"), CreatedAt: clk.Now(),
	}))

	sub, err := svc.Resolve(ctx, "tok-both")
	require.NoError(t, err)
	assert.Equal(t, domain.OriginDocument, sub.Origin)
	assert.Equal(t, "Kept", sub.ClientName)
}

// unreachableStore fails every call, standing in for a store whose file
// cannot be opened.
type unreachableStore struct{}

func (unreachableStore) Origin() domain.Origin { return domain.OriginLegacy }
func (unreachableStore) ListRecords(context.Context) ([]domain.Record, error) {
	return nil, domain.ErrStoreUnavailable
}
func (unreachableStore) FindByToken(context.Context, string) (*domain.Submission, error) {
	return nil, domain.ErrStoreUnavailable
}
func (unreachableStore) FindByNumber(context.Context, string) (*domain.Record, error) {
	return nil, domain.ErrStoreUnavailable
}
func (unreachableStore) UpdateStatusByToken(context.Context, string, domain.Status, time.Time) (bool, error) {
	return false, domain.ErrStoreUnavailable
}
func (unreachableStore) UpdateNumber(context.Context, int64, string) error {
	return domain.ErrStoreUnavailable
}
func (unreachableStore) SetTokenIfEmpty(context.Context, int64, string) (bool, error) {
	return false, domain.ErrStoreUnavailable
}
func (unreachableStore) Delete(context.Context, int64) error {
	return domain.ErrStoreUnavailable
}

func TestResolveSurvivesSecondaryStoreFailure(t *testing.T) {
	ctx := context.Background()
	_, doc, clk, _ := newFixture(t)

	require.NoError(t, doc.Insert(ctx, &document.Submission{
		Number: "2025-001", ClientName: "Gagnon", FileType: ".pdf", FileName: "quote.pdf",
		Token: strptr("tok-1"), CreatedAt: clk.Now(),
	}))

	svc := New(Params{
		Stores: []domain.Store{doc, unreachableStore{}},
		Clock:  clk,
		Log:    zap.NewNop(),
	})

	// The document store already answered; the broken legacy store only
	// degrades the duplicate check.
	sub, err := svc.Resolve(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "Gagnon", sub.ClientName)

	// With no match in hand the failure must surface: "can't check" is not
	// "not found".
	_, err = svc.Resolve(ctx, "tok-unknown")
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

func TestSetStatusStampsDecisionTime(t *testing.T) {
	ctx := context.Background()
	_, doc, clk, svc := newFixture(t)

	require.NoError(t, doc.Insert(ctx, &document.Submission{
		Number: "2025-001", ClientName: "Gagnon", FileType: ".pdf", FileName: "quote.pdf",
		Token: strptr("tok-1"), Status: domain.StatusPending, CreatedAt: clk.Now(),
	}))

	clk.Advance(2 * time.Hour)
	decidedAt := clk.Now()

	sub, err := svc.SetStatus(ctx, "tok-1", domain.StatusApproved)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, sub.Status)
	require.NotNil(t, sub.DecidedAt)
	assert.WithinDuration(t, decidedAt, *sub.DecidedAt, time.Second)
}

func TestSetStatusLegacyDerivesDecisionFromUpdate(t *testing.T) {
	ctx := context.Background()
	leg, _, clk, svc := newFixture(t)

	require.NoError(t, leg.Insert(ctx, &legacy.Submission{
		Number: "2025-001", ClientName: "Tremblay", Token: strptr("tok-leg"),
		Status: domain.StatusPending, CreatedAt: clk.Now(), UpdatedAt: clk.Now(),
	}))

	clk.Advance(30 * time.Minute)
	sub, err := svc.SetStatus(ctx, "tok-leg", domain.StatusRejected)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, sub.Status)
	require.NotNil(t, sub.DecidedAt)
	assert.WithinDuration(t, clk.Now(), *sub.DecidedAt, time.Second)
}

func TestSetStatusIsUnguarded(t *testing.T) {
	ctx := context.Background()
	_, doc, clk, svc := newFixture(t)

	require.NoError(t, doc.Insert(ctx, &document.Submission{
		Number: "2025-001", ClientName: "Gagnon", FileType: ".pdf", FileName: "quote.pdf",
		Token: strptr("tok-1"), Status: domain.StatusPending, CreatedAt: clk.Now(),
	}))

	// Approved, then back to pending: the data layer allows any transition.
	_, err := svc.SetStatus(ctx, "tok-1", domain.StatusApproved)
	require.NoError(t, err)

	sub, err := svc.SetStatus(ctx, "tok-1", domain.StatusPending)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, sub.Status)
}

func TestSetStatusRejectsInvalidStatus(t *testing.T) {
	_, _, _, svc := newFixture(t)

	_, err := svc.SetStatus(context.Background(), "tok", domain.Status("archived"))
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}

func TestSetStatusUnknownToken(t *testing.T) {
	_, _, _, svc := newFixture(t)

	_, err := svc.SetStatus(context.Background(), "missing", domain.StatusApproved)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
