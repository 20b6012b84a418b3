package aggregate

import (
	"context"
	"testing"
	"time"

	"github.com/constructoai/backoffice/internal/config"
	"github.com/constructoai/backoffice/internal/store/document"
	"github.com/constructoai/backoffice/internal/store/legacy"
	"github.com/constructoai/backoffice/internal/submission/domain"
	"github.com/constructoai/backoffice/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newFixture(t *testing.T) (*legacy.Store, *document.Store, *gorm.DB, *Service) {
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

	svc := New(Params{Stores: []domain.Store{doc, leg}, Log: zap.NewNop()})
	return leg, doc, conn, svc
}

func strptr(v string) *string { return &v }

func TestListAllMergesNewestFirst(t *testing.T) {
	ctx := context.Background()
	leg, doc, _, svc := newFixture(t)

	base := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, leg.Insert(ctx, &legacy.Submission{
		Number: "2025-001", ClientName: "Oldest", Token: strptr("t-1"),
		CreatedAt: base, UpdatedAt: base,
	}))
	require.NoError(t, doc.Insert(ctx, &document.Submission{
		Number: "2025-002", ClientName: "Newest", FileType: ".pdf", FileName: "a.pdf",
		Token: strptr("t-2"), CreatedAt: base.Add(2 * time.Hour),
	}))
	require.NoError(t, leg.Insert(ctx, &legacy.Submission{
		Number: "2025-003", ClientName: "Middle", Token: strptr("t-3"),
		CreatedAt: base.Add(time.Hour), UpdatedAt: base.Add(time.Hour),
	}))

	records, err := svc.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "Newest", records[0].ClientName)
	assert.Equal(t, "Middle", records[1].ClientName)
	assert.Equal(t, "Oldest", records[2].ClientName)
}

func TestListAllSortsUnknownTimestampsLast(t *testing.T) {
	ctx := context.Background()
	leg, doc, conn, svc := newFixture(t)

	base := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, leg.Insert(ctx, &legacy.Submission{
		Number: "2025-001", ClientName: "NoTimestamp", Token: strptr("t-1"),
		CreatedAt: base, UpdatedAt: base,
	}))
	// Blank the timestamp directly; the store fills it on insert.
	require.NoError(t, conn.Model(&legacy.Submission{}).
		Where("number = ?", "2025-001").
		Update("created_at", time.Time{}).Error)

	require.NoError(t, doc.Insert(ctx, &document.Submission{
		Number: "2025-002", ClientName: "Dated", FileType: ".pdf", FileName: "a.pdf",
		Token: strptr("t-2"), CreatedAt: base,
	}))

	records, err := svc.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Dated", records[0].ClientName)
	assert.Equal(t, "NoTimestamp", records[1].ClientName)
}

func TestLegacyRecordsKeepPrefixedRef(t *testing.T) {
	ctx := context.Background()
	leg, doc, _, svc := newFixture(t)

	now := time.Now().UTC()
	require.NoError(t, leg.Insert(ctx, &legacy.Submission{
		Number: "2025-001", ClientName: "Tremblay", Token: strptr("t-1"),
		CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, doc.Insert(ctx, &document.Submission{
		Number: "2025-002", ClientName: "Gagnon", FileType: ".pdf", FileName: "a.pdf",
		Token: strptr("t-2"), CreatedAt: now,
	}))

	records, err := svc.ListAll(ctx)
	require.NoError(t, err)

	refs := map[domain.Origin]string{}
	for _, record := range records {
		refs[record.Origin] = record.RefID()
	}
	assert.Equal(t, "H1", refs[domain.OriginLegacy])
	assert.Equal(t, "1", refs[domain.OriginDocument])
}

func TestCountByStatus(t *testing.T) {
	ctx := context.Background()
	leg, doc, _, svc := newFixture(t)

	now := time.Now().UTC()
	require.NoError(t, leg.Insert(ctx, &legacy.Submission{
		Number: "2025-001", ClientName: "A", Status: domain.StatusApproved,
		Token: strptr("t-1"), CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, doc.Insert(ctx, &document.Submission{
		Number: "2025-002", ClientName: "B", Status: domain.StatusPending,
		FileType: ".pdf", FileName: "a.pdf", Token: strptr("t-2"), CreatedAt: now,
	}))
	require.NoError(t, doc.Insert(ctx, &document.Submission{
		Number: "2025-003", ClientName: "C", Status: domain.StatusPending,
		FileType: ".pdf", FileName: "b.pdf", Token: strptr("t-3"), CreatedAt: now,
	}))

	counts, err := svc.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, counts[domain.StatusPending])
	assert.Equal(t, 1, counts[domain.StatusApproved])
}
