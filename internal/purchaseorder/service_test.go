package purchaseorder

import (
	"context"
	"testing"
	"time"

	"github.com/constructoai/backoffice/internal/clock"
	"github.com/constructoai/backoffice/internal/config"
	"github.com/constructoai/backoffice/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newService(t *testing.T) (*Store, *Service) {
	t.Helper()
	conn, err := db.OpenInMemory()
	require.NoError(t, err)
	store := NewStoreWithDB(conn, zap.NewNop())
	require.NoError(t, store.Migrate(context.Background()))

	svc := New(Params{
		Store:    store,
		Settings: config.StaticSettings(config.DefaultSettings()),
		Clock:    clock.NewFakeClock(time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC)),
		Log:      zap.NewNop(),
	})
	return store, svc
}

func TestNextNumberStartsYearSequence(t *testing.T) {
	_, svc := newService(t)

	number, err := svc.NextNumber(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "BC-2025-001", number)
}

func TestNextNumberIncrementsPastExisting(t *testing.T) {
	ctx := context.Background()
	_, svc := newService(t)

	require.NoError(t, svc.Save(ctx, &Order{SupplierName: "Matco"}))
	require.NoError(t, svc.Save(ctx, &Order{SupplierName: "BMR"}))

	number, err := svc.NextNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, "BC-2025-003", number)
}

func TestNextNumberSkipsMalformedNumbers(t *testing.T) {
	ctx := context.Background()
	store, svc := newService(t)

	require.NoError(t, store.Save(ctx, &Order{Number: "BC-2025-junk"}))
	require.NoError(t, store.Save(ctx, &Order{Number: "BC-2025-004"}))
	require.NoError(t, store.Save(ctx, &Order{Number: "BC-2024-099"}))

	number, err := svc.NextNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, "BC-2025-005", number)
}

func TestSaveComputesQuebecTaxes(t *testing.T) {
	ctx := context.Background()
	_, svc := newService(t)

	order := Order{
		SupplierName: "Matco",
		Items: []Item{
			{Position: 1, Title: "2x4x8", Quantity: 100, UnitPrice: 4.25},
			{Position: 2, Title: "Contreplaqué 4x8", Quantity: 20, UnitPrice: 52.99},
		},
	}
	require.NoError(t, svc.Save(ctx, &order))

	assert.Equal(t, 425.0, order.Items[0].Total)
	assert.Equal(t, 1059.8, order.Items[1].Total)
	assert.Equal(t, 1484.8, order.Subtotal)
	assert.Equal(t, 74.24, order.TPS)
	assert.Equal(t, 148.11, order.TVQ)
	assert.Equal(t, 1707.15, order.Total)
}

func TestSaveFillsDefaults(t *testing.T) {
	ctx := context.Background()
	_, svc := newService(t)

	order := Order{SupplierName: "BMR"}
	require.NoError(t, svc.Save(ctx, &order))

	assert.Equal(t, "BC-2025-001", order.Number)
	assert.Equal(t, StatusDraft, order.Status)
	assert.Equal(t, "2025-03-15", order.OrderDate)
	assert.Equal(t, "Valid for 30 days", order.ValidityTerms)
	assert.Equal(t, "Net 30 days", order.PaymentTerms)
}

func TestSaveUpsertsByNumberReplacingItems(t *testing.T) {
	ctx := context.Background()
	store, svc := newService(t)

	order := Order{
		SupplierName: "Matco",
		Items: []Item{
			{Position: 1, Title: "2x4x8", Quantity: 10, UnitPrice: 4.25},
			{Position: 2, Title: "Vis 3po", Quantity: 2, UnitPrice: 12.50},
		},
	}
	require.NoError(t, svc.Save(ctx, &order))

	updated := Order{
		Number:       order.Number,
		SupplierName: "Matco",
		Items: []Item{
			{Position: 1, Title: "2x6x10", Quantity: 5, UnitPrice: 8.75},
		},
	}
	require.NoError(t, svc.Save(ctx, &updated))

	loaded, err := store.Load(ctx, order.Number)
	require.NoError(t, err)
	require.Len(t, loaded.Items, 1)
	assert.Equal(t, "2x6x10", loaded.Items[0].Title)
	assert.Equal(t, 43.75, loaded.Subtotal)

	summaries, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, summaries, 1)
}

func TestDuplicateAllocatesFreshNumberAndClearsSignatures(t *testing.T) {
	ctx := context.Background()
	store, svc := newService(t)

	source := Order{
		SupplierName:      "Matco",
		ProjectName:       "Chalet Lac-Beauport",
		AuthorSignature:   "J. Fortin",
		AuthorSignedOn:    "2025-03-01",
		SupplierSignature: "M. Roy",
		SupplierSignedOn:  "2025-03-02",
		Status:            StatusConfirmed,
		Items: []Item{
			{Position: 1, Title: "Bardeaux", Quantity: 40, UnitPrice: 33.99},
		},
	}
	require.NoError(t, svc.Save(ctx, &source))

	copied, err := svc.Duplicate(ctx, source.Number)
	require.NoError(t, err)

	assert.NotEqual(t, source.Number, copied.Number)
	assert.Equal(t, "BC-2025-002", copied.Number)
	assert.Equal(t, StatusDraft, copied.Status)
	assert.Empty(t, copied.AuthorSignature)
	assert.Empty(t, copied.SupplierSignature)
	require.Len(t, copied.Items, 1)
	assert.Equal(t, "Bardeaux", copied.Items[0].Title)

	// The source order is untouched.
	original, err := store.Load(ctx, source.Number)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, original.Status)
	assert.Equal(t, "J. Fortin", original.AuthorSignature)
}

func TestLoadUnknownNumber(t *testing.T) {
	_, svc := newService(t)

	_, err := svc.Load(context.Background(), "BC-2025-999")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteRemovesOrderAndChildren(t *testing.T) {
	ctx := context.Background()
	store, svc := newService(t)

	order := Order{
		SupplierName: "BMR",
		Items:        []Item{{Position: 1, Title: "Clous", Quantity: 1, UnitPrice: 9.99}},
	}
	require.NoError(t, svc.Save(ctx, &order))

	require.NoError(t, svc.Delete(ctx, order.Number))
	_, err := store.Load(ctx, order.Number)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, order.Number), ErrNotFound)
}

func TestSaveRequiresNumberAtStoreLevel(t *testing.T) {
	ctx := context.Background()
	store, _ := newService(t)

	err := store.Save(ctx, &Order{SupplierName: "Matco"})
	assert.ErrorIs(t, err, ErrMissingNumber)
}
