// Package migration runs the schema migrations for every store at startup.
// All stores are created automatically so the service is usable out of the
// box on an empty data directory.
package migration

import (
	"context"

	"github.com/constructoai/backoffice/internal/company"
	"github.com/constructoai/backoffice/internal/purchaseorder"
	"github.com/constructoai/backoffice/internal/store/document"
	"github.com/constructoai/backoffice/internal/store/legacy"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Legacy         *legacy.Store
	Documents      *document.Store
	PurchaseOrders *purchaseorder.Store
	Company        *company.Store
	Log            *zap.Logger
}

var Module = fx.Module("migrations",
	fx.Invoke(func(p Params) error {
		ctx := context.Background()

		if err := p.Legacy.Migrate(ctx); err != nil {
			return err
		}
		if err := p.Documents.Migrate(ctx); err != nil {
			return err
		}
		if err := p.PurchaseOrders.Migrate(ctx); err != nil {
			return err
		}
		if err := p.Company.Migrate(ctx); err != nil {
			return err
		}

		p.Log.Info("store migrations complete")
		return nil
	}),
)
