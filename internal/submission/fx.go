package submission

import (
	"github.com/constructoai/backoffice/internal/store/document"
	"github.com/constructoai/backoffice/internal/store/legacy"
	"github.com/constructoai/backoffice/internal/submission/aggregate"
	"github.com/constructoai/backoffice/internal/submission/domain"
	"github.com/constructoai/backoffice/internal/submission/numbering"
	"github.com/constructoai/backoffice/internal/submission/repair"
	"github.com/constructoai/backoffice/internal/submission/resolver"
	"github.com/constructoai/backoffice/internal/submission/service"
	"github.com/constructoai/backoffice/internal/submission/tokenguard"
	"github.com/constructoai/backoffice/internal/submission/tokens"
	"go.uber.org/fx"
)

var Module = fx.Module("submission",
	fx.Provide(legacy.New),
	fx.Provide(document.New),
	fx.Provide(provideStores),
	fx.Provide(tokens.NewGenerator),
	fx.Provide(numbering.New),
	fx.Provide(repair.New),
	fx.Provide(resolver.New),
	fx.Provide(aggregate.New),
	fx.Provide(tokenguard.New),
	fx.Provide(service.New),
)

// provideStores fixes the consultation order: the document store first, the
// legacy store second. Token lookups and status updates try stores in this
// order.
func provideStores(documents *document.Store, legacyStore *legacy.Store) []domain.Store {
	return []domain.Store{documents, legacyStore}
}
