package purchaseorder

import (
	"go.uber.org/fx"
)

var Module = fx.Module("purchaseorder",
	fx.Provide(NewStore),
	fx.Provide(New),
)
