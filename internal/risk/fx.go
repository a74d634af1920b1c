package risk

import (
	"github.com/smallbiznis/cashout/internal/risk/service"
	"go.uber.org/fx"
)

var Module = fx.Module("risk.service",
	fx.Provide(service.New),
)
