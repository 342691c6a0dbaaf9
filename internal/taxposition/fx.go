package taxposition

import (
	"github.com/smallbiznis/taxledger/internal/taxposition/service"
	"go.uber.org/fx"
)

var Module = fx.Module("taxposition.service",
	fx.Provide(service.NewService),
)
