package amendment

import (
	"github.com/smallbiznis/taxledger/internal/amendment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("amendment.service",
	fx.Provide(service.NewService),
)
