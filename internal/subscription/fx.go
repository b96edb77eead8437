package subscription

import (
	"github.com/smallbiznis/formpay/internal/subscription/service"
	"go.uber.org/fx"
)

var Module = fx.Module("subscription.provisioner",
	fx.Provide(service.NewProvisioner),
)
