package paypal

import "go.uber.org/fx"

var Module = fx.Module("provider.paypal",
	fx.Provide(Provide),
)
