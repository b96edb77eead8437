package apikey

import (
	"context"

	"github.com/smallbiznis/formpay/internal/apikey/domain"
	"github.com/smallbiznis/formpay/internal/apikey/repository"
	"github.com/smallbiznis/formpay/internal/apikey/service"
	"github.com/smallbiznis/formpay/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("apikey.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Invoke(registerBootstrapKey),
)

func registerBootstrapKey(lc fx.Lifecycle, cfg config.Config, svc domain.Service) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return svc.EnsureBootstrapKey(ctx, cfg.BootstrapAdminKey)
		},
	})
}
