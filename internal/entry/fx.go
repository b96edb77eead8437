package entry

import (
	"github.com/smallbiznis/formpay/internal/entry/repository"
	"github.com/smallbiznis/formpay/internal/entry/service"
	"go.uber.org/fx"
)

var Module = fx.Module("entry.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
