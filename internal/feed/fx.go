package feed

import (
	"github.com/smallbiznis/formpay/internal/feed/repository"
	"github.com/smallbiznis/formpay/internal/feed/service"
	"go.uber.org/fx"
)

var Module = fx.Module("feed.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
