package account

import (
	"github.com/burton0621/barix-site-sub000/internal/account/repository"
	"github.com/burton0621/barix-site-sub000/internal/account/service"
	"go.uber.org/fx"
)

var Module = fx.Module("account.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewResolver),
	fx.Provide(service.NewService),
)
