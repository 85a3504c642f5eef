package clientimport

import (
	"github.com/burton0621/barix-site-sub000/internal/clientimport/service"
	"go.uber.org/fx"
)

var Module = fx.Module("clientimport.service",
	fx.Provide(service.New),
)
