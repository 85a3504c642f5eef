package document

import (
	"github.com/burton0621/barix-site-sub000/internal/document/render"
	"github.com/burton0621/barix-site-sub000/internal/document/repository"
	"github.com/burton0621/barix-site-sub000/internal/document/service"
	"go.uber.org/fx"
)

var Module = fx.Module("document.service",
	fx.Provide(repository.Provide),
	fx.Provide(render.NewRenderer),
	fx.Provide(service.New),
)
