package providers

import (
	"github.com/burton0621/barix-site-sub000/internal/providers/email"
	"github.com/burton0621/barix-site-sub000/internal/providers/pdf"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	email.Module,
	pdf.Module,
)
