package pdf

import (
	"context"
	"io"

	"go.uber.org/fx"
)

var Module = fx.Module("providers.pdf",
	fx.Provide(New),
)

type Provider interface {
	GenerateDocument(ctx context.Context, data DocumentData) (io.Reader, error)
	GenerateReceipt(ctx context.Context, data ReceiptData) (io.Reader, error)
}
