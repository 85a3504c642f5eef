package email

import (
	"github.com/burton0621/barix-site-sub000/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("providers.email",
	fx.Provide(NewFromConfig),
)

func NewFromConfig(cfg config.Config, log *zap.Logger) Provider {
	log = log.Named("providers.email")

	switch cfg.Email.Provider {
	case config.EmailProviderResend:
		if cfg.Email.ResendAPIKey == "" {
			log.Warn("resend selected without RESEND_API_KEY, emails are dropped")
			return &NoOpProvider{}
		}
		return NewResend(cfg.Email.ResendAPIKey, cfg.Email.From)
	case config.EmailProviderSMTP:
		return NewSMTP(Config{
			Host:     cfg.Email.SMTPHost,
			Port:     cfg.Email.SMTPPort,
			Username: cfg.Email.SMTPUsername,
			Password: cfg.Email.SMTPPassword,
			From:     cfg.Email.From,
		})
	default:
		log.Info("email provider disabled", zap.String("provider", cfg.Email.Provider))
		return &NoOpProvider{}
	}
}
