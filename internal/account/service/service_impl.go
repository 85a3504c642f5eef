package service

import (
	"context"
	"errors"
	"strings"
	"time"

	accountdomain "github.com/burton0621/barix-site-sub000/internal/account/domain"
	"github.com/burton0621/barix-site-sub000/internal/config"
	"github.com/burton0621/barix-site-sub000/internal/document/totals"
	"github.com/burton0621/barix-site-sub000/internal/orgcontext"
	"github.com/go-playground/validator/v10"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var validate = validator.New()

type Params struct {
	fx.In

	Log        *zap.Logger
	Repository accountdomain.Repository
	Resolver   accountdomain.Resolver
	Billing    *config.BillingConfigHolder
}

type Service struct {
	log      *zap.Logger
	repo     accountdomain.Repository
	resolver accountdomain.Resolver
	billing  *config.BillingConfigHolder
}

func NewService(p Params) accountdomain.Service {
	return &Service{
		log:      p.Log.Named("account.service"),
		repo:     p.Repository,
		resolver: p.Resolver,
		billing:  p.Billing,
	}
}

func (s *Service) Get(ctx context.Context) (accountdomain.Response, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return accountdomain.Response{}, accountdomain.ErrInvalidOrganization
	}

	settings, err := s.resolver.Resolve(ctx, orgID)
	if err != nil {
		return accountdomain.Response{}, err
	}
	return s.toResponse(settings), nil
}

func (s *Service) Update(ctx context.Context, req accountdomain.UpdateRequest) (accountdomain.Response, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return accountdomain.Response{}, accountdomain.ErrInvalidOrganization
	}
	if err := validate.Struct(req); err != nil {
		return accountdomain.Response{}, mapValidationError(err)
	}

	settings, err := s.resolver.Resolve(ctx, orgID)
	if err != nil {
		return accountdomain.Response{}, err
	}

	if req.BusinessName != nil {
		settings.BusinessName = strings.TrimSpace(*req.BusinessName)
	}
	if req.ReplyToEmail != nil {
		settings.ReplyToEmail = strings.ToLower(strings.TrimSpace(*req.ReplyToEmail))
	}
	if patch := req.IndirectMaterials; patch != nil {
		if patch.Enabled != nil {
			settings.IndirectEnabled = *patch.Enabled
		}
		if patch.Mode != nil {
			mode := strings.ToLower(strings.TrimSpace(*patch.Mode))
			if mode != string(totals.IndirectModeAmount) && mode != string(totals.IndirectModePercent) {
				return accountdomain.Response{}, accountdomain.ErrInvalidIndirectMode
			}
			settings.IndirectMode = mode
		}
		if patch.Amount != nil {
			settings.IndirectAmount = totals.ParseNonNegativeNumber(patch.Amount).Round(2)
		}
		if patch.Percent != nil {
			settings.IndirectPercent = totals.ParsePercent(patch.Percent).Round(2)
		}
	}
	if patch := req.Reminders; patch != nil {
		if patch.Enabled != nil {
			settings.RemindersEnabled = *patch.Enabled
		}
		if patch.DaysBeforeDue != nil {
			settings.ReminderDaysBefore = *patch.DaysBeforeDue
		}
		if patch.DaysAfterDue != nil {
			settings.ReminderDaysAfter = *patch.DaysAfterDue
		}
	}

	now := time.Now().UTC()
	if !settings.Stored {
		settings.CreatedAt = now
	}
	settings.UpdatedAt = now

	if err := s.repo.Upsert(ctx, &settings); err != nil {
		return accountdomain.Response{}, err
	}
	settings.Stored = true

	s.log.Info("account.settings.updated",
		zap.String("org_id", orgID.String()),
		zap.Bool("indirect_enabled", settings.IndirectEnabled),
		zap.Bool("reminders_enabled", settings.RemindersEnabled),
	)
	return s.toResponse(settings), nil
}

func (s *Service) toResponse(settings accountdomain.Settings) accountdomain.Response {
	resp := accountdomain.Response{
		OrganizationID: settings.OrgID.String(),
		BusinessName:   settings.BusinessName,
		ReplyToEmail:   settings.ReplyToEmail,
		IndirectMaterials: accountdomain.IndirectMaterials{
			Enabled: settings.IndirectEnabled,
			Mode:    string(totals.NormalizeMode(settings.IndirectMode)),
			Amount:  formatMoney(settings.IndirectAmount),
			Percent: formatMoney(settings.IndirectPercent),
		},
		Reminders: accountdomain.Reminders{
			Enabled:       settings.RemindersEnabled,
			DaysBeforeDue: settings.ReminderDaysBefore,
			DaysAfterDue:  settings.ReminderDaysAfter,
		},
		TaxRate: s.billing.Get().TaxRate.String(),
	}
	if settings.Stored {
		updatedAt := settings.UpdatedAt
		resp.UpdatedAt = &updatedAt
	}
	return resp
}

func mapValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	switch verrs[0].Field() {
	case "ReplyToEmail":
		return accountdomain.ErrInvalidEmail
	case "DaysBeforeDue", "DaysAfterDue":
		return accountdomain.ErrInvalidReminderDays
	default:
		return accountdomain.ErrInvalidField
	}
}
