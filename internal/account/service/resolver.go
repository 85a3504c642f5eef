package service

import (
	"context"

	accountdomain "github.com/burton0621/barix-site-sub000/internal/account/domain"
	"github.com/burton0621/barix-site-sub000/internal/config"
	"github.com/burton0621/barix-site-sub000/internal/document/totals"
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
)

type resolverParam struct {
	fx.In

	Repository accountdomain.Repository
	Billing    *config.BillingConfigHolder
}

type resolver struct {
	repo    accountdomain.Repository
	billing *config.BillingConfigHolder
}

func NewResolver(p resolverParam) accountdomain.Resolver {
	return &resolver{repo: p.Repository, billing: p.Billing}
}

func (r *resolver) Resolve(ctx context.Context, orgID snowflake.ID) (accountdomain.Settings, error) {
	stored, err := r.repo.FindByOrgID(ctx, orgID)
	if err != nil {
		return accountdomain.Settings{}, err
	}
	if stored != nil {
		return *stored, nil
	}
	return Defaults(orgID, r.billing.Get()), nil
}

// Defaults builds the settings an account runs on before it saves any.
func Defaults(orgID snowflake.ID, billing config.BillingConfig) accountdomain.Settings {
	return accountdomain.Settings{
		OrgID:              orgID,
		IndirectEnabled:    billing.IndirectMaterials.Enabled,
		IndirectMode:       string(totals.NormalizeMode(billing.IndirectMaterials.Mode)),
		IndirectAmount:     totals.ParseNonNegativeNumber(billing.IndirectMaterials.Amount),
		IndirectPercent:    totals.ParsePercent(billing.IndirectMaterials.Percent),
		RemindersEnabled:   billing.Reminders.Enabled,
		ReminderDaysBefore: max(billing.Reminders.DaysBeforeDue, 0),
		ReminderDaysAfter:  max(billing.Reminders.DaysAfterDue, 0),
	}
}

func formatMoney(v decimal.Decimal) string {
	return v.StringFixed(2)
}
