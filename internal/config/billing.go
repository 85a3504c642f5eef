package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// DefaultTaxRate applies when neither billing.yml nor BILLING_TAX_RATE set one.
var DefaultTaxRate = decimal.RequireFromString("0.06")

// BillingConfig carries account-independent billing defaults. Services receive
// it through BillingConfigHolder.Get so a reload never changes a value halfway
// through a request.
type BillingConfig struct {
	TaxRate           decimal.Decimal
	IndirectMaterials IndirectMaterialsConfig
	Reminders         ReminderDefaults
}

type billingFile struct {
	TaxRate           string                  `mapstructure:"taxRate"`
	IndirectMaterials IndirectMaterialsConfig `mapstructure:"indirectMaterials"`
	Reminders         ReminderDefaults        `mapstructure:"reminders"`
}

type IndirectMaterialsConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	Mode    string  `mapstructure:"mode"`
	Amount  float64 `mapstructure:"amount"`
	Percent float64 `mapstructure:"percent"`
}

// ReminderDefaults is used for accounts that never saved a reminder config.
type ReminderDefaults struct {
	Enabled       bool `mapstructure:"enabled"`
	DaysBeforeDue int  `mapstructure:"daysBeforeDue"`
	DaysAfterDue  int  `mapstructure:"daysAfterDue"`
}

func DefaultBillingConfig(cfg Config) BillingConfig {
	rate := DefaultTaxRate
	if raw := strings.TrimSpace(cfg.Billing.TaxRate); raw != "" {
		if parsed, err := decimal.NewFromString(raw); err == nil && !parsed.IsNegative() {
			rate = parsed
		}
	}
	return BillingConfig{
		TaxRate: rate,
		IndirectMaterials: IndirectMaterialsConfig{
			Enabled: false,
			Mode:    "percent",
		},
		Reminders: ReminderDefaults{
			Enabled:       cfg.Reminder.DefaultEnabled,
			DaysBeforeDue: cfg.Reminder.DefaultDaysBefore,
			DaysAfterDue:  cfg.Reminder.DefaultDaysAfter,
		},
	}
}

type BillingConfigHolder struct {
	current atomic.Value // holds BillingConfig
}

// NewStaticBillingConfigHolder wraps a fixed config, mostly for tests.
func NewStaticBillingConfigHolder(cfg BillingConfig) *BillingConfigHolder {
	holder := &BillingConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewBillingConfigHolder(appCfg Config, log *zap.Logger) (*BillingConfigHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("config.billing")

	v := viper.New()

	v.SetConfigName("billing")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/barix")
	v.AddConfigPath(".")

	v.SetEnvPrefix("BARIX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultBillingConfig(appCfg)
	v.SetDefault("billing.taxRate", defaults.TaxRate.String())
	v.SetDefault("billing.indirectMaterials.enabled", defaults.IndirectMaterials.Enabled)
	v.SetDefault("billing.indirectMaterials.mode", defaults.IndirectMaterials.Mode)
	v.SetDefault("billing.indirectMaterials.amount", defaults.IndirectMaterials.Amount)
	v.SetDefault("billing.indirectMaterials.percent", defaults.IndirectMaterials.Percent)
	v.SetDefault("billing.reminders.enabled", defaults.Reminders.Enabled)
	v.SetDefault("billing.reminders.daysBeforeDue", defaults.Reminders.DaysBeforeDue)
	v.SetDefault("billing.reminders.daysAfterDue", defaults.Reminders.DaysAfterDue)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileLoaded = false
	}

	cfg, err := decodeBillingConfig(v)
	if err != nil {
		return nil, err
	}

	holder := NewStaticBillingConfigHolder(cfg)

	if fileLoaded {
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			updated, err := decodeBillingConfig(v)
			if err != nil {
				log.Warn("billing config reload rejected", zap.String("file", e.Name), zap.Error(err))
				return
			}
			holder.current.Store(updated)
			log.Info("billing config reloaded", zap.String("file", e.Name))
		})
	}

	return holder, nil
}

func (h *BillingConfigHolder) Get() BillingConfig {
	return h.current.Load().(BillingConfig)
}

func decodeBillingConfig(v *viper.Viper) (BillingConfig, error) {
	var raw billingFile
	if err := v.UnmarshalKey("billing", &raw); err != nil {
		return BillingConfig{}, err
	}
	rate, err := decimal.NewFromString(strings.TrimSpace(raw.TaxRate))
	if err != nil {
		return BillingConfig{}, errors.New("billing.taxRate must be a decimal number")
	}
	cfg := BillingConfig{
		TaxRate:           rate,
		IndirectMaterials: raw.IndirectMaterials,
		Reminders:         raw.Reminders,
	}
	if err := validateBillingConfig(cfg); err != nil {
		return BillingConfig{}, err
	}
	return cfg, nil
}

func validateBillingConfig(cfg BillingConfig) error {
	if cfg.TaxRate.IsNegative() || cfg.TaxRate.GreaterThan(decimal.NewFromInt(1)) {
		return errors.New("billing.taxRate must be within [0, 1]")
	}
	switch strings.ToLower(strings.TrimSpace(cfg.IndirectMaterials.Mode)) {
	case "amount", "percent":
	default:
		return errors.New("billing.indirectMaterials.mode must be amount or percent")
	}
	if cfg.Reminders.DaysBeforeDue < 0 || cfg.Reminders.DaysAfterDue < 0 {
		return errors.New("billing.reminders days cannot be negative")
	}
	return nil
}
