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

// FeeConfig carries the two percentages layered on top of an invoice total.
// PayerSurchargePercent is added to what the payer is charged.
// PlatformFeePercent is retained from the gross charge when funds reach the
// issuer's connected account.
type FeeConfig struct {
	PayerSurchargePercent decimal.Decimal
	PlatformFeePercent    decimal.Decimal
}

type feeFile struct {
	PayerSurchargePercent float64 `mapstructure:"payerSurchargePercent"`
	PlatformFeePercent    float64 `mapstructure:"platformFeePercent"`
}

func DefaultFeeConfig() FeeConfig {
	return FeeConfig{
		PayerSurchargePercent: decimal.NewFromFloat(getenvFloat("PAYER_SURCHARGE_PERCENT", 3)),
		PlatformFeePercent:    decimal.NewFromFloat(getenvFloat("PLATFORM_FEE_PERCENT", 2)),
	}
}

type FeeConfigHolder struct {
	current atomic.Value // holds FeeConfig
}

// NewStaticFeeConfigHolder returns a holder that never reloads.
func NewStaticFeeConfigHolder(cfg FeeConfig) *FeeConfigHolder {
	holder := &FeeConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewFeeConfigHolder(log *zap.Logger) (*FeeConfigHolder, error) {
	log = log.Named("config.fees")
	v := viper.New()

	v.SetConfigName("fees")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/chaseless")
	v.AddConfigPath(".")

	v.SetEnvPrefix("CHASELESS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultFeeConfig()
	v.SetDefault("fees.payerSurchargePercent", defaults.PayerSurchargePercent.InexactFloat64())
	v.SetDefault("fees.platformFeePercent", defaults.PlatformFeePercent.InexactFloat64())

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
	}

	cfg, err := readFeeConfig(v)
	if err != nil {
		return nil, err
	}

	holder := NewStaticFeeConfigHolder(cfg)
	if !fileFound {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := readFeeConfig(v)
		if err != nil {
			log.Warn("fee config reload ignored", zap.String("file", e.Name), zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("fee config reloaded",
			zap.String("file", e.Name),
			zap.String("payer_surcharge_percent", updated.PayerSurchargePercent.String()),
			zap.String("platform_fee_percent", updated.PlatformFeePercent.String()),
		)
	})

	return holder, nil
}

func (h *FeeConfigHolder) Get() FeeConfig {
	return h.current.Load().(FeeConfig)
}

func readFeeConfig(v *viper.Viper) (FeeConfig, error) {
	var raw feeFile
	if err := v.UnmarshalKey("fees", &raw); err != nil {
		return FeeConfig{}, err
	}
	cfg := FeeConfig{
		PayerSurchargePercent: decimal.NewFromFloat(raw.PayerSurchargePercent),
		PlatformFeePercent:    decimal.NewFromFloat(raw.PlatformFeePercent),
	}
	if err := validateFeeConfig(cfg); err != nil {
		return FeeConfig{}, err
	}
	return cfg, nil
}

func validateFeeConfig(cfg FeeConfig) error {
	hundred := decimal.NewFromInt(100)
	if cfg.PayerSurchargePercent.IsNegative() || cfg.PayerSurchargePercent.GreaterThanOrEqual(hundred) {
		return errors.New("fees.payerSurchargePercent must be within [0, 100)")
	}
	if cfg.PlatformFeePercent.IsNegative() || cfg.PlatformFeePercent.GreaterThanOrEqual(hundred) {
		return errors.New("fees.platformFeePercent must be within [0, 100)")
	}
	return nil
}
