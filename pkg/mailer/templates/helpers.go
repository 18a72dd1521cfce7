package templates

import (
	"time"

	"github.com/oksasatya/go-level-upgrade/config"
)

// Option pattern
type Option func(*EmailData)

func WithTime(t time.Time) Option {
	return func(d *EmailData) {
		utc := t.UTC()
		d.TimeAt = utc
		d.Time = utc.Format("02 January 2006, 15:04")
	}
}

func WithCounters(login, recommend int) Option {
	return func(d *EmailData) {
		d.LoginCount = login
		d.RecommendCount = recommend
	}
}

// NewBaseEmailData fills the company fields from config, then applies opts.
func NewBaseEmailData(cfg *config.Config, typ string, name, email, recipient string, opts ...Option) EmailData {
	d := EmailData{
		Name:           name,
		Email:          email,
		RecipientEmail: recipient,
		Type:           typ,

		CompanyName:    cfg.CompanyName,
		CompanyAddress: cfg.CompanyAddress,
		AppName:        cfg.AppName,

		LogoURL:        cfg.LogoURL,
		SupportURL:     cfg.SupportURL,
		PrivacyURL:     cfg.PrivacyURL,
		UnsubscribeURL: cfg.UnsubscribeURL,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

func NewLevelUpgradedData(cfg *config.Config, name, recipient, level string, opts ...Option) map[string]any {
	d := NewBaseEmailData(cfg, LevelUpgraded, name, recipient, recipient, opts...)
	d.Level = level
	return ToMap(d)
}
