package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Settings are the file-backed commercial parameters: tax rates applied to
// purchase orders and the default conditions printed on new orders.
type Settings struct {
	TPSRate float64 `mapstructure:"tpsRate"`
	TVQRate float64 `mapstructure:"tvqRate"`

	DefaultValidityTerms string `mapstructure:"defaultValidityTerms"`
	DefaultPaymentTerms  string `mapstructure:"defaultPaymentTerms"`
}

func DefaultSettings() Settings {
	return Settings{
		TPSRate:              0.05,
		TVQRate:              0.09975,
		DefaultValidityTerms: "Valid for 30 days",
		DefaultPaymentTerms:  "Net 30 days",
	}
}

type SettingsHolder struct {
	current atomic.Value // holds Settings
}

func NewSettingsHolder() (*SettingsHolder, error) {
	v := viper.New()

	v.SetConfigName("backoffice")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/backoffice")
	v.AddConfigPath(".")

	v.SetEnvPrefix("BACKOFFICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultSettings()
	v.SetDefault("commercial.tpsRate", defaults.TPSRate)
	v.SetDefault("commercial.tvqRate", defaults.TVQRate)
	v.SetDefault("commercial.defaultValidityTerms", defaults.DefaultValidityTerms)
	v.SetDefault("commercial.defaultPaymentTerms", defaults.DefaultPaymentTerms)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var settings Settings
	if err := v.UnmarshalKey("commercial", &settings); err != nil {
		return nil, err
	}
	if err := validateSettings(settings); err != nil {
		return nil, err
	}

	holder := &SettingsHolder{}
	holder.current.Store(settings)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated Settings
		if err := v.UnmarshalKey("commercial", &updated); err != nil {
			log.Printf("[settings] reload failed: %v", err)
			return
		}
		if err := validateSettings(updated); err != nil {
			log.Printf("[settings] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[settings] reloaded from %s", e.Name)
	})

	return holder, nil
}

// StaticSettings wraps fixed settings without file watching; used by tests.
func StaticSettings(s Settings) *SettingsHolder {
	holder := &SettingsHolder{}
	holder.current.Store(s)
	return holder
}

func (h *SettingsHolder) Get() Settings {
	return h.current.Load().(Settings)
}

func validateSettings(s Settings) error {
	if s.TPSRate < 0 || s.TPSRate > 1 {
		return errors.New("commercial.tpsRate must be between 0 and 1")
	}
	if s.TVQRate < 0 || s.TVQRate > 1 {
		return errors.New("commercial.tvqRate must be between 0 and 1")
	}
	return nil
}
