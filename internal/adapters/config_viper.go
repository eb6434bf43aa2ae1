package adapters

import (
	"strings"

	"github.com/spf13/viper"
)

// ConfigAdapter exposes viper-backed configuration under the
// colon-dotted key convention used throughout the concretizer
// ("concretizer:duplicates:strategy"). The adapter is a read-only
// snapshot: one instance per solve.
type ConfigAdapter struct {
	v *viper.Viper
}

// NewConfigAdapter wraps an existing viper instance (the CLI's global
// one in production).
func NewConfigAdapter(v *viper.Viper) *ConfigAdapter {
	return &ConfigAdapter{v: v}
}

// NewConfigFromMap builds a config snapshot from nested maps; tests
// use this directly.
func NewConfigFromMap(values map[string]any) *ConfigAdapter {
	v := viper.New()
	_ = v.MergeConfigMap(values)
	return &ConfigAdapter{v: v}
}

func (a *ConfigAdapter) key(key string) string {
	return strings.ReplaceAll(key, ":", ".")
}

func (a *ConfigAdapter) Get(key string) (any, bool) {
	translated := a.key(key)
	if !a.v.IsSet(translated) {
		return nil, false
	}
	return a.v.Get(translated), true
}

func (a *ConfigAdapter) GetString(key string, fallback string) string {
	translated := a.key(key)
	if !a.v.IsSet(translated) {
		return fallback
	}
	return a.v.GetString(translated)
}

func (a *ConfigAdapter) GetBool(key string, fallback bool) bool {
	translated := a.key(key)
	if !a.v.IsSet(translated) {
		return fallback
	}
	return a.v.GetBool(translated)
}

func (a *ConfigAdapter) GetInt(key string, fallback int) int {
	translated := a.key(key)
	if !a.v.IsSet(translated) {
		return fallback
	}
	return a.v.GetInt(translated)
}

func (a *ConfigAdapter) GetStringSlice(key string) []string {
	return a.v.GetStringSlice(a.key(key))
}
