package config

import (
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// DecodeHook composes the hooks viper installs by default with any application specific hooks.
// viper.DecodeHook replaces rather than extends the defaults, so the defaults are repeated here.
func DecodeHook(hooks ...mapstructure.DecodeHookFunc) viper.DecoderConfigOption {
	all := []mapstructure.DecodeHookFunc{
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	}
	all = append(all, hooks...)
	return viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(all...))
}
