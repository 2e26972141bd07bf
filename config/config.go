// Package config decodes and validates the connection-level tunables
// a caller hands to spdy.Open: endpoint, TLS, protocol version, dial
// timeout and initial flow-control window.
//
// Grounded on core/config/config.go's Decode/DecodeAndValidate pair
// and decode-hook composition, trimmed of the plugin-registry hooks
// (PluginHook, PluginFactoryHook, DebugHook) since this library has
// no plugin system for gun/ammo/provider types to decode into.
package config

import (
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

// TagName is the struct tag Decode reads destination field names from.
const TagName = "config"

// Decode fills result's fields from conf (typically a
// map[string]interface{} parsed from YAML/JSON/TOML by viper).
// Fields result doesn't have are a decode error; fields conf doesn't
// set keep whatever value result already held.
func Decode(conf interface{}, result interface{}) error {
	decoder, err := mapstructure.NewDecoder(newDecoderConfig(result))
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(decoder.Decode(conf))
}

// DecodeAndValidate decodes conf into result and then runs Validate
// on it.
func DecodeAndValidate(conf interface{}, result interface{}) error {
	if err := Decode(conf, result); err != nil {
		return err
	}
	return Validate(result)
}

func newDecoderConfig(result interface{}) *mapstructure.DecoderConfig {
	compileHooks()
	return &mapstructure.DecoderConfig{
		DecodeHook:       compiledHook,
		ErrorUnused:      true,
		ZeroFields:       false,
		WeaklyTypedInput: false,
		TagName:          TagName,
		Result:           result,
	}
}

// DefaultHooks returns the decode hooks DecodeAndValidate composes by
// default: string to duration and byte size (what Connection needs),
// plus string to url.URL and net.IP, and nothing plugin-registry
// specific.
func DefaultHooks() []mapstructure.DecodeHookFunc {
	return []mapstructure.DecodeHookFunc{
		mapstructure.StringToTimeDurationHookFunc(),
		StringToURLHook,
		StringToIPHook,
		StringToDataSizeHook,
	}
}

func GetHooks() []mapstructure.DecodeHookFunc { return hooks }

func SetHooks(h []mapstructure.DecodeHookFunc) {
	hooks = h
	hooksNeedCompile = true
}

var (
	hooks            = DefaultHooks()
	hooksNeedCompile = true
	compiledHook     mapstructure.DecodeHookFunc
)

func compileHooks() {
	if hooksNeedCompile {
		compiledHook = mapstructure.ComposeDecodeHookFunc(hooks...)
		hooksNeedCompile = false
	}
}
