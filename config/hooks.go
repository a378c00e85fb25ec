package config

import (
	"reflect"

	libmap "github.com/mitchellh/mapstructure"
	"github.com/sshlog/agent/pkg/duration"
)

// durationDecoderHook mirrors pkg/perm's ViperDecoderHook idiom for the
// one custom scalar type that package doesn't already provide a hook
// for: a string like "2s" or "5d23h" decodes into a duration.Duration
// field via the same UnmarshalText parsing JSON/YAML/TOML already use.
func durationDecoderHook() libmap.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		var z duration.Duration

		if from.Kind() != reflect.String {
			return data, nil
		}
		if to != reflect.TypeOf(z) {
			return data, nil
		}

		s, ok := data.(string)
		if !ok {
			return data, nil
		}

		return duration.Parse(s)
	}
}
