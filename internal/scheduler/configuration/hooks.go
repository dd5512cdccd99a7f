package configuration

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"

	"github.com/agentgate/agentgate/internal/scheduler/schedulerobjects"
)

// DecodeHooks are the mapstructure hooks needed to load a Configuration.
func DecodeHooks() []mapstructure.DecodeHookFunc {
	return []mapstructure.DecodeHookFunc{
		TierDecodeHook(),
		PeakWindowDecodeHook(),
	}
}

// TierDecodeHook normalises tier names. viper lower-cases map keys, so this is needed
// for the tier keyed maps in SchedulingConfig as well as for plain tier fields.
func TierDecodeHook() mapstructure.DecodeHookFuncType {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(schedulerobjects.Tier("")) {
			return data, nil
		}
		return schedulerobjects.ParseTier(reflect.ValueOf(data).String()), nil
	}
}

// PeakWindowDecodeHook allows peak windows to be written as "start-end", e.g. "9-17".
func PeakWindowDecodeHook() mapstructure.DecodeHookFuncType {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(PeakWindow{}) {
			return data, nil
		}
		return ParsePeakWindow(data.(string))
	}
}

func ParsePeakWindow(s string) (PeakWindow, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 2 {
		return PeakWindow{}, errors.Errorf("invalid peak window %q; expected start-end, e.g. 9-17", s)
	}
	start, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return PeakWindow{}, errors.Wrapf(err, "invalid start hour in peak window %q", s)
	}
	end, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return PeakWindow{}, errors.Wrapf(err, "invalid end hour in peak window %q", s)
	}
	return PeakWindow{Start: start, End: end}, nil
}
