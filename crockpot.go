package gowemo

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-module/carbon"
)

// CrockpotMode is the cooking mode value the crockpot firmware
// understands. The mode field itself is accepted as free-form by the
// service schema; these constants cover the values shipped hardware
// reports.
type CrockpotMode int

const (
	CrockpotOff  CrockpotMode = 0
	CrockpotWarm CrockpotMode = 50
	CrockpotLow  CrockpotMode = 51
	CrockpotHigh CrockpotMode = 52
)

func (m CrockpotMode) String() string {
	switch m {
	case CrockpotOff:
		return "off"
	case CrockpotWarm:
		return "warm"
	case CrockpotLow:
		return "low"
	case CrockpotHigh:
		return "high"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// CrockpotSettings is the typed view of a crockpot_update_settings
// call's fields.
type CrockpotSettings struct {
	Mode     CrockpotMode
	CookTime time.Duration
}

// ParseCrockpotSettings interprets the free-form mode and time fields
// of a crockpot_update_settings call. Both fields are optional and
// arrive as strings or numbers depending on the caller; missing fields
// default to zero, matching the original integration. Time is in
// minutes.
func ParseCrockpotSettings(fields map[string]any) (CrockpotSettings, error) {
	mode, err := intField(fields, "mode")
	if err != nil {
		return CrockpotSettings{}, err
	}
	minutes, err := intField(fields, "time")
	if err != nil {
		return CrockpotSettings{}, err
	}
	if minutes < 0 {
		return CrockpotSettings{}, fmt.Errorf("time must not be negative, got %d", minutes)
	}

	return CrockpotSettings{
		Mode:     CrockpotMode(mode),
		CookTime: time.Duration(minutes) * time.Minute,
	}, nil
}

// DoneAt returns the wall-clock time the cook finishes if the settings
// are applied now.
func (s CrockpotSettings) DoneAt() time.Time {
	return carbon.Now().AddMinutes(int(s.CookTime.Minutes())).Carbon2Time()
}

func intField(fields map[string]any, key string) (int, error) {
	raw, ok := fields[key]
	if !ok {
		return 0, nil
	}
	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("field %q: %q is not an integer", key, v)
		}
		return n, nil
	}
	return 0, fmt.Errorf("field %q has unexpected type %T", key, raw)
}
