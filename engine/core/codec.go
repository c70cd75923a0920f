package tagview

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	// TimestampLayout is the display form of absolute timestamps (local time, minute precision).
	TimestampLayout = "2006-01-02T15:04"

	secondsPerDay = 24 * 60 * 60
)

// Hints carries the per-tag metadata some encodings need.
type Hints struct {
	On      string
	Off     string
	Options []ListOption
}

// Codec converts between model values and widget display strings.
// Location is used for absolute timestamps; nil means time.Local.
type Codec struct {
	Location *time.Location
}

func (c Codec) location() *time.Location {
	if c.Location == nil {
		return time.Local
	}
	return c.Location
}

// Encode renders a model value for a widget of the given kind.
func (c Codec) Encode(kind WidgetKind, value any, hints Hints) (string, error) {
	switch kind {
	case KindNumber:
		f, ok := toFloat(value)
		if !ok {
			return "", fmt.Errorf("%w: %v is not a number", ErrInvalidModelValue, value)
		}
		return strconv.FormatFloat(f, 'f', -1, 64), nil
	case KindText:
		return formatAny(value), nil
	case KindToggle:
		b, ok := toBool(value)
		if !ok {
			return "", fmt.Errorf("%w: %v is not a boolean", ErrInvalidModelValue, value)
		}
		if b {
			return hints.On, nil
		}
		return hints.Off, nil
	case KindTime:
		n, ok := toInt(value)
		if !ok {
			return "", fmt.Errorf("%w: %v is not a time of day", ErrInvalidModelValue, value)
		}
		return EncodeTimeOfDay(n), nil
	case KindDateTime:
		n, ok := toInt(value)
		if !ok {
			return "", fmt.Errorf("%w: %v is not a timestamp", ErrInvalidModelValue, value)
		}
		return EncodeTimestamp(int64(n), c.location()), nil
	case KindColor:
		n, ok := toInt(value)
		if !ok {
			return "", fmt.Errorf("%w: %v is not a color", ErrInvalidModelValue, value)
		}
		return EncodeColor(n), nil
	case KindSelect:
		n, ok := toInt(value)
		if !ok {
			if s, isString := value.(string); isString {
				return s, nil
			}
			return "", fmt.Errorf("%w: %v is not a list index", ErrInvalidModelValue, value)
		}
		for _, opt := range hints.Options {
			if opt.Index == n {
				return opt.Text, nil
			}
		}
		return strconv.Itoa(n), nil
	}
	return "", fmt.Errorf("%w: %v", ErrInvalidWidgetKind, kind)
}

// Decode turns a widget display string back into a model value.
func (c Codec) Decode(kind WidgetKind, display string, hints Hints) (any, error) {
	switch kind {
	case KindNumber:
		f, err := strconv.ParseFloat(strings.TrimSpace(display), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number", ErrInvalidDisplayValue, display)
		}
		return f, nil
	case KindText:
		return display, nil
	case KindToggle:
		switch display {
		case hints.On:
			return true, nil
		case hints.Off:
			return false, nil
		}
		return nil, fmt.Errorf("%w: %q matches neither %q nor %q", ErrInvalidDisplayValue, display, hints.On, hints.Off)
	case KindTime:
		return DecodeTimeOfDay(display)
	case KindDateTime:
		return DecodeTimestamp(display, c.location())
	case KindColor:
		return DecodeColor(display)
	case KindSelect:
		for _, opt := range hints.Options {
			if opt.Text == display {
				return opt.Index, nil
			}
		}
		n, err := strconv.Atoi(strings.TrimSpace(display))
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a list entry", ErrInvalidDisplayValue, display)
		}
		return n, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrInvalidWidgetKind, kind)
}

// EncodeColor renders a packed 24-bit color as #rrggbb with the red and blue
// bytes exchanged, matching the byte order of the LED driver.
func EncodeColor(v int) string {
	return fmt.Sprintf("#%06x", swapRedBlue(v&0xFFFFFF))
}

// DecodeColor is the inverse of EncodeColor.
func DecodeColor(s string) (int, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 {
		return 0, fmt.Errorf("%w: %q is not a #rrggbb color", ErrInvalidDisplayValue, s)
	}
	n, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a #rrggbb color", ErrInvalidDisplayValue, s)
	}
	return swapRedBlue(int(n)), nil
}

func swapRedBlue(v int) int {
	return (v&0xFF)<<16 | v&0xFF00 | (v>>16)&0xFF
}

// EncodeTimeOfDay renders seconds since midnight as HH:MM. Seconds are dropped.
func EncodeTimeOfDay(seconds int) string {
	seconds = ((seconds % secondsPerDay) + secondsPerDay) % secondsPerDay
	return fmt.Sprintf("%02d:%02d", seconds/3600, (seconds%3600)/60)
}

// DecodeTimeOfDay parses HH:MM (a trailing :SS is accepted and ignored).
func DecodeTimeOfDay(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("%w: %q is not HH:MM", ErrInvalidDisplayValue, s)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours < 0 || hours > 23 {
		return 0, fmt.Errorf("%w: %q has an invalid hour", ErrInvalidDisplayValue, s)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("%w: %q has an invalid minute", ErrInvalidDisplayValue, s)
	}
	return hours*3600 + minutes*60, nil
}

// EncodeTimestamp renders epoch seconds as local YYYY-MM-DDTHH:mm.
func EncodeTimestamp(epoch int64, loc *time.Location) string {
	return time.Unix(epoch, 0).In(loc).Format(TimestampLayout)
}

// DecodeTimestamp parses YYYY-MM-DDTHH:mm in loc and returns whole epoch seconds.
func DecodeTimestamp(s string, loc *time.Location) (int64, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{TimestampLayout, "2006-01-02T15:04:05", "2006-01-02T15:04:05.999"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.Unix(), nil
		}
	}
	return 0, fmt.Errorf("%w: %q is not YYYY-MM-DDTHH:mm", ErrInvalidDisplayValue, s)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

func toInt(v any) (int, bool) {
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int(math.Floor(f)), true
}

func toBool(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		parsed, err := strconv.ParseBool(b)
		return parsed, err == nil
	}
	if f, ok := toFloat(v); ok {
		return f != 0, true
	}
	return false, false
}

func formatAny(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case bool:
		return strconv.FormatBool(s)
	}
	if f, ok := toFloat(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}
