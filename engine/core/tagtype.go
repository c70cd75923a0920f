package tagview

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// TagType is the explicit type enumerator a device may attach to a tag.
// The numbering follows the controller firmware.
type TagType uint8

const (
	TypeNone       TagType = 0
	TypeBool       TagType = 1
	TypeFloat      TagType = 2
	TypeInt8       TagType = 3
	TypeUInt8      TagType = 4
	TypeInt16      TagType = 5
	TypeUInt16     TagType = 6
	TypeInt32      TagType = 7
	TypeUInt32     TagType = 8
	TypeString     TagType = 9
	TypeTime       TagType = 51
	TypeDateTime   TagType = 52
	TypeColor      TagType = 53
	TypeBoolCmd    TagType = 54
	TypeDaySelect  TagType = 55
	TypeListUInt8  TagType = 101
	TypeArrayUInt8 TagType = 102
)

// typeNames maps the symbolic spellings some producers send instead of numbers.
var typeNames = map[string]TagType{
	"none":     TypeNone,
	"bool":     TypeBool,
	"boolean":  TypeBool,
	"number":   TypeFloat,
	"float":    TypeFloat,
	"int":      TypeInt32,
	"string":   TypeString,
	"text":     TypeString,
	"time":     TypeTime,
	"datetime": TypeDateTime,
	"color":    TypeColor,
	"cmd":      TypeBoolCmd,
	"command":  TypeBoolCmd,
	"days":     TypeDaySelect,
	"list":     TypeListUInt8,
	"array":    TypeArrayUInt8,
}

// IsNumeric reports whether t is one of the plain numeric encodings.
func (t TagType) IsNumeric() bool {
	return t >= TypeFloat && t <= TypeUInt32
}

// Known reports whether t is a value of the enumerator.
func (t TagType) Known() bool {
	switch {
	case t == TypeNone, t == TypeBool, t.IsNumeric(), t == TypeString:
		return true
	case t >= TypeTime && t <= TypeDaySelect:
		return true
	case t == TypeListUInt8, t == TypeArrayUInt8:
		return true
	}
	return false
}

func (t TagType) String() string {
	switch t {
	case TypeNone:
		return "none"
	case TypeBool:
		return "bool"
	case TypeString:
		return "string"
	case TypeTime:
		return "time"
	case TypeDateTime:
		return "datetime"
	case TypeColor:
		return "color"
	case TypeBoolCmd:
		return "cmd"
	case TypeDaySelect:
		return "days"
	case TypeListUInt8:
		return "list"
	case TypeArrayUInt8:
		return "array"
	}
	if t.IsNumeric() {
		return "number"
	}
	return strconv.Itoa(int(t))
}

// ParseTagType accepts either the numeric enumerator or one of its names.
func ParseTagType(s string) (TagType, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseUint(s, 10, 8); err == nil {
		return TagType(n), nil
	}
	if t, ok := typeNames[strings.ToLower(s)]; ok {
		return t, nil
	}
	return TypeNone, fmt.Errorf("unknown tag type %q", s)
}

// UnmarshalJSON never fails on a well-formed scalar. Names it does not know and
// numbers outside the enumerator's range decode as TypeNone, leaving the widget
// kind to be inferred from the value. In-range numbers are kept as sent.
func (t *TagType) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*t = typeFromNumber(n, string(data))
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("tag type must be a number or a name: %s", string(data))
	}
	*t = typeFromName(s)
	return nil
}

func (t *TagType) UnmarshalYAML(value *yaml.Node) error {
	var n float64
	if value.Tag == "!!int" || value.Tag == "!!float" {
		if err := value.Decode(&n); err == nil {
			*t = typeFromNumber(n, value.Value)
			return nil
		}
	}
	*t = typeFromName(value.Value)
	return nil
}

func typeFromNumber(n float64, raw string) TagType {
	if n < 0 || n > 255 || n != float64(int(n)) {
		DebugLog("[MODEL] Tag type %s out of range, inferring from value\n", raw)
		return TypeNone
	}
	return TagType(n)
}

func typeFromName(s string) TagType {
	parsed, err := ParseTagType(s)
	if err != nil {
		DebugLog("[MODEL] %v, inferring from value\n", err)
		return TypeNone
	}
	return parsed
}
