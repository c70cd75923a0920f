package tagview

import "encoding/json"

// UnitColor is the legacy unit sentinel that turns a numeric tag into a color picker.
const UnitColor = "COLOR"

// Default toggle labels for tags that carry no on/off text.
const (
	DefaultOnLabel  = "On"
	DefaultOffLabel = "Off"
)

// KindSource records which dispatch path chose a widget kind.
type KindSource int

const (
	// KindExplicit means the tag's type enumerator selected the kind.
	KindExplicit KindSource = iota + 1
	// KindInferred means the runtime kind of the tag's value selected it.
	KindInferred
)

func (s KindSource) String() string {
	switch s {
	case KindExplicit:
		return "explicit"
	case KindInferred:
		return "inferred"
	}
	return "unresolved"
}

// Resolution is the outcome of kind dispatch for one tag.
type Resolution struct {
	Kind    WidgetKind
	Source  KindSource
	Command bool
}

// ResolveKind picks the widget kind for a tag. An explicit, known type enumerator
// wins; otherwise the kind is inferred from the value. The second result is false
// when neither path yields a kind.
func ResolveKind(tag Tag) (Resolution, bool) {
	if tag.Type != nil && *tag.Type != TypeNone && tag.Type.Known() {
		if res, ok := explicitKind(*tag.Type, tag.Unit); ok {
			return res, true
		}
	}
	return inferKind(tag.Value, tag.Unit)
}

func explicitKind(t TagType, unit string) (Resolution, bool) {
	res := Resolution{Source: KindExplicit}
	switch {
	case t == TypeBool:
		res.Kind = KindToggle
	case t == TypeBoolCmd:
		res.Kind = KindToggle
		res.Command = true
	case t.IsNumeric(), t == TypeDaySelect:
		res.Kind = numericKind(unit)
	case t == TypeTime:
		res.Kind = KindTime
	case t == TypeDateTime:
		res.Kind = KindDateTime
	case t == TypeColor:
		res.Kind = KindColor
	case t == TypeString, t == TypeArrayUInt8:
		res.Kind = KindText
	case t == TypeListUInt8:
		res.Kind = KindSelect
	default:
		return Resolution{}, false
	}
	return res, true
}

func inferKind(value any, unit string) (Resolution, bool) {
	switch value.(type) {
	case bool:
		return Resolution{Kind: KindToggle, Source: KindInferred}, true
	case string:
		return Resolution{Kind: KindText, Source: KindInferred}, true
	case float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, json.Number:
		return Resolution{Kind: numericKind(unit), Source: KindInferred}, true
	}
	return Resolution{}, false
}

func numericKind(unit string) WidgetKind {
	if unit == UnitColor {
		return KindColor
	}
	return KindNumber
}

// BuildOptions are the caller-supplied parameters of a widget.
type BuildOptions struct {
	// Command builds boolean widgets as momentary action buttons.
	Command bool
}

// Factory builds widgets from tag descriptors.
type Factory struct{}

// Build returns the widget for tag, or false when no kind can be resolved.
func (f *Factory) Build(tag Tag, opts BuildOptions) (*Widget, bool) {
	res, ok := ResolveKind(tag)
	if !ok {
		return nil, false
	}
	w := &Widget{
		kind:     res.Kind,
		source:   res.Source,
		disabled: bool(tag.ReadOnly),
		hints:    Hints{On: tag.On, Off: tag.Off, Options: tag.List},
	}
	if res.Kind != KindColor {
		w.unit = tag.Unit
	}

	if res.Kind == KindToggle {
		if w.hints.On == "" {
			w.hints.On = DefaultOnLabel
		}
		if w.hints.Off == "" {
			w.hints.Off = DefaultOffLabel
		}
		w.command = opts.Command || res.Command
		if w.command {
			w.display = w.hints.Off
			w.style = StyleSecondary
		} else {
			w.style = StyleSecondaryOutline
		}
	}

	switch {
	case w.disabled:
		w.hook = HookNone
	case res.Kind == KindToggle:
		w.hook = HookClick
	default:
		w.hook = HookChange
	}
	return w, true
}
