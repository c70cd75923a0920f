package tagview

import "fmt"

// WidgetKind selects how a tag is presented and how its display state is decoded.
type WidgetKind int

const (
	KindNumber WidgetKind = iota + 1
	KindText
	KindToggle
	KindTime
	KindDateTime
	KindColor
	KindSelect
)

func (k WidgetKind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	case KindToggle:
		return "toggle"
	case KindTime:
		return "time"
	case KindDateTime:
		return "datetime"
	case KindColor:
		return "color"
	case KindSelect:
		return "select"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Hook is the interaction a widget reacts to.
type Hook int

const (
	HookNone Hook = iota
	HookChange
	HookClick
)

func (h Hook) String() string {
	switch h {
	case HookChange:
		return "change"
	case HookClick:
		return "click"
	}
	return "none"
}

// ToggleState is the state a toggle-mode widget currently displays.
type ToggleState int

const (
	ToggleUndefined ToggleState = iota
	ToggleOn
	ToggleOff
)

func (s ToggleState) String() string {
	switch s {
	case ToggleOn:
		return "on"
	case ToggleOff:
		return "off"
	}
	return "undefined"
}

// Toggle styles. Secondary styles mark a widget that has not received a value yet.
const (
	StyleSecondary        = "secondary"
	StyleSecondaryOutline = "secondary outline"
	StylePrimary          = "primary"
	StylePrimaryOutline   = "primary outline"
)

// Widget is the rendered control of one tag. Kind, mode and editability are fixed
// when the factory builds it; only the display state changes afterwards.
type Widget struct {
	kind     WidgetKind
	source   KindSource
	command  bool
	disabled bool
	hook     Hook
	unit     string
	hints    Hints
	display  string
	style    string
	owner    *TagNode
}

func (w *Widget) Kind() WidgetKind { return w.kind }
func (w *Widget) Source() KindSource { return w.source }
func (w *Widget) Command() bool { return w.command }
func (w *Widget) Disabled() bool { return w.disabled }
func (w *Widget) Hook() Hook { return w.hook }
func (w *Widget) Unit() string { return w.unit }
func (w *Widget) Hints() Hints { return w.hints }
func (w *Widget) Display() string { return w.display }
func (w *Widget) Style() string { return w.style }

// Owner returns the tag record the widget belongs to.
func (w *Widget) Owner() *TagNode { return w.owner }

// Input records a user keystroke: the display changes and the owning tag is
// marked as having a pending local edit until it is committed or cancelled.
func (w *Widget) Input(display string) error {
	if w.disabled || w.hook == HookNone {
		return ErrWidgetDisabled
	}
	if w.kind == KindToggle {
		return fmt.Errorf("%w: toggles take clicks, not input", ErrInvalidWidgetKind)
	}
	w.display = display
	if w.owner != nil {
		w.owner.pendingLocalEdit = true
	}
	return nil
}

// ToggleState compares the displayed label with the widget's own labels.
func (w *Widget) ToggleState() ToggleState {
	if w.kind != KindToggle {
		return ToggleUndefined
	}
	switch w.display {
	case "":
		return ToggleUndefined
	case w.hints.On:
		return ToggleOn
	case w.hints.Off:
		return ToggleOff
	}
	return ToggleUndefined
}
