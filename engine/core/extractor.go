package tagview

import "fmt"

// Extractor turns the state of a widget the user just changed into a Mutation.
type Extractor struct {
	codec   Codec
	aliases GroupAliases
}

func NewExtractor(codec Codec, aliases GroupAliases) *Extractor {
	if aliases == nil {
		aliases = DefaultGroupAliases
	}
	return &Extractor{codec: codec, aliases: aliases}
}

// OnEdit decodes the display of a value widget and commits the pending edit.
func (x *Extractor) OnEdit(w *Widget) (*Mutation, error) {
	if w == nil {
		return nil, ErrDetachedWidget
	}
	switch w.kind {
	case KindNumber, KindText, KindTime, KindDateTime, KindColor, KindSelect:
	default:
		return nil, fmt.Errorf("%w: %v widget cannot be edited", ErrInvalidWidgetKind, w.kind)
	}
	owner, err := x.owner(w)
	if err != nil {
		return nil, err
	}
	value, err := x.codec.Decode(w.kind, w.display, w.hints)
	if err != nil {
		return nil, fmt.Errorf("%s/%s: %w", owner.element.name, owner.name, err)
	}
	owner.pendingLocalEdit = false
	return x.request(owner, value), nil
}

// OnToggle reads a boolean widget after a click. Command buttons always request
// true. Toggles request the opposite of what they display, and nothing at all
// while they display neither label.
func (x *Extractor) OnToggle(w *Widget) (*Mutation, error) {
	if w == nil {
		return nil, ErrDetachedWidget
	}
	if w.kind != KindToggle {
		return nil, fmt.Errorf("%w: %v widget cannot be clicked", ErrInvalidWidgetKind, w.kind)
	}
	owner, err := x.owner(w)
	if err != nil {
		return nil, err
	}
	owner.pendingLocalEdit = false
	if w.command {
		return x.request(owner, true), nil
	}
	switch w.ToggleState() {
	case ToggleOn:
		return x.request(owner, false), nil
	case ToggleOff:
		return x.request(owner, true), nil
	}
	DebugLog("[EXTRACT] %s/%s: toggle state undefined, no request\n", owner.element.name, owner.name)
	return nil, nil
}

func (x *Extractor) owner(w *Widget) (*TagNode, error) {
	if w.disabled || w.hook == HookNone {
		return nil, ErrWidgetDisabled
	}
	if w.owner == nil || w.owner.element == nil {
		return nil, ErrDetachedWidget
	}
	return w.owner, nil
}

func (x *Extractor) request(owner *TagNode, value any) *Mutation {
	return NewMutation(owner.element.name, x.aliases.Canonical(owner.group), owner.name, value)
}
