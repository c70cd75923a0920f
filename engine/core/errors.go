package tagview

import "errors"

var (
	// ErrInvalidWidgetKind is returned when an extractor receives a widget it cannot read,
	// which means the factory and the extractor disagree about widget kinds.
	ErrInvalidWidgetKind = errors.New("invalid widget kind")

	// ErrInvalidDisplayValue is returned when a widget's display state does not decode.
	ErrInvalidDisplayValue = errors.New("invalid display value")

	// ErrInvalidModelValue is returned when a snapshot value does not fit the widget kind.
	ErrInvalidModelValue = errors.New("invalid model value")

	ErrWidgetDisabled = errors.New("widget is read-only")
	ErrDetachedWidget = errors.New("widget is not attached to a tag")
	ErrUnknownElement = errors.New("unknown element")
	ErrUnknownTag     = errors.New("unknown tag")
)
