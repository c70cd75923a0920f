package tagview

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func typ(t TagType) *TagType { return &t }

func TestResolveKind(t *testing.T) {
	tests := []struct {
		name    string
		tag     Tag
		want    WidgetKind
		source  KindSource
		command bool
	}{
		{"explicit bool", Tag{Type: typ(TypeBool), Value: 1}, KindToggle, KindExplicit, false},
		{"explicit command", Tag{Type: typ(TypeBoolCmd)}, KindToggle, KindExplicit, true},
		{"explicit int", Tag{Type: typ(TypeUInt8), Value: "5"}, KindNumber, KindExplicit, false},
		{"explicit int as color", Tag{Type: typ(TypeUInt32), Unit: UnitColor}, KindColor, KindExplicit, false},
		{"explicit days", Tag{Type: typ(TypeDaySelect), Value: 127}, KindNumber, KindExplicit, false},
		{"explicit time", Tag{Type: typ(TypeTime), Value: 60}, KindTime, KindExplicit, false},
		{"explicit datetime", Tag{Type: typ(TypeDateTime)}, KindDateTime, KindExplicit, false},
		{"explicit color", Tag{Type: typ(TypeColor), Value: 0}, KindColor, KindExplicit, false},
		{"explicit string", Tag{Type: typ(TypeString), Value: 12}, KindText, KindExplicit, false},
		{"explicit array", Tag{Type: typ(TypeArrayUInt8)}, KindText, KindExplicit, false},
		{"explicit list", Tag{Type: typ(TypeListUInt8), Value: 0}, KindSelect, KindExplicit, false},
		{"inferred bool", Tag{Value: true}, KindToggle, KindInferred, false},
		{"inferred string", Tag{Value: "x"}, KindText, KindInferred, false},
		{"inferred float", Tag{Value: 1.5}, KindNumber, KindInferred, false},
		{"inferred json number", Tag{Value: json.Number("7")}, KindNumber, KindInferred, false},
		{"inferred color", Tag{Value: 255, Unit: UnitColor}, KindColor, KindInferred, false},
		{"type none falls back", Tag{Type: typ(TypeNone), Value: false}, KindToggle, KindInferred, false},
		{"unknown type falls back", Tag{Type: typ(77), Value: "v"}, KindText, KindInferred, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, ok := ResolveKind(tt.tag)
			require.True(t, ok)
			assert.Equal(t, tt.want, res.Kind)
			assert.Equal(t, tt.source, res.Source)
			assert.Equal(t, tt.command, res.Command)
		})
	}
}

func TestResolveKind_Unresolvable(t *testing.T) {
	for _, tag := range []Tag{
		{Name: "empty"},
		{Name: "object", Value: map[string]any{"a": 1}},
		{Name: "array", Value: []any{1, 2}},
		{Name: "unknown type, no value", Type: typ(77)},
	} {
		if _, ok := ResolveKind(tag); ok {
			t.Errorf("%s: expected no kind", tag.Name)
		}
	}
}

func TestFactory_BuildToggle(t *testing.T) {
	f := &Factory{}

	w, ok := f.Build(Tag{Name: "heating", Value: true}, BuildOptions{})
	require.True(t, ok)
	assert.Equal(t, KindToggle, w.Kind())
	assert.False(t, w.Command())
	assert.Equal(t, HookClick, w.Hook())
	assert.Equal(t, DefaultOnLabel, w.Hints().On)
	assert.Equal(t, DefaultOffLabel, w.Hints().Off)
	assert.Equal(t, "", w.Display(), "toggles start undefined")
	assert.Equal(t, StyleSecondaryOutline, w.Style())
	assert.Equal(t, ToggleUndefined, w.ToggleState())
}

func TestFactory_BuildCommand(t *testing.T) {
	f := &Factory{}

	w, ok := f.Build(Tag{Name: "reboot", Value: false, On: "Rebooting", Off: "Reboot"}, BuildOptions{Command: true})
	require.True(t, ok)
	assert.True(t, w.Command())
	assert.Equal(t, "Reboot", w.Display())
	assert.Equal(t, StyleSecondary, w.Style())

	w, ok = f.Build(Tag{Name: "reset", Type: typ(TypeBoolCmd)}, BuildOptions{})
	require.True(t, ok)
	assert.True(t, w.Command(), "type 54 is a command outside the command group too")
}

func TestFactory_ReadOnlyHasNoHook(t *testing.T) {
	f := &Factory{}
	for _, tag := range []Tag{
		{Name: "temperature", Value: 20.5, ReadOnly: true},
		{Name: "alarm", Value: true, ReadOnly: true},
		{Name: "color", Value: 0, Unit: UnitColor, ReadOnly: true},
	} {
		w, ok := f.Build(tag, BuildOptions{})
		require.True(t, ok, tag.Name)
		assert.True(t, w.Disabled(), tag.Name)
		assert.Equal(t, HookNone, w.Hook(), tag.Name)
		assert.ErrorIs(t, w.Input("1"), ErrWidgetDisabled, tag.Name)
	}
}

func TestFactory_ColorDropsUnit(t *testing.T) {
	f := &Factory{}

	w, ok := f.Build(Tag{Name: "led", Value: 0, Unit: UnitColor}, BuildOptions{})
	require.True(t, ok)
	assert.Equal(t, KindColor, w.Kind())
	assert.Empty(t, w.Unit())

	w, ok = f.Build(Tag{Name: "power", Value: 12, Unit: "W"}, BuildOptions{})
	require.True(t, ok)
	assert.Equal(t, "W", w.Unit())
	assert.Equal(t, HookChange, w.Hook())
}
