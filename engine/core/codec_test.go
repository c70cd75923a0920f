package tagview

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColor_SwapsRedAndBlue(t *testing.T) {
	assert.Equal(t, "#332211", EncodeColor(0x112233))
	assert.Equal(t, "#0000ff", EncodeColor(0xFF0000))

	v, err := DecodeColor("#332211")
	require.NoError(t, err)
	assert.Equal(t, 0x112233, v)
}

func TestColor_RoundTripAll24Bit(t *testing.T) {
	step := 1
	if testing.Short() {
		step = 251
	}
	for x := 0; x <= 0xFFFFFF; x += step {
		got, err := DecodeColor(EncodeColor(x))
		if err != nil || got != x {
			t.Fatalf("round trip of %#06x: got %#06x, err %v", x, got, err)
		}
	}
}

func TestColor_DecodeRejectsMalformed(t *testing.T) {
	for _, in := range []string{"", "#12345", "#1234567", "#gg0000"} {
		_, err := DecodeColor(in)
		assert.ErrorIs(t, err, ErrInvalidDisplayValue, in)
	}
}

func TestTimeOfDay_LossyRoundTrip(t *testing.T) {
	for sec := 0; sec < secondsPerDay; sec++ {
		got, err := DecodeTimeOfDay(EncodeTimeOfDay(sec))
		if err != nil {
			t.Fatalf("decode of %d: %v", sec, err)
		}
		if want := sec - sec%60; got != want {
			t.Fatalf("round trip of %d: got %d, want %d", sec, got, want)
		}
	}
}

func TestTimeOfDay_Format(t *testing.T) {
	assert.Equal(t, "00:00", EncodeTimeOfDay(0))
	assert.Equal(t, "07:30", EncodeTimeOfDay(7*3600+30*60+59))
	assert.Equal(t, "23:59", EncodeTimeOfDay(86399))

	v, err := DecodeTimeOfDay("07:30:45")
	require.NoError(t, err)
	assert.Equal(t, 27000, v)

	_, err = DecodeTimeOfDay("24:00")
	assert.ErrorIs(t, err, ErrInvalidDisplayValue)
	_, err = DecodeTimeOfDay("noon")
	assert.ErrorIs(t, err, ErrInvalidDisplayValue)
}

func TestTimestamp_UsesCodecLocation(t *testing.T) {
	cet := time.FixedZone("CET", 3600)
	c := Codec{Location: cet}

	display, err := c.Encode(KindDateTime, float64(1700000000), Hints{})
	require.NoError(t, err)
	assert.Equal(t, "2023-11-14T23:13", display)

	v, err := c.Decode(KindDateTime, "2023-11-14T23:13", Hints{})
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000-20), v, "seconds below the minute are dropped")

	v, err = c.Decode(KindDateTime, "1970-01-01T01:00:07.900", Hints{})
	require.NoError(t, err)
	assert.Equal(t, int64(7), v, "fractions floor to whole seconds")
}

func TestCodec_EncodeByKind(t *testing.T) {
	c := Codec{Location: time.UTC}
	hints := Hints{On: "Running", Off: "Stopped", Options: []ListOption{{Index: 0, Text: "Auto"}, {Index: 1, Text: "Manual"}}}

	tests := []struct {
		name  string
		kind  WidgetKind
		value any
		want  string
	}{
		{"float", KindNumber, 21.5, "21.5"},
		{"int", KindNumber, 3, "3"},
		{"numeric string", KindNumber, "12", "12"},
		{"text", KindText, "hello", "hello"},
		{"number in text", KindText, float64(1000000), "1000000"},
		{"toggle on", KindToggle, true, "Running"},
		{"toggle off", KindToggle, false, "Stopped"},
		{"time", KindTime, 3661, "01:01"},
		{"color", KindColor, float64(0x00FF00), "#00ff00"},
		{"select", KindSelect, float64(1), "Manual"},
		{"select unknown index", KindSelect, 7, "7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Encode(tt.kind, tt.value, hints)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCodec_EncodeRejectsWrongValueKind(t *testing.T) {
	c := Codec{}
	_, err := c.Encode(KindNumber, "abc", Hints{})
	assert.True(t, errors.Is(err, ErrInvalidModelValue))

	_, err = c.Encode(KindToggle, map[string]any{}, Hints{})
	assert.True(t, errors.Is(err, ErrInvalidModelValue))

	_, err = c.Encode(WidgetKind(99), 1, Hints{})
	assert.True(t, errors.Is(err, ErrInvalidWidgetKind))
}

func TestCodec_DecodeByKind(t *testing.T) {
	c := Codec{Location: time.UTC}
	hints := Hints{On: "Running", Off: "Stopped", Options: []ListOption{{Index: 4, Text: "Eco"}}}

	v, err := c.Decode(KindNumber, " 12.25 ", hints)
	require.NoError(t, err)
	assert.Equal(t, 12.25, v)

	v, err = c.Decode(KindText, "abc", hints)
	require.NoError(t, err)
	assert.Equal(t, "abc", v)

	v, err = c.Decode(KindToggle, "Stopped", hints)
	require.NoError(t, err)
	assert.Equal(t, false, v)

	v, err = c.Decode(KindSelect, "Eco", hints)
	require.NoError(t, err)
	assert.Equal(t, 4, v)

	v, err = c.Decode(KindColor, "#0000ff", hints)
	require.NoError(t, err)
	assert.Equal(t, 0xFF0000, v)

	_, err = c.Decode(KindNumber, "twelve", hints)
	assert.ErrorIs(t, err, ErrInvalidDisplayValue)

	_, err = c.Decode(KindToggle, "Maybe", hints)
	assert.ErrorIs(t, err, ErrInvalidDisplayValue)
}
