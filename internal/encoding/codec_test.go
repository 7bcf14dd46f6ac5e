package encoding

import (
	"testing"
	"time"

	"github.com/amqp-messenger/messenger/internal/buffer"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, v interface{}) interface{} {
	t.Helper()
	wr := buffer.New(nil)
	require.NoError(t, Marshal(wr, v))
	r := buffer.New(wr.Bytes())
	var got interface{}
	require.NoError(t, Unmarshal(r, &got))
	return got
}

func TestMarshalPrimitives(t *testing.T) {
	require.Equal(t, nil, roundTrip(t, nil))
	require.Equal(t, true, roundTrip(t, true))
	require.Equal(t, false, roundTrip(t, false))
	require.Equal(t, uint32(42), roundTrip(t, uint32(42)))
	require.Equal(t, uint64(1<<40), roundTrip(t, uint64(1<<40)))
	require.Equal(t, int32(-7), roundTrip(t, int32(-7)))
	require.Equal(t, int64(-123456789), roundTrip(t, int64(-123456789)))
	require.Equal(t, 3.5, roundTrip(t, 3.5))
	require.Equal(t, "hello", roundTrip(t, "hello"))
	require.Equal(t, Symbol("ANONYMOUS"), roundTrip(t, Symbol("ANONYMOUS")))
	require.Equal(t, []byte{1, 2, 3}, roundTrip(t, []byte{1, 2, 3}))
}

func TestMarshalTimestamp(t *testing.T) {
	want := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	got := roundTrip(t, want)
	gotTime, ok := got.(time.Time)
	require.True(t, ok)
	require.True(t, want.Equal(gotTime), "got %v, want %v", gotTime, want)
}

func TestMarshalListAndMap(t *testing.T) {
	list := []interface{}{uint32(1), "two", true}
	got := roundTrip(t, list)
	require.Equal(t, list, got)

	m := map[string]interface{}{"k": "v"}
	got = roundTrip(t, m)
	require.Equal(t, m, got)
}

func TestMarshalUnsupportedType(t *testing.T) {
	wr := buffer.New(nil)
	err := Marshal(wr, struct{}{})
	require.Error(t, err)
}

func TestMarshalCompositeOmitsTrailingFields(t *testing.T) {
	wr := buffer.New(nil)
	require.NoError(t, MarshalComposite(wr, TypeCodeMessageHeader, []Field{
		{Value: true, Omit: false},
		{Value: uint32(5), Omit: true},
	}))

	r := buffer.New(wr.Bytes())
	var durable bool
	var priority uint32
	require.NoError(t, UnmarshalComposite(r, TypeCodeMessageHeader, []interface{}{&durable, &priority}))
	require.True(t, durable)
	require.Equal(t, uint32(0), priority)
}

func TestMarshalCompositeNullsMiddleOmittedField(t *testing.T) {
	wr := buffer.New(nil)
	require.NoError(t, MarshalComposite(wr, TypeCodeMessageProperties, []Field{
		{Value: "", Omit: true},
		{Value: "kept", Omit: false},
	}))

	r := buffer.New(wr.Bytes())
	var first, second string
	require.NoError(t, UnmarshalComposite(r, TypeCodeMessageProperties, []interface{}{&first, &second}))
	require.Equal(t, "", first)
	require.Equal(t, "kept", second)
}

func TestUnmarshalCompositeDescriptorMismatch(t *testing.T) {
	wr := buffer.New(nil)
	require.NoError(t, MarshalComposite(wr, TypeCodeMessageHeader, nil))
	r := buffer.New(wr.Bytes())
	err := UnmarshalComposite(r, TypeCodeMessageProperties, nil)
	require.Error(t, err)
}

func TestTerminusSourceTargetRoundTrip(t *testing.T) {
	src := &Source{Address: "examples", Dynamic: false}
	wr := buffer.New(nil)
	require.NoError(t, src.Marshal(wr))
	r := buffer.New(wr.Bytes())
	var got Source
	require.NoError(t, got.Unmarshal(r))
	if diff := cmp.Diff(*src, got); diff != "" {
		t.Errorf("source mismatch after round-trip (-want +got):\n%s", diff)
	}

	tgt := &Target{Address: "examples", Dynamic: true}
	wr = buffer.New(nil)
	require.NoError(t, tgt.Marshal(wr))
	r = buffer.New(wr.Bytes())
	var gotTarget Target
	require.NoError(t, gotTarget.Unmarshal(r))
	if diff := cmp.Diff(*tgt, gotTarget); diff != "" {
		t.Errorf("target mismatch after round-trip (-want +got):\n%s", diff)
	}
}

func TestDeliveryStateRoundTrip(t *testing.T) {
	cases := []DeliveryState{
		&StateAccepted{},
		&StateRejected{Error: &Error{Condition: ErrCondInternalError, Description: "boom"}},
		&StateReleased{},
		&StateModified{DeliveryFailed: true, UndeliverableHere: true},
	}
	for _, want := range cases {
		wr := buffer.New(nil)
		require.NoError(t, want.Marshal(wr))
		r := buffer.New(wr.Bytes())
		got, err := UnmarshalDeliveryState(r)
		require.NoError(t, err)
		require.IsType(t, want, got)
	}
}
