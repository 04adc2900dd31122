package hrana

import (
	"encoding/json"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		in   any
	}{
		{"null", nil},
		{"zero", int64(0)},
		{"small int", int64(42)},
		{"negative int", int64(-7)},
		{"max int64", int64(9223372036854775807)},
		{"min int64", int64(-9223372036854775808)},
		{"beyond 53 bits", int64(9007199254740993)},
		{"float", 3.25},
		{"negative float", -0.5},
		{"empty text", ""},
		{"text", "hello"},
		{"unicode text", "日本語 🎌 café"},
		{"blob", []byte{0x00, 0x01, 0xff, 0x7f}},
		{"empty blob", []byte{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := DecodeValue(EncodeValue(tc.in))
			assert.Equal(t, tc.in, got)
		})
	}
}

func TestValueRoundTripThroughJSON(t *testing.T) {
	// The wire path always goes through JSON; make sure serialization
	// doesn't lose fidelity either.
	for _, in := range []any{int64(9007199254740993), 2.5, "päron", []byte("bytes")} {
		raw, err := json.Marshal(EncodeValue(in))
		require.NoError(t, err)
		var v Value
		require.NoError(t, json.Unmarshal(raw, &v))
		assert.Equal(t, in, DecodeValue(v))
	}
}

func TestValueRoundTripRandomized(t *testing.T) {
	f := gofakeit.New(42)
	for i := 0; i < 200; i++ {
		text := f.Sentence(8)
		assert.Equal(t, text, DecodeValue(EncodeValue(text)))

		blob := make([]byte, f.Number(1, 64))
		for j := range blob {
			blob[j] = byte(f.Number(0, 255))
		}
		assert.Equal(t, blob, DecodeValue(EncodeValue(blob)))

		n := f.Int64()
		assert.Equal(t, n, DecodeValue(EncodeValue(n)))
	}
}

func TestEncodeIntegerIsDecimalString(t *testing.T) {
	raw, err := json.Marshal(EncodeValue(int64(1)))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"integer","value":"1"}`, string(raw))
}

func TestEncodeBlobUsesBase64Field(t *testing.T) {
	raw, err := json.Marshal(EncodeValue([]byte{1, 2, 3}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"blob","base64":"AQID"}`, string(raw))
}

func TestEncodeNullOmitsPayload(t *testing.T) {
	raw, err := json.Marshal(EncodeValue(nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"null"}`, string(raw))
}

func TestEncodeFallbackToText(t *testing.T) {
	// Types the engine never produces become their string representation.
	v := EncodeValue(true)
	assert.Equal(t, "text", v.Type)
	assert.Equal(t, "true", v.Value)
}

func TestDecodeMalformedYieldsNull(t *testing.T) {
	cases := []Value{
		{Type: "bogus"},
		{Type: "integer", Value: "not-a-number"},
		{Type: "integer"},
		{Type: "float", Value: "nope"},
		{Type: "text", Value: 12.0},
		{Type: "blob", Base64: "!!!not base64!!!"},
	}
	for _, v := range cases {
		assert.Nil(t, DecodeValue(v), "type=%s", v.Type)
	}
}

func TestDecodeIntegerToleratesJSONNumber(t *testing.T) {
	// Some clients send small integers as JSON numbers.
	assert.Equal(t, int64(5), DecodeValue(Value{Type: "integer", Value: 5.0}))
}

func TestDecodeBlobAcceptsUnpaddedBase64(t *testing.T) {
	assert.Equal(t, []byte{1, 2, 3}, DecodeValue(Value{Type: "blob", Base64: "AQID"}))
	// "f" encodes as "Zg==" padded, "Zg" unpadded.
	assert.Equal(t, []byte("f"), DecodeValue(Value{Type: "blob", Base64: "Zg"}))
}
