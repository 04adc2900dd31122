package hrana

import (
	"encoding/base64"
	"fmt"
	"strconv"
)

// Value is the wire's self-describing encoding of one SQL scalar. Integers
// travel as decimal strings in Value, never JSON numbers, so 64-bit ids
// survive clients with 53-bit number precision. Blobs travel base64-encoded
// in Base64; all other payloads use Value.
type Value struct {
	Type   string `json:"type"`
	Value  any    `json:"value,omitempty"`
	Base64 string `json:"base64,omitempty"`
}

// EncodeValue maps a native SQL scalar to its tagged wire form. Types the
// engine never produces fall back to their string representation as text
// rather than erroring.
func EncodeValue(v any) Value {
	switch x := v.(type) {
	case nil:
		return Value{Type: "null"}
	case int64:
		return Value{Type: "integer", Value: strconv.FormatInt(x, 10)}
	case int:
		return Value{Type: "integer", Value: strconv.Itoa(x)}
	case float64:
		return Value{Type: "float", Value: x}
	case string:
		return Value{Type: "text", Value: x}
	case []byte:
		return Value{Type: "blob", Base64: base64.StdEncoding.EncodeToString(x)}
	default:
		return Value{Type: "text", Value: fmt.Sprint(x)}
	}
}

// DecodeValue maps a tagged wire value back to a native SQL scalar.
// Unknown or malformed values decode to nil rather than raising, matching
// the protocol's permissive posture for a trusted local client.
func DecodeValue(v Value) any {
	switch v.Type {
	case "null":
		return nil
	case "integer":
		switch raw := v.Value.(type) {
		case string:
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return nil
			}
			return n
		case float64:
			// Tolerated: some clients send small integers as JSON numbers.
			return int64(raw)
		default:
			return nil
		}
	case "float":
		f, ok := v.Value.(float64)
		if !ok {
			return nil
		}
		return f
	case "text":
		s, ok := v.Value.(string)
		if !ok {
			return nil
		}
		return s
	case "blob":
		b, err := decodeBase64(v.Base64)
		if err != nil {
			return nil
		}
		return b
	default:
		return nil
	}
}

// decodeBase64 accepts both padded and unpadded standard base64, since
// client libraries differ on padding.
func decodeBase64(s string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(s)
}
