package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical encodes v as canonical JSON: no whitespace, object keys in
// UTF-16 order, strings NFC-normalized with only the escapes JSON requires.
// Fingerprints and journaled root lists are encoded this way, so equal values
// always produce equal bytes.
func MarshalCanonical(v IRValue) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v IRValue) error {
	switch val := v.(type) {
	case IRNull:
		buf.WriteString("null")
	case IRBool:
		buf.WriteString(strconv.FormatBool(bool(val)))
	case IRInt:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case IRString:
		writeCanonicalString(buf, string(val))
	case IRArray:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, elem); err != nil {
				return fmt.Errorf("[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case IRObject:
		buf.WriteByte('{')
		for i, k := range val.SortedKeys() {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeCanonicalString(buf, k)
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k]); err != nil {
				return fmt.Errorf("%q: %w", k, err)
			}
		}
		buf.WriteByte('}')
	default:
		// A nil value is an omission, never something to hash.
		return fmt.Errorf("canonical JSON: unsupported value %T", v)
	}
	return nil
}

// writeCanonicalString leaves <, > and & unescaped.
func writeCanonicalString(buf *bytes.Buffer, s string) {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	// Encoding a string cannot fail.
	_ = enc.Encode(norm.NFC.String(s))
	buf.Truncate(buf.Len() - 1) // trailing newline from Encode
}
