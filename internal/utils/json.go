package utils

import (
	"bytes"
	"encoding/json"
)

var sseDataPrefix = []byte("data: ")

// MarshalNoEscape marshals JSON without HTML escaping, so model output such
// as "<b>" or "a & b" reaches the client byte for byte.
func MarshalNoEscape(v any) ([]byte, error) {
	buf, err := encodeNoEscape(nil, v)
	if err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}

// SSEData renders v as a single server-sent event: "data: <json>\n\n".
func SSEData(v any) ([]byte, error) {
	buf, err := encodeNoEscape(sseDataPrefix, v)
	if err != nil {
		return nil, err
	}
	// Encode already terminated the JSON with one newline.
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func encodeNoEscape(prefix []byte, v any) (*bytes.Buffer, error) {
	buf := bytes.NewBuffer(make([]byte, 0, 128))
	buf.Write(prefix)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf, nil
}
