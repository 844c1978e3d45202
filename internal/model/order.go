package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Stream declaration order is semantic: target resolution applies streams in
// the order they were declared, last wins. encoding/json drops object key
// order on both ends, so Snapcast carries its own codecs. Decoding recovers
// the order with a token-level scan; encoding writes the streams object back
// in that order so the precedence contract survives a save and reload cycle.

// UnmarshalJSON decodes the snapcast section and captures the declaration
// order of its streams keys.
func (sc *Snapcast) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	type plain Snapcast
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	order, err := objectKeyOrder(data, "streams")
	if err != nil {
		return fmt.Errorf("scan stream order: %w", err)
	}
	*sc = Snapcast(p)
	sc.order = order
	return nil
}

// MarshalJSON writes the streams object in declaration order. Map iteration
// order would do for the rest; stream_targets goes through the default
// (sorted) encoder.
func (sc Snapcast) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"streams":{`)
	for i, id := range sc.StreamIDs() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(id)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(sc.Streams[id])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteString(`},"stream_targets":`)
	targets, err := json.Marshal(sc.StreamTargets)
	if err != nil {
		return nil, err
	}
	buf.Write(targets)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// objectKeyOrder extracts the key declaration order of the named object
// member from raw object JSON. Returns nil when the member is absent or not
// an object; the regular unmarshal reports those as type errors.
func objectKeyOrder(data []byte, member string) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}
	for dec.More() {
		key, err := stringToken(dec)
		if err != nil {
			return nil, err
		}
		if key != member {
			if err := skipValue(dec); err != nil {
				return nil, err
			}
			continue
		}
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		if tok != json.Delim('{') {
			return nil, nil
		}
		var order []string
		for dec.More() {
			id, err := stringToken(dec)
			if err != nil {
				return nil, err
			}
			order = append(order, id)
			if err := skipValue(dec); err != nil {
				return nil, err
			}
		}
		return order, nil
	}
	return nil, nil
}

func expectDelim(dec *json.Decoder, d rune) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok != json.Delim(d) {
		return fmt.Errorf("unexpected token %v, want %q", tok, d)
	}
	return nil
}

func stringToken(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	s, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("unexpected token %v, want object key", tok)
	}
	return s, nil
}

// skipValue consumes one complete JSON value from the decoder.
func skipValue(dec *json.Decoder) error {
	depth := 0
	for {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		switch tok {
		case json.Delim('{'), json.Delim('['):
			depth++
		case json.Delim('}'), json.Delim(']'):
			depth--
		}
		if depth == 0 {
			return nil
		}
	}
}
