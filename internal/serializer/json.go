package serializer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/ASHISH26940/kvstore/internal/store"
)

// JSON encodes a mapping as a single JSON object.
type JSON struct{}

var _ Codec = JSON{}

// NewJSON returns a JSON serializer.
func NewJSON() JSON { return JSON{} }

// Serialize writes items as one JSON object, keys in the given order.
func (JSON) Serialize(items []store.Item) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, it := range items {
		if i > 0 {
			buf.WriteByte(',')
		}
		if !utf8.ValidString(it.Key) {
			return nil, fmt.Errorf("%w: key %q is not valid UTF-8", store.ErrSerialization, it.Key)
		}
		if err := checkUTF8(it.Value); err != nil {
			return nil, fmt.Errorf("%w: value of %q: %w", store.ErrSerialization, it.Key, err)
		}
		k, err := json.Marshal(it.Key)
		if err != nil {
			return nil, fmt.Errorf("%w: key %q: %w", store.ErrSerialization, it.Key, err)
		}
		v, err := json.Marshal(it.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to serialize value of %q to json: %w", store.ErrSerialization, it.Key, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Deserialize parses a JSON object into items in document order.
// A key that appears twice keeps its first position and its last value.
func (JSON) Deserialize(data []byte) ([]store.Item, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}

	var items []store.Item
	index := make(map[string]int)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, decodeErr(err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("%w: expected object key, got %v", store.ErrSerialization, tok)
		}

		var value any
		if err := dec.Decode(&value); err != nil {
			return nil, decodeErr(err)
		}

		if i, seen := index[key]; seen {
			items[i].Value = value
			continue
		}
		index[key] = len(items)
		items = append(items, store.Item{Key: key, Value: value})
	}

	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after json object", store.ErrSerialization)
	}
	if items == nil {
		items = []store.Item{}
	}
	return items, nil
}

// Marshal encodes a single value.
func (JSON) Marshal(value any) ([]byte, error) {
	if err := checkUTF8(value); err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrSerialization, err)
	}
	b, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to serialize value to json: %w", store.ErrSerialization, err)
	}
	return b, nil
}

// Unmarshal decodes a single value.
func (JSON) Unmarshal(data []byte) (any, error) {
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, decodeErr(err)
	}
	return value, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return decodeErr(err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("%w: expected %q, got %v", store.ErrSerialization, want, tok)
	}
	return nil
}

func decodeErr(err error) error {
	return fmt.Errorf("%w: failed to deserialize json data: %w", store.ErrSerialization, err)
}

// checkUTF8 rejects strings that encoding/json would silently rewrite to
// U+FFFD, which would make distinct keys or values collide on reload.
func checkUTF8(value any) error {
	switch v := value.(type) {
	case string:
		if !utf8.ValidString(v) {
			return fmt.Errorf("string %q is not valid UTF-8", v)
		}
	case []string:
		for _, elem := range v {
			if err := checkUTF8(elem); err != nil {
				return err
			}
		}
	case []any:
		for _, elem := range v {
			if err := checkUTF8(elem); err != nil {
				return err
			}
		}
	case map[string]any:
		for k, elem := range v {
			if !utf8.ValidString(k) {
				return fmt.Errorf("map key %q is not valid UTF-8", k)
			}
			if err := checkUTF8(elem); err != nil {
				return err
			}
		}
	}
	return nil
}
