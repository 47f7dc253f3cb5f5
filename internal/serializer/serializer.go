// Package serializer provides the formats used to persist a store's mapping.
//
// Every serializer keeps the mapping's order: Serialize writes items in the
// order given and Deserialize returns them in document order. Nested objects
// decode to map[string]any and lose their key order.
package serializer

import (
	"fmt"

	"github.com/ASHISH26940/kvstore/internal/store"
)

const (
	// FormatJSON names the JSON serializer.
	FormatJSON = "json"
	// FormatYAML names the YAML serializer.
	FormatYAML = "yaml"
)

// Codec is a whole-mapping serializer that can also encode single values.
type Codec interface {
	store.Serializer
	store.ValueCodec
}

// New returns the serializer registered under format.
func New(format string) (Codec, error) {
	switch format {
	case FormatJSON:
		return NewJSON(), nil
	case FormatYAML:
		return NewYAML(), nil
	default:
		return nil, fmt.Errorf("unknown serializer %q; valid values are: %q, %q", format, FormatJSON, FormatYAML)
	}
}
