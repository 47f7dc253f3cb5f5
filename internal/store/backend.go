package store

// Item is a single key-value pair returned by Items.
type Item struct {
	Key   string
	Value any
}

// Backend is the storage contract shared by every key-value backend.
// Callers depend on Backend so memory, file and bolt variants can be
// swapped without changing them.
//
// Keys and Items return fresh slices in first-insertion order; overwriting
// an existing key keeps its position. Only Get fails for a missing key.
// Get returns a value equal to the one last Put; a durable backend whose
// format cannot carry a value unchanged refuses the Put with ErrSerialization
// and stores nothing.
type Backend interface {
	Get(key string) (any, error)
	Put(key string, value any) error
	Delete(key string) (bool, error)
	Contains(key string) (bool, error)
	Clear() error
	Keys() ([]string, error)
	Items() ([]Item, error)
	Size() (int, error)
}

// Serializer converts a complete, ordered mapping to and from bytes.
// Failures wrap ErrSerialization.
type Serializer interface {
	Serialize(items []Item) ([]byte, error)
	Deserialize(data []byte) ([]Item, error)
}

// ValueCodec encodes a single value. Backends that persist entries one at a
// time (BoltStore) use it instead of whole-mapping serialization.
type ValueCodec interface {
	Marshal(value any) ([]byte, error)
	Unmarshal(data []byte) (any, error)
}
