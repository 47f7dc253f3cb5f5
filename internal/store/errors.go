package store

import "errors"

var (
	// ErrKeyNotFound is returned by Get when the key is absent.
	ErrKeyNotFound = errors.New("key not found")
	// ErrStorage indicates a backend I/O failure.
	ErrStorage = errors.New("storage failure")
	// ErrSerialization indicates a serializer could not encode or decode data.
	ErrSerialization = errors.New("serialization failure")
	// ErrConcurrency is reserved for optimistic concurrency conflicts.
	ErrConcurrency = errors.New("concurrency conflict")
	// ErrTransaction is reserved for transaction failures.
	ErrTransaction = errors.New("transaction failure")
)

// Kind returns the taxonomy name of err, or "" when err is nil or unknown.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrKeyNotFound):
		return "KeyNotFound"
	case errors.Is(err, ErrSerialization):
		return "SerializationError"
	case errors.Is(err, ErrStorage):
		return "StorageError"
	case errors.Is(err, ErrConcurrency):
		return "ConcurrencyError"
	case errors.Is(err, ErrTransaction):
		return "TransactionError"
	default:
		return ""
	}
}
