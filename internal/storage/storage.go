// Package storage defines the key-value capability the client session is kept in.
package storage

// Storage is a flat string key-value store. Reads never fail: an unreadable
// key is reported as absent.
type Storage interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Remove(key string) error
}

// Transactional is implemented by backends that can apply several writes atomically
type Transactional interface {
	Storage
	Atomically(fn func(tx Storage) error) error
}

// Apply runs fn inside a transaction when the backend supports one
func Apply(s Storage, fn func(tx Storage) error) error {
	if t, ok := s.(Transactional); ok {
		return t.Atomically(fn)
	}
	return fn(s)
}
