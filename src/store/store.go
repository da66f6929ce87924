package store

// Store is an interface for backend stores.
type Store interface {
	// View runs fn inside a read-only transaction.
	View(fn func(tx Tx) error) error
	// Update runs fn inside a read-write transaction. Writes are only visible
	// to other transactions if fn returns nil.
	Update(fn func(tx Tx) error) error
	// Close closes the underlying database.
	Close() error
	// StorePath returns the filepath of the underlying database.
	StorePath() string
}

// Tx is a store transaction.
type Tx interface {
	// Get returns the value stored under key, or a KeyNotFound StoreErr.
	Get(key []byte) ([]byte, error)
	// Set stores val under key, overwriting any previous value.
	Set(key []byte, val []byte) error
	// Has reports whether key exists.
	Has(key []byte) (bool, error)
	// Keys returns all the keys starting with prefix, in lexicographic order.
	Keys(prefix []byte) ([][]byte, error)
}
