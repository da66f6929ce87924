package store

import (
	"sort"
	"strings"
	"sync"

	"github.com/mosaicnetworks/attest/src/common"
)

// InmemStore implements the Store interface with an in-memory map. Update
// transactions are serialised and their writes are buffered until the
// transaction function returns without error. Nothing survives a restart, so
// InmemStore is meant for tests and standalone deployments.
type InmemStore struct {
	sync.RWMutex
	data map[string][]byte
}

// NewInmemStore creates an empty InmemStore.
func NewInmemStore() *InmemStore {
	return &InmemStore{
		data: make(map[string][]byte),
	}
}

// View implements the Store interface.
func (s *InmemStore) View(fn func(tx Tx) error) error {
	s.RLock()
	defer s.RUnlock()

	return fn(&inmemTx{store: s})
}

// Update implements the Store interface.
func (s *InmemStore) Update(fn func(tx Tx) error) error {
	s.Lock()
	defer s.Unlock()

	tx := &inmemTx{
		store:    s,
		writable: true,
		pending:  make(map[string][]byte),
	}

	if err := fn(tx); err != nil {
		return err
	}

	for k, v := range tx.pending {
		s.data[k] = v
	}

	return nil
}

// Close implements the Store interface. It is a no-op.
func (s *InmemStore) Close() error {
	return nil
}

// StorePath implements the Store interface. InmemStore has no backing file.
func (s *InmemStore) StorePath() string {
	return ""
}

// Len returns the number of keys in the store.
func (s *InmemStore) Len() int {
	s.RLock()
	defer s.RUnlock()
	return len(s.data)
}

type inmemTx struct {
	store    *InmemStore
	writable bool
	pending  map[string][]byte
}

func (tx *inmemTx) Get(key []byte) ([]byte, error) {
	k := string(key)
	if v, ok := tx.pending[k]; ok {
		return copyBytes(v), nil
	}
	if v, ok := tx.store.data[k]; ok {
		return copyBytes(v), nil
	}
	return nil, common.NewStoreErr("Inmem", common.KeyNotFound, k)
}

func (tx *inmemTx) Set(key []byte, val []byte) error {
	if !tx.writable {
		return common.NewStoreErr("Inmem", common.ReadOnly, string(key))
	}
	tx.pending[string(key)] = copyBytes(val)
	return nil
}

func (tx *inmemTx) Has(key []byte) (bool, error) {
	k := string(key)
	if _, ok := tx.pending[k]; ok {
		return true, nil
	}
	_, ok := tx.store.data[k]
	return ok, nil
}

func (tx *inmemTx) Keys(prefix []byte) ([][]byte, error) {
	p := string(prefix)
	seen := make(map[string]bool)
	for k := range tx.store.data {
		if strings.HasPrefix(k, p) {
			seen[k] = true
		}
	}
	for k := range tx.pending {
		if strings.HasPrefix(k, p) {
			seen[k] = true
		}
	}

	sorted := make([]string, 0, len(seen))
	for k := range seen {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	res := make([][]byte, len(sorted))
	for i, k := range sorted {
		res[i] = []byte(k)
	}
	return res, nil
}

func copyBytes(b []byte) []byte {
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
