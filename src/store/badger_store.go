package store

import (
	"errors"

	"github.com/dgraph-io/badger"
	"github.com/mosaicnetworks/attest/src/common"
	"github.com/sirupsen/logrus"
)

// BadgerStore implements the Store interface on top of a Badger key-value
// database. Store transactions map one-to-one onto Badger transactions.
type BadgerStore struct {
	db   *badger.DB
	path string
}

// NewBadgerStore opens an existing database or creates a new one if nothing is
// found in path.
func NewBadgerStore(path string, logger *logrus.Entry) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).
		WithSyncWrites(false)

	if logger != nil {
		opts = opts.WithLogger(logger.WithFields(logrus.Fields{"ns": "badger"}))
	}

	handle, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &BadgerStore{
		db:   handle,
		path: path,
	}, nil
}

// View implements the Store interface.
func (s *BadgerStore) View(fn func(tx Tx) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		return fn(&badgerTx{txn: txn})
	})
}

// Update implements the Store interface. A conflict with a concurrent
// transaction is reported as a Conflict StoreErr and nothing is written.
func (s *BadgerStore) Update(fn func(tx Tx) error) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return fn(&badgerTx{txn: txn})
	})
	if errors.Is(err, badger.ErrConflict) {
		return common.NewStoreErr("Badger", common.Conflict, "")
	}
	return err
}

// Close implements the Store interface.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// StorePath implements the Store interface.
func (s *BadgerStore) StorePath() string {
	return s.path
}

type badgerTx struct {
	txn *badger.Txn
}

func (tx *badgerTx) Get(key []byte) ([]byte, error) {
	item, err := tx.txn.Get(key)
	if err != nil {
		return nil, mapError(err, "Badger", string(key))
	}
	return item.ValueCopy(nil)
}

func (tx *badgerTx) Set(key []byte, val []byte) error {
	err := tx.txn.Set(key, val)
	if errors.Is(err, badger.ErrReadOnlyTxn) {
		return common.NewStoreErr("Badger", common.ReadOnly, string(key))
	}
	return err
}

func (tx *badgerTx) Has(key []byte) (bool, error) {
	_, err := tx.txn.Get(key)
	if err == nil {
		return true, nil
	}
	if isDBKeyNotFound(err) {
		return false, nil
	}
	return false, err
}

func (tx *badgerTx) Keys(prefix []byte) ([][]byte, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false

	it := tx.txn.NewIterator(opts)
	defer it.Close()

	res := [][]byte{}
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		res = append(res, it.Item().KeyCopy(nil))
	}
	return res, nil
}

//++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++

func isDBKeyNotFound(err error) bool {
	return errors.Is(err, badger.ErrKeyNotFound)
}

func mapError(err error, name, key string) error {
	if err != nil {
		if isDBKeyNotFound(err) {
			return common.NewStoreErr(name, common.KeyNotFound, key)
		}
	}
	return err
}
