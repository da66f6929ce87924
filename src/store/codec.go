package store

import (
	"bytes"

	"github.com/mosaicnetworks/attest/src/common"
	"github.com/ugorji/go/codec"
)

// Marshal encodes a record with the canonical json handle so that equal records
// always produce equal bytes.
func Marshal(rec interface{}) ([]byte, error) {
	b := new(bytes.Buffer)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	enc := codec.NewEncoder(b, jh)

	if err := enc.Encode(rec); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

// Unmarshal decodes data produced by Marshal into rec.
func Unmarshal(data []byte, rec interface{}) error {
	b := bytes.NewBuffer(data)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	dec := codec.NewDecoder(b, jh)

	return dec.Decode(rec)
}

// GetRecord reads the record stored under key into rec. name is only used to
// build the error returned when the key does not exist.
func GetRecord(tx Tx, name string, key []byte, rec interface{}) error {
	data, err := tx.Get(key)
	if err != nil {
		if common.IsStore(err, common.KeyNotFound) {
			return common.NewStoreErr(name, common.KeyNotFound, string(key))
		}
		return err
	}
	return Unmarshal(data, rec)
}

// SetRecord writes rec under key, overwriting any previous value.
func SetRecord(tx Tx, key []byte, rec interface{}) error {
	val, err := Marshal(rec)
	if err != nil {
		return err
	}
	return tx.Set(key, val)
}

// CreateRecord writes rec under key unless the key already exists, in which
// case it returns a KeyAlreadyExists StoreErr.
func CreateRecord(tx Tx, name string, key []byte, rec interface{}) error {
	ok, err := tx.Has(key)
	if err != nil {
		return err
	}
	if ok {
		return common.NewStoreErr(name, common.KeyAlreadyExists, string(key))
	}
	return SetRecord(tx, key, rec)
}
