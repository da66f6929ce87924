// Package adapter stores the hashes reported by independent adapters.
package adapter

import (
	"crypto/ecdsa"

	"github.com/mosaicnetworks/attest/src/crypto"
	"github.com/mosaicnetworks/attest/src/crypto/keys"
	"github.com/mosaicnetworks/attest/src/events"
	"github.com/mosaicnetworks/attest/src/metrics"
	"github.com/mosaicnetworks/attest/src/store"
	"github.com/sirupsen/logrus"
)

// HashStore reads and writes HashRecords.
type HashStore struct {
	store   store.Store
	sink    events.Sink
	metrics *metrics.Metrics
	logger  *logrus.Entry
}

// NewHashStore ...
func NewHashStore(s store.Store, sink events.Sink, m *metrics.Metrics, logger *logrus.Entry) *HashStore {
	if sink == nil {
		sink = events.NopSink{}
	}
	return &HashStore{
		store:   s,
		sink:    sink,
		metrics: m,
		logger:  logger,
	}
}

// StoreHash writes the hash reported by adapterID for (domain, id), replacing
// any previous report, and emits a HashStored event once committed.
func (hs *HashStore) StoreHash(adapterID, domain, id, hash crypto.Hash) error {
	rec := HashRecord{
		AdapterID: adapterID,
		Domain:    domain,
		ID:        id,
		Hash:      hash,
	}

	err := hs.store.Update(func(tx store.Tx) error {
		return store.SetRecord(tx, rec.Key(), &rec)
	})
	if err != nil {
		return err
	}

	hs.metrics.HashStored()

	ev := events.HashStored{
		AdapterID: adapterID,
		Domain:    domain,
		ID:        id,
		Hash:      hash,
	}

	hs.logger.WithFields(ev.Fields()).Debug("Stored hash")

	hs.sink.Emit(ev)

	return nil
}

// GetHash returns the record of adapterID for (domain, id).
func (hs *HashStore) GetHash(adapterID, domain, id crypto.Hash) (*HashRecord, error) {
	rec := &HashRecord{}
	err := hs.store.View(func(tx store.Tx) error {
		return store.GetRecord(tx, "HashRecord", HashRecordKey(adapterID, domain, id), rec)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Records returns the records of every adapter in adapterIDs for (domain, id),
// in the same order, from a single consistent view. It fails if any of them
// is missing.
func (hs *HashStore) Records(adapterIDs []crypto.Hash, domain, id crypto.Hash) ([]HashRecord, error) {
	res := make([]HashRecord, len(adapterIDs))
	err := hs.store.View(func(tx store.Tx) error {
		for i, a := range adapterIDs {
			if err := store.GetRecord(tx, "HashRecord", HashRecordKey(a, domain, id), &res[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// AdapterRecords returns every record written by adapterID, ordered by key.
func (hs *HashStore) AdapterRecords(adapterID crypto.Hash) ([]HashRecord, error) {
	res := []HashRecord{}
	err := hs.store.View(func(tx store.Tx) error {
		prefix := append(store.DeriveKey(HashRecordPrefix, adapterID[:]), '_')
		keys, err := tx.Keys(prefix)
		if err != nil {
			return err
		}
		for _, k := range keys {
			var rec HashRecord
			if err := store.GetRecord(tx, "HashRecord", k, &rec); err != nil {
				return err
			}
			res = append(res, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Adapter is an adapter identified by its public key.
type Adapter struct {
	ID    crypto.Hash
	store *HashStore
}

// NewAdapter returns the adapter whose id is derived from pub.
func NewAdapter(pub *ecdsa.PublicKey, hs *HashStore) *Adapter {
	return &Adapter{
		ID:    keys.AdapterID(pub),
		store: hs,
	}
}

// Report stores hash as this adapter's view of (domain, id).
func (a *Adapter) Report(domain, id, hash crypto.Hash) error {
	return a.store.StoreHash(a.ID, domain, id, hash)
}
