// Package hashi decides whether enough independent adapters agree on the hash
// of a (domain, id) subject.
package hashi

import (
	"fmt"

	"github.com/mosaicnetworks/attest/src/adapter"
	"github.com/mosaicnetworks/attest/src/crypto"
	"github.com/mosaicnetworks/attest/src/metrics"
	"github.com/sirupsen/logrus"
)

// CheckThreshold verifies that records, one per adapter in adapterIDs and in
// the same order, all refer to (domain, id), and that at least threshold of
// them carry the same hash. It returns nil if the threshold is met. The
// agreed hash is not returned; use Tally to obtain it.
func CheckThreshold(adapterIDs []crypto.Hash, domain, id crypto.Hash, threshold uint64, records []adapter.HashRecord) error {
	if threshold > uint64(len(records)) {
		return fmt.Errorf("%w: %d of %d", ErrInvalidThreshold, threshold, len(records))
	}

	if len(records) == 0 {
		return ErrNoAccountsProvided
	}

	if len(adapterIDs) != len(records) {
		return fmt.Errorf("%w: %d ids for %d records", ErrInvalidAdapterIdsLength, len(adapterIDs), len(records))
	}

	for i, r := range records {
		if r.AdapterID != adapterIDs[i] {
			return fmt.Errorf("%w: record %d", ErrInvalidAdapterId, i)
		}
		if r.Domain != domain {
			return fmt.Errorf("%w: record %d", ErrInvalidDomain, i)
		}
		if r.ID != id {
			return fmt.Errorf("%w: record %d", ErrInvalidId, i)
		}
	}

	count := maxCount(Tally(records))
	if count < threshold {
		return fmt.Errorf("%w: %d of %d", ErrThresholdNotMet, count, threshold)
	}

	return nil
}

// Tally counts the records reporting each distinct hash.
func Tally(records []adapter.HashRecord) map[crypto.Hash]uint64 {
	res := make(map[crypto.Hash]uint64)
	for _, r := range records {
		res[r.Hash]++
	}
	return res
}

func maxCount(tally map[crypto.Hash]uint64) uint64 {
	var res uint64
	for _, c := range tally {
		if c > res {
			res = c
		}
	}
	return res
}

// Checker runs CheckThreshold against the records of a HashStore.
type Checker struct {
	hashes  *adapter.HashStore
	metrics *metrics.Metrics
	logger  *logrus.Entry
}

// NewChecker ...
func NewChecker(hashes *adapter.HashStore, m *metrics.Metrics, logger *logrus.Entry) *Checker {
	return &Checker{
		hashes:  hashes,
		metrics: m,
		logger:  logger,
	}
}

// Check loads the record of every adapter in adapterIDs for (domain, id) and
// verifies the threshold. A missing record fails the check with the store
// error.
func (c *Checker) Check(adapterIDs []crypto.Hash, domain, id crypto.Hash, threshold uint64) error {
	records, err := c.hashes.Records(adapterIDs, domain, id)
	if err != nil {
		return err
	}

	err = CheckThreshold(adapterIDs, domain, id, threshold, records)

	c.metrics.ThresholdChecked(err == nil)

	c.logger.WithFields(logrus.Fields{
		"domain":    domain.Hex(),
		"id":        id.Hex(),
		"adapters":  len(adapterIDs),
		"threshold": threshold,
		"met":       err == nil,
	}).Debug("Checked threshold")

	return err
}
