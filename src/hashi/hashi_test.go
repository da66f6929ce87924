package hashi

import (
	"fmt"
	"testing"

	"github.com/mosaicnetworks/attest/src/adapter"
	"github.com/mosaicnetworks/attest/src/common"
	"github.com/mosaicnetworks/attest/src/crypto"
	"github.com/mosaicnetworks/attest/src/metrics"
	"github.com/mosaicnetworks/attest/src/store"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

var (
	domain = adapter.IDFromName("test-domain")
	id     = adapter.IDFromName("test-id")
	hashA  = crypto.HashV([]byte("hash-a"))
	hashB  = crypto.HashV([]byte("hash-b"))
)

func adapterIDs(n int) []crypto.Hash {
	res := make([]crypto.Hash, n)
	for i := range res {
		res[i] = adapter.IDFromName(fmt.Sprintf("mock-adapter-%d", i+1))
	}
	return res
}

// records returns one record per adapter, the first agree of them reporting
// hashA and the others hashB.
func records(ids []crypto.Hash, agree int) []adapter.HashRecord {
	res := make([]adapter.HashRecord, len(ids))
	for i, a := range ids {
		h := hashB
		if i < agree {
			h = hashA
		}
		res[i] = adapter.HashRecord{AdapterID: a, Domain: domain, ID: id, Hash: h}
	}
	return res
}

func TestCheckThreshold(t *testing.T) {
	ids := adapterIDs(5)
	recs := records(ids, 3)

	require.NoError(t, CheckThreshold(ids, domain, id, 3, recs))
	require.NoError(t, CheckThreshold(ids, domain, id, 1, recs))
	require.ErrorIs(t, CheckThreshold(ids, domain, id, 4, recs), ErrThresholdNotMet)
	require.ErrorIs(t, CheckThreshold(ids, domain, id, 6, recs), ErrInvalidThreshold)
}

func TestCheckThresholdUnanimous(t *testing.T) {
	ids := adapterIDs(3)
	require.NoError(t, CheckThreshold(ids, domain, id, 3, records(ids, 3)))
}

func TestCheckThresholdErrors(t *testing.T) {
	ids := adapterIDs(3)

	wrongAdapter := records(ids, 3)
	wrongAdapter[1].AdapterID = adapter.IDFromName("mock-adapter-9")

	wrongDomain := records(ids, 3)
	wrongDomain[2].Domain = adapter.IDFromName("other-domain")

	wrongID := records(ids, 3)
	wrongID[0].ID = adapter.IDFromName("other-id")

	swapped := records(ids, 3)
	swapped[0], swapped[1] = swapped[1], swapped[0]

	cases := []struct {
		name      string
		ids       []crypto.Hash
		threshold uint64
		records   []adapter.HashRecord
		err       error
	}{
		{"threshold above records", ids, 4, records(ids, 3), ErrInvalidThreshold},
		{"no records", ids, 0, nil, ErrNoAccountsProvided},
		{"more ids than records", ids, 2, records(ids[:2], 2), ErrInvalidAdapterIdsLength},
		{"fewer ids than records", ids[:2], 2, records(ids, 3), ErrInvalidAdapterIdsLength},
		{"wrong adapter", ids, 2, wrongAdapter, ErrInvalidAdapterId},
		{"records out of order", ids, 2, swapped, ErrInvalidAdapterId},
		{"wrong domain", ids, 2, wrongDomain, ErrInvalidDomain},
		{"wrong id", ids, 2, wrongID, ErrInvalidId},
		// threshold is checked before the number of records
		{"empty with threshold", ids, 1, nil, ErrInvalidThreshold},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			require.ErrorIs(t, CheckThreshold(c.ids, domain, id, c.threshold, c.records), c.err)
		})
	}
}

func TestCheckThresholdZero(t *testing.T) {
	ids := adapterIDs(2)
	require.NoError(t, CheckThreshold(ids, domain, id, 0, records(ids, 1)))
}

func TestCheckThresholdTie(t *testing.T) {
	ids := adapterIDs(4)
	recs := records(ids, 2)

	require.NoError(t, CheckThreshold(ids, domain, id, 2, recs))
	require.ErrorIs(t, CheckThreshold(ids, domain, id, 3, recs), ErrThresholdNotMet)
}

func TestTally(t *testing.T) {
	tally := Tally(records(adapterIDs(5), 3))

	require.Len(t, tally, 2)
	require.Equal(t, uint64(3), tally[hashA])
	require.Equal(t, uint64(2), tally[hashB])
}

func TestChecker(t *testing.T) {
	logger := common.NewTestEntry(t, logrus.DebugLevel)
	m := metrics.New()

	hs := adapter.NewHashStore(store.NewInmemStore(), nil, m, logger)
	checker := NewChecker(hs, m, logger)

	ids := adapterIDs(5)
	for _, r := range records(ids, 3) {
		require.NoError(t, hs.StoreHash(r.AdapterID, r.Domain, r.ID, r.Hash))
	}

	require.NoError(t, checker.Check(ids, domain, id, 3))
	require.ErrorIs(t, checker.Check(ids, domain, id, 4), ErrThresholdNotMet)

	// an adapter that never reported
	err := checker.Check(append(ids, adapter.IDFromName("mock-adapter-6")), domain, id, 3)
	require.True(t, common.IsStore(err, common.KeyNotFound))

	// an adapter changing its mind
	require.NoError(t, hs.StoreHash(ids[4], domain, id, hashA))
	require.NoError(t, checker.Check(ids, domain, id, 4))

	require.Equal(t, 2.0, testutil.ToFloat64(m.ThresholdChecks.WithLabelValues("met")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.ThresholdChecks.WithLabelValues("rejected")))
}
