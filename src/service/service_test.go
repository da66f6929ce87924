package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mosaicnetworks/attest/src/adapter"
	"github.com/mosaicnetworks/attest/src/common"
	"github.com/mosaicnetworks/attest/src/crypto"
	"github.com/mosaicnetworks/attest/src/crypto/keys"
	"github.com/mosaicnetworks/attest/src/hashi"
	"github.com/mosaicnetworks/attest/src/metrics"
	"github.com/mosaicnetworks/attest/src/reporter"
	"github.com/mosaicnetworks/attest/src/snapshotter"
	"github.com/mosaicnetworks/attest/src/store"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

type testService struct {
	*Service
	relay *reporter.InmemRelay
	local *adapter.Adapter
}

func newTestService(t *testing.T) *testService {
	logger := common.NewTestEntry(t, logrus.DebugLevel)
	s := store.NewInmemStore()
	m := metrics.New()

	snap := snapshotter.NewSnapshotter(s, snapshotter.Config{
		Domain:    crypto.HashV([]byte("test-domain")),
		BatchSize: 2,
	}, nil, m, logger)
	require.NoError(t, snap.Init())

	hashes := adapter.NewHashStore(s, nil, m, logger)
	relay := reporter.NewInmemRelay()

	key, err := keys.GenerateECDSAKey()
	require.NoError(t, err)
	local := adapter.NewAdapter(&key.PublicKey, hashes)

	backend := Backend{
		Snapshotter: snap,
		Hashes:      hashes,
		Checker:     hashi.NewChecker(hashes, m, logger),
		Reporter:    reporter.NewReporter(snap, relay, m, logger),
		Adapter:     local,
		Metrics:     m,
	}

	return &testService{
		Service: NewService("127.0.0.1:0", backend, logger),
		relay:   relay,
		local:   local,
	}
}

func (s *testService) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	require.NoError(t, json.NewDecoder(rec.Body).Decode(v))
}

func account(i int) crypto.Hash {
	return crypto.HashV([]byte(fmt.Sprintf("account_%d", i)))
}

func TestSubscribeAndRoot(t *testing.T) {
	s := newTestService(t)

	for i := 0; i < 3; i++ {
		rec := s.do(t, http.MethodPost, "/subscribe", SubscribeRequest{Account: account(i)})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := s.do(t, http.MethodPost, "/subscribe", SubscribeRequest{Account: account(0)})
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodGet, "/batch/0", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var accounts []crypto.Hash
	decode(t, rec, &accounts)
	require.Equal(t, []crypto.Hash{account(0), account(1)}, accounts)

	rec = s.do(t, http.MethodPost, "/dispatch", nil)
	require.Equal(t, http.StatusConflict, rec.Code)

	batch0 := []snapshotter.AccountSnapshot{{Ref: account(0)}, {Ref: account(1)}}
	batch1 := []snapshotter.AccountSnapshot{{Ref: account(2), Data: []byte("data")}}

	rec = s.do(t, http.MethodPost, "/root/1", batch1)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "InvalidBatch")

	rec = s.do(t, http.MethodPost, "/root/0", batch0)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/root/1", batch1)
	require.Equal(t, http.StatusOK, rec.Code)

	var reg snapshotter.Registry
	decode(t, rec, &reg)
	require.True(t, reg.RootFinalized)
	require.Equal(t, uint64(1), reg.Nonce)

	rec = s.do(t, http.MethodPost, "/dispatch", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var res DispatchResponse
	decode(t, rec, &res)
	require.Equal(t, []string{"1"}, res.IDs)
	require.Equal(t, []crypto.Hash{reg.Root}, res.Hashes)
	require.Len(t, s.relay.Dispatched(), 1)
}

func TestRootBadParam(t *testing.T) {
	s := newTestService(t)

	rec := s.do(t, http.MethodPost, "/root/first", []snapshotter.AccountSnapshot{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRootBodyTooLarge(t *testing.T) {
	s := newTestService(t)

	body := "[" + strings.Repeat(" ", MaxBodyBytes) + "]"
	req := httptest.NewRequest(http.MethodPost, "/root/0", strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestDispatchHashes(t *testing.T) {
	s := newTestService(t)

	slot := crypto.HashV([]byte("slot_7"))

	rec := s.do(t, http.MethodPost, "/dispatch/hashes", DispatchHashesRequest{
		IDs:    []uint64{7},
		Hashes: []crypto.Hash{slot},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var res DispatchResponse
	decode(t, rec, &res)
	require.Equal(t, []string{"7"}, res.IDs)
	require.Equal(t, []crypto.Hash{slot}, res.Hashes)
	require.Len(t, s.relay.Dispatched(), 1)

	rec = s.do(t, http.MethodPost, "/dispatch/hashes", DispatchHashesRequest{
		IDs:    []uint64{7, 8},
		Hashes: []crypto.Hash{slot},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Len(t, s.relay.Dispatched(), 1)
}

func TestHashAndCheck(t *testing.T) {
	s := newTestService(t)

	domain := adapter.IDFromName("test-domain")
	id := adapter.IDFromName("test-id")
	agreed := crypto.HashV([]byte("agreed"))

	ids := []crypto.Hash{}
	for i := 1; i <= 3; i++ {
		a := adapter.IDFromName(fmt.Sprintf("mock-adapter-%d", i))
		ids = append(ids, a)

		h := agreed
		if i == 3 {
			h = crypto.HashV([]byte("other"))
		}

		rec := s.do(t, http.MethodPost, "/hash", StoreHashRequest{AdapterID: &a, Domain: domain, ID: id, Hash: h})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	// without adapter_id the local adapter reports
	rec := s.do(t, http.MethodPost, "/hash", StoreHashRequest{Domain: domain, ID: id, Hash: agreed})
	require.Equal(t, http.StatusOK, rec.Code)

	path := fmt.Sprintf("/hash/%s/%s/%s", s.local.ID.Hex(), domain.Hex(), id.Hex())
	rec = s.do(t, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var hr adapter.HashRecord
	decode(t, rec, &hr)
	require.Equal(t, agreed, hr.Hash)

	rec = s.do(t, http.MethodGet, fmt.Sprintf("/hash/%s/%s/%s", domain.Hex(), domain.Hex(), id.Hex()), nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, "/hash/0x01/0x02/0x03", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	ids = append(ids, s.local.ID)

	cases := []struct {
		threshold uint64
		status    int
		met       bool
	}{
		{3, http.StatusOK, true},
		{4, http.StatusOK, false},
		{5, http.StatusBadRequest, false},
	}

	for _, c := range cases {
		rec := s.do(t, http.MethodPost, "/check", CheckRequest{AdapterIDs: ids, Domain: domain, ID: id, Threshold: c.threshold})
		require.Equal(t, c.status, rec.Code, "threshold %d", c.threshold)
		if c.status == http.StatusOK {
			var res CheckResponse
			decode(t, rec, &res)
			require.Equal(t, c.met, res.Met, "threshold %d", c.threshold)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestService(t)

	s.do(t, http.MethodPost, "/subscribe", SubscribeRequest{Account: account(0)})

	rec := s.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), "attest_subscribed_accounts 1"))
}
