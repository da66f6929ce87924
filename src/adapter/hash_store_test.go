package adapter

import (
	"testing"

	"github.com/mosaicnetworks/attest/src/common"
	"github.com/mosaicnetworks/attest/src/crypto"
	"github.com/mosaicnetworks/attest/src/crypto/keys"
	"github.com/mosaicnetworks/attest/src/events"
	"github.com/mosaicnetworks/attest/src/metrics"
	"github.com/mosaicnetworks/attest/src/store"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
)

var (
	domain = IDFromName("test-domain")
	id     = IDFromName("test-id")
)

func initHashStore(t *testing.T, sink events.Sink, m *metrics.Metrics) (*HashStore, *store.InmemStore) {
	s := store.NewInmemStore()
	return NewHashStore(s, sink, m, common.NewTestEntry(t, logrus.DebugLevel)), s
}

func TestStoreHash(t *testing.T) {
	feed := events.NewFeed()
	ch, unsub := feed.Subscribe(4)
	defer unsub()

	m := metrics.New()
	hs, _ := initHashStore(t, feed, m)

	adapterID := IDFromName("mock-adapter-1")
	hash := crypto.HashV([]byte("hash"))

	if err := hs.StoreHash(adapterID, domain, id, hash); err != nil {
		t.Fatal(err)
	}

	rec, err := hs.GetHash(adapterID, domain, id)
	if err != nil {
		t.Fatal(err)
	}
	expected := HashRecord{AdapterID: adapterID, Domain: domain, ID: id, Hash: hash}
	if *rec != expected {
		t.Fatalf("record should be %+v, not %+v", expected, *rec)
	}

	select {
	case ev := <-ch:
		hsEv, ok := ev.(events.HashStored)
		if !ok {
			t.Fatalf("expected HashStored, got %T", ev)
		}
		if hsEv.AdapterID != adapterID || hsEv.Domain != domain || hsEv.ID != id || hsEv.Hash != hash {
			t.Fatalf("unexpected event %+v", hsEv)
		}
	default:
		t.Fatalf("no event emitted")
	}

	if v := testutil.ToFloat64(m.HashesStored); v != 1 {
		t.Fatalf("hashes_stored_total should be 1, not %v", v)
	}
}

func TestStoreHashOverwrite(t *testing.T) {
	hs, s := initHashStore(t, nil, nil)

	adapterID := IDFromName("mock-adapter-1")
	first := crypto.HashV([]byte("first"))
	second := crypto.HashV([]byte("second"))

	hs.StoreHash(adapterID, domain, id, first)
	if err := hs.StoreHash(adapterID, domain, id, second); err != nil {
		t.Fatal(err)
	}

	rec, err := hs.GetHash(adapterID, domain, id)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Hash != second {
		t.Fatalf("last write should win")
	}

	if s.Len() != 1 {
		t.Fatalf("store should contain 1 record, not %d", s.Len())
	}
}

func TestGetHashNotFound(t *testing.T) {
	hs, _ := initHashStore(t, nil, nil)

	_, err := hs.GetHash(IDFromName("nobody"), domain, id)
	if !common.IsStore(err, common.KeyNotFound) {
		t.Fatalf("expected KeyNotFound, got %v", err)
	}
}

func TestRecords(t *testing.T) {
	hs, _ := initHashStore(t, nil, nil)

	adapterIDs := []crypto.Hash{}
	for i, name := range []string{"mock-adapter-1", "mock-adapter-2", "mock-adapter-3"} {
		a := IDFromName(name)
		adapterIDs = append(adapterIDs, a)
		hs.StoreHash(a, domain, id, crypto.HashV([]byte{byte(i)}))
	}

	// reversed order is preserved
	reversed := []crypto.Hash{adapterIDs[2], adapterIDs[1], adapterIDs[0]}
	recs, err := hs.Records(reversed, domain, id)
	if err != nil {
		t.Fatal(err)
	}
	for i := range recs {
		if recs[i].AdapterID != reversed[i] {
			t.Fatalf("record %d should belong to %s", i, reversed[i])
		}
	}

	_, err = hs.Records(append(adapterIDs, IDFromName("mock-adapter-4")), domain, id)
	if !common.IsStore(err, common.KeyNotFound) {
		t.Fatalf("expected KeyNotFound, got %v", err)
	}
}

func TestAdapterRecords(t *testing.T) {
	hs, _ := initHashStore(t, nil, nil)

	a := IDFromName("mock-adapter-1")
	b := IDFromName("mock-adapter-2")

	for i := 0; i < 3; i++ {
		hs.StoreHash(a, domain, crypto.HashV([]byte{byte(i)}), crypto.HashV([]byte("hash")))
	}
	hs.StoreHash(b, domain, id, crypto.HashV([]byte("hash")))

	recs, err := hs.AdapterRecords(a)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 3 {
		t.Fatalf("adapter should have 3 records, not %d", len(recs))
	}
	for _, r := range recs {
		if r.AdapterID != a {
			t.Fatalf("record of another adapter returned")
		}
	}
}

func TestAdapterReport(t *testing.T) {
	hs, _ := initHashStore(t, nil, nil)

	key, err := keys.GenerateECDSAKey()
	if err != nil {
		t.Fatal(err)
	}

	a := NewAdapter(&key.PublicKey, hs)
	if a.ID != keys.AdapterID(&key.PublicKey) {
		t.Fatalf("adapter id should be derived from the public key")
	}

	hash := crypto.HashV([]byte("hash"))
	if err := a.Report(domain, id, hash); err != nil {
		t.Fatal(err)
	}

	rec, err := hs.GetHash(a.ID, domain, id)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Hash != hash {
		t.Fatalf("reported hash not stored")
	}
}
