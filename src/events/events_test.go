package events

import (
	"testing"
	"time"

	"github.com/gammazero/nexus/v3/wamp"
	"github.com/mosaicnetworks/attest/src/common"
	"github.com/mosaicnetworks/attest/src/crypto"
	"github.com/sirupsen/logrus"
)

func hashStored() HashStored {
	return HashStored{
		AdapterID: crypto.HashV([]byte("mock-adapter-1")),
		Domain:    crypto.Hash{31: 1},
		ID:        crypto.Hash{31: 2},
		Hash:      crypto.HashV([]byte("value")),
	}
}

func TestFeed(t *testing.T) {
	feed := NewFeed()

	ch1, cancel1 := feed.Subscribe(1)
	ch2, cancel2 := feed.Subscribe(1)
	defer cancel2()

	ev := hashStored()
	feed.Emit(ev)

	for i, ch := range []<-chan Event{ch1, ch2} {
		select {
		case got := <-ch:
			if got != Event(ev) {
				t.Fatalf("subscriber %d received %#v", i, got)
			}
		default:
			t.Fatalf("subscriber %d did not receive the event", i)
		}
	}

	cancel1()
	cancel1()
	if _, ok := <-ch1; ok {
		t.Fatalf("cancelled subscription should be closed")
	}

	// a full buffer drops the event instead of blocking
	feed.Emit(ev)
	feed.Emit(ev)
	if len(ch2) != 1 {
		t.Fatalf("subscriber buffer should hold 1 event, not %d", len(ch2))
	}
}

func TestMultiSink(t *testing.T) {
	a, b := NewFeed(), NewFeed()
	chA, _ := a.Subscribe(1)
	chB, _ := b.Subscribe(1)

	sink := MultiSink{a, NopSink{}, NewLogSink(common.NewTestEntry(t, logrus.DebugLevel)), b}
	sink.Emit(RootFinalized{Nonce: 1})

	if len(chA) != 1 || len(chB) != 1 {
		t.Fatalf("every sink should receive the event")
	}
}

func TestWampSink(t *testing.T) {
	logger := common.NewTestEntry(t, logrus.InfoLevel)

	r, err := NewRouter("attest", logger)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	sink, err := NewWampSink(r, "attest", logger)
	if err != nil {
		t.Fatal(err)
	}
	defer sink.Close()

	listener, err := ConnectLocal(r, "attest", logger)
	if err != nil {
		t.Fatal(err)
	}
	defer listener.Close()

	received := make(chan wamp.Dict, 1)
	err = listener.Subscribe(TopicHashStored, func(event *wamp.Event) {
		received <- event.ArgumentsKw
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	ev := hashStored()
	sink.Emit(ev)

	select {
	case kw := <-received:
		if adapterID, _ := wamp.AsString(kw["adapter_id"]); adapterID != ev.AdapterID.Hex() {
			t.Fatalf("adapter_id should be %s, not %v", ev.AdapterID.Hex(), kw["adapter_id"])
		}
		if hash, _ := wamp.AsString(kw["hash"]); hash != ev.Hash.Hex() {
			t.Fatalf("hash should be %s, not %v", ev.Hash.Hex(), kw["hash"])
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for HashStored event")
	}
}
