package reporter

import (
	"context"
	"encoding/hex"
	"sync"

	"github.com/gammazero/nexus/v3/client"
	"github.com/gammazero/nexus/v3/router"
	"github.com/gammazero/nexus/v3/wamp"
	"github.com/mosaicnetworks/attest/src/events"
	"github.com/sirupsen/logrus"
)

// TopicRoot is the WAMP topic on which WampRelay publishes roots.
const TopicRoot = "io.attest.root"

// Relay hands an encoded message over to a transport towards a foreign
// domain. Delivery, fees and retries are the transport's concern.
type Relay interface {
	Name() string
	Send(ctx context.Context, msg *Message, payload []byte) error
}

// Dispatch is a message handed to an InmemRelay.
type Dispatch struct {
	Message *Message
	Payload []byte
}

// InmemRelay keeps dispatched messages in memory.
type InmemRelay struct {
	sync.Mutex
	dispatched []Dispatch
}

// NewInmemRelay ...
func NewInmemRelay() *InmemRelay {
	return &InmemRelay{}
}

// Name implements the Relay interface.
func (r *InmemRelay) Name() string {
	return "inmem"
}

// Send implements the Relay interface.
func (r *InmemRelay) Send(ctx context.Context, msg *Message, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.Lock()
	defer r.Unlock()

	r.dispatched = append(r.dispatched, Dispatch{Message: msg, Payload: payload})

	return nil
}

// Dispatched returns the messages sent so far, oldest first.
func (r *InmemRelay) Dispatched() []Dispatch {
	r.Lock()
	defer r.Unlock()

	res := make([]Dispatch, len(r.dispatched))
	copy(res, r.dispatched)
	return res
}

// WampRelay publishes messages on a WAMP router. The hex encoded payload is
// the single positional argument; nonce and root are repeated as keyword
// arguments.
type WampRelay struct {
	client *client.Client
	topic  string
	logger *logrus.Entry
}

// NewWampRelay connects a publishing client to r.
func NewWampRelay(r router.Router, realm string, logger *logrus.Entry) (*WampRelay, error) {
	cli, err := events.ConnectLocal(r, realm, logger)
	if err != nil {
		return nil, err
	}

	return &WampRelay{
		client: cli,
		topic:  TopicRoot,
		logger: logger,
	}, nil
}

// Name implements the Relay interface.
func (r *WampRelay) Name() string {
	return "wamp"
}

// Send implements the Relay interface.
func (r *WampRelay) Send(ctx context.Context, msg *Message, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	kwargs := wamp.Dict{}
	if len(msg.IDs) > 0 && len(msg.Hashes) > 0 {
		kwargs["nonce"] = msg.IDs[0].Uint64()
		kwargs["root"] = msg.Hashes[0].Hex()
	}

	return r.client.Publish(
		r.topic,
		wamp.Dict{wamp.OptAcknowledge: true},
		wamp.List{"0x" + hex.EncodeToString(payload)},
		kwargs,
	)
}

// Close disconnects the publishing client.
func (r *WampRelay) Close() error {
	return r.client.Close()
}
