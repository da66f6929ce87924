// Package reporter dispatches finalized snapshotter roots, and other attested
// hashes, to relays.
package reporter

import (
	"context"
	"fmt"
	"math/big"

	"github.com/mosaicnetworks/attest/src/crypto"
	"github.com/mosaicnetworks/attest/src/metrics"
	"github.com/mosaicnetworks/attest/src/snapshotter"
	"github.com/sirupsen/logrus"
)

// Reporter reads the finalized root of a snapshotter and hands it to a Relay.
type Reporter struct {
	snapshotter *snapshotter.Snapshotter
	relay       Relay
	metrics     *metrics.Metrics
	logger      *logrus.Entry
}

// NewReporter ...
func NewReporter(snap *snapshotter.Snapshotter, relay Relay, m *metrics.Metrics, logger *logrus.Entry) *Reporter {
	return &Reporter{
		snapshotter: snap,
		relay:       relay,
		metrics:     m,
		logger:      logger.WithField("relay", relay.Name()),
	}
}

// DispatchRoot sends the last finalized (nonce, root) to the relay and returns
// the message sent. It fails with snapshotter.ErrRootNotFinalized while a pass
// is in progress. The registry is not modified, so the same root can be
// dispatched again.
func (r *Reporter) DispatchRoot(ctx context.Context) (*Message, error) {
	nonce, root, err := r.snapshotter.FinalizedRoot()
	if err != nil {
		return nil, err
	}

	msg := NewMessage(nonce, root)

	if err := r.send(ctx, msg); err != nil {
		return nil, err
	}

	r.metrics.RootDispatched(r.relay.Name())

	r.logger.WithFields(logrus.Fields{
		"nonce": nonce,
		"root":  root.Hex(),
	}).Info("Dispatched root")

	return msg, nil
}

// DispatchHashes sends arbitrary (id, hash) pairs to the relay, such as block or
// slot hashes read from the local domain. ids and hashes must be non-empty
// and of equal length.
func (r *Reporter) DispatchHashes(ctx context.Context, ids []uint64, hashes []crypto.Hash) (*Message, error) {
	if len(ids) == 0 || len(ids) != len(hashes) {
		return nil, fmt.Errorf("%w: %d ids, %d hashes", ErrInvalidMessage, len(ids), len(hashes))
	}

	msg := &Message{
		IDs:    make([]*big.Int, len(ids)),
		Hashes: append([]crypto.Hash(nil), hashes...),
	}
	for i, id := range ids {
		msg.IDs[i] = new(big.Int).SetUint64(id)
	}

	if err := r.send(ctx, msg); err != nil {
		return nil, err
	}

	r.logger.WithField("ids", ids).Info("Dispatched hashes")

	return msg, nil
}

func (r *Reporter) send(ctx context.Context, msg *Message) error {
	payload, err := msg.Encode()
	if err != nil {
		return err
	}

	if err := r.relay.Send(ctx, msg, payload); err != nil {
		return fmt.Errorf("relay %s: %w", r.relay.Name(), err)
	}

	return nil
}
