package snapshotter

import (
	"fmt"

	"github.com/mosaicnetworks/attest/src/bmt"
	"github.com/mosaicnetworks/attest/src/common"
	"github.com/mosaicnetworks/attest/src/crypto"
	"github.com/mosaicnetworks/attest/src/events"
	"github.com/mosaicnetworks/attest/src/metrics"
	"github.com/mosaicnetworks/attest/src/store"
	"github.com/sirupsen/logrus"
)

// DefaultBatchSize is the number of accounts processed per batch.
const DefaultBatchSize = 10

// BoundaryMode determines how the last batch of a pass is computed.
type BoundaryMode int

const (
	// LiveBoundary recomputes the last batch from the live number of
	// subscribed accounts on every call.
	LiveBoundary BoundaryMode = iota
	// FrozenBoundary fixes the number of accounts of a pass when its first
	// batch is accepted.
	FrozenBoundary
)

// ParseBoundaryMode parses "live" or "frozen".
func ParseBoundaryMode(s string) (BoundaryMode, error) {
	switch s {
	case "live", "":
		return LiveBoundary, nil
	case "frozen":
		return FrozenBoundary, nil
	default:
		return LiveBoundary, fmt.Errorf("unknown boundary mode %q", s)
	}
}

// String ...
func (m BoundaryMode) String() string {
	if m == FrozenBoundary {
		return "frozen"
	}
	return "live"
}

// Config contains the parameters of a Snapshotter.
type Config struct {
	// Domain identifies the registry within the store.
	Domain crypto.Hash
	// BatchSize is the number of accounts per batch. Zero means
	// DefaultBatchSize.
	BatchSize int
	// Boundary selects the batch boundary mode.
	Boundary BoundaryMode
}

// Snapshotter maintains the registry of a domain and accumulates its root.
type Snapshotter struct {
	store   store.Store
	conf    Config
	sink    events.Sink
	metrics *metrics.Metrics
	logger  *logrus.Entry
}

// NewSnapshotter creates a Snapshotter. sink and m may be nil.
func NewSnapshotter(s store.Store, conf Config, sink events.Sink, m *metrics.Metrics, logger *logrus.Entry) *Snapshotter {
	if conf.BatchSize <= 0 {
		conf.BatchSize = DefaultBatchSize
	}
	if sink == nil {
		sink = events.NopSink{}
	}
	return &Snapshotter{
		store:   s,
		conf:    conf,
		sink:    sink,
		metrics: m,
		logger:  logger.WithField("domain", conf.Domain.Hex()),
	}
}

// BatchSize returns the configured number of accounts per batch. A pass in
// progress may still be using the size it started with.
func (s *Snapshotter) BatchSize() int {
	return s.conf.BatchSize
}

// Init creates the registry with an all-zero root, not finalized, expecting
// batch 0 at nonce 0. An existing registry is left untouched.
func (s *Snapshotter) Init() error {
	err := s.store.Update(func(tx store.Tx) error {
		return store.CreateRecord(tx, "Registry", RegistryKey(s.conf.Domain), &Registry{})
	})

	if common.IsStore(err, common.KeyAlreadyExists) {
		s.logger.Debug("Loaded existing registry")
		return nil
	}
	if err != nil {
		return err
	}

	s.logger.Debug("Created registry")

	return nil
}

// Registry returns a copy of the persisted registry.
func (s *Snapshotter) Registry() (*Registry, error) {
	var reg *Registry
	err := s.store.View(func(tx store.Tx) error {
		var err error
		reg, err = s.getRegistry(tx)
		return err
	})
	return reg, err
}

// FinalizedRoot returns the nonce and root of the last completed pass. It
// fails with ErrRootNotFinalized while a pass is in progress.
func (s *Snapshotter) FinalizedRoot() (uint64, crypto.Hash, error) {
	reg, err := s.Registry()
	if err != nil {
		return 0, crypto.Hash{}, err
	}
	if !reg.RootFinalized {
		return 0, crypto.Hash{}, ErrRootNotFinalized
	}
	return reg.Nonce, reg.Root, nil
}

// Subscribe appends ref to the registry. Subscriptions are permanent.
func (s *Snapshotter) Subscribe(ref AccountRef) error {
	var total int

	err := s.store.Update(func(tx store.Tx) error {
		reg, err := s.getRegistry(tx)
		if err != nil {
			return err
		}

		if reg.IsSubscribed(ref) {
			return fmt.Errorf("%w: %s", ErrAccountAlreadySubscribed, ref.Hex())
		}

		reg.Subscribed = append(reg.Subscribed, ref)
		total = len(reg.Subscribed)

		return s.setRegistry(tx, reg)
	})
	if err != nil {
		return err
	}

	s.metrics.SetSubscribed(total)

	s.logger.WithFields(logrus.Fields{
		"account": ref.Hex(),
		"index":   total - 1,
	}).Debug("Subscribed account")

	return nil
}

// BatchAccounts returns the accounts whose snapshots make up batch, in the
// order CalculateRoot expects them, as of the current registry state.
func (s *Snapshotter) BatchAccounts(batch uint64) ([]AccountRef, error) {
	reg, err := s.Registry()
	if err != nil {
		return nil, err
	}

	size, total := s.pass(reg, batch)

	start := batch * size
	if start >= total {
		return []AccountRef{}, nil
	}
	end := start + size
	if end > total {
		end = total
	}

	res := make([]AccountRef, end-start)
	copy(res, reg.Subscribed[start:end])
	return res, nil
}

// CalculateRoot processes one batch of account snapshots.
//
// batch must be the registry's expected batch. Every batch but the last of a
// pass carries exactly BatchSize snapshots; the last carries at most
// BatchSize. Snapshot i must be of the account at position
// batch*BatchSize+i in the registry. On success the snapshots are hashed into
// the root and the registry moves on to the next batch, or finalizes the root
// if this was the last batch. On error nothing is written.
func (s *Snapshotter) CalculateRoot(batch uint64, snapshots []AccountSnapshot) error {
	var result Registry

	err := s.store.Update(func(tx store.Tx) error {
		reg, err := s.getRegistry(tx)
		if err != nil {
			return err
		}

		if err := s.process(reg, batch, snapshots); err != nil {
			return err
		}

		result = *reg

		return s.setRegistry(tx, reg)
	})
	if err != nil {
		s.metrics.BatchRejected(reason(err))
		s.logger.WithError(err).WithField("batch", batch).Debug("Batch rejected")
		return err
	}

	s.metrics.BatchProcessed(result.RootFinalized)

	fields := logrus.Fields{
		"batch":     batch,
		"snapshots": len(snapshots),
		"root":      result.Root.Hex(),
	}

	if result.RootFinalized {
		s.logger.WithFields(fields).WithField("nonce", result.Nonce).Info("Root finalized")

		s.sink.Emit(events.RootFinalized{
			Domain: s.conf.Domain,
			Nonce:  result.Nonce,
			Root:   result.Root,
		})
	} else {
		s.logger.WithFields(fields).Debug("Batch processed")
	}

	return nil
}

// process validates a batch against reg and applies it. reg is only valid if
// process returns nil.
func (s *Snapshotter) process(reg *Registry, batch uint64, snapshots []AccountSnapshot) error {
	if batch != reg.ExpectedBatch {
		return fmt.Errorf("%w: got %d, expected %d", ErrInvalidBatch, batch, reg.ExpectedBatch)
	}

	size, total := s.pass(reg, batch)
	isLastBatch := total/size == batch
	count := uint64(len(snapshots))

	if (isLastBatch && count > size) || (!isLastBatch && count != size) {
		return fmt.Errorf("%w: %d snapshots for batch %d", ErrInvalidRemainingAccountsLength, count, batch)
	}

	start := batch * size

	// An empty batch can only close a pass whose previous batches covered
	// every account.
	if count == 0 && (total == 0 || start != total) {
		return fmt.Errorf("%w: empty batch %d", ErrInvalidRemainingAccountsLength, batch)
	}

	leaves := make([]crypto.Hash, 0, count)
	for i := range snapshots {
		pos := start + uint64(i)
		if pos >= total || snapshots[i].Ref != reg.Subscribed[pos] {
			return fmt.Errorf("%w: %s at position %d", ErrInvalidSubscribedAccount, snapshots[i].Ref.Hex(), pos)
		}
		leaves = append(leaves, snapshots[i].Hash())
	}

	if batch == 0 {
		reg.PassTotal = total
		reg.PassBatchSize = size
		reg.PassBoundary = s.conf.Boundary
	}

	if isLastBatch {
		reg.RootFinalized = true
		reg.ExpectedBatch = 0
		reg.Nonce++
	} else {
		reg.RootFinalized = false
		reg.ExpectedBatch++
	}

	if len(leaves) > 0 {
		tree := bmt.FromRoot(reg.Root)
		if err := tree.PushBatch(leaves); err != nil {
			return err
		}
		reg.Root = tree.Root
	}

	return nil
}

// pass returns the batch size and the number of accounts of the pass that
// batch belongs to. A pass in progress keeps the settings recorded by its
// first batch; a new pass takes them from the configuration.
func (s *Snapshotter) pass(reg *Registry, batch uint64) (size uint64, total uint64) {
	size = uint64(s.conf.BatchSize)
	boundary := s.conf.Boundary

	if batch > 0 && reg.InPass() && reg.PassBatchSize > 0 {
		size = reg.PassBatchSize
		boundary = reg.PassBoundary
	}

	total = uint64(len(reg.Subscribed))
	if boundary == FrozenBoundary && batch > 0 && reg.InPass() {
		total = reg.PassTotal
	}

	return size, total
}

func (s *Snapshotter) getRegistry(tx store.Tx) (*Registry, error) {
	reg := &Registry{}
	if err := store.GetRecord(tx, "Registry", RegistryKey(s.conf.Domain), reg); err != nil {
		return nil, err
	}
	return reg, nil
}

func (s *Snapshotter) setRegistry(tx store.Tx, reg *Registry) error {
	return store.SetRecord(tx, RegistryKey(s.conf.Domain), reg)
}
