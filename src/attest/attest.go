// Package attest wires the components of an attest node together: the record
// store, the snapshotter, the adapter hash store, the threshold checker, the
// root reporter, the event router and the HTTP API.
package attest

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gammazero/nexus/v3/router"
	"github.com/mosaicnetworks/attest/src/adapter"
	"github.com/mosaicnetworks/attest/src/config"
	"github.com/mosaicnetworks/attest/src/crypto/keys"
	"github.com/mosaicnetworks/attest/src/events"
	"github.com/mosaicnetworks/attest/src/hashi"
	"github.com/mosaicnetworks/attest/src/metrics"
	"github.com/mosaicnetworks/attest/src/reporter"
	"github.com/mosaicnetworks/attest/src/service"
	"github.com/mosaicnetworks/attest/src/snapshotter"
	"github.com/mosaicnetworks/attest/src/store"
	"github.com/sirupsen/logrus"
)

// Attest is an attest node.
type Attest struct {
	Config      *config.Config
	Store       store.Store
	Metrics     *metrics.Metrics
	Router      router.Router
	WampServer  *events.Server
	Sink        events.Sink
	Snapshotter *snapshotter.Snapshotter
	Hashes      *adapter.HashStore
	Checker     *hashi.Checker
	Relay       reporter.Relay
	Reporter    *reporter.Reporter
	Adapter     *adapter.Adapter
	Service     *service.Service

	closers      []func() error
	shutdownCh   chan struct{}
	shutdownOnce sync.Once
	logger       *logrus.Entry
}

// NewAttest ...
func NewAttest(conf *config.Config) *Attest {
	engine := &Attest{
		Config:     conf,
		shutdownCh: make(chan struct{}),
	}

	return engine
}

func (a *Attest) initKey() error {
	if a.Config.Key == nil {
		key, err := keys.NewSimpleKeyfile(a.Config.Keyfile()).ReadKey()
		if err != nil {
			a.logger.WithError(err).Debug("No adapter key, local adapter disabled")
			return nil
		}
		a.Config.Key = key
	}

	a.logger.WithField("adapter_id", keys.AdapterID(&a.Config.Key.PublicKey).Hex()).Debug("Loaded adapter key")

	return nil
}

func (a *Attest) initStore() error {
	if !a.Config.Store {
		a.Store = store.NewInmemStore()

		a.logger.Debug("created new in-mem store")
	} else {
		var err error

		a.logger.WithField("path", a.Config.DatabaseDir).Debug("Attempting to load or create database")

		a.Store, err = store.NewBadgerStore(a.Config.DatabaseDir, a.logger)
		if err != nil {
			return err
		}
	}

	a.closers = append(a.closers, a.Store.Close)

	return nil
}

func (a *Attest) initEvents() error {
	sinks := events.MultiSink{events.NewLogSink(a.logger)}

	if !a.Config.NoWamp {
		r, err := events.NewRouter(a.Config.WampRealm, a.logger.WithField("prefix", "wamp"))
		if err != nil {
			return err
		}
		a.Router = r

		sink, err := events.NewWampSink(r, a.Config.WampRealm, a.logger)
		if err != nil {
			r.Close()
			return err
		}
		sinks = append(sinks, sink)

		// the router closes last
		a.closers = append(a.closers, func() error { r.Close(); return nil }, sink.Close)

		if a.Config.WampAddr != "" {
			var certFile, keyFile string
			if fileExists(a.Config.CertFile()) && fileExists(a.Config.KeyFile()) {
				certFile, keyFile = a.Config.CertFile(), a.Config.KeyFile()
			}

			a.WampServer, err = events.NewServer(a.Config.WampAddr, r, certFile, keyFile, a.logger)
			if err != nil {
				return err
			}
		}
	}

	a.Sink = sinks

	return nil
}

func (a *Attest) initSnapshotter() error {
	boundary, err := a.Config.BoundaryMode()
	if err != nil {
		return err
	}

	a.Snapshotter = snapshotter.NewSnapshotter(
		a.Store,
		snapshotter.Config{
			Domain:    a.Config.DomainID(),
			BatchSize: a.Config.BatchSize,
			Boundary:  boundary,
		},
		a.Sink,
		a.Metrics,
		a.logger.WithField("component", "snapshotter"),
	)

	if err := a.Snapshotter.Init(); err != nil {
		return fmt.Errorf("failed to initialize snapshotter: %s", err)
	}

	reg, err := a.Snapshotter.Registry()
	if err != nil {
		return err
	}
	a.Metrics.SetSubscribed(len(reg.Subscribed))

	return nil
}

func (a *Attest) initAdapters() error {
	a.Hashes = adapter.NewHashStore(a.Store, a.Sink, a.Metrics, a.logger.WithField("component", "adapter"))
	a.Checker = hashi.NewChecker(a.Hashes, a.Metrics, a.logger.WithField("component", "hashi"))

	if a.Config.Key != nil {
		a.Adapter = adapter.NewAdapter(&a.Config.Key.PublicKey, a.Hashes)
	}

	return nil
}

func (a *Attest) initReporter() error {
	switch a.Config.Relay {
	case "inmem", "":
		a.Relay = reporter.NewInmemRelay()
	case "wamp":
		if a.Router == nil {
			return fmt.Errorf("wamp relay requires the wamp router")
		}
		relay, err := reporter.NewWampRelay(a.Router, a.Config.WampRealm, a.logger)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, relay.Close)
		a.Relay = relay
	default:
		return fmt.Errorf("unknown relay %q", a.Config.Relay)
	}

	a.Reporter = reporter.NewReporter(a.Snapshotter, a.Relay, a.Metrics, a.logger.WithField("component", "reporter"))

	return nil
}

func (a *Attest) initService() error {
	if !a.Config.NoService {
		a.Service = service.NewService(
			a.Config.ServiceAddr,
			service.Backend{
				Snapshotter: a.Snapshotter,
				Hashes:      a.Hashes,
				Checker:     a.Checker,
				Reporter:    a.Reporter,
				Adapter:     a.Adapter,
				Metrics:     a.Metrics,
			},
			a.logger.WithField("component", "service"),
		)
	}
	return nil
}

// Init initializes every component. On error, the components already created
// are closed.
func (a *Attest) Init() error {
	a.logger = a.Config.Logger()
	a.Metrics = metrics.New()

	steps := []func() error{
		a.initKey,
		a.initStore,
		a.initEvents,
		a.initSnapshotter,
		a.initAdapters,
		a.initReporter,
		a.initService,
	}

	for _, step := range steps {
		if err := step(); err != nil {
			a.close()
			return err
		}
	}

	return nil
}

// Run starts the WAMP server and the HTTP service and blocks until Shutdown
// is called.
func (a *Attest) Run() {
	if a.WampServer != nil {
		go a.WampServer.Run()
	}

	if a.Service != nil {
		go a.Service.Serve()
	}

	<-a.shutdownCh
}

// Shutdown stops the servers and closes every component.
func (a *Attest) Shutdown() {
	a.shutdownOnce.Do(func() {
		a.logger.Info("Shutting down")

		if a.Service != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := a.Service.Shutdown(ctx); err != nil {
				a.logger.WithError(err).Warn("Service shutdown")
			}
			cancel()
		}

		if a.WampServer != nil {
			if err := a.WampServer.Shutdown(); err != nil {
				a.logger.WithError(err).Warn("WAMP server shutdown")
			}
		}

		a.close()

		close(a.shutdownCh)
	})
}

func (a *Attest) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.WithError(err).Warn("Close")
		}
	}
	a.closers = nil
}

// Keygen creates a new adapter key in datadir, refusing to overwrite an
// existing one.
func Keygen(datadir string) (*ecdsa.PrivateKey, error) {
	conf := config.NewDefaultConfig()
	conf.DataDir = datadir

	if fileExists(conf.Keyfile()) {
		return nil, fmt.Errorf("Another key already lives under %s", datadir)
	}

	key, err := keys.GenerateECDSAKey()
	if err != nil {
		return nil, err
	}

	if err := keys.NewSimpleKeyfile(conf.Keyfile()).WriteKey(key); err != nil {
		return nil, err
	}

	return key, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
