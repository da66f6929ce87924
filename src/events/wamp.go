package events

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"

	"github.com/gammazero/nexus/v3/client"
	"github.com/gammazero/nexus/v3/router"
	"github.com/gammazero/nexus/v3/wamp"
	"github.com/sirupsen/logrus"
)

// NewRouter creates an in-process WAMP router with a single realm that accepts
// anonymous clients. Sinks and relays connect to it locally; remote listeners
// reach it through a Server.
func NewRouter(realm string, logger *logrus.Entry) (router.Router, error) {
	routerConfig := &router.Config{
		RealmConfigs: []*router.RealmConfig{
			{
				URI:           wamp.URI(realm),
				AnonymousAuth: true,
			},
		},
	}

	return router.NewRouter(routerConfig, logger)
}

// ConnectLocal connects a new WAMP client to an in-process router.
func ConnectLocal(r router.Router, realm string, logger *logrus.Entry) (*client.Client, error) {
	return client.ConnectLocal(r, client.Config{
		Realm:  realm,
		Logger: logger,
	})
}

// Server exposes a WAMP router over WebSockets.
type Server struct {
	address    string
	certFile   string
	keyFile    string
	httpServer *http.Server
	logger     *logrus.Entry
}

// NewServer prepares a Server for r. TLS is used when both certFile and keyFile
// are set.
func NewServer(address string, r router.Router, certFile string, keyFile string, logger *logrus.Entry) (*Server, error) {
	wss := router.NewWebsocketServer(r)

	httpServer := &http.Server{
		Handler: wss,
		Addr:    address,
	}

	if certFile != "" && keyFile != "" {
		cert, err := tls.LoadX509KeyPair(certFile, keyFile)
		if err != nil {
			return nil, fmt.Errorf("error loading X509 key pair: %s", err)
		}
		httpServer.TLSConfig = &tls.Config{Certificates: []tls.Certificate{cert}}
	}

	return &Server{
		address:    address,
		certFile:   certFile,
		keyFile:    keyFile,
		httpServer: httpServer,
		logger:     logger,
	}, nil
}

// Run serves WebSocket connections until Shutdown is called.
func (s *Server) Run() {
	s.logger.WithField("address", s.address).Debug("Serving WAMP router")

	var err error
	if s.httpServer.TLSConfig != nil {
		err = s.httpServer.ListenAndServeTLS("", "")
	} else {
		err = s.httpServer.ListenAndServe()
	}

	if err != nil && err != http.ErrServerClosed {
		s.logger.WithError(err).Error("WAMP server stopped")
	}
}

// Shutdown stops the server.
func (s *Server) Shutdown() error {
	return s.httpServer.Shutdown(context.Background())
}

// WampSink publishes events to a WAMP router. The event fields are sent as
// keyword arguments on the event's topic.
type WampSink struct {
	client *client.Client
	logger *logrus.Entry
}

// NewWampSink connects a publishing client to r.
func NewWampSink(r router.Router, realm string, logger *logrus.Entry) (*WampSink, error) {
	cli, err := ConnectLocal(r, realm, logger)
	if err != nil {
		return nil, err
	}

	return &WampSink{
		client: cli,
		logger: logger,
	}, nil
}

// Emit implements the Sink interface. Publication errors are logged and
// dropped.
func (s *WampSink) Emit(ev Event) {
	if err := s.client.Publish(ev.Topic(), nil, nil, wamp.Dict(ev.Fields())); err != nil {
		s.logger.WithError(err).WithField("topic", ev.Topic()).Warn("Failed to publish event")
	}
}

// Close disconnects the publishing client.
func (s *WampSink) Close() error {
	return s.client.Close()
}
