// Package service exposes the operations of an attest node over HTTP.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mosaicnetworks/attest/src/adapter"
	"github.com/mosaicnetworks/attest/src/common"
	"github.com/mosaicnetworks/attest/src/crypto"
	"github.com/mosaicnetworks/attest/src/hashi"
	"github.com/mosaicnetworks/attest/src/metrics"
	"github.com/mosaicnetworks/attest/src/reporter"
	"github.com/mosaicnetworks/attest/src/snapshotter"
	"github.com/sirupsen/logrus"
)

// MaxBodyBytes caps the size of request bodies.
const MaxBodyBytes = 4 << 20

// Backend groups the components served by the API.
type Backend struct {
	Snapshotter *snapshotter.Snapshotter
	Hashes      *adapter.HashStore
	Checker     *hashi.Checker
	Reporter    *reporter.Reporter
	// Adapter is the local adapter, used by POST /hash when the request does
	// not name one. Optional.
	Adapter *adapter.Adapter
	Metrics *metrics.Metrics
}

// Service ...
type Service struct {
	bindAddress string
	backend     Backend
	router      chi.Router
	server      *http.Server
	logger      *logrus.Entry
}

// NewService ...
func NewService(bindAddress string, backend Backend, logger *logrus.Entry) *Service {
	service := Service{
		bindAddress: bindAddress,
		backend:     backend,
		logger:      logger,
	}

	service.registerHandlers()

	service.server = &http.Server{
		Addr:    bindAddress,
		Handler: service.router,
	}

	return &service
}

func (s *Service) registerHandlers() {
	s.logger.Debug("Registering attest API handlers")

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors)

	r.Get("/registry", s.GetRegistry)
	r.Post("/subscribe", s.PostSubscribe)
	r.Get("/batch/{batch}", s.GetBatch)
	r.Post("/root/{batch}", s.PostRoot)
	r.Get("/hash/{adapter}/{domain}/{id}", s.GetHash)
	r.Post("/hash", s.PostHash)
	r.Post("/check", s.PostCheck)
	r.Post("/dispatch", s.PostDispatch)
	r.Post("/dispatch/hashes", s.PostDispatchHashes)

	if s.backend.Metrics != nil {
		r.Handle("/metrics", s.backend.Metrics.Handler())
	}

	s.router = r
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		next.ServeHTTP(w, r)
	})
}

// Handler returns the API router.
func (s *Service) Handler() http.Handler {
	return s.router
}

// Serve calls ListenAndServe. This is a blocking call.
func (s *Service) Serve() {
	s.logger.WithField("bind_address", s.bindAddress).Debug("Serving attest API")

	err := s.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		s.logger.Error(err)
	}
}

// Shutdown gracefully stops the server.
func (s *Service) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// SubscribeRequest ...
type SubscribeRequest struct {
	Account crypto.Hash `json:"account"`
}

// StoreHashRequest ...
type StoreHashRequest struct {
	AdapterID *crypto.Hash `json:"adapter_id,omitempty"`
	Domain    crypto.Hash  `json:"domain"`
	ID        crypto.Hash  `json:"id"`
	Hash      crypto.Hash  `json:"hash"`
}

// CheckRequest ...
type CheckRequest struct {
	AdapterIDs []crypto.Hash `json:"adapter_ids"`
	Domain     crypto.Hash   `json:"domain"`
	ID         crypto.Hash   `json:"id"`
	Threshold  uint64        `json:"threshold"`
}

// CheckResponse ...
type CheckResponse struct {
	Met   bool   `json:"met"`
	Error string `json:"error,omitempty"`
}

// DispatchHashesRequest ...
type DispatchHashesRequest struct {
	IDs    []uint64      `json:"ids"`
	Hashes []crypto.Hash `json:"hashes"`
}

// DispatchResponse ...
type DispatchResponse struct {
	IDs     []string      `json:"ids"`
	Hashes  []crypto.Hash `json:"hashes"`
	Payload string        `json:"payload"`
}

// GetRegistry ...
func (s *Service) GetRegistry(w http.ResponseWriter, r *http.Request) {
	reg, err := s.backend.Snapshotter.Registry()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reg)
}

// PostSubscribe ...
func (s *Service) PostSubscribe(w http.ResponseWriter, r *http.Request) {
	var req SubscribeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := s.backend.Snapshotter.Subscribe(req.Account); err != nil {
		s.writeError(w, err)
		return
	}

	s.GetRegistry(w, r)
}

// GetBatch returns the accounts expected in a batch.
func (s *Service) GetBatch(w http.ResponseWriter, r *http.Request) {
	batch, ok := s.batchParam(w, r)
	if !ok {
		return
	}

	accounts, err := s.backend.Snapshotter.BatchAccounts(batch)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

// PostRoot processes a batch of account snapshots.
func (s *Service) PostRoot(w http.ResponseWriter, r *http.Request) {
	batch, ok := s.batchParam(w, r)
	if !ok {
		return
	}

	snapshots := []snapshotter.AccountSnapshot{}
	if !decodeBody(w, r, &snapshots) {
		return
	}

	if err := s.backend.Snapshotter.CalculateRoot(batch, snapshots); err != nil {
		s.writeError(w, err)
		return
	}

	s.GetRegistry(w, r)
}

// GetHash ...
func (s *Service) GetHash(w http.ResponseWriter, r *http.Request) {
	var ids [3]crypto.Hash
	for i, param := range []string{"adapter", "domain", "id"} {
		h, err := crypto.HexToHash(chi.URLParam(r, param))
		if err != nil {
			s.logger.WithError(err).Errorf("Parsing %s parameter", param)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		ids[i] = h
	}

	rec, err := s.backend.Hashes.GetHash(ids[0], ids[1], ids[2])
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// PostHash stores an adapter's hash.
func (s *Service) PostHash(w http.ResponseWriter, r *http.Request) {
	var req StoreHashRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var adapterID crypto.Hash
	switch {
	case req.AdapterID != nil:
		adapterID = *req.AdapterID
	case s.backend.Adapter != nil:
		adapterID = s.backend.Adapter.ID
	default:
		http.Error(w, "adapter_id required", http.StatusBadRequest)
		return
	}

	if err := s.backend.Hashes.StoreHash(adapterID, req.Domain, req.ID, req.Hash); err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, adapter.HashRecord{
		AdapterID: adapterID,
		Domain:    req.Domain,
		ID:        req.ID,
		Hash:      req.Hash,
	})
}

// PostCheck runs a threshold check. A check that does not reach the threshold
// is a successful request with Met false.
func (s *Service) PostCheck(w http.ResponseWriter, r *http.Request) {
	var req CheckRequest
	if !decodeBody(w, r, &req) {
		return
	}

	err := s.backend.Checker.Check(req.AdapterIDs, req.Domain, req.ID, req.Threshold)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, CheckResponse{Met: true})
	case errors.Is(err, hashi.ErrThresholdNotMet):
		writeJSON(w, http.StatusOK, CheckResponse{Met: false, Error: err.Error()})
	default:
		s.writeError(w, err)
	}
}

// PostDispatch dispatches the finalized root.
func (s *Service) PostDispatch(w http.ResponseWriter, r *http.Request) {
	msg, err := s.backend.Reporter.DispatchRoot(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeMessage(w, msg)
}

// PostDispatchHashes dispatches the (id, hash) pairs of the request.
func (s *Service) PostDispatchHashes(w http.ResponseWriter, r *http.Request) {
	var req DispatchHashesRequest
	if !decodeBody(w, r, &req) {
		return
	}

	msg, err := s.backend.Reporter.DispatchHashes(r.Context(), req.IDs, req.Hashes)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeMessage(w, msg)
}

func (s *Service) writeMessage(w http.ResponseWriter, msg *reporter.Message) {
	payload, err := msg.Encode()
	if err != nil {
		s.writeError(w, err)
		return
	}

	res := DispatchResponse{
		Hashes:  msg.Hashes,
		Payload: common.EncodeToString(payload),
	}
	for _, id := range msg.IDs {
		res.IDs = append(res.IDs, id.String())
	}

	writeJSON(w, http.StatusOK, res)
}

func (s *Service) batchParam(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	param := chi.URLParam(r, "batch")

	batch, err := strconv.ParseUint(param, 10, 64)
	if err != nil {
		s.logger.WithError(err).Errorf("Parsing batch parameter %s", param)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return 0, false
	}

	return batch, true
}

func (s *Service) writeError(w http.ResponseWriter, err error) {
	status := statusCode(err)
	if status == http.StatusInternalServerError {
		s.logger.WithError(err).Error("Request failed")
	}
	http.Error(w, err.Error(), status)
}

func statusCode(err error) int {
	switch {
	case common.IsStore(err, common.KeyNotFound):
		return http.StatusNotFound
	case common.IsStore(err, common.Conflict),
		errors.Is(err, snapshotter.ErrAccountAlreadySubscribed),
		errors.Is(err, snapshotter.ErrRootNotFinalized):
		return http.StatusConflict
	case errors.Is(err, snapshotter.ErrInvalidBatch),
		errors.Is(err, snapshotter.ErrInvalidRemainingAccountsLength),
		errors.Is(err, snapshotter.ErrInvalidSubscribedAccount),
		errors.Is(err, hashi.ErrInvalidThreshold),
		errors.Is(err, hashi.ErrNoAccountsProvided),
		errors.Is(err, hashi.ErrInvalidAdapterId),
		errors.Is(err, hashi.ErrInvalidAdapterIdsLength),
		errors.Is(err, hashi.ErrInvalidDomain),
		errors.Is(err, hashi.ErrInvalidId),
		errors.Is(err, reporter.ErrInvalidMessage):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody decodes a JSON request body of at most MaxBodyBytes into v. On
// failure it writes the error response and returns false.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		status := http.StatusBadRequest

		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}

		http.Error(w, err.Error(), status)
		return false
	}

	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
