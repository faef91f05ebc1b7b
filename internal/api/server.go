package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"snapback/internal/clock"
	"snapback/internal/contentnode"
	"snapback/internal/httpclient"
	"snapback/internal/metrics"
	"snapback/internal/replica"
	"snapback/internal/storage"
	"snapback/internal/writelock"
)

const maxBodyBytes = 1 << 20

// Health is the data of GET /health_check.
type Health struct {
	Healthy  bool   `json:"healthy"`
	Endpoint string `json:"creatorNodeEndpoint"`
}

// WriteResponse is the data of a client write.
type WriteResponse struct {
	ClockValue  int64 `json:"clockValue"`
	ManualSyncs int   `json:"manualSyncs"`
}

// Server handles the content node HTTP API.
type Server struct {
	self     string
	store    storage.Store
	lock     *writelock.Lock
	syncs    SyncQueues
	runner   SyncScheduler
	maxRange int64
	logger   *zap.Logger
}

// Opt configures a Server.
type Opt func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Opt {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMaxExportRange caps the records returned by one export.
func WithMaxExportRange(n int64) Opt {
	return func(s *Server) {
		s.maxRange = n
	}
}

// NewServer creates the API server for the node at self.
func NewServer(self string, store storage.Store, lock *writelock.Lock, syncs SyncQueues, runner SyncScheduler, opts ...Opt) *Server {
	s := &Server{
		self:     self,
		store:    store,
		lock:     lock,
		syncs:    syncs,
		runner:   runner,
		maxRange: 10000,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed and instrumented handler.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	route := func(method, path string, h http.HandlerFunc) {
		r.Handle(path, metrics.Instrument(path, h)).Methods(method)
	}
	route(http.MethodGet, "/users/clock_status/{wallet}", s.clockStatus)
	route(http.MethodPost, "/users/batch_clock_status", s.batchClockStatus)
	route(http.MethodPost, "/users/{wallet}/records", s.write)
	route(http.MethodPost, "/sync", s.sync)
	route(http.MethodGet, "/export", s.export)
	route(http.MethodGet, "/sync_queue", s.syncQueue)
	route(http.MethodGet, "/health_check", s.health)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	return r
}

func (s *Server) respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(httpclient.Envelope(v)); err != nil {
		s.logger.Debug("failed to write response", zap.Error(err))
	}
}

func (s *Server) fail(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

func (s *Server) clockStatus(w http.ResponseWriter, r *http.Request) {
	wallet := mux.Vars(r)["wallet"]
	value, ok, err := s.store.ClockValue(r.Context(), wallet)
	if err != nil {
		s.logger.Error("clock status failed", zap.String("wallet", wallet), zap.Error(err))
		s.fail(w, http.StatusInternalServerError, err)
		return
	}
	if !ok {
		value = clock.Unreported
	}
	s.respond(w, http.StatusOK, contentnode.ClockStatusResponse{ClockValue: value})
}

func (s *Server) batchClockStatus(w http.ResponseWriter, r *http.Request) {
	var req contentnode.BatchClockRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, http.StatusBadRequest, err)
		return
	}
	snap, err := s.store.ClockValues(r.Context(), req.WalletPublicKeys)
	if err != nil {
		s.logger.Error("batch clock status failed", zap.Int("wallets", len(req.WalletPublicKeys)), zap.Error(err))
		s.fail(w, http.StatusInternalServerError, err)
		return
	}
	res := contentnode.BatchClockResponse{Users: make([]contentnode.WalletClock, 0, len(req.WalletPublicKeys))}
	for _, wallet := range req.WalletPublicKeys {
		value, ok := snap.Get(wallet)
		if !ok {
			value = clock.Unreported
		}
		res.Users = append(res.Users, contentnode.WalletClock{WalletPublicKey: wallet, Clock: value})
	}
	s.respond(w, http.StatusOK, res)
}

func (s *Server) sync(w http.ResponseWriter, r *http.Request) {
	var payload replica.SyncPayload
	if err := decode(w, r, &payload); err != nil {
		s.fail(w, http.StatusBadRequest, err)
		return
	}
	if len(payload.Wallet) == 0 || payload.CreatorNodeEndpoint == "" {
		s.fail(w, http.StatusBadRequest, errors.New("wallet and creator_node_endpoint are required"))
		return
	}
	s.logger.Debug("sync requested",
		zap.Strings("wallets", payload.Wallet),
		zap.String("primary", payload.CreatorNodeEndpoint),
		zap.String("type", string(payload.SyncType)),
	)
	s.runner.Schedule(payload)
	s.respond(w, http.StatusOK, struct{}{})
}

func (s *Server) export(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	wallet := q.Get("wallet_public_key")
	if wallet == "" {
		s.fail(w, http.StatusBadRequest, errors.New("wallet_public_key is required"))
		return
	}
	var from int64
	if v := q.Get("clock_range_min"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			s.fail(w, http.StatusBadRequest, fmt.Errorf("invalid clock_range_min %q", v))
			return
		}
		from = n
	}

	ctx := r.Context()
	value, ok, err := s.store.ClockValue(ctx, wallet)
	if err == nil && !ok {
		value = clock.Unreported
	}
	var records []storage.Record
	if err == nil {
		records, err = s.store.Export(ctx, wallet, from, int(s.maxRange))
	}
	if err != nil {
		s.logger.Error("export failed", zap.String("wallet", wallet), zap.Error(err))
		s.fail(w, http.StatusInternalServerError, err)
		return
	}
	if records == nil {
		records = []storage.Record{}
	}
	s.respond(w, http.StatusOK, contentnode.ExportResponse{ClockValue: value, Records: records})
}

// write appends a client record on the primary and then issues manual syncs
// to the wallet's secondaries.
func (s *Server) write(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	wallet := mux.Vars(r)["wallet"]
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.fail(w, http.StatusBadRequest, err)
		return
	}
	if !json.Valid(payload) {
		s.fail(w, http.StatusBadRequest, errors.New("record payload must be JSON"))
		return
	}

	if err := s.lock.Acquire(ctx, wallet, writelock.UserWrite, 0); err != nil {
		if errors.Is(err, writelock.ErrLockHeld) {
			s.logger.Info("write rejected, wallet is locked", zap.String("wallet", wallet), zap.Error(err))
			s.fail(w, http.StatusConflict, err)
			return
		}
		s.fail(w, http.StatusInternalServerError, err)
		return
	}
	value, err := s.store.Append(ctx, wallet, payload)
	if relErr := s.lock.Release(ctx, wallet); relErr != nil {
		s.logger.Error("failed to release write lock", zap.String("wallet", wallet), zap.Error(relErr))
	}
	if err != nil {
		s.logger.Error("append failed", zap.String("wallet", wallet), zap.Error(err))
		s.fail(w, http.StatusInternalServerError, err)
		return
	}

	jobs, err := s.syncs.IssueManualSyncs(ctx, wallet)
	if err != nil {
		s.logger.Warn("failed to issue manual syncs", zap.String("wallet", wallet), zap.Error(err))
	}
	s.respond(w, http.StatusOK, WriteResponse{ClockValue: value, ManualSyncs: len(jobs)})
}

func (s *Server) syncQueue(w http.ResponseWriter, _ *http.Request) {
	s.respond(w, http.StatusOK, s.syncs.QueueJobs())
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	s.respond(w, http.StatusOK, Health{Healthy: true, Endpoint: s.self})
}
