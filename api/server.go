package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/xid"
	"go.uber.org/zap"

	match "github.com/oxygenfuel/contract"
	"github.com/oxygenfuel/contract/protocol"
)

const (
	headerRequestID   = "X-Request-Id"
	defaultDepthLimit = 20
	maxDepthLimit     = 500
	maxBodyBytes      = 1 << 16
)

// Journal persists commands ahead of execution and takes periodic snapshots.
// *store.PebbleStore implements it.
type Journal interface {
	NextSeqID() uint64
	AppendCommand(cmd *protocol.Command) error
	SaveSnapshot(snap *match.EngineSnapshot) error
	TruncateJournal(beforeSeq uint64) error
}

// Options configures a Server.
type Options struct {
	AllowedOrigins []string
	// SnapshotEvery saves a snapshot after this many journaled commands; 0 disables it.
	SnapshotEvery uint64
}

// Server exposes the engine over HTTP and streams book logs over websocket.
type Server struct {
	engine  *match.Engine
	journal Journal
	hub     *Hub
	router  *mux.Router
	handler http.Handler
	logger  *zap.Logger
	opts    Options

	// mu orders journal appends with execution, so the journal replays in the live order
	mu            sync.Mutex
	nextSeq       uint64
	sinceSnapshot uint64

	httpServer *http.Server
}

// NewServer creates a new API server. journal may be nil, in which case
// commands are only executed in memory.
func NewServer(engine *match.Engine, journal Journal, hub *Hub, logger *zap.Logger, opts Options) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if hub == nil {
		hub = NewHub(logger)
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}

	s := &Server{
		engine:  engine,
		journal: journal,
		hub:     hub,
		router:  mux.NewRouter(),
		logger:  logger.Named("api"),
		opts:    opts,
		nextSeq: engine.LastCmdSeqID() + 1,
	}
	s.setupRoutes()

	c := cors.New(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", headerRequestID},
		ExposedHeaders: []string{headerRequestID},
	})
	s.handler = c.Handler(s.router)
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.requestIDMiddleware, s.loggingMiddleware)

	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/init", s.handleInit).Methods(http.MethodPost)
	api.HandleFunc("/deposits", s.handleDeposit).Methods(http.MethodPost)
	api.HandleFunc("/orders", s.handlePlaceOrder).Methods(http.MethodPost)

	api.HandleFunc("/balances/{account}/{asset}", s.handleGetBalance).Methods(http.MethodGet)
	api.HandleFunc("/orderbook/{side}", s.handleGetOrderbook).Methods(http.MethodGet)
	api.HandleFunc("/depth", s.handleGetDepth).Methods(http.MethodGet)
	api.HandleFunc("/pair", s.handleGetPair).Methods(http.MethodGet)

	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
}

// Handler returns the root handler with CORS applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Hub returns the websocket hub, to be wired as a publish target.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start runs the hub and serves HTTP until Shutdown.
func (s *Server) Start(addr string) error {
	go s.hub.Run()

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()
	s.logger.Info("server starting", zap.String("addr", addr))

	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting requests, waits for in-flight ones and closes websocket clients.
func (s *Server) Shutdown(ctx context.Context) error {
	defer s.hub.Stop()
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// ==============================
// Command submission
// ==============================

// Submit journals and executes one command. It is the only path by which the
// server mutates the engine.
func (s *Server) Submit(cmdType protocol.CommandType, payload any, metadata map[string]string) (*match.ExecResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq := s.nextSeq
	if s.journal != nil {
		seq = s.journal.NextSeqID()
	}

	cmd, err := match.NewCommand(seq, cmdType, payload)
	if err != nil {
		return nil, err
	}
	cmd.Metadata = metadata

	if s.journal != nil {
		if err := s.journal.AppendCommand(cmd); err != nil {
			return nil, fmt.Errorf("%w: journal: %v", match.ErrInternal, err)
		}
	}
	s.nextSeq = seq + 1

	res, execErr := s.engine.Execute(cmd)
	s.maybeSnapshot()
	return res, execErr
}

func metadataFor(r *http.Request) map[string]string {
	return map[string]string{
		"request_id": requestID(r),
		"remote":     r.RemoteAddr,
	}
}

func (s *Server) maybeSnapshot() {
	if s.journal == nil || s.opts.SnapshotEvery == 0 {
		return
	}
	s.sinceSnapshot++
	if s.sinceSnapshot < s.opts.SnapshotEvery {
		return
	}
	s.sinceSnapshot = 0

	snap := s.engine.Snapshot()
	if err := s.journal.SaveSnapshot(snap); err != nil {
		s.logger.Error("failed to save snapshot", zap.Uint64("seq_id", snap.LastCmdSeqID), zap.Error(err))
		return
	}
	if err := s.journal.TruncateJournal(snap.LastCmdSeqID); err != nil {
		s.logger.Error("failed to truncate journal", zap.Uint64("seq_id", snap.LastCmdSeqID), zap.Error(err))
		return
	}
	s.logger.Info("snapshot saved", zap.Uint64("seq_id", snap.LastCmdSeqID))
}

// ==============================
// REST Handlers
// ==============================

func (s *Server) handleInit(w http.ResponseWriter, r *http.Request) {
	var req InitRequest
	if !s.decode(w, r, &req) {
		return
	}
	if _, err := s.Submit(protocol.CmdInit, &req, metadataFor(r)); err != nil {
		s.respondEngineError(w, r, err)
		return
	}
	s.respondPair(w)
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	var req DepositRequest
	if !s.decode(w, r, &req) {
		return
	}
	if _, err := s.Submit(protocol.CmdDeposit, &req, metadataFor(r)); err != nil {
		s.respondEngineError(w, r, err)
		return
	}

	account, _ := match.HexToAccountID(req.Account)
	asset, _ := match.HexToAssetID(req.Asset)
	amount, err := s.engine.Balance(account, asset)
	if err != nil {
		s.respondEngineError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, protocol.BalanceResponse{
		Account: account.Hex(),
		Asset:   asset.Hex(),
		Amount:  amount,
	})
}

func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req OrderRequest
	if !s.decode(w, r, &req) {
		return
	}

	if req.Side == nil {
		respondError(w, r, http.StatusBadRequest, "invalid side", "side is required")
		return
	}

	pair := s.engine.Pair()
	price, err := parsePrice(req, pair.PriceDecimals)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid price", err.Error())
		return
	}
	amount, err := strconv.ParseUint(req.Amount, 10, 64)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid amount", err.Error())
		return
	}

	res, err := s.Submit(protocol.CmdPlaceOrder, &protocol.PlaceOrderCommand{
		Account: req.Account,
		Side:    *req.Side,
		Price:   price,
		Amount:  amount,
	}, metadataFor(r))
	if err != nil {
		s.respondEngineError(w, r, err)
		return
	}

	resp := protocol.PlaceOrderResponse{
		OrderID:   res.Order.OrderID,
		Rested:    res.Order.Rested,
		Cancelled: res.Order.Cancelled,
		Trades:    make([]*protocol.TradeItem, 0, len(res.Order.Trades)),
	}
	for _, t := range res.Order.Trades {
		resp.Trades = append(resp.Trades, &protocol.TradeItem{
			TradeID:      t.TradeID,
			MakerOrderID: t.MakerOrderID,
			TakerOrderID: t.TakerOrderID,
			MakerOwner:   t.MakerOwner.Hex(),
			TakerOwner:   t.TakerOwner.Hex(),
			TakerSide:    t.TakerSide,
			Price:        t.Price,
			Amount:       t.Amount,
			QuoteAmount:  t.QuoteAmount,
		})
	}

	status := http.StatusOK
	if resp.Rested {
		status = http.StatusCreated
	}
	respondJSON(w, status, resp)
}

func parsePrice(req OrderRequest, decimals uint8) (uint64, error) {
	switch {
	case req.Price != "" && req.DisplayPrice != "":
		return 0, errors.New("set either price or display_price")
	case req.Price != "":
		return strconv.ParseUint(req.Price, 10, 64)
	case req.DisplayPrice != "":
		return protocol.ParseUnits(req.DisplayPrice, int32(decimals))
	default:
		return 0, errors.New("price is required")
	}
}

func (s *Server) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	account, err := match.HexToAccountID(vars["account"])
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid account", err.Error())
		return
	}
	asset, err := match.HexToAssetID(vars["asset"])
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid asset", err.Error())
		return
	}

	amount, err := s.engine.Balance(account, asset)
	if err != nil {
		s.respondEngineError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, protocol.BalanceResponse{
		Account: account.Hex(),
		Asset:   asset.Hex(),
		Amount:  amount,
	})
}

func (s *Server) handleGetOrderbook(w http.ResponseWriter, r *http.Request) {
	var index int
	switch side := mux.Vars(r)["side"]; side {
	case "bids":
		index = int(match.Buy)
	case "asks":
		index = int(match.Sell)
	default:
		n, err := strconv.Atoi(side)
		if err != nil {
			respondError(w, r, http.StatusBadRequest, "invalid side", side)
			return
		}
		index = n
	}

	entries, err := s.engine.Orderbook(index)
	if err != nil {
		s.respondEngineError(w, r, err)
		return
	}

	decimals := int32(s.engine.Pair().PriceDecimals)
	resp := make([]protocol.BookEntry, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, protocol.BookEntry{
			OrderID:      e.OrderID,
			Owner:        e.Owner.Hex(),
			Price:        e.Price,
			DisplayPrice: protocol.FormatUnits(e.Price, decimals),
			Amount:       e.Amount,
			Sequence:     e.Sequence,
		})
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetDepth(w http.ResponseWriter, r *http.Request) {
	limit := uint64(defaultDepthLimit)
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil || n == 0 || n > maxDepthLimit {
			respondError(w, r, http.StatusBadRequest, "invalid limit", fmt.Sprintf("limit must be between 1 and %d", maxDepthLimit))
			return
		}
		limit = n
	}

	depth, err := s.engine.Depth(uint32(limit))
	if err != nil {
		s.respondEngineError(w, r, err)
		return
	}

	decimals := int32(s.engine.Pair().PriceDecimals)
	convert := func(items []*match.DepthItem) []*protocol.DepthItem {
		out := make([]*protocol.DepthItem, 0, len(items))
		for _, item := range items {
			out = append(out, &protocol.DepthItem{
				Price:        item.Price,
				DisplayPrice: protocol.FormatUnits(item.Price, decimals),
				Amount:       item.Amount,
				Count:        item.Count,
			})
		}
		return out
	}

	respondJSON(w, http.StatusOK, protocol.GetDepthResponse{
		UpdateID: depth.UpdateID,
		Bids:     convert(depth.Bids),
		Asks:     convert(depth.Asks),
	})
}

func (s *Server) handleGetPair(w http.ResponseWriter, r *http.Request) {
	s.respondPair(w)
}

func (s *Server) respondPair(w http.ResponseWriter) {
	pair := s.engine.Pair()
	resp := protocol.PairResponse{
		PriceDecimals: pair.PriceDecimals,
		Initialized:   pair.Initialized,
	}
	if pair.Initialized {
		resp.BaseAsset = pair.BaseAsset.Hex()
		resp.QuoteAsset = pair.QuoteAsset.Hex()
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, HealthResponse{
		Status:       "ok",
		Initialized:  s.engine.Pair().Initialized,
		LastCmdSeqID: s.engine.LastCmdSeqID(),
	})
}

// ==============================
// Middleware
// ==============================

type ctxKey struct{}

func requestID(r *http.Request) string {
	id, _ := r.Context().Value(ctxKey{}).(string)
	return id
}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(headerRequestID)
		if id == "" {
			id = xid.New().String()
		}
		w.Header().Set(headerRequestID, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

// Unwrap lets http.ResponseController and the websocket upgrader reach the original writer.
func (rec *statusRecorder) Unwrap() http.ResponseWriter {
	return rec.ResponseWriter
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ws" {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		s.logger.Info("request",
			zap.String("request_id", requestID(r)),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// ==============================
// Helper Functions
// ==============================

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid request body", err.Error())
		return false
	}
	return true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, match.ErrInvalidOrder),
		errors.Is(err, match.ErrInvalidParam),
		errors.Is(err, match.ErrUnknownAsset):
		return http.StatusBadRequest
	case errors.Is(err, match.ErrInsufficientBalance),
		errors.Is(err, match.ErrOverflow):
		return http.StatusUnprocessableEntity
	case errors.Is(err, match.ErrAlreadyInitialized),
		errors.Is(err, match.ErrNotInitialized),
		errors.Is(err, match.ErrDuplicateCommand):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondEngineError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("command failed", zap.String("request_id", requestID(r)), zap.Error(err))
		respondError(w, r, status, match.ErrInternal.Error(), "")
		return
	}
	respondError(w, r, status, http.StatusText(status), err.Error())
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, r *http.Request, status int, errText string, message string) {
	respondJSON(w, status, ErrorResponse{
		Error:     errText,
		Message:   message,
		RequestID: requestID(r),
	})
}
