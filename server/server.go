// Package server exposes the shopping assistant over REST and WebSocket.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/prasertk/shopassist/agent/contract"
	"github.com/prasertk/shopassist/agent/orchestrator"
)

// Config carries the HTTP listener settings, loaded with the SERVER env
// prefix.
type Config struct {
	Host            string        `envconfig:"HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" default:"30s"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" default:"120s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// Agent is the turn interface the server drives. Satisfied by
// orchestrator.Orchestrator.
type Agent interface {
	ProcessTurn(ctx context.Context, in orchestrator.TurnInput) (contractx.TurnResult, error)
	ConfirmAction(ctx context.Context, pending contractx.PendingAction, confirmed bool) contractx.ActionResult
}

// Server owns the HTTP surface. Turns for the same session are serialized
// through per-session locks; the conversation store assumes a single writer.
type Server struct {
	agent   Agent
	catalog contractx.ProductCatalog
	cart    contractx.CartService
	payment contractx.PaymentGateway
	cfg     Config

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	httpServer *http.Server
}

func New(
	agent Agent,
	catalog contractx.ProductCatalog,
	cart contractx.CartService,
	payment contractx.PaymentGateway,
	cfg Config,
) *Server {
	s := &Server{
		agent:   agent,
		catalog: catalog,
		cart:    cart,
		payment: payment,
		cfg:     cfg,
		locks:   make(map[string]*sync.Mutex),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleHealth)
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("POST /api/actions/confirm", s.handleConfirmAction)
	mux.HandleFunc("POST /api/search", s.handleSearch)
	mux.HandleFunc("GET /api/products/{product_id}", s.handleGetProduct)
	mux.HandleFunc("GET /api/cart/{session_id}", s.handleGetCart)
	mux.HandleFunc("POST /api/cart/{session_id}", s.handleUpdateCart)
	mux.HandleFunc("POST /api/checkout/{session_id}", s.handleCheckout)
	mux.HandleFunc("GET /ws/{session_id}", s.handleWebSocket)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      withCORS(mux),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) ListenAndServe() error {
	log.Info().Str("addr", s.httpServer.Addr).Msg("http server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

// sessionLock returns the mutex serializing turns for one session.
func (s *Server) sessionLock(sessionID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[sessionID] = lock
	}
	return lock
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
