// Package api exposes the ledger operations over HTTP/JSON.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/cyberkelysoatra/bazarkely-sub000/ledger"
	"github.com/cyberkelysoatra/bazarkely-sub000/service"
)

type Config struct {
	ListenAddr      string        `env:"LISTEN_ADDR" envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

type Server struct {
	cfg     Config
	router  *mux.Router
	service *service.Service
}

func New(cfg Config, svc *service.Service) *Server {
	s := &Server{
		cfg:     cfg,
		router:  mux.NewRouter(),
		service: svc,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	v1 := s.router.PathPrefix("/v1").Subrouter()

	v1.HandleFunc("/requests", s.createRequestHandler).Methods(http.MethodPost)
	v1.HandleFunc("/requests/{id}/settle", s.settleRequestHandler).Methods(http.MethodPost)
	v1.HandleFunc("/requests/{id}/cancel", s.cancelRequestHandler).Methods(http.MethodPost)
	v1.HandleFunc("/debts/pending", s.listPendingHandler).Methods(http.MethodGet)
	v1.HandleFunc("/allocations/preview", s.previewAllocationHandler).Methods(http.MethodPost)
	v1.HandleFunc("/allocations", s.commitAllocationHandler).Methods(http.MethodPost)
	v1.HandleFunc("/groups/{id}/balances", s.memberBalancesHandler).Methods(http.MethodGet)

	v1.HandleFunc("/loans", s.createLoanHandler).Methods(http.MethodPost)
	v1.HandleFunc("/loans/{id}", s.getLoanHandler).Methods(http.MethodGet)
	v1.HandleFunc("/loans/{id}/interest-periods", s.generateInterestPeriodHandler).Methods(http.MethodPost)
	v1.HandleFunc("/loans/{id}/interest-periods", s.unpaidInterestPeriodsHandler).Methods(http.MethodGet)
	v1.HandleFunc("/loans/{id}/repayments", s.recordPaymentHandler).Methods(http.MethodPost)
	v1.HandleFunc("/loans/{id}/repayments", s.repaymentHistoryHandler).Methods(http.MethodGet)
	v1.HandleFunc("/loans/{id}/repayments/{repaymentID}/index", s.repaymentIndexHandler).Methods(http.MethodGet)
	v1.HandleFunc("/loans/{id}/progress", s.loanProgressHandler).Methods(http.MethodGet)
}

// Router exposes the handler for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) ListenAndServe(ctx context.Context) error {
	server := &http.Server{
		Addr:    s.cfg.ListenAddr,
		Handler: s.router,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := "internal"
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ledger.ErrDuplicateIdempotencyKey):
		code = "duplicate_idempotency_key"
		status = http.StatusConflict
	case ledger.IsValidation(err):
		code = "validation"
		status = http.StatusBadRequest
	case ledger.IsNotFound(err):
		code = "not_found"
		status = http.StatusNotFound
	case ledger.IsConflict(err):
		code = "conflict"
		status = http.StatusConflict
	default:
		log.Printf("Internal error serving request: %v\n", err)
	}

	s.writeJSON(w, status, errorResponse{Error: err.Error(), Code: code})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("Error encoding response: %v\n", err)
	}
}

func (s *Server) readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.writeError(w, &ledger.ValidationError{Field: "body", Reason: "malformed JSON"})
		return false
	}
	return true
}
