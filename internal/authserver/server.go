// Package authserver runs a short-lived local HTTP server that walks a
// browser through one passkey ceremony and hands the outcome back to the CLI.
package authserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/vaultkey/vaultkey/internal/auth"
	"github.com/vaultkey/vaultkey/internal/client"
	"github.com/vaultkey/vaultkey/internal/common"
	"github.com/vaultkey/vaultkey/internal/logging"
	"github.com/vaultkey/vaultkey/internal/models"
)

// Mode selects which ceremony the server runs.
type Mode string

const (
	ModeRegister Mode = "register"
	ModeLogin    Mode = "login"
)

// Result is the outcome of a completed ceremony. Registration fills Passkey;
// login fills Token.
type Result struct {
	Passkey *models.Passkey
	Token   *auth.IssuedToken
}

// Server serves exactly one ceremony for one user, then shuts down.
type Server struct {
	vault  *client.VaultClient
	userID string
	mode   Mode
	port   int
	log    logging.Logger

	done chan Result
}

// New constructs a server for the given user and ceremony mode.
func New(vault *client.VaultClient, userID string, mode Mode, port int, log logging.Logger) *Server {
	return &Server{
		vault:  vault,
		userID: userID,
		mode:   mode,
		port:   port,
		log:    log,
		done:   make(chan Result, 1),
	}
}

// URL returns the address the browser should open.
func (s *Server) URL() string {
	return fmt.Sprintf("http://localhost:%d/", s.port)
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Get("/success", s.handleSuccess)
	r.Get("/api/register/options", s.handleRegisterOptions)
	r.Post("/api/register/verify", s.handleRegisterVerify)
	r.Get("/api/login/options", s.handleLoginOptions)
	r.Post("/api/login/verify", s.handleLoginVerify)
	return r
}

// Run serves until the ceremony completes, the context is cancelled, or the
// listener fails. Completion triggers a graceful shutdown after the success
// page has been delivered.
func (s *Server) Run(ctx context.Context) (*Result, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", s.port))
	if err != nil {
		return nil, common.NewValidationError(fmt.Sprintf("Failed to listen on port %d", s.port))
	}

	srv := &http.Server{Handler: s.routes()}
	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(ln) }()

	s.log.Info(ctx, "auth server listening", "url", s.URL(), "mode", string(s.mode), "userId", s.userID)

	var result *Result
	select {
	case r := <-s.done:
		result = &r
	case <-ctx.Done():
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return nil, common.NewDatabaseError("Auth server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	if result == nil {
		return nil, common.NewAuthenticationError("Ceremony was not completed")
	}
	return result, nil
}

func (s *Server) handleRegisterOptions(w http.ResponseWriter, r *http.Request) {
	options, err := s.vault.BeginRegistration(r.Context(), s.userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, options)
}

func (s *Server) handleRegisterVerify(w http.ResponseWriter, r *http.Request) {
	created, err := s.vault.FinishRegistration(r.Context(), s.userID, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"verified": true})
	s.finish(Result{Passkey: created})
}

func (s *Server) handleLoginOptions(w http.ResponseWriter, r *http.Request) {
	options, err := s.vault.BeginLogin(r.Context(), s.userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, options)
}

func (s *Server) handleLoginVerify(w http.ResponseWriter, r *http.Request) {
	issued, err := s.vault.FinishLogin(r.Context(), s.userID, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"verified": true})
	s.finish(Result{Token: issued})
}

// finish delivers the result once; later completions are dropped.
func (s *Server) finish(result Result) {
	select {
	case s.done <- result:
	default:
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch common.ErrorKind(err) {
	case common.KindValidation:
		status = http.StatusBadRequest
	case common.KindAuthentication:
		status = http.StatusUnauthorized
	case common.KindNotFound:
		status = http.StatusNotFound
	}
	s.log.Error(r.Context(), "ceremony request failed", "path", r.URL.Path, "error", err.Error())
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
