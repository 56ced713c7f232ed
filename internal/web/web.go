// Package web serves the login scaffold routes over JSON.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/stefvanhouten/loginauth"
	"github.com/stefvanhouten/loginauth/middleware"
)

const maxBodySize = 4 << 10

// Auth is the engine surface the handlers use. *loginauth.Engine satisfies it.
type Auth interface {
	Register(ctx context.Context, username, plaintext string) (loginauth.Credential, error)
	Login(ctx context.Context, username, plaintext string) (string, error)
	Logout(ctx context.Context, token string) error
	CurrentUser(ctx context.Context, token string) (loginauth.Identity, error)
}

// Server holds the handler dependencies.
type Server struct {
	auth    Auth
	session loginauth.SessionConfig
	logger  *slog.Logger
	metrics http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics mounts h at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithLogger sets the request logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// New creates a Server. session supplies the cookie contract.
func New(auth Auth, session loginauth.SessionConfig, opts ...Option) *Server {
	s := &Server{
		auth:    auth,
		session: session,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Credentials is the body of /signup and /login.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// UserResponse is the public view of a user.
type UserResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// ErrorResponse carries a user-facing message.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Router returns the scaffold routes.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(s.logRequests)
	r.Use(middleware.ClientIP)

	r.Get("/", s.Index)
	r.Post("/signup", s.Signup)
	r.Post("/login", s.Login)
	r.With(middleware.GuardRedirect(s.auth, s.session.CookieName, "/")).Get("/home", s.Home)
	r.Post("/logout", s.Logout)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	r.NotFound(s.NotFound)

	return r
}

// Index handles GET /.
func (s *Server) Index(w http.ResponseWriter, r *http.Request) {
	resp := struct {
		Authenticated bool          `json:"authenticated"`
		User          *UserResponse `json:"user,omitempty"`
	}{}

	if token := middleware.SessionToken(r, s.session.CookieName); token != "" {
		if id, err := s.auth.CurrentUser(r.Context(), token); err == nil {
			resp.Authenticated = true
			resp.User = &UserResponse{ID: id.UserID, Username: id.Username}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Signup handles POST /signup.
func (s *Server) Signup(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[Credentials](w, r)
	if !ok {
		return
	}
	if req.Username == "" {
		writeError(w, http.StatusBadRequest, "Username required")
		return
	}
	if req.Password == "" {
		writeError(w, http.StatusBadRequest, "Password required")
		return
	}

	cred, err := s.auth.Register(r.Context(), req.Username, req.Password)
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, UserResponse{ID: cred.ID, Username: cred.Username})
	case errors.Is(err, loginauth.ErrDuplicateUsername):
		writeError(w, http.StatusConflict, "Username is already taken")
	case errors.Is(err, loginauth.ErrValidation):
		writeError(w, http.StatusBadRequest, "Invalid username or password")
	default:
		s.internalError(w, r, "registration failed", err)
	}
}

// Login handles POST /login. Every credential failure gets the same message.
func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[Credentials](w, r)
	if !ok {
		return
	}

	token, err := s.auth.Login(r.Context(), req.Username, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, loginauth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Username/password combination is incorrect")
		return
	case errors.Is(err, loginauth.ErrLoginRateLimited):
		writeError(w, http.StatusTooManyRequests, "Too many login attempts, try again later")
		return
	default:
		s.internalError(w, r, "login failed", err)
		return
	}

	id, err := s.auth.CurrentUser(r.Context(), token)
	if err != nil {
		s.internalError(w, r, "fresh session rejected", err)
		return
	}

	middleware.SetSessionCookie(w, s.session, token)
	writeJSON(w, http.StatusOK, UserResponse{ID: id.UserID, Username: id.Username})
}

// Home handles GET /home behind the session guard.
func (s *Server) Home(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusOK, UserResponse{ID: id.UserID, Username: id.Username})
}

// Logout revokes the session cookie's token, clears the cookie and redirects to
// /home.
func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	if token := middleware.SessionToken(r, s.session.CookieName); token != "" {
		if err := s.auth.Logout(r.Context(), token); err != nil {
			s.internalError(w, r, "logout failed", err)
			return
		}
	}
	middleware.ClearSessionCookie(w, s.session)
	http.Redirect(w, r, "/home", http.StatusSeeOther)
}

// NotFound answers unknown paths.
func (s *Server) NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, struct {
		Error string `json:"error"`
		Path  string `json:"path"`
	}{Error: "not found", Path: r.URL.Path})
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	s.logger.Error(msg, "err", err, "request_id", chimw.GetReqID(r.Context()))
	writeError(w, http.StatusServiceUnavailable, "Service temporarily unavailable")
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"request_id", chimw.GetReqID(r.Context()),
		)
	})
}

func decodeJSON[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var v T
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return v, false
	}
	return v, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
