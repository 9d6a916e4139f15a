// Package backendtest is an in-memory stand-in for the remote
// marketplace backend. It implements the seven endpoints the client
// consumes, close enough to exercise the client end to end in tests.
package backendtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"foodrescue/internal/model"
)

type account struct {
	ID       string
	Username string
	Password string
	Role     model.Role
}

// Server is the fake backend. All state is in memory and guarded by a
// single mutex; listings keep their insertion order.
type Server struct {
	mu       sync.Mutex
	accounts map[string]*account // by username
	tokens   map[string]string   // token -> username
	listings map[string]*model.FoodListing
	order    []string // listing ids, insertion order

	logger zerolog.Logger
	srv    *httptest.Server
}

// New starts the fake backend on a local listener. Callers own the
// returned server and must Close it.
func New(logger zerolog.Logger) *Server {
	s := &Server{
		accounts: make(map[string]*account),
		tokens:   make(map[string]string),
		listings: make(map[string]*model.FoodListing),
		logger:   logger.With().Str("component", "backendtest").Logger(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", s.handleLogin)
	mux.HandleFunc("/auth/register", s.handleRegister)
	mux.HandleFunc("/food/available", s.handleAvailable)
	mux.HandleFunc("/food/my", s.handleMy)
	mux.HandleFunc("/food", s.handleCreate)
	mux.HandleFunc("/food/", s.handleByID)

	s.srv = httptest.NewServer(s.logging(mux))
	return s
}

// URL returns the base URL clients should be pointed at.
func (s *Server) URL() string {
	return s.srv.URL
}

// Close shuts the listener down.
func (s *Server) Close() {
	s.srv.Close()
}

// SeedUser registers an account directly, bypassing the endpoint.
func (s *Server) SeedUser(username, password string, role model.Role) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := &account{ID: uuid.NewString(), Username: username, Password: password, Role: role}
	s.accounts[username] = a
	return a.ID
}

// SeedListing inserts a listing owned by the given username and
// returns its id. Zero-value status defaults to available.
func (s *Server) SeedListing(owner string, f model.FoodListing) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	f.ID = uuid.NewString()
	if f.Status == "" {
		f.Status = model.StatusAvailable
	}
	if a, ok := s.accounts[owner]; ok {
		f.Owner = &model.Owner{ID: a.ID, Username: a.Username}
	} else {
		f.Owner = &model.Owner{ID: owner, Username: owner}
	}
	s.listings[f.ID] = &f
	s.order = append(s.order, f.ID)
	return f.ID
}

// SeedToken issues a bearer token for an already-seeded account.
func (s *Server) SeedToken(username string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	token := uuid.NewString()
	s.tokens[token] = username
	return token
}

// Listing returns a copy of a stored listing for assertions.
func (s *Server) Listing(id string) (model.FoodListing, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.listings[id]
	if !ok {
		return model.FoodListing{}, false
	}
	return *f, true
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var creds model.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[creds.Username]
	if !ok || a.Password != creds.Password {
		writeError(w, http.StatusUnauthorized, "invalid username or password")
		return
	}

	token := uuid.NewString()
	s.tokens[token] = a.Username
	writeJSON(w, http.StatusOK, model.LoginResult{
		Token: token,
		User:  model.User{ID: a.ID, Username: a.Username, Role: a.Role},
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req model.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}
	if !req.Role.Valid() {
		writeError(w, http.StatusBadRequest, "role must be buyer or seller")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[req.Username]; exists {
		writeError(w, http.StatusBadRequest, "username already taken")
		return
	}
	a := &account{ID: uuid.NewString(), Username: req.Username, Password: req.Password, Role: req.Role}
	s.accounts[req.Username] = a
	writeJSON(w, http.StatusCreated, model.User{ID: a.ID, Username: a.Username, Role: a.Role})
}

func (s *Server) handleAvailable(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.FoodListing, 0)
	for _, id := range s.order {
		if f := s.listings[id]; f.Status == model.StatusAvailable {
			out = append(out, *f)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleMy(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	caller, ok := s.callerLocked(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	out := make([]model.FoodListing, 0)
	for _, id := range s.order {
		if f := s.listings[id]; f.Owner != nil && f.Owner.ID == caller.ID {
			out = append(out, *f)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	caller, ok := s.callerLocked(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	var fields model.FoodFields
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if fields.Name == nil || *fields.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if fields.Price == nil {
		writeError(w, http.StatusBadRequest, "price is required")
		return
	}

	f := &model.FoodListing{
		ID:     uuid.NewString(),
		Status: model.StatusAvailable,
		Owner:  &model.Owner{ID: caller.ID, Username: caller.Username},
	}
	applyFields(f, fields)
	s.listings[f.ID] = f
	s.order = append(s.order, f.ID)
	writeJSON(w, http.StatusCreated, f)
}

func (s *Server) handleByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/food/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "listing id is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	caller, ok := s.callerLocked(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	// Foreign listings look exactly like missing ones.
	f, exists := s.listings[id]
	if !exists || f.Owner == nil || f.Owner.ID != caller.ID {
		writeError(w, http.StatusNotFound, "listing not found")
		return
	}

	switch r.Method {
	case http.MethodPut:
		var fields model.FoodFields
		if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		applyFields(f, fields)
		writeJSON(w, http.StatusOK, f)

	case http.MethodDelete:
		delete(s.listings, id)
		for i, oid := range s.order {
			if oid == id {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "listing deleted"})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// applyFields copies the supplied fields onto the listing, leaving
// everything else untouched.
func applyFields(f *model.FoodListing, fields model.FoodFields) {
	if fields.Name != nil {
		f.Name = *fields.Name
	}
	if fields.Price != nil {
		f.Price = *fields.Price
	}
	if fields.Quantity != nil {
		f.Quantity = *fields.Quantity
	}
	if fields.Status != nil {
		f.Status = *fields.Status
	}
	if fields.PlaceName != nil {
		f.PlaceName = *fields.PlaceName
	}
	if fields.Description != nil {
		f.Description = *fields.Description
	}
	if fields.Location != nil {
		f.Location = fields.Location
	}
	if fields.ImageBase64 != nil {
		f.ImageBase64 = *fields.ImageBase64
	}
	if fields.ImageContentType != nil {
		f.ImageContentType = *fields.ImageContentType
	}
}

// callerLocked resolves the bearer token to an account. The caller
// must hold s.mu.
func (s *Server) callerLocked(r *http.Request) (*account, bool) {
	auth := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok || token == "" {
		return nil, false
	}
	username, ok := s.tokens[token]
	if !ok {
		return nil, false
	}
	a, ok := s.accounts[username]
	return a, ok
}

// logging logs each request with timing information.
func (s *Server) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rw.statusCode).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		return
	}
}

// writeError writes an error response with the given status and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, model.ErrorResponse{Error: message})
}
