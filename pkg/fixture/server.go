// Package fixture serves the local practice site that keyword
// tables are written against: a store with sign-up and log-in
// modals raising native alerts, plus single-purpose pages for
// forms, checkboxes, dropdowns, uploads, alerts and modals.
package fixture

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Alert texts raised by the store's account forms.
const (
	AlertSignupOK     = "Sign up successful."
	AlertUserExists   = "This user already exist."
	AlertWrongPass    = "Wrong password."
	AlertUnknownUser  = "User does not exist."
	AlertMissingField = "Please fill out Username and Password."
)

//go:embed pages/*.html
var pages embed.FS

// Pages maps routes to their embedded page.
var Pages = map[string]string{
	"/":           "pages/store.html",
	"/login":      "pages/login.html",
	"/checkboxes": "pages/checkboxes.html",
	"/dropdown":   "pages/dropdown.html",
	"/upload":     "pages/upload.html",
	"/alert":      "pages/alert.html",
	"/modal":      "pages/modal.html",
}

// Server serves the fixture site and keeps the store's
// accounts in memory.
type Server struct {
	addr     string
	mu       sync.RWMutex
	users    map[string]string
	uploads  []string
	server   *http.Server
	listener net.Listener
}

// NewServer creates a fixture server for addr. Use
// "127.0.0.1:0" for a random port.
func NewServer(addr string) *Server {
	return &Server{
		addr:  addr,
		users: make(map[string]string),
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	for route, file := range Pages {
		pattern := "GET " + route
		if route == "/" {
			pattern = "GET /{$}"
		}
		mux.HandleFunc(pattern, s.servePage(file))
	}
	mux.HandleFunc("POST /api/signup", s.handleSignup)
	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("POST /upload", s.handleUpload)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

func (s *Server) servePage(file string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		data, err := pages.ReadFile(file)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(data)
	}
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type accountResponse struct {
	OK    bool   `json:"ok,omitempty"`
	Error string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeCredentials(r *http.Request) (credentials, bool) {
	var c credentials
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		return c, false
	}
	c.Username = strings.TrimSpace(c.Username)
	return c, c.Username != "" && c.Password != ""
}

// Account errors are reported with status 200 so the page can
// raise them as alerts.
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	c, ok := decodeCredentials(r)
	if !ok {
		writeJSON(w, http.StatusOK, accountResponse{Error: AlertMissingField})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[c.Username]; exists {
		writeJSON(w, http.StatusOK, accountResponse{Error: AlertUserExists})
		return
	}
	s.users[c.Username] = c.Password
	writeJSON(w, http.StatusOK, accountResponse{OK: true})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	c, ok := decodeCredentials(r)
	if !ok {
		writeJSON(w, http.StatusOK, accountResponse{Error: AlertMissingField})
		return
	}

	s.mu.RLock()
	pass, exists := s.users[c.Username]
	s.mu.RUnlock()
	switch {
	case !exists:
		writeJSON(w, http.StatusOK, accountResponse{Error: AlertUnknownUser})
	case pass != c.Password:
		writeJSON(w, http.StatusOK, accountResponse{Error: AlertWrongPass})
	default:
		writeJSON(w, http.StatusOK, accountResponse{OK: true})
	}
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "no file uploaded", http.StatusBadRequest)
		return
	}
	_ = file.Close()

	s.mu.Lock()
	s.uploads = append(s.uploads, header.Filename)
	s.mu.Unlock()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = fmt.Fprintf(
		w,
		"<!DOCTYPE html><html><body><h3>File Uploaded!</h3>"+
			"<div id=\"uploaded-files\">%s</div></body></html>",
		html.EscapeString(header.Filename),
	)
}

// AddUser registers an account, as a prior sign-up would.
func (s *Server) AddUser(username, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[username] = password
}

// HasUser reports whether username has signed up.
func (s *Server) HasUser(username string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.users[username]
	return ok
}

// Uploads returns the names of uploaded files.
func (s *Server) Uploads() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.uploads...)
}

// Listen binds the address so URL is known before serving.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("fixture server: %w", err)
	}
	s.mu.Lock()
	s.listener = ln
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Unlock()
	return nil
}

// Addr returns the bound address, or the configured one before
// Listen.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// URL returns the base URL of the site.
func (s *Server) URL() string {
	return "http://" + s.Addr()
}

// Start serves until ctx is done. It calls Listen if needed.
func (s *Server) Start(ctx context.Context) error {
	s.mu.RLock()
	bound := s.listener != nil
	s.mu.RUnlock()
	if !bound {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	s.mu.RLock()
	srv, ln := s.server, s.listener
	s.mu.RUnlock()

	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("fixture server: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.RLock()
	srv := s.server
	s.mu.RUnlock()
	if srv != nil {
		return srv.Shutdown(ctx)
	}
	return nil
}
