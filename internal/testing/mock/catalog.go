package mock

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// CatalogGame is a game as the catalog API serves it.
type CatalogGame struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Status string `json:"status"`
	URL    string `json:"url"`
}

// RecordedRequest is a request received by CatalogServer.
type RecordedRequest struct {
	Method        string
	Path          string
	Authorization string
	RequestID     string
}

// UploadedFile is a multipart upload received by CatalogServer.
type UploadedFile struct {
	Title    string
	Filename string
	Data     []byte
}

// CatalogServer is an in-process catalog API.
type CatalogServer struct {
	server *httptest.Server

	mu       sync.Mutex
	games    []CatalogGame
	requests []RecordedRequest
	uploads  []UploadedFile
	failures map[string][]int
}

// Route names accepted by FailNext.
const (
	RouteList   = "list"
	RouteGet    = "get"
	RouteDelete = "delete"
	RouteUpload = "upload"
)

// NewCatalogServer starts a catalog API. Call Close when done.
func NewCatalogServer(games ...CatalogGame) *CatalogServer {
	s := &CatalogServer{
		games:    append([]CatalogGame(nil), games...),
		failures: make(map[string][]int),
	}

	r := mux.NewRouter()
	r.Use(s.record)
	r.HandleFunc("/games", s.handleList).Methods(http.MethodGet)
	r.HandleFunc("/games", s.handleUpload).Methods(http.MethodPost)
	r.HandleFunc("/games/{id}", s.handleGet).Methods(http.MethodGet)
	r.HandleFunc("/games/{id}", s.handleDelete).Methods(http.MethodDelete)

	s.server = httptest.NewServer(r)
	return s
}

// URL returns the API base URL.
func (s *CatalogServer) URL() string {
	return s.server.URL
}

// Client returns an HTTP client for the server.
func (s *CatalogServer) Client() *http.Client {
	return s.server.Client()
}

// Close shuts the server down.
func (s *CatalogServer) Close() {
	s.server.Close()
}

// PutGame inserts or replaces a game by id.
func (s *CatalogServer) PutGame(g CatalogGame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.games {
		if s.games[i].ID == g.ID {
			s.games[i] = g
			return
		}
	}
	s.games = append(s.games, g)
}

// Games returns the server's current games.
func (s *CatalogServer) Games() []CatalogGame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]CatalogGame(nil), s.games...)
}

// Requests returns the requests received so far.
func (s *CatalogServer) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RecordedRequest(nil), s.requests...)
}

// Uploads returns the uploads received so far.
func (s *CatalogServer) Uploads() []UploadedFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]UploadedFile(nil), s.uploads...)
}

// FailNext makes the next request to route answer with status.
func (s *CatalogServer) FailNext(route string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = append(s.failures[route], status)
}

func (s *CatalogServer) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, RecordedRequest{
			Method:        r.Method,
			Path:          r.URL.Path,
			Authorization: r.Header.Get("Authorization"),
			RequestID:     r.Header.Get("X-Request-ID"),
		})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

// injectedFailure pops a pending failure for route and writes it.
func (s *CatalogServer) injectedFailure(w http.ResponseWriter, route string) bool {
	s.mu.Lock()
	pending := s.failures[route]
	if len(pending) == 0 {
		s.mu.Unlock()
		return false
	}
	status := pending[0]
	s.failures[route] = pending[1:]
	s.mu.Unlock()

	writeJSON(w, status, map[string]string{"message": http.StatusText(status)})
	return true
}

func (s *CatalogServer) handleList(w http.ResponseWriter, r *http.Request) {
	if s.injectedFailure(w, RouteList) {
		return
	}
	writeJSON(w, http.StatusOK, s.Games())
}

func (s *CatalogServer) handleGet(w http.ResponseWriter, r *http.Request) {
	if s.injectedFailure(w, RouteGet) {
		return
	}
	id := mux.Vars(r)["id"]
	for _, g := range s.Games() {
		if g.ID == id {
			writeJSON(w, http.StatusOK, g)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "Game not found"})
}

func (s *CatalogServer) handleDelete(w http.ResponseWriter, r *http.Request) {
	if s.injectedFailure(w, RouteDelete) {
		return
	}
	id := mux.Vars(r)["id"]

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.games {
		if s.games[i].ID == id {
			s.games = append(s.games[:i], s.games[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "Game not found"})
}

func (s *CatalogServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	if s.injectedFailure(w, RouteUpload) {
		return
	}
	title := r.PostFormValue("title")
	if title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Title is required"})
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": err.Error()})
		return
	}

	id := uuid.NewString()
	s.mu.Lock()
	s.uploads = append(s.uploads, UploadedFile{Title: title, Filename: header.Filename, Data: data})
	s.games = append(s.games, CatalogGame{ID: id, Title: title, Status: "New"})
	s.mu.Unlock()

	w.Header().Set("Content-Location", r.Host+"/games/"+id)
	w.WriteHeader(http.StatusCreated)
}

// decodeGames is used by tests of this package.
func decodeGames(r io.Reader) ([]CatalogGame, error) {
	var games []CatalogGame
	err := json.NewDecoder(r).Decode(&games)
	return games, err
}
