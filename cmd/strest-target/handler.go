package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type target struct {
	logger   *zap.Logger
	mu       sync.Mutex
	sessions map[string]string
	requests atomic.Int64
}

func newHandler(logger *zap.Logger) http.Handler {
	t := &target{logger: logger, sessions: map[string]string{}}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "healthy")
	})
	mux.HandleFunc("POST /sessions/{client}", t.login)
	mux.HandleFunc("DELETE /sessions/{client}", t.logout)
	mux.HandleFunc("GET /items", t.items)
	mux.HandleFunc("GET /slow", t.slow)
	mux.HandleFunc("GET /flaky", t.flaky)
	return mux
}

func (t *target) login(w http.ResponseWriter, r *http.Request) {
	client := r.PathValue("client")
	token := uuid.NewString()

	t.mu.Lock()
	t.sessions[client] = token
	t.mu.Unlock()

	t.logger.Debug("session opened", zap.String("client", client))
	writeJSON(w, http.StatusCreated, map[string]string{"client": client, "token": token})
}

func (t *target) logout(w http.ResponseWriter, r *http.Request) {
	client := r.PathValue("client")

	t.mu.Lock()
	_, ok := t.sessions[client]
	delete(t.sessions, client)
	t.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no session"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (t *target) items(w http.ResponseWriter, r *http.Request) {
	n := t.requests.Add(1)
	writeJSON(w, http.StatusOK, map[string]any{
		"count": 2,
		"items": []map[string]any{{"id": 1, "name": "alpha"}, {"id": 2, "name": "beta"}},
		"seq":   n,
	})
}

// slow sleeps for ?ms=<n> milliseconds (default 200), or until the client
// goes away.
func (t *target) slow(w http.ResponseWriter, r *http.Request) {
	ms, err := strconv.Atoi(r.URL.Query().Get("ms"))
	if err != nil || ms < 0 {
		ms = 200
	}

	select {
	case <-time.After(time.Duration(ms) * time.Millisecond):
		writeJSON(w, http.StatusOK, map[string]int{"sleptMs": ms})
	case <-r.Context().Done():
	}
}

// flaky fails every ?every=<n>th request (default 3) with a 503.
func (t *target) flaky(w http.ResponseWriter, r *http.Request) {
	every, err := strconv.Atoi(r.URL.Query().Get("every"))
	if err != nil || every < 1 {
		every = 3
	}
	if t.requests.Add(1)%int64(every) == 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "try again"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
