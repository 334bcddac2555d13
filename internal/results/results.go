// Package results implements the results collector skeleton: benchmark
// runs are recorded and listed in memory. Driving the load generators and
// persisting their output stays outside this service.
package results

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nemanja87/master-thesis-bench-runner/internal/secprofile"
)

// Run is one recorded benchmark run.
type Run struct {
	ID         string    `json:"id"`
	Label      string    `json:"label"`
	Profile    string    `json:"profile"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt,omitempty"`
	RecordedAt time.Time `json:"recordedAt"`
}

// Store is an in-memory run repository.
type Store struct {
	mu   sync.RWMutex
	runs map[string]Run
}

// NewStore creates an empty repository.
func NewStore() *Store {
	return &Store{runs: make(map[string]Run)}
}

// Put stores a run.
func (s *Store) Put(r Run) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[r.ID] = r
}

// List returns all runs ordered by recording time.
func (s *Store) List() []Run {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Run, 0, len(s.runs))
	for _, r := range s.runs {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RecordedAt.Before(out[j].RecordedAt) })
	return out
}

// Count returns the number of stored runs.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.runs)
}

// Service serves the run endpoints.
type Service struct {
	store  *Store
	logger *slog.Logger
}

// NewService creates the results service.
func NewService(store *Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

type createRunRequest struct {
	Label      string    `json:"label"`
	Profile    string    `json:"profile"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
}

// Router builds the REST routes.
func (s *Service) Router(profile secprofile.Profile, middlewares ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middlewares...)

	r.Get("/healthz", s.handleHealth(profile))
	r.Post("/api/runs", s.handleCreate)
	r.Get("/api/runs", s.handleList)

	return r
}

func (s *Service) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Label == "" {
		http.Error(w, "label is required", http.StatusBadRequest)
		return
	}

	run := Run{
		ID:         uuid.NewString(),
		Label:      req.Label,
		Profile:    req.Profile,
		StartedAt:  req.StartedAt,
		FinishedAt: req.FinishedAt,
		RecordedAt: time.Now().UTC(),
	}
	s.store.Put(run)
	s.logger.Info("run recorded", "run_id", run.ID, "label", run.Label, "profile", run.Profile)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(run)
}

func (s *Service) handleList(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.store.List())
}

func (s *Service) handleHealth(profile secprofile.Profile) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  "ok",
			"profile": profile.String(),
			"runs":    s.store.Count(),
		})
	}
}
