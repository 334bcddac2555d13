// Package inventory implements the inventory service: a single reservation
// endpoint writing into a bounded in-memory store, gated on
// inventory.write when the profile enforces per-method policies.
package inventory

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nemanja87/master-thesis-bench-runner/internal/auth/authz"
	"github.com/nemanja87/master-thesis-bench-runner/internal/auth/jwt"
	"github.com/nemanja87/master-thesis-bench-runner/internal/secprofile"
)

const defaultStoreCapacity = 256

// Reservation is one recorded reservation.
type Reservation struct {
	OrderID    string    `json:"orderId"`
	ItemSkus   []string  `json:"itemSkus"`
	ReceivedAt time.Time `json:"receivedAt"`
}

// Store keeps the most recent reservations in a bounded FIFO, with a total
// counter that survives eviction.
type Store struct {
	capacity int

	mu           sync.Mutex
	reservations []Reservation
	total        uint64
}

// NewStore creates a store retaining up to capacity reservations.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = defaultStoreCapacity
	}
	return &Store{capacity: capacity}
}

// Add records a reservation.
func (s *Store) Add(r Reservation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total++
	s.reservations = append(s.reservations, r)
	if excess := len(s.reservations) - s.capacity; excess > 0 {
		s.reservations = append(s.reservations[:0], s.reservations[excess:]...)
	}
}

// Recent returns a copy of the retained reservations, oldest first.
func (s *Store) Recent() []Reservation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Reservation, len(s.reservations))
	copy(out, s.reservations)
	return out
}

// Total returns the number of reservations ever recorded.
func (s *Store) Total() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// Service serves the reservation endpoint.
type Service struct {
	store  *Store
	logger *slog.Logger
}

// NewService creates the inventory service.
func NewService(store *Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

type reserveRequest struct {
	OrderID  string   `json:"orderId"`
	ItemSkus []string `json:"itemSkus"`
}

// Router builds the REST routes.
func (s *Service) Router(profile secprofile.Profile, validator *jwt.Validator, middlewares ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middlewares...)

	r.Get("/healthz", s.handleHealth(profile))

	r.Group(func(r chi.Router) {
		if profile.RequiresJWT() {
			r.Use(jwt.Middleware(validator))
		}

		r.With(authz.RequireScope(profile, "inventory.write")).
			Post("/api/inventory/reserve", s.handleReserve)
	})

	return r
}

func (s *Service) handleReserve(w http.ResponseWriter, r *http.Request) {
	var req reserveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.OrderID == "" {
		http.Error(w, "orderId is required", http.StatusBadRequest)
		return
	}

	s.store.Add(Reservation{
		OrderID:    req.OrderID,
		ItemSkus:   req.ItemSkus,
		ReceivedAt: time.Now().UTC(),
	})
	s.logger.Info("reservation recorded", "order_id", req.OrderID, "items", len(req.ItemSkus))

	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) handleHealth(profile secprofile.Profile) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":       "ok",
			"profile":      profile.String(),
			"reservations": s.store.Total(),
			"recent":       s.store.Recent(),
		})
	}
}
