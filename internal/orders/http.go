package orders

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nemanja87/master-thesis-bench-runner/internal/auth/authz"
	"github.com/nemanja87/master-thesis-bench-runner/internal/auth/jwt"
	"github.com/nemanja87/master-thesis-bench-runner/internal/secprofile"
)

type createOrderRequest struct {
	CustomerID  string   `json:"customerId"`
	ItemSkus    []string `json:"itemSkus"`
	TotalAmount float64  `json:"totalAmount"`
}

// Router builds the REST routes. Order creation requires orders.write and
// reads require orders.read whenever the profile enforces per-method
// policies; the health endpoint is always open.
func (s *Service) Router(profile secprofile.Profile, validator *jwt.Validator, middlewares ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middlewares...)

	r.Get("/healthz", s.handleHealth(profile))

	r.Group(func(r chi.Router) {
		if profile.RequiresJWT() {
			r.Use(jwt.Middleware(validator))
		}

		r.With(authz.RequireScope(profile, "orders.write")).Post("/api/orders", s.handleCreate)
		r.With(authz.RequireScope(profile, "orders.read")).Get("/api/orders/{id}", s.handleGet)
	})

	return r
}

func (s *Service) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.CustomerID == "" {
		http.Error(w, "customerId is required", http.StatusBadRequest)
		return
	}

	order := s.Create(req.CustomerID, req.ItemSkus, req.TotalAmount, r.Header.Get("Authorization"))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(order)
}

func (s *Service) handleGet(w http.ResponseWriter, r *http.Request) {
	order, ok := s.Get(chi.URLParam(r, "id"))
	if !ok {
		http.Error(w, "order not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(order)
}

func (s *Service) handleHealth(profile secprofile.Profile) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  "ok",
			"profile": profile.String(),
			"orders":  s.Count(),
		})
	}
}
