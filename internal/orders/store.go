// Package orders implements the order service: REST and gRPC order
// creation over an in-memory repository, with a fire-and-forget inventory
// reservation call per created order.
package orders

import (
	"sync"
	"time"
)

// Order is a stored order.
type Order struct {
	ID          string    `json:"id"`
	CustomerID  string    `json:"customerId"`
	ItemSkus    []string  `json:"itemSkus"`
	TotalAmount float64   `json:"totalAmount"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Store is an in-memory order repository.
type Store struct {
	mu     sync.RWMutex
	orders map[string]Order
}

// NewStore creates an empty repository.
func NewStore() *Store {
	return &Store{orders: make(map[string]Order)}
}

// Put stores an order.
func (s *Store) Put(o Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID] = o
}

// Get returns the order with the given id.
func (s *Store) Get(id string) (Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	return o, ok
}

// Count returns the number of stored orders.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orders)
}
