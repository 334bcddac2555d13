package orders

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Service coordinates order creation across the repository and the
// inventory reservation backchannel.
type Service struct {
	store     *Store
	inventory *InventoryClient
	logger    *slog.Logger
}

// NewService creates the order service. The inventory client may be nil;
// reservation is then skipped entirely.
func NewService(store *Store, inventory *InventoryClient, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, inventory: inventory, logger: logger}
}

// Create stores a new order and kicks off the reservation call. The call
// is fire and forget: it runs detached from the request with its own
// deadline, and its failure never fails the order.
func (s *Service) Create(customerID string, itemSkus []string, totalAmount float64, authorization string) Order {
	order := Order{
		ID:          uuid.NewString(),
		CustomerID:  customerID,
		ItemSkus:    itemSkus,
		TotalAmount: totalAmount,
		CreatedAt:   time.Now().UTC(),
	}
	s.store.Put(order)
	s.logger.Info("order created", "order_id", order.ID, "items", len(order.ItemSkus))

	if s.inventory != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			s.inventory.Reserve(ctx, order, authorization)
		}()
	}

	return order
}

// Get returns a stored order.
func (s *Service) Get(id string) (Order, bool) {
	return s.store.Get(id)
}

// Count returns the number of stored orders.
func (s *Service) Count() int {
	return s.store.Count()
}
