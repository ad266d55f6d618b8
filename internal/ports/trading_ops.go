package ports

import (
	"context"

	"github.com/betbot/wfmtrader/internal/domain"
)

// Small capability interfaces for the engine's external collaborators.
// The engine only calls these; it owns no wire format of its own.

// MarketData is the historical price cache.
type MarketData interface {
	// AveragedHistory returns the raw observation table over the lookback window.
	AveragedHistory(ctx context.Context) ([]domain.PriceObservation, error)
}

// OrderManager is the marketplace order API.
type OrderManager interface {
	ListLiveOrders(ctx context.Context, item string) ([]domain.LiveOrder, error)
	ListOwnOrders(ctx context.Context) (domain.OwnOrders, error)
	CreateOrder(ctx context.Context, req domain.OrderRequest) (domain.OwnOrder, error)
	UpdateOrder(ctx context.Context, id string, req domain.OrderRequest) error
	DeleteOrder(ctx context.Context, id, item string, side domain.Side) error
}

// ItemCatalog resolves item metadata.
type ItemCatalog interface {
	Item(ctx context.Context, urlName string) (domain.ItemInfo, error)
}

// Inventory is the local stock store.
type Inventory interface {
	InventoryNames(ctx context.Context) ([]string, error)
	// Inventory returns nil, nil when the item is not owned.
	Inventory(ctx context.Context, item string) (*domain.InventoryRecord, error)
	// SetInventoryPrice records the listed price; nil clears it.
	SetInventoryPrice(ctx context.Context, item string, price *int64) error
}

// Notifier delivers operator notifications. Fire-and-forget: implementations
// must not block and must swallow their own failures.
type Notifier interface {
	Notify(message string, ping bool)
}

// Identity tells the engine which live orders belong to the operator.
type Identity interface {
	IngameName() string
}
