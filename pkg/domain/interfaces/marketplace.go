package interfaces

import (
	"context"

	"github.com/secmon-lab/tradescout/pkg/domain/model"
	"github.com/secmon-lab/tradescout/pkg/domain/types"
)

// Marketplace is the read side of the trading site. Lookups never fail: upstream
// errors, throttling and malformed responses all come back as "no data".
type Marketplace interface {
	// RecentTradeAdCreators returns the distinct creators of recent trade ads in
	// first-seen order. Empty on failure.
	RecentTradeAdCreators(ctx context.Context) []types.PlayerID

	// PlayerInfo returns the player's profile, nil when unavailable
	PlayerInfo(ctx context.Context, id types.PlayerID) *model.PlayerInfo

	// ItemName returns the display name of an item, falling back to its ID
	ItemName(ctx context.Context, id types.ItemID) string
}

// Inventory is the read side of the game platform's inventory and profile APIs.
// Like Marketplace, failures surface as "no data".
type Inventory interface {
	// CollectibleValue sums the recent average price of all collectibles. Nil
	// when the inventory is private, empty or unreadable.
	CollectibleValue(ctx context.Context, id types.PlayerID) *int64

	// OldestOwnedDays returns the age in days of the oldest ownership record,
	// nil when no record carries a date
	OldestOwnedDays(ctx context.Context, id types.PlayerID) *int

	// ItemOwnedDays returns how long the player has owned the item, nil when the
	// item is not owned or the record has no date
	ItemOwnedDays(ctx context.Context, id types.PlayerID, item types.ItemID) *int

	// Bio returns the trimmed profile description, empty on failure
	Bio(ctx context.Context, id types.PlayerID) string
}
