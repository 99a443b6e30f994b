package roblox

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/secmon-lab/tradescout/pkg/domain/interfaces"
	"github.com/secmon-lab/tradescout/pkg/domain/model"
	"github.com/secmon-lab/tradescout/pkg/domain/types"
	"github.com/secmon-lab/tradescout/pkg/service/fetch"
	"github.com/secmon-lab/tradescout/pkg/utils/logging"
)

const (
	DefaultInventoryBaseURL = "https://inventory.roblox.com"
	DefaultUsersBaseURL     = "https://users.roblox.com"
)

// ownership timestamps in the order they are consulted for each record
var (
	ownershipKeys     = []string{"created", "updated", "acquiredAt", "updatedAt", "addTime"}
	itemOwnershipKeys = []string{"created", "updated", "acquiredAt", "addTime"}
)

// Client reads collectibles and profiles
type Client struct {
	inventoryBase string
	usersBase     string
	fetcher       *fetch.Client
	now           func() time.Time

	noDateWarning sync.Once
}

var _ interfaces.Inventory = (*Client)(nil)

// Option configures a Client
type Option func(*Client)

// WithBaseURLs points the client at other hosts. Used by tests.
func WithBaseURLs(inventory, users string) Option {
	return func(c *Client) {
		c.inventoryBase = strings.TrimRight(inventory, "/")
		c.usersBase = strings.TrimRight(users, "/")
	}
}

// WithFetcher replaces the HTTP layer
func WithFetcher(f *fetch.Client) Option {
	return func(c *Client) {
		c.fetcher = f
	}
}

// WithClock replaces the clock used for ownership ages
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// New creates a Client
func New(opts ...Option) *Client {
	c := &Client{
		inventoryBase: DefaultInventoryBaseURL,
		usersBase:     DefaultUsersBaseURL,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.fetcher == nil {
		c.fetcher = fetch.New()
	}
	return c
}

type collectible map[string]json.RawMessage

type collectiblesPage struct {
	Data           []collectible `json:"data"`
	NextPageCursor string        `json:"nextPageCursor"`
}

func (c *Client) collectiblesURL(id types.PlayerID) func(cursor string) string {
	return func(cursor string) string {
		u := fmt.Sprintf("%s/v1/users/%s/assets/collectibles?sortOrder=Asc&limit=100", c.inventoryBase, url.PathEscape(id.String()))
		if cursor != "" {
			u += "&cursor=" + url.QueryEscape(cursor)
		}
		return u
	}
}

// walk feeds every collectible of the player to visit until visit returns false
func (c *Client) walk(ctx context.Context, id types.PlayerID, visit func(item collectible) bool) error {
	_, err := fetch.Paginate(ctx, c.fetcher, c.collectiblesURL(id), func(body []byte) (string, error) {
		var page collectiblesPage
		if err := json.Unmarshal(body, &page); err != nil {
			return "", goerr.Wrap(err, "failed to decode collectibles page", goerr.V("player_id", id))
		}
		if len(page.Data) == 0 {
			return "", nil
		}
		for _, item := range page.Data {
			if !visit(item) {
				return "", nil
			}
		}
		return page.NextPageCursor, nil
	})
	return err
}

// CollectibleValue sums the positive recent average prices across all pages. A
// walk cut short by throttling yields nil rather than a partial sum.
func (c *Client) CollectibleValue(ctx context.Context, id types.PlayerID) *int64 {
	var total int64
	count := 0
	err := c.walk(ctx, id, func(item collectible) bool {
		var price float64
		if raw, ok := item["recentAveragePrice"]; ok && json.Unmarshal(raw, &price) == nil && price > 0 {
			total += int64(price)
			count++
		}
		return true
	})
	if err != nil {
		logging.From(ctx).Debug("inventory unavailable", "player_id", id, "error", err)
		return nil
	}

	logging.From(ctx).Debug("collectible value", "player_id", id, "items", count, "total", total)
	if total <= 0 {
		return nil
	}
	return &total
}

// OldestOwnedDays returns the age of the oldest dated ownership record
func (c *Client) OldestOwnedDays(ctx context.Context, id types.PlayerID) *int {
	var oldest *time.Time
	var sampleKeys []string

	err := c.walk(ctx, id, func(item collectible) bool {
		if sampleKeys == nil {
			sampleKeys = keysOf(item)
		}
		if ts, ok := ownershipTime(item, ownershipKeys); ok {
			if oldest == nil || ts.Before(*oldest) {
				oldest = &ts
			}
		}
		return true
	})
	if err != nil {
		logging.From(ctx).Debug("inventory unavailable", "player_id", id, "error", err)
		return nil
	}

	if oldest == nil {
		if sampleKeys != nil {
			c.noDateWarning.Do(func() {
				logging.From(ctx).Warn("inventory records carry no date fields, ownership age is unknown",
					"fields", sampleKeys)
			})
		}
		return nil
	}
	days := model.DaysSince(*oldest, c.now())
	return &days
}

// ItemOwnedDays returns how long the player has held the given item. The walk
// stops at the first matching record.
func (c *Client) ItemOwnedDays(ctx context.Context, id types.PlayerID, item types.ItemID) *int {
	var result *int
	err := c.walk(ctx, id, func(rec collectible) bool {
		if assetID(rec) != item.String() {
			return true
		}
		if ts, ok := ownershipTime(rec, itemOwnershipKeys); ok {
			days := model.DaysSince(ts, c.now())
			result = &days
		}
		return false
	})
	if err != nil {
		logging.From(ctx).Debug("inventory unavailable", "player_id", id, "error", err)
		return nil
	}
	return result
}

// Bio returns the trimmed profile description
func (c *Client) Bio(ctx context.Context, id types.PlayerID) string {
	u := fmt.Sprintf("%s/v1/users/%s", c.usersBase, url.PathEscape(id.String()))
	body, err := c.fetcher.Get(ctx, u)
	if err != nil {
		logging.From(ctx).Debug("profile unavailable", "player_id", id, "error", err)
		return ""
	}
	var resp struct {
		Description string `json:"description"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return ""
	}
	return strings.TrimSpace(resp.Description)
}

// ownershipTime returns the first usable timestamp among keys. Strings are
// parsed as RFC 3339, numbers as epoch seconds.
func ownershipTime(item collectible, keys []string) (time.Time, bool) {
	for _, key := range keys {
		raw, ok := item[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if s == "" {
				continue
			}
			if ts, err := time.Parse(time.RFC3339, s); err == nil {
				return ts, true
			}
			continue
		}
		var sec float64
		if err := json.Unmarshal(raw, &sec); err == nil && sec > 0 {
			return time.Unix(int64(sec), 0), true
		}
	}
	return time.Time{}, false
}

func assetID(item collectible) string {
	for _, key := range []string{"assetId", "id"} {
		raw, ok := item[key]
		if !ok {
			continue
		}
		var n json.Number
		if err := json.Unmarshal(raw, &n); err == nil && n != "" {
			return n.String()
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			return s
		}
	}
	return ""
}

func keysOf(item collectible) []string {
	keys := make([]string, 0, len(item))
	for k := range item {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
