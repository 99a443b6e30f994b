package rolimons

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/patrickmn/go-cache"

	"github.com/secmon-lab/tradescout/pkg/domain/interfaces"
	"github.com/secmon-lab/tradescout/pkg/domain/model"
	"github.com/secmon-lab/tradescout/pkg/domain/types"
	"github.com/secmon-lab/tradescout/pkg/service/fetch"
	"github.com/secmon-lab/tradescout/pkg/utils/logging"
)

const (
	DefaultAPIBaseURL = "https://api.rolimons.com"
	DefaultWebBaseURL = "https://www.rolimons.com"

	DefaultPlayerInfoInterval = 2500 * time.Millisecond
	DefaultTradeAdsAttempts   = 3
	DefaultTradeAdsBackoff    = 30 * time.Second
)

// Client reads trade ads, player profiles and item details
type Client struct {
	apiBase   string
	webBase   string
	players   *fetch.Client
	tradeAds  *fetch.Client
	items     *fetch.Client
	itemNames *cache.Cache
	fetchOpts []fetch.Option
}

var _ interfaces.Marketplace = (*Client)(nil)

// Option configures a Client
type Option func(*Client)

// WithBaseURLs points the client at other hosts. Used by tests.
func WithBaseURLs(api, web string) Option {
	return func(c *Client) {
		c.apiBase = strings.TrimRight(api, "/")
		c.webBase = strings.TrimRight(web, "/")
	}
}

// WithFetchOptions appends options to every underlying fetch client, after the
// per-endpoint defaults
func WithFetchOptions(opts ...fetch.Option) Option {
	return func(c *Client) {
		c.fetchOpts = append(c.fetchOpts, opts...)
	}
}

// New creates a Client. Player info requests are spaced 2.5s apart, retried up
// to four times with 15s backoff on throttling and 5s otherwise. Trade ads are
// retried only when throttled, three times with 30s backoff.
func New(opts ...Option) *Client {
	c := &Client{
		apiBase:   DefaultAPIBaseURL,
		webBase:   DefaultWebBaseURL,
		itemNames: cache.New(cache.NoExpiration, 0),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.players = fetch.New(append([]fetch.Option{
		fetch.WithMinInterval(DefaultPlayerInfoInterval),
		fetch.WithMaxAttempts(fetch.DefaultMaxAttempts),
		fetch.WithThrottleBackoff(fetch.DefaultThrottleBackoff),
		fetch.WithErrorBackoff(fetch.DefaultErrorBackoff),
	}, c.fetchOpts...)...)
	c.tradeAds = fetch.New(append([]fetch.Option{
		fetch.WithMaxAttempts(DefaultTradeAdsAttempts),
		fetch.WithThrottleBackoff(DefaultTradeAdsBackoff),
		fetch.WithErrorBackoff(0),
	}, c.fetchOpts...)...)
	c.items = fetch.New(append([]fetch.Option{
		fetch.WithMaxAttempts(1),
	}, c.fetchOpts...)...)

	return c
}

// RecentTradeAdCreators returns distinct creators of recent trade ads in the
// order first seen
func (c *Client) RecentTradeAdCreators(ctx context.Context) []types.PlayerID {
	url := c.apiBase + "/tradeads/v1/getrecentads"
	ids := fetch.Fetch(ctx, c.tradeAds, []string{url}, decodeTradeAds)
	if ids == nil {
		logging.From(ctx).Warn("no trade ads available")
		return nil
	}
	return *ids
}

// PlayerInfo returns the player's profile from the first sibling endpoint that
// has it
func (c *Client) PlayerInfo(ctx context.Context, id types.PlayerID) *model.PlayerInfo {
	endpoints := []string{
		fmt.Sprintf("%s/players/v1/playerinfo/%s", c.apiBase, id),
		fmt.Sprintf("%s/playerapi/player/%s", c.webBase, id),
	}
	info := fetch.Fetch(ctx, c.players, endpoints, decodePlayerInfo)
	if info != nil {
		info.ID = id
	}
	return info
}

// ItemName returns the item's display name. Results, including the ID
// fallback, are memoized for the life of the client.
func (c *Client) ItemName(ctx context.Context, id types.ItemID) string {
	key := id.String()
	if name, ok := c.itemNames.Get(key); ok {
		return name.(string)
	}

	name := key
	names := fetch.Fetch(ctx, c.items, []string{c.webBase + "/itemapi/itemdetails"}, decodeItemDetails)
	if names != nil {
		for itemID, itemName := range *names {
			c.itemNames.SetDefault(itemID, itemName)
		}
		if n, ok := (*names)[key]; ok {
			name = n
		}
	}
	c.itemNames.SetDefault(key, name)
	return name
}

func decodeTradeAds(body []byte) (*[]types.PlayerID, error) {
	var resp struct {
		Success  bool                `json:"success"`
		TradeAds [][]json.RawMessage `json:"trade_ads"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, goerr.Wrap(err, "failed to decode trade ads")
	}

	ids := []types.PlayerID{}
	if !resp.Success {
		return &ids, nil
	}

	seen := make(map[types.PlayerID]struct{}, len(resp.TradeAds))
	for _, ad := range resp.TradeAds {
		if len(ad) < 3 {
			continue
		}
		id := rawID(ad[2])
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return &ids, nil
}

type playerInfoResponse struct {
	Success      *bool          `json:"success"`
	Name         string         `json:"name"`
	Value        *int64         `json:"value"`
	RAP          *int64         `json:"rap"`
	Rank         *int           `json:"rank"`
	LastOnline   *int64         `json:"last_online"`
	LastLocation string         `json:"last_location"`
	Badges       map[string]any `json:"rolibadges"`
}

func decodePlayerInfo(body []byte) (*model.PlayerInfo, error) {
	var resp playerInfoResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, goerr.Wrap(err, "failed to decode player info")
	}
	if resp.Success != nil && !*resp.Success {
		return nil, fetch.ErrSkipEndpoint
	}

	info := &model.PlayerInfo{
		Name:          resp.Name,
		Rank:          resp.Rank,
		LastOnline:    resp.LastOnline,
		LastLocation:  resp.LastLocation,
		TradeAdsBadge: model.MaxTradeAdsBadge(resp.Badges),
	}
	if resp.Value != nil {
		info.Value = *resp.Value
	}
	if resp.RAP != nil {
		info.RAP = *resp.RAP
	}
	if info.LastLocation == "" {
		info.LastLocation = "Offline"
	}
	return info, nil
}

func decodeItemDetails(body []byte) (*map[string]string, error) {
	var resp struct {
		Items map[string][]json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, goerr.Wrap(err, "failed to decode item details")
	}

	names := make(map[string]string, len(resp.Items))
	for id, fields := range resp.Items {
		if len(fields) == 0 {
			continue
		}
		var name string
		if err := json.Unmarshal(fields[0], &name); err != nil || name == "" {
			continue
		}
		names[id] = name
	}
	return &names, nil
}

func rawID(raw json.RawMessage) types.PlayerID {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if _, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
			return types.PlayerID(n.String())
		}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return types.PlayerID(strings.TrimSpace(s))
	}
	return ""
}
