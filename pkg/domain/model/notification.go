package model

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/secmon-lab/tradescout/pkg/domain/types"
)

// NotificationColor is the accent colour of every embed
const NotificationColor = 0x00ff00

const (
	placeholderAvatarURL = "https://via.placeholder.com/150"
	rolimonsPlayerURL    = "https://www.rolimons.com/player/%s"
	rolimonsItemURL      = "https://www.rolimons.com/item/%s"
	fallbackAvatarURL    = "https://roblox-avatar.eryn.io/%s"
)

var discriminatorZero = regexp.MustCompile(`#0$`)

var numberPrinter = message.NewPrinter(language.English)

// Notification is one webhook post: plain content, a single embed, or both
type Notification struct {
	Content string
	Embed   *Embed
}

// Embed is a rich card rendered by the webhook target
type Embed struct {
	Title        string
	Description  string
	Color        int
	ThumbnailURL string
	Timestamp    time.Time
}

// Lead is a qualified chat user about to be reported
type Lead struct {
	ReportedName string
	PlayerID     types.PlayerID
	Valuation    *int64
	Message      string
	MessageURL   string
	AvatarURL    string
}

// NewLeadNotification renders a lead. A missing valuation is shown as N/A.
func NewLeadNotification(lead Lead, now time.Time) *Notification {
	name := discriminatorZero.ReplaceAllString(lead.ReportedName, "")
	if name == "" {
		name = "Unknown"
	}
	valuation := "N/A"
	if lead.Valuation != nil {
		valuation = FormatNumber(*lead.Valuation)
	}
	text := lead.Message
	if text == "" {
		text = "(no message)"
	}
	avatar := lead.AvatarURL
	if avatar == "" {
		avatar = placeholderAvatarURL
	}

	return &Notification{
		Embed: &Embed{
			Description: fmt.Sprintf("**%s** • RAP: **%s**\n%s\n\n[Jump to Message](%s) • [Rolimons](%s)",
				name, valuation, text, lead.MessageURL, fmt.Sprintf(rolimonsPlayerURL, lead.PlayerID)),
			Color:        NotificationColor,
			ThumbnailURL: avatar,
			Timestamp:    now,
		},
	}
}

// TraderSource tells which scan pass produced a trader
type TraderSource string

const (
	TraderSourceTradeAds TraderSource = "trade_ads"
	TraderSourceItemPage TraderSource = "item_page"
)

// Trader is a marketplace player that passed the scan filter
type Trader struct {
	Info      *PlayerInfo
	OwnedDays *int
	Source    TraderSource
	ItemID    types.ItemID
	ItemName  string
	AvatarURL string
}

// NewTraderNotification renders a trader found by a scan pass
func NewTraderNotification(tr Trader, now time.Time) *Notification {
	title := "Trade Ads Trader"
	sourceLabel := "Trade Ad Scan"
	ownedLabel := "Oldest Owned:"
	if tr.Source == TraderSourceItemPage {
		title = "Item Page Trader"
		sourceLabel = "Item Page Scan"
		ownedLabel = "Item Owned:"
	}

	var id types.PlayerID
	var name string
	var value, rap int64
	if tr.Info != nil {
		id, name, value, rap = tr.Info.ID, tr.Info.Name, tr.Info.Value, tr.Info.RAP
	}
	if name == "" {
		name = id.String()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**%s**\nValue: **%s** • RAP: **%s**\n%s **%s**\n**Source:** %s",
		name, FormatNumber(value), FormatNumber(rap), ownedLabel, FormatOwnedDays(tr.OwnedDays), sourceLabel)
	if tr.ItemID != "" && tr.ItemName != "" {
		fmt.Fprintf(&b, "\n**Item:** [%s](%s)", tr.ItemName, fmt.Sprintf(rolimonsItemURL, tr.ItemID))
	}
	fmt.Fprintf(&b, "\n\n[Rolimons Profile](%s)", fmt.Sprintf(rolimonsPlayerURL, id))

	avatar := tr.AvatarURL
	if avatar == "" {
		avatar = fmt.Sprintf(fallbackAvatarURL, id)
	}

	return &Notification{
		Embed: &Embed{
			Title:        title,
			Description:  b.String(),
			Color:        NotificationColor,
			ThumbnailURL: avatar,
			Timestamp:    now,
		},
	}
}

// NewItemScanDoneNotification tells the operator an item pass finished and the
// item list should be rotated
func NewItemScanDoneNotification(itemID types.ItemID) *Notification {
	return &Notification{
		Content: fmt.Sprintf("✅ **Done scanning item %s**\nRemove from `scan_items` and add the next item to scan.\n[View Item](%s)",
			itemID, fmt.Sprintf(rolimonsItemURL, itemID)),
	}
}

// FormatNumber renders n with thousands separators
func FormatNumber(n int64) string {
	return numberPrinter.Sprintf("%d", n)
}
