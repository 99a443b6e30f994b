package model

import (
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/secmon-lab/tradescout/pkg/domain/types"
)

var (
	discriminatorSuffix = regexp.MustCompile(`#\d+$`)
	parentheticalSuffix = regexp.MustCompile(`\s*\([^)]*\)\s*$`)
	trailingDots        = regexp.MustCompile(`\.+$`)
	boldName            = regexp.MustCompile(`\*{1,2}([^*\n]+)\*{1,2}`)
)

// NormalizeName reduces a display name to the form used for matching:
// discriminator suffix ("#1234"), trailing parenthetical and trailing dots removed,
// trimmed and lowercased.
func NormalizeName(name string) string {
	name = discriminatorSuffix.ReplaceAllString(name, "")
	name = parentheticalSuffix.ReplaceAllString(name, "")
	name = trailingDots.ReplaceAllString(name, "")
	return strings.ToLower(strings.TrimSpace(name))
}

// PendingLookup is the context of a lookup request waiting for its asynchronous
// response.
type PendingLookup struct {
	RequestID    string
	UserID       types.UserID
	Username     string
	DisplayName  string
	Text         string
	ChannelID    string
	MessageID    string
	Member       *Member
	RegisteredAt time.Time
}

// LookupResponse is what a lookup bot reported back
type LookupResponse struct {
	ReportedName string
	PlayerID     types.PlayerID
	AvatarURL    string
}

// ParseLookupResponse extracts the reported name, player ID and avatar from a
// lookup bot reply. The name is taken from the card title, then from the first
// bold span of its text, then from a field whose name mentions "discord".
// The player ID comes from a field whose name mentions both "roblox" and "id".
// It returns nil when the message carries no card.
func ParseLookupResponse(msg *ChatMessage) *LookupResponse {
	if msg == nil || len(msg.Attachments) == 0 {
		return nil
	}
	card := msg.Attachments[0]

	resp := &LookupResponse{
		ReportedName: strings.TrimSpace(card.Title),
		AvatarURL:    card.ThumbURL,
	}
	if resp.AvatarURL == "" {
		resp.AvatarURL = card.ImageURL
	}

	if resp.ReportedName == "" {
		if m := boldName.FindStringSubmatch(card.Text); m != nil {
			resp.ReportedName = m[1]
		}
	}
	if resp.ReportedName == "" {
		for _, f := range card.Fields {
			if strings.Contains(strings.ToLower(f.Name), "discord") {
				resp.ReportedName = strings.TrimSpace(f.Value)
				break
			}
		}
	}

	for _, f := range card.Fields {
		name := strings.ToLower(f.Name)
		if strings.Contains(name, "roblox") && strings.Contains(name, "id") {
			resp.PlayerID = types.PlayerID(strings.TrimSpace(f.Value))
			break
		}
	}

	return resp
}

// ExtractLeadName returns the lead name shown on a notification card: the first
// bold span of the text, else the title, else a field mentioning "discord".
// Used when an operator claims the latest notification.
func ExtractLeadName(card *Attachment) string {
	if card == nil {
		return ""
	}
	if m := boldName.FindStringSubmatch(card.Text); m != nil {
		return m[1]
	}
	if card.Title != "" {
		return card.Title
	}
	for _, f := range card.Fields {
		if strings.Contains(strings.ToLower(f.Name), "discord") {
			return strings.TrimSpace(f.Value)
		}
	}
	return ""
}

// PendingLookups correlates asynchronous lookup responses with the requests that
// triggered them. Responses carry no request identifier, so correlation is by
// normalized display name with a fallback to the oldest outstanding request.
// Entries have no expiry.
type PendingLookups struct {
	mu      sync.Mutex
	entries map[types.UserID]*PendingLookup
	order   []types.UserID
}

// NewPendingLookups creates an empty correlator
func NewPendingLookups() *PendingLookups {
	return &PendingLookups{
		entries: make(map[types.UserID]*PendingLookup),
	}
}

// Register stores a pending lookup keyed by requester. Registering an existing key
// replaces its context but keeps its position in the queue.
func (p *PendingLookups) Register(key types.UserID, lookup *PendingLookup) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.entries[key]; !exists {
		p.order = append(p.order, key)
	}
	p.entries[key] = lookup
}

// Remove drops a pending lookup. Removing an unknown key is a no-op.
func (p *PendingLookups) Remove(key types.UserID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.remove(key)
}

// Oldest returns the first registered entry still pending
func (p *PendingLookups) Oldest() (types.UserID, *PendingLookup, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.order) == 0 {
		return "", nil, false
	}
	key := p.order[0]
	return key, p.entries[key], true
}

// Len returns the number of outstanding lookups
func (p *PendingLookups) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.order)
}

// Resolution is the outcome of correlating a response
type Resolution struct {
	Key     types.UserID
	Lookup  *PendingLookup
	Matched bool
}

// Resolve finds the pending lookup a response belongs to and evicts it.
// See matchOrFallbackToOldest for the policy. It returns nil when nothing is pending.
func (p *PendingLookups) Resolve(reportedName string) *Resolution {
	p.mu.Lock()
	defer p.mu.Unlock()

	res := p.matchOrFallbackToOldest(reportedName)
	if res != nil {
		p.remove(res.Key)
	}
	return res
}

// matchOrFallbackToOldest returns the first pending entry, in registration order,
// whose normalized username or display name equals the normalized reported name.
// When no entry matches, the oldest entry is returned with Matched=false.
func (p *PendingLookups) matchOrFallbackToOldest(reportedName string) *Resolution {
	if len(p.order) == 0 {
		return nil
	}

	if name := NormalizeName(reportedName); name != "" {
		for _, key := range p.order {
			lookup := p.entries[key]
			if NormalizeName(lookup.Username) == name || NormalizeName(lookup.DisplayName) == name {
				return &Resolution{Key: key, Lookup: lookup, Matched: true}
			}
		}
	}

	key := p.order[0]
	return &Resolution{Key: key, Lookup: p.entries[key], Matched: false}
}

func (p *PendingLookups) remove(key types.UserID) {
	if _, exists := p.entries[key]; !exists {
		return
	}
	delete(p.entries, key)
	for i, k := range p.order {
		if k == key {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
}
