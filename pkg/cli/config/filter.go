package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v3"

	"github.com/secmon-lab/tradescout/pkg/domain/model"
	"github.com/secmon-lab/tradescout/pkg/domain/qualify"
)

const (
	DefaultNoviceRole   = "Novice"
	DefaultVerifiedRole = "Rover Verified"
)

// Filter points at the optional TOML file overriding filter thresholds and
// defining the role table
type Filter struct {
	path string
}

func (x *Filter) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "filter-config",
			Usage:       "TOML file with filter thresholds and the role table",
			Category:    "Filter",
			Destination: &x.path,
			Sources:     cli.EnvVars("TRADESCOUT_FILTER_CONFIG"),
		},
	}
}

func (x Filter) LogValue() slog.Value {
	return slog.GroupValue(slog.String("path", x.path))
}

// FilterSettings is the resolved filter configuration
type FilterSettings struct {
	Lead   *qualify.LeadCriteria
	Trader *qualify.TraderCriteria
	Roles  *model.RoleTable
}

// duration reads Go duration strings such as "90s" or "336h"
type duration time.Duration

func (d *duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return goerr.Wrap(err, "invalid duration", goerr.V("value", string(b)))
	}
	*d = duration(v)
	return nil
}

type filterFile struct {
	Lead   leadSection   `toml:"lead"`
	Trader traderSection `toml:"trader"`
	Roles  rolesSection  `toml:"roles"`
}

type leadSection struct {
	MinValuation        *int64    `toml:"min_valuation"`
	MinValuationWL      *int64    `toml:"min_valuation_wl"`
	WLToken             *string   `toml:"wl_token"`
	BypassPhrases       []string  `toml:"bypass_phrases"`
	NoviceBypassPhrases []string  `toml:"novice_bypass_phrases"`
	NoviceMaxTotal      *int      `toml:"novice_max_total"`
	NoviceMaxRecent     *int      `toml:"novice_max_recent"`
	NoviceRecentWindow  *duration `toml:"novice_recent_window"`
	NoviceDormantWindow *duration `toml:"novice_dormant_window"`
	DebounceWindow      *duration `toml:"debounce_window"`
}

type traderSection struct {
	MinValue             *int64    `toml:"min_value"`
	MaxRank              *int      `toml:"max_rank"`
	TradeAdsBadgeCeiling *int      `toml:"trade_ads_badge_ceiling"`
	MinOwnedDays         *int      `toml:"min_owned_days"`
	MinItemOwnedDays     *int      `toml:"min_item_owned_days"`
	RecentlyOnlineWithin *duration `toml:"recently_online_within"`
	ContactMarker        *string   `toml:"contact_marker"`
	ContactHints         []string  `toml:"contact_hints"`
}

type rolesSection struct {
	Novice   *string     `toml:"novice"`
	Verified *string     `toml:"verified"`
	Role     []roleEntry `toml:"role"`
}

type roleEntry struct {
	Name     string `toml:"name"`
	Position int    `toml:"position"`
	GroupID  string `toml:"group_id"`
}

// Configure returns the defaults overlaid with the TOML file, if one is given
func (x *Filter) Configure() (*FilterSettings, error) {
	settings := &FilterSettings{
		Lead:   qualify.DefaultLeadCriteria(),
		Trader: qualify.DefaultTraderCriteria(),
		Roles: &model.RoleTable{
			NoviceRole:   DefaultNoviceRole,
			VerifiedRole: DefaultVerifiedRole,
		},
	}
	if x.path == "" {
		return settings, nil
	}

	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(x.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, goerr.Wrap(ErrInvalidConfig, "filter config not found", goerr.V(ConfigPathKey, x.path))
		}
		return nil, goerr.Wrap(err, "failed to read filter config", goerr.V(ConfigPathKey, x.path))
	}

	var file filterFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, goerr.Wrap(ErrInvalidConfig, "failed to parse filter config",
			goerr.V(ConfigPathKey, x.path), goerr.V("cause", err.Error()))
	}

	file.Lead.apply(settings.Lead)
	if err := validateNoviceWindows(settings.Lead); err != nil {
		return nil, goerr.Wrap(err, "invalid lead criteria", goerr.V(ConfigPathKey, x.path))
	}
	file.Trader.apply(settings.Trader)
	if err := file.Roles.apply(settings.Roles); err != nil {
		return nil, goerr.Wrap(err, "invalid role table", goerr.V(ConfigPathKey, x.path))
	}

	return settings, nil
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func setDuration(dst *time.Duration, src *duration) {
	if src != nil {
		*dst = time.Duration(*src)
	}
}

func (s *leadSection) apply(c *qualify.LeadCriteria) {
	set(&c.MinValuation, s.MinValuation)
	set(&c.MinValuationWL, s.MinValuationWL)
	set(&c.WLToken, s.WLToken)
	if s.BypassPhrases != nil {
		c.BypassPhrases = s.BypassPhrases
	}
	if s.NoviceBypassPhrases != nil {
		c.NoviceBypassPhrases = s.NoviceBypassPhrases
	}
	set(&c.NoviceMaxTotal, s.NoviceMaxTotal)
	set(&c.NoviceMaxRecent, s.NoviceMaxRecent)
	setDuration(&c.NoviceRecentWindow, s.NoviceRecentWindow)
	setDuration(&c.NoviceDormantWindow, s.NoviceDormantWindow)
	setDuration(&c.DebounceWindow, s.DebounceWindow)
}

// validateNoviceWindows keeps the novice windows inside the span the activity
// log retains
func validateNoviceWindows(c *qualify.LeadCriteria) error {
	windows := []struct {
		field  string
		window time.Duration
	}{
		{"novice_recent_window", c.NoviceRecentWindow},
		{"novice_dormant_window", c.NoviceDormantWindow},
	}
	for _, w := range windows {
		if w.window <= 0 || w.window > model.DefaultActivityRetention {
			return goerr.Wrap(ErrInvalidConfig, "novice window must be positive and within activity retention",
				goerr.V("field", w.field),
				goerr.V("window", w.window.String()),
				goerr.V("retention", model.DefaultActivityRetention.String()))
		}
	}
	return nil
}

func (s *traderSection) apply(c *qualify.TraderCriteria) {
	set(&c.MinValue, s.MinValue)
	set(&c.MaxRank, s.MaxRank)
	set(&c.TradeAdsBadgeCeiling, s.TradeAdsBadgeCeiling)
	set(&c.MinOwnedDays, s.MinOwnedDays)
	set(&c.MinItemOwnedDays, s.MinItemOwnedDays)
	setDuration(&c.RecentlyOnlineWithin, s.RecentlyOnlineWithin)
	set(&c.ContactMarker, s.ContactMarker)
	if s.ContactHints != nil {
		c.ContactHints = s.ContactHints
	}
}

func (s *rolesSection) apply(t *model.RoleTable) error {
	set(&t.NoviceRole, s.Novice)
	set(&t.VerifiedRole, s.Verified)

	names := make(map[string]bool)
	groups := make(map[string]bool)
	for _, r := range s.Role {
		if r.Name == "" {
			return goerr.Wrap(ErrInvalidConfig, "role name is required", goerr.V("group_id", r.GroupID))
		}
		if names[r.Name] {
			return goerr.Wrap(ErrInvalidConfig, "duplicate role name", goerr.V("name", r.Name))
		}
		if r.GroupID != "" && groups[r.GroupID] {
			return goerr.Wrap(ErrInvalidConfig, "duplicate role group", goerr.V("group_id", r.GroupID))
		}
		names[r.Name] = true
		groups[r.GroupID] = true
		t.Roles = append(t.Roles, model.Role{Name: r.Name, Position: r.Position, GroupID: r.GroupID})
	}
	return nil
}
