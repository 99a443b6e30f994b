package types

// Gate names a qualification rule. It is carried on every verdict so that a
// rejection can always be attributed to the rule that produced it.
type Gate string

const (
	GateNone      Gate = ""
	GatePrivilege Gate = "privilege"
	GateRate      Gate = "rate"
	GateDedup     Gate = "dedup"
	GateNovice    Gate = "novice"
	GateValuation Gate = "valuation"
	GateDebounce  Gate = "debounce"

	GateInfo      Gate = "player_info"
	GateRank      Gate = "rank"
	GateTradeAds  Gate = "trade_ads"
	GateOwnership Gate = "ownership"
	GateOnline    Gate = "online"
	GateContact   Gate = "contact"
)

// AllTraderGates lists the gates of the scan pipeline in evaluation order
var AllTraderGates = []Gate{
	GateInfo,
	GateValuation,
	GateRank,
	GateTradeAds,
	GateOnline,
	GateOwnership,
	GateContact,
}

// String returns the string representation of Gate
func (x Gate) String() string {
	return string(x)
}
