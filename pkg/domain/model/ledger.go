package model

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/m-mizutani/goerr/v2"
)

// LedgerSnapshot is the persisted form of a ledger. The three sets are written as
// sorted arrays; "claimed" is always a subset of "usernames".
type LedgerSnapshot struct {
	IDs       []string `json:"ids"`
	Usernames []string `json:"usernames"`
	Claimed   []string `json:"claimed"`
}

// ParseLedgerSnapshot decodes a snapshot. Besides the object form it accepts a bare
// JSON array, which is read as the seen-ID set alone.
func ParseLedgerSnapshot(data []byte) (*LedgerSnapshot, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return &LedgerSnapshot{}, nil
	}

	if trimmed[0] == '[' {
		var raw []json.RawMessage
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, goerr.Wrap(err, "failed to decode ledger id list")
		}
		ids := make([]string, 0, len(raw))
		for _, r := range raw {
			if id := decodeID(r); id != "" {
				ids = append(ids, id)
			}
		}
		return &LedgerSnapshot{IDs: ids}, nil
	}

	var snap LedgerSnapshot
	if err := json.Unmarshal(trimmed, &snap); err != nil {
		return nil, goerr.Wrap(err, "failed to decode ledger snapshot")
	}
	return &snap, nil
}

// Marshal encodes the snapshot with every set sorted
func (s *LedgerSnapshot) Marshal() ([]byte, error) {
	out := LedgerSnapshot{
		IDs:       sortedCopy(s.IDs),
		Usernames: sortedCopy(s.Usernames),
		Claimed:   sortedCopy(s.Claimed),
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to encode ledger snapshot")
	}
	return data, nil
}

// ParseIDList decodes a JSON array of IDs that may be written as numbers or
// strings. Null and blank entries are dropped.
func ParseIDList(data []byte) ([]string, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, goerr.Wrap(err, "failed to decode id list")
	}
	ids := make([]string, 0, len(raw))
	for _, r := range raw {
		if id := decodeID(r); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func decodeID(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return string(bytes.TrimSpace([]byte(s)))
	}
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&n); err == nil {
		return n.String()
	}
	return ""
}

func sortedCopy(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	sort.Strings(out)
	return out
}
