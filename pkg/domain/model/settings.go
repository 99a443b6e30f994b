package model

import (
	"encoding/json"

	"github.com/m-mizutani/goerr/v2"
)

// Settings holds operator-controlled feature flags
type Settings struct {
	AutoclaimEnabled bool `json:"autoclaimEnabled"`
}

// ParseSettings decodes persisted settings. Empty input yields the zero value.
func ParseSettings(data []byte) (*Settings, error) {
	var s Settings
	if len(data) == 0 {
		return &s, nil
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, goerr.Wrap(err, "failed to decode settings")
	}
	return &s, nil
}

// Marshal encodes the settings
func (s *Settings) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to encode settings")
	}
	return data, nil
}
