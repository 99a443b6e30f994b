package types

import (
	"regexp"

	"github.com/m-mizutani/goerr/v2"
)

var numericPattern = regexp.MustCompile(`^[0-9]+$`)

// UserID is a chat platform user identifier
type UserID string

// String returns the string representation of UserID
func (x UserID) String() string {
	return string(x)
}

// PlayerID is a numeric Roblox user identifier kept in string form
type PlayerID string

// Validate checks if the PlayerID is a positive decimal number
func (x PlayerID) Validate() error {
	if x == "" {
		return goerr.New("player ID cannot be empty")
	}
	if !numericPattern.MatchString(string(x)) {
		return goerr.New("player ID must be numeric", goerr.V("id", x))
	}
	return nil
}

// String returns the string representation of PlayerID
func (x PlayerID) String() string {
	return string(x)
}

// ItemID is a numeric Roblox asset identifier kept in string form
type ItemID string

// Validate checks if the ItemID is a positive decimal number
func (x ItemID) Validate() error {
	if x == "" {
		return goerr.New("item ID cannot be empty")
	}
	if !numericPattern.MatchString(string(x)) {
		return goerr.New("item ID must be numeric", goerr.V("id", x))
	}
	return nil
}

// String returns the string representation of ItemID
func (x ItemID) String() string {
	return string(x)
}
