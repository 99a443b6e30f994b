package types_test

import (
	"testing"

	"github.com/secmon-lab/tradescout/pkg/domain/types"
)

func TestPlayerID_Validate(t *testing.T) {
	tests := []struct {
		name    string
		id      types.PlayerID
		wantErr bool
	}{
		{"valid", "123456", false},
		{"single digit", "1", false},
		{"empty", "", true},
		{"negative", "-12", true},
		{"alphanumeric", "12ab", true},
		{"spaces", "12 34", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.id.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("PlayerID.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestItemID_Validate(t *testing.T) {
	tests := []struct {
		name    string
		id      types.ItemID
		wantErr bool
	}{
		{"valid", "1365767", false},
		{"empty", "", true},
		{"not a number", "valkyrie", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.id.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("ItemID.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
