package negotiation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectCondition(t *testing.T) {
	tests := []struct {
		name        string
		title       string
		description string
		wantLocked  bool
		wantDamaged bool
	}{
		{"clean unlocked", "iPhone 13 Pro Max Unlocked", "Great condition", false, false},
		{"carrier locked", "iPhone 13 Pro Max", "Verizon, works great", true, false},
		{"unlocked beats carrier mention", "iPhone 13 Pro Max Unlocked", "was on Verizon before", false, false},
		{"cracked screen", "iPhone 13 Pro Max", "small crack on the back", false, true},
		{"for parts", "iPhone 13 for parts", "won't turn on", false, true},
		{"locked and damaged", "AT&T iPhone 13", "cracked screen, still works", true, true},
		{"no signal words", "iPhone 13 Pro Max 256GB", "barely used, comes with box", false, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			locked, damaged := DetectCondition(tc.title, tc.description)
			assert.Equal(t, tc.wantLocked, locked, "locked")
			assert.Equal(t, tc.wantDamaged, damaged, "damaged")
		})
	}
}
