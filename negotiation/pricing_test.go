package negotiation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketbot/config"
)

var testProduct = config.Product{
	Name:                     "iPhone 13 Pro Max",
	BaseOfferUnlocked:        300,
	BaseOfferLocked:          230,
	BaseOfferUnlockedDamaged: 180,
	BaseOfferLockedDamaged:   120,
}

func TestBaseOfferTable(t *testing.T) {
	p := NewPolicy(20)

	tests := []struct {
		name    string
		locked  bool
		damaged bool
		want    int
	}{
		{"unlocked clean", false, false, 300},
		{"locked clean", true, false, 230},
		{"unlocked damaged", false, true, 180},
		{"locked damaged", true, true, 120},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := p.BaseOffer(testProduct, tc.locked, tc.damaged)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestBaseOfferMissingCell(t *testing.T) {
	p := NewPolicy(20)
	prod := testProduct
	prod.BaseOfferLockedDamaged = 0

	_, err := p.BaseOffer(prod, true, true)
	require.Error(t, err)

	var missing *ErrMissingPrice
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "iPhone 13 Pro Max", missing.Product)
	assert.True(t, missing.Locked)
	assert.True(t, missing.Damaged)
}

func TestCounterRule(t *testing.T) {
	p := NewPolicy(20)

	tests := []struct {
		name        string
		offer       int
		ask         int
		wantCounter int
		wantReach   bool
	}{
		{"ask under our offer", 300, 250, 250, true},
		{"ask equals our offer", 300, 300, 300, true},
		{"ask within flexibility", 280, 290, 290, true},
		{"ask exactly at ceiling", 280, 300, 300, true},
		{"ask just above ceiling", 280, 301, 300, false},
		{"ask far above ceiling", 280, 350, 300, false},
		{"high offer high ask", 300, 400, 320, false},
		{"low offer high ask", 200, 320, 220, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			counter, withinReach := p.Counter(tc.offer, tc.ask)
			assert.Equal(t, tc.wantCounter, counter)
			assert.Equal(t, tc.wantReach, withinReach)

			//The standing rules the rest of the bot depends on
			assert.LessOrEqual(t, counter, p.Ceiling(tc.offer))
			assert.LessOrEqual(t, counter, max(tc.ask, tc.offer))
		})
	}
}

func TestZeroFlexibility(t *testing.T) {
	p := NewPolicy(0)
	counter, withinReach := p.Counter(300, 310)
	assert.Equal(t, 300, counter)
	assert.False(t, withinReach)

	//Negative flexibility is clamped, not honored
	assert.Equal(t, 0, NewPolicy(-5).Flexibility)
}
