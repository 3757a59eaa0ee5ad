package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const validConfig = `{
	"search_product": "iPhone 13 Pro Max",
	"price_flexibility": 25,
	"meetup_location": "QuickMart on Main St",
	"products": [
		{
			"name": "iPhone 13 Pro Max",
			"base_offer_unlocked": 300,
			"base_offer_locked": 230,
			"base_offer_unlocked_damaged": 180,
			"base_offer_locked_damaged": 120
		},
		{
			"name": "iPhone 13",
			"base_offer_unlocked": 220,
			"base_offer_locked": 170,
			"base_offer_unlocked_damaged": 130,
			"base_offer_locked_damaged": 90
		}
	]
}`

func TestLoadConfigFile(t *testing.T) {
	s, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, "iPhone 13 Pro Max", s.SearchProduct)
	assert.Equal(t, 25, s.PriceFlexibility)
	assert.Equal(t, "QuickMart on Main St", s.MeetupLocation)
	require.Len(t, s.Products, 2)
	assert.Equal(t, 230, s.Products[0].BaseOfferLocked)

	//Defaults fill in what the file doesn't set
	assert.True(t, s.EnableNegotiation)
	assert.True(t, s.Headless)
	assert.Equal(t, "127.0.0.1:8777", s.DashboardAddr)
	assert.Equal(t, 587, s.SMTP.Port)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, DefaultPriceFlexibility, s.PriceFlexibility)
	assert.Empty(t, s.Products)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	t.Setenv("MARKETBOT_SEARCH_PRODUCT", "iPhone 12")
	t.Setenv("MARKETBOT_SMTP__HOST", "relay.example.com")

	s, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)
	assert.Equal(t, "iPhone 12", s.SearchProduct)
	assert.Equal(t, "relay.example.com", s.SMTP.Host)
}

func TestGeminiKeyFallback(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key-123")
	s, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)
	assert.Equal(t, "test-key-123", s.GeminiAPIKey)
}

func TestValidateRejectsMissingPriceCell(t *testing.T) {
	const broken = `{
		"products": [
			{
				"name": "iPhone 13",
				"base_offer_unlocked": 220,
				"base_offer_locked": 170,
				"base_offer_unlocked_damaged": 130
			}
		]
	}`
	_, err := Load(writeConfig(t, broken))
	require.Error(t, err)

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Field, "iPhone 13")
	assert.Contains(t, cfgErr.Field, "base_offer_locked_damaged")
}

func TestValidateRejectsUnnamedProduct(t *testing.T) {
	s := &Settings{Products: []Product{{BaseOfferUnlocked: 100, BaseOfferLocked: 100, BaseOfferUnlockedDamaged: 100, BaseOfferLockedDamaged: 100}}}
	assert.Error(t, s.Validate())
}

func TestValidateRejectsNegativeFlexibility(t *testing.T) {
	s := &Settings{PriceFlexibility: -1}
	assert.Error(t, s.Validate())
}

func TestFindProduct(t *testing.T) {
	s, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	//Longest name wins so "iPhone 13 Pro Max" never falls back to "iPhone 13"
	p, ok := s.FindProduct("Apple iPhone 13 Pro Max 256GB - great condition")
	require.True(t, ok)
	assert.Equal(t, "iPhone 13 Pro Max", p.Name)

	p, ok = s.FindProduct("iphone 13 64gb blue")
	require.True(t, ok)
	assert.Equal(t, "iPhone 13", p.Name)

	_, ok = s.FindProduct("Samsung Galaxy S22")
	assert.False(t, ok)
}
