package config

/*
Loads runtime settings from .env, ~/.marketbot/config.json, and MARKETBOT_ environment
variables (later sources win). Product pricing entries are validated up front: a product
with any missing base-offer cell is a configuration error and aborts the run.
*/

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	jsonparser "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Product holds the four-cell base offer table for one product model.
// All four cells are required (no interpolation between them).
type Product struct {
	Name                     string `koanf:"name" json:"name"`
	BaseOfferUnlocked        int    `koanf:"base_offer_unlocked" json:"base_offer_unlocked"`
	BaseOfferLocked          int    `koanf:"base_offer_locked" json:"base_offer_locked"`
	BaseOfferUnlockedDamaged int    `koanf:"base_offer_unlocked_damaged" json:"base_offer_unlocked_damaged"`
	BaseOfferLockedDamaged   int    `koanf:"base_offer_locked_damaged" json:"base_offer_locked_damaged"`
}

// SMTP carries mail relay credentials for the notification sender.
type SMTP struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	From     string `koanf:"from"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
}

// Settings is the full runtime configuration, read-only after Load.
type Settings struct {
	SearchProduct     string    `koanf:"search_product"`
	Products          []Product `koanf:"products"`
	PriceFlexibility  int       `koanf:"price_flexibility"`
	MeetupLocation    string    `koanf:"meetup_location"`
	EnableNegotiation bool      `koanf:"enable_negotiation"`

	NotificationEmail string `koanf:"notification_email"`
	SMTP              SMTP   `koanf:"smtp"`

	GeminiAPIKey    string `koanf:"gemini_api_key"`
	GeminiModel     string `koanf:"gemini_model"`
	SessionCookies  string `koanf:"session_cookies"` //"name=value; name=value" pairs for the marketplace domain
	Headless        bool   `koanf:"headless"`
	DashboardAddr   string `koanf:"dashboard_addr"`
	ScriptPath      string `koanf:"script_path"`
}

// ConfigurationError reports a fatal problem in the loaded settings.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error in %s: %s", e.Field, e.Reason)
}

// DefaultConfigPath resolves the config file location used by the GUI.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".marketbot", "config.json")
}

// Load reads settings from the given config file (DefaultConfigPath when empty),
// layered under MARKETBOT_ environment variables.
func Load(configPath string) (*Settings, error) {
	//.env is a safety net for secrets; missing file is fine
	_ = godotenv.Load()

	k := koanf.New(".")

	err := k.Load(confmap.Provider(map[string]interface{}{
		"search_product":     "iPhone 13 Pro Max",
		"price_flexibility":  DefaultPriceFlexibility,
		"meetup_location":    "Wawa at 1860 S Collegeville Rd, Collegeville",
		"enable_negotiation": true,
		"gemini_model":       "gemini-2.5-flash-lite",
		"headless":           true,
		"dashboard_addr":     "127.0.0.1:8777",
		"script_path":        ScriptFile,
		"smtp.port":          587,
	}, "."), nil)
	if err != nil {
		return nil, fmt.Errorf("error loading default settings: %w", err)
	}

	if configPath == "" {
		configPath = DefaultConfigPath()
	}
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			if err := k.Load(file.Provider(configPath), jsonparser.Parser()); err != nil {
				return nil, fmt.Errorf("error loading config file %s: %w", configPath, err)
			}
		}
	}

	err = k.Load(env.Provider("MARKETBOT_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "MARKETBOT_")), "__", ".", -1)
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("error loading environment overrides: %w", err)
	}

	//GEMINI_API_KEY without the prefix also works, matching the original tooling
	if k.String("gemini_api_key") == "" {
		if key := os.Getenv("GEMINI_API_KEY"); key != "" {
			_ = k.Set("gemini_api_key", strings.TrimSpace(key))
		}
	}

	var s Settings
	if err := k.Unmarshal("", &s); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate enforces the invariants the agents rely on. Pricing must be fully
// populated: defaulting a missing cell to $0 would send zero-dollar offers.
func (s *Settings) Validate() error {
	if s.PriceFlexibility < 0 {
		return &ConfigurationError{Field: "price_flexibility", Reason: "must be non-negative"}
	}
	for _, p := range s.Products {
		if p.Name == "" {
			return &ConfigurationError{Field: "products", Reason: "product with empty name"}
		}
		cells := map[string]int{
			"base_offer_unlocked":         p.BaseOfferUnlocked,
			"base_offer_locked":           p.BaseOfferLocked,
			"base_offer_unlocked_damaged": p.BaseOfferUnlockedDamaged,
			"base_offer_locked_damaged":   p.BaseOfferLockedDamaged,
		}
		for field, v := range cells {
			if v <= 0 {
				return &ConfigurationError{
					Field:  fmt.Sprintf("products[%s].%s", p.Name, field),
					Reason: "missing or non-positive base offer",
				}
			}
		}
	}
	return nil
}

// FindProduct returns the pricing entry whose name best matches the listing title.
// Matching is case-insensitive substring on the product name.
func (s *Settings) FindProduct(title string) (Product, bool) {
	t := strings.ToLower(title)
	best := Product{}
	bestLen := 0
	for _, p := range s.Products {
		name := strings.ToLower(p.Name)
		if strings.Contains(t, name) && len(name) > bestLen {
			best = p
			bestLen = len(name)
		}
	}
	return best, bestLen > 0
}
