// ABOUTME: Configuration loader for the fare-watch service
// ABOUTME: Loads settings from environment variables with defaults

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Server
	Port             string
	RateLimitEnabled bool // Enable HTTP rate limiting (default: true)
	RateLimitRPM     int  // Requests per minute per client (default: 60)

	// Amadeus flight API
	AmadeusHost         string
	AmadeusClientID     string
	AmadeusClientSecret string
	Market              string // point-of-sale market code, e.g. CL
	Currency            string // currency the upstream search is queried in
	SearchTimeout       int    // seconds, per upstream HTTP call (default 35)
	SearchRPS           int    // upstream searches per second cap (default 2)

	// Search window
	Origin     string
	DaysAhead  int
	StayNights int
	MaxResults int

	// Destination groups
	TokyoCodes    []string
	OsakaCodes    []string
	HokkaidoCodes []string
	OkinawaCodes  []string

	// Fixed-date overrides (optional, YYYY-MM-DD)
	DepartDate      string
	ReturnDate      string
	JPDomDepartDate string
	JPDomReturnDate string

	// Currencies
	SecondCurrency string
	FXUSDCLP       string // manual USD->CLP override, raw string
	FXCacheHours   int    // rate cache TTL in hours (default 12)

	// Delivery
	WebhookURL  string
	Timezone    string
	PublishHour int // local hour for the daily publish (default 11)
}

// Load reads configuration from the environment and validates required fields.
func Load() (*Config, error) {
	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		RateLimitEnabled: getEnvBool("RATE_LIMIT_ENABLED", true),
		RateLimitRPM:     getEnvInt("RATE_LIMIT_RPM", 60),

		AmadeusHost:         strings.TrimRight(getEnv("AMADEUS_HOST", "https://test.api.amadeus.com"), "/"),
		AmadeusClientID:     os.Getenv("AMADEUS_CLIENT_ID"),
		AmadeusClientSecret: os.Getenv("AMADEUS_CLIENT_SECRET"),
		Market:              strings.ToUpper(getEnv("AMADEUS_MARKET", getEnv("MARKET", "CL"))),
		Currency:            strings.ToUpper(getEnv("AMADEUS_CURRENCY", getEnv("CURRENCY", "USD"))),
		SearchTimeout:       getEnvInt("SEARCH_TIMEOUT", 35),
		SearchRPS:           getEnvInt("SEARCH_RPS", 2),

		Origin:     strings.ToUpper(getEnv("ORIGIN", "SCL")),
		DaysAhead:  getEnvInt("DAYS_AHEAD", 60),
		StayNights: getEnvInt("STAY_NIGHTS", 14),
		MaxResults: getEnvInt("MAX_RESULTS", 5),

		TokyoCodes:    getEnvCodeList("TOKYO_CODES", "NRT,HND"),
		OsakaCodes:    getEnvCodeList("OSAKA_CODES", "KIX,ITM"),
		HokkaidoCodes: getEnvCodeList("HOKKAIDO_CODES", "CTS,HKD"),
		OkinawaCodes:  getEnvCodeList("OKINAWA_CODES", "OKA"),

		DepartDate:      firstEnv("DEPART_DATE", "DEPARTURE_DATE"),
		ReturnDate:      os.Getenv("RETURN_DATE"),
		JPDomDepartDate: firstEnv("JP_DOMESTIC_DEPART_DATE", "JP_DOMESTIC_DATE"),
		JPDomReturnDate: os.Getenv("JP_DOMESTIC_RETURN_DATE"),

		SecondCurrency: strings.ToUpper(getEnv("SECOND_CURRENCY", "CLP")),
		FXUSDCLP:       os.Getenv("FX_USDCLP"),
		FXCacheHours:   getEnvInt("FX_CACHE_HOURS", 12),

		WebhookURL:  os.Getenv("WEBHOOK_URL"),
		Timezone:    getEnv("TIMEZONE", "America/Santiago"),
		PublishHour: getEnvInt("PUBLISH_HOUR", 11),
	}

	if cfg.AmadeusClientID == "" {
		return nil, fmt.Errorf("AMADEUS_CLIENT_ID is required")
	}
	if cfg.AmadeusClientSecret == "" {
		return nil, fmt.Errorf("AMADEUS_CLIENT_SECRET is required")
	}
	if cfg.MaxResults < 1 {
		return nil, fmt.Errorf("MAX_RESULTS must be at least 1, got %d", cfg.MaxResults)
	}
	if cfg.PublishHour < 0 || cfg.PublishHour > 23 {
		return nil, fmt.Errorf("PUBLISH_HOUR must be between 0 and 23, got %d", cfg.PublishHour)
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("TIMEZONE %q is invalid: %w", cfg.Timezone, err)
	}

	return cfg, nil
}

// Location returns the configured timezone. Load validated it already.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if value := os.Getenv(key); value != "" {
			return value
		}
	}
	return ""
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getEnvCodeList parses a comma-separated list of airport codes,
// trimming whitespace and upper-casing each entry.
func getEnvCodeList(key, defaultValue string) []string {
	value := getEnv(key, defaultValue)
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.ToUpper(strings.TrimSpace(part))
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
