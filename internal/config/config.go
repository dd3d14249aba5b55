package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port                 string
	AllowedOrigin        string
	APIBaseURL           string
	DatabaseURL          string
	RedisAddr            string
	RedisPassword        string
	RedisDB              int
	RegisterID           string
	StateDir             string
	TaxRatePercent       float64
	CashRounding         string
	RequireOpenShift     bool
	PersistShift         bool
	OfflinePINTTLMinutes int
}

func Load() Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))

	taxRate, err := strconv.ParseFloat(getEnv("TAX_RATE_PERCENT", "16"), 64)
	if err != nil || taxRate < 0 {
		taxRate = 16
	}
	pinTTL, err := strconv.Atoi(getEnv("OFFLINE_PIN_TTL_MINUTES", "720"))
	if err != nil || pinTTL < 1 {
		pinTTL = 720
	}

	cfg := Config{
		Port:                 getEnv("PORT", "3030"),
		AllowedOrigin:        getEnv("ALLOWED_ORIGIN", "http://localhost:1420"),
		APIBaseURL:           strings.TrimSpace(os.Getenv("API_BASE_URL")),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		RedisAddr:            os.Getenv("REDIS_ADDR"),
		RedisPassword:        os.Getenv("REDIS_PASSWORD"),
		RedisDB:              redisDB,
		RegisterID:           getEnv("REGISTER_ID", "reg-1"),
		StateDir:             getEnv("STATE_DIR", ".pos-state"),
		TaxRatePercent:       taxRate,
		CashRounding:         getEnv("CASH_ROUNDING", "0.50"),
		RequireOpenShift:     boolEnv("REQUIRE_OPEN_SHIFT", false),
		PersistShift:         boolEnv("PERSIST_SHIFT", true),
		OfflinePINTTLMinutes: pinTTL,
	}

	return cfg
}

func (c Config) Address() string {
	return fmt.Sprintf("127.0.0.1:%s", c.Port)
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func boolEnv(key string, fallback bool) bool {
	val := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch val {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
