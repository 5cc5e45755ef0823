package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Default configuration values
const (
	DefaultPort              = "8080"
	DefaultDBDriver          = "mysql"
	DefaultJWTTTL            = 24 * time.Hour
	DefaultShippingFlatFee   = "5000"
	DefaultCORSOrigin        = "http://localhost:5173"
	DefaultGeminiModel       = "gemini-2.0-flash-001"
	DefaultCatalogPageSize   = 12
	DefaultLowStockThreshold = 10
	DefaultWebDir            = "web"
	DefaultCartRetention     = 30 * 24 * time.Hour

	minProductionSecretLen = 32
)

type Config struct {
	Env      string
	Port     string
	BaseURL  string
	DBDriver string // mysql, postgres or sqlite
	DBDSN    string

	JWTSecret string
	JWTTTL    time.Duration

	ShippingFlatFee decimal.Decimal
	CORSOrigins     []string

	AllowRegistration bool
	BootstrapToken    string

	GeminiAPIKey string
	GeminiModel  string

	StrictOrderTransitions bool
	CatalogPageSize        int
	LowStockThreshold      int

	WebDir        string
	CartRetention time.Duration
}

// Load reads .env (when present) and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: No .env file found")
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function, applying defaults and
// validating required values.
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		Env:               strings.ToLower(getenv("ENV")),
		Port:              stringOr(getenv("PORT"), DefaultPort),
		DBDriver:          strings.ToLower(stringOr(getenv("DB_DRIVER"), DefaultDBDriver)),
		DBDSN:             getenv("DB_DSN"),
		JWTSecret:         getenv("JWT_SECRET"),
		BootstrapToken:    getenv("BOOTSTRAP_TOKEN"),
		GeminiAPIKey:      getenv("GEMINI_API_KEY"),
		GeminiModel:       stringOr(getenv("GEMINI_MODEL"), DefaultGeminiModel),
		AllowRegistration: getenv("ALLOW_REGISTRATION") == "true",
		WebDir:            stringOr(getenv("WEB_DIR"), DefaultWebDir),
	}
	cfg.BaseURL = stringOr(getenv("BASE_URL"), "http://localhost:"+cfg.Port)

	var err error
	if cfg.JWTTTL, err = durationOr(getenv("JWT_TTL"), DefaultJWTTTL); err != nil {
		return nil, fmt.Errorf("JWT_TTL: %w", err)
	}
	if cfg.CartRetention, err = durationOr(getenv("CART_RETENTION"), DefaultCartRetention); err != nil {
		return nil, fmt.Errorf("CART_RETENTION: %w", err)
	}
	if cfg.ShippingFlatFee, err = decimal.NewFromString(stringOr(getenv("SHIPPING_FLAT_FEE"), DefaultShippingFlatFee)); err != nil {
		return nil, fmt.Errorf("SHIPPING_FLAT_FEE: %w", err)
	}
	if cfg.ShippingFlatFee.IsNegative() {
		return nil, fmt.Errorf("SHIPPING_FLAT_FEE must not be negative")
	}
	if cfg.StrictOrderTransitions, err = boolOr(getenv("ORDER_STRICT_TRANSITIONS"), false); err != nil {
		return nil, fmt.Errorf("ORDER_STRICT_TRANSITIONS: %w", err)
	}
	if cfg.CatalogPageSize, err = positiveIntOr(getenv("CATALOG_PAGE_SIZE"), DefaultCatalogPageSize); err != nil {
		return nil, fmt.Errorf("CATALOG_PAGE_SIZE: %w", err)
	}
	if cfg.LowStockThreshold, err = positiveIntOr(getenv("LOW_STOCK_THRESHOLD"), DefaultLowStockThreshold); err != nil {
		return nil, fmt.Errorf("LOW_STOCK_THRESHOLD: %w", err)
	}

	cfg.CORSOrigins = splitList(stringOr(getenv("CORS_ORIGINS"), DefaultCORSOrigin))

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("DB_DRIVER %q is not supported (mysql, postgres, sqlite)", c.DBDriver)
	}
	if c.DBDSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.IsProduction() && len(c.JWTSecret) < minProductionSecretLen {
		return fmt.Errorf("JWT_SECRET must be at least %d characters in production", minProductionSecretLen)
	}
	return nil
}

func stringOr(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}

func durationOr(v string, def time.Duration) (time.Duration, error) {
	if v == "" {
		return def, nil
	}
	return time.ParseDuration(v)
}

func boolOr(v string, def bool) (bool, error) {
	if v == "" {
		return def, nil
	}
	return strconv.ParseBool(v)
}

func positiveIntOr(v string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, fmt.Errorf("must be positive, got %d", n)
	}
	return n, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
