package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	App      AppConfig
	Oracle   OracleConfig
	Resolver ResolverConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	InitialBalance string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// ServerConfig holds server settings
type ServerConfig struct {
	Port string
}

// OracleConfig holds price feed settings
type OracleConfig struct {
	CoinGeckoURL     string
	CryptoCompareURL string
	EquityQuoteURL   string
	EquityAPIToken   string
}

// ResolverConfig holds resolution job settings
type ResolverConfig struct {
	// PlatformFeeRate is the fraction of the losing pool retained by the
	// platform. Clamped to [0, 0.2] at settlement time regardless of the
	// configured value.
	PlatformFeeRate float64
	BatchSize       int
	Interval        time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "marketpulse"),
		},
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
		},
		App: AppConfig{
			InitialBalance: getEnv("INITIAL_BALANCE", "1000.00"),
		},
		Oracle: OracleConfig{
			CoinGeckoURL:     getEnv("COINGECKO_URL", "https://api.coingecko.com/api/v3"),
			CryptoCompareURL: getEnv("CRYPTOCOMPARE_URL", "https://min-api.cryptocompare.com"),
			EquityQuoteURL:   getEnv("EQUITY_QUOTE_URL", "https://finnhub.io/api/v1"),
			EquityAPIToken:   getEnv("EQUITY_API_TOKEN", ""),
		},
		Resolver: ResolverConfig{
			PlatformFeeRate: getEnvFloat("PLATFORM_FEE_RATE", 0.02),
			BatchSize:       getEnvInt("RESOLVE_BATCH_SIZE", 50),
			Interval:        getEnvDuration("RESOLVE_INTERVAL", time.Minute),
		},
	}

	if config.Resolver.BatchSize <= 0 {
		return nil, fmt.Errorf("RESOLVE_BATCH_SIZE must be positive")
	}

	return config, nil
}

// GetDSN returns the PostgreSQL connection string
func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return f
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
