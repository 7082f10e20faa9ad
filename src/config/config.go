package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	Port         string
	DatabasePath string
	LogLevel     string
	JWTSecret    string

	// Price oracle client settings.
	PriceAPIBaseURL        string
	PriceCacheTTL          time.Duration
	PriceRequestsPerSecond float64

	// Benchmark index used when the caller does not name one.
	BenchmarkSymbol string

	// Import gate settings.
	MaxImportBatch int
}

var Cfg *AppConfig

func LoadConfig() {
	errEnv := godotenv.Load()
	if errEnv != nil {
		log.Println("Info: No .env file found or error loading .env file. Relying on OS environment variables and defaults. Error (if any):", errEnv)
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")

	jwtSecret := getEnv("JWT_SECRET", "your-very-secure-and-long-jwt-secret-key-for-hs256-minimum-32-bytes")
	if jwtSecret == "your-very-secure-and-long-jwt-secret-key-for-hs256-minimum-32-bytes" {
		log.Println("WARNING: Using default insecure JWT_SECRET. Set JWT_SECRET environment variable for production.")
	}

	priceCacheTTLStr := getEnv("PRICE_CACHE_TTL", "15m")
	priceCacheTTL, err := time.ParseDuration(priceCacheTTLStr)
	if err != nil {
		log.Printf("WARNING: Invalid PRICE_CACHE_TTL format '%s'. Using default 15m. Error: %v", priceCacheTTLStr, err)
		priceCacheTTL = 15 * time.Minute
	}

	priceRPSStr := getEnv("PRICE_REQUESTS_PER_SECOND", "4")
	priceRPS, err := strconv.ParseFloat(priceRPSStr, 64)
	if err != nil || priceRPS <= 0 {
		log.Printf("WARNING: Invalid PRICE_REQUESTS_PER_SECOND '%s'. Using default 4. Error: %v", priceRPSStr, err)
		priceRPS = 4
	}

	maxImportBatchStr := getEnv("MAX_IMPORT_BATCH", "10000")
	maxImportBatch, err := strconv.Atoi(maxImportBatchStr)
	if err != nil || maxImportBatch <= 0 {
		log.Printf("WARNING: Invalid MAX_IMPORT_BATCH '%s'. Using default 10000. Error: %v", maxImportBatchStr, err)
		maxImportBatch = 10000
	}

	Cfg = &AppConfig{
		Port:         getEnv("PORT", "8080"),
		DatabasePath: getEnv("DATABASE_PATH", "./ledger.db"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		JWTSecret:    jwtSecret,

		PriceAPIBaseURL:        getEnv("PRICE_API_BASE_URL", "https://query1.finance.example.com"),
		PriceCacheTTL:          priceCacheTTL,
		PriceRequestsPerSecond: priceRPS,

		BenchmarkSymbol: getEnv("BENCHMARK_SYMBOL", "SPY"),

		MaxImportBatch: maxImportBatch,
	}

	log.Printf("Configuration loaded: Port=%s, LogLevel=%s, DBPath=%s, PriceAPI=%s",
		Cfg.Port, Cfg.LogLevel, Cfg.DatabasePath, Cfg.PriceAPIBaseURL)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Environment variable %s not set, using default: %s", key, fallback)
	return fallback
}
