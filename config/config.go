package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	DatasetPath string
	SheetName   string
	Country     string
	ProductKey  string

	MinSupport     float64
	RuleMetric     string
	MinThreshold   float64
	MaxItemsetLen  int
	TargetProducts []string
	RecCount       int

	RulesCSVPath string
	// RulesSource is "mine" to run the miner, or "csv"/"postgres" to answer
	// from a stored rule table.
	RulesSource string
	RulesRunID  string

	PostgresEnabled  bool
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
	MaxRetries       int

	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	RedisTTLSeconds int

	KafkaBrokers []string
	KafkaTopic   string

	MetricsTextfile string
	ReportPDFPath   string
	ChromeBin       string

	LogLevel string
	Env      string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		DatasetPath: getEnv("DATASET_PATH", "./data/online_retail_II.xlsx"),
		SheetName:   getEnv("SHEET_NAME", "Year 2010-2011"),
		Country:     getEnv("COUNTRY", "France"),
		ProductKey:  strings.ToLower(getEnv("PRODUCT_KEY", "stockcode")),

		MinSupport:     getEnvFloat("MIN_SUPPORT", 0.01),
		RuleMetric:     getEnv("RULE_METRIC", "support"),
		MinThreshold:   getEnvFloat("MIN_THRESHOLD", 0.01),
		MaxItemsetLen:  getEnvInt("MAX_ITEMSET_LEN", 0),
		TargetProducts: getEnvList("TARGET_PRODUCTS", "22492"),
		RecCount:       getEnvInt("REC_COUNT", 3),

		RulesCSVPath: getEnv("RULES_CSV_PATH", "./output/rules.csv"),
		RulesSource:  strings.ToLower(getEnv("RULES_SOURCE", "mine")),
		RulesRunID:   getEnv("RULES_RUN_ID", ""),

		PostgresEnabled:  getEnvBool("POSTGRES_ENABLED", false),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "retail"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "retail123"),
		PostgresDB:       getEnv("POSTGRES_DB", "retail_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		MaxRetries:       getEnvInt("MAX_RETRIES", 3),

		RedisAddr:       getEnv("REDIS_ADDR", ""),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         getEnvInt("REDIS_DB", 0),
		RedisTTLSeconds: getEnvInt("REDIS_TTL_SECONDS", 3600),

		KafkaBrokers: getEnvList("KAFKA_BROKERS", ""),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "basket-recommendations"),

		MetricsTextfile: getEnv("METRICS_TEXTFILE", ""),
		ReportPDFPath:   getEnv("REPORT_PDF_PATH", ""),
		ChromeBin:       getEnv("CHROME_BIN", ""),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		Env:      getEnv("ENV", "development"),
	}
}

// Validate rejects settings the mining stage cannot work with.
func (c *Config) Validate() error {
	if c.DatasetPath == "" {
		return fmt.Errorf("config: DATASET_PATH is required")
	}
	if c.MinSupport <= 0 || c.MinSupport > 1 {
		return fmt.Errorf("config: MIN_SUPPORT must be in (0, 1], got %v", c.MinSupport)
	}
	if c.MinThreshold < 0 {
		return fmt.Errorf("config: MIN_THRESHOLD must not be negative, got %v", c.MinThreshold)
	}
	if c.MaxItemsetLen < 0 {
		return fmt.Errorf("config: MAX_ITEMSET_LEN must not be negative, got %d", c.MaxItemsetLen)
	}
	switch c.ProductKey {
	case "stockcode", "description":
	default:
		return fmt.Errorf("config: PRODUCT_KEY must be stockcode or description, got %q", c.ProductKey)
	}
	switch c.RulesSource {
	case "mine", "csv":
	case "postgres":
		if !c.PostgresEnabled {
			return fmt.Errorf("config: RULES_SOURCE=postgres needs POSTGRES_ENABLED=true")
		}
	default:
		return fmt.Errorf("config: RULES_SOURCE must be mine, csv or postgres, got %q", c.RulesSource)
	}
	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}

// getEnvList splits a comma separated value, dropping blanks.
func getEnvList(key, fallback string) []string {
	raw := getEnv(key, fallback)
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
