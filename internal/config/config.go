package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"aizeeno/internal/model"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	ServerPort  string
	AppDomain   string
	DataBackend string // "memory" or "mysql"
	MySQLDSN    string
	RedisAddr   string
	RedisDB     int
	RedisPass   string
	JWTSecret   string

	ProviderAPIBase        string
	ProviderSecretKey      string
	ProviderPublishableKey string
	ProviderWebhookSecret  string

	GoogleClientID string

	ChatAPIBase string
	ChatAPIKey  string
	ChatModel   string

	SMTPHost string
	SMTPPort string
	SMTPUser string
	SMTPPass string
	SMTPFrom string
}

// Load builds Config from environment with sensible defaults. A .env file in
// the working directory is loaded best-effort first.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file loaded, using process environment")
	}

	cfg := &Config{
		ServerPort:  getEnv("SERVER_PORT", "8080"),
		AppDomain:   strings.TrimSuffix(getEnv("APP_DOMAIN", "http://127.0.0.1:5000"), "/"),
		DataBackend: getEnv("DATA_BACKEND", "memory"),
		MySQLDSN:    getEnv("MYSQL_DSN", "user:password@tcp(localhost:3306)/app?charset=utf8mb4&parseTime=True&loc=Local"),
		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:     getEnvInt("REDIS_DB", 0),
		RedisPass:   os.Getenv("REDIS_PASSWORD"),
		JWTSecret:   getEnv("JWT_SECRET", "change-me"),

		ProviderAPIBase:        getEnv("PROVIDER_API_BASE", "https://api.stripe.com"),
		ProviderSecretKey:      os.Getenv("STRIPE_SECRET_KEY"),
		ProviderPublishableKey: os.Getenv("STRIPE_PUBLISHABLE_KEY"),
		ProviderWebhookSecret:  os.Getenv("STRIPE_WEBHOOK_SECRET"),

		GoogleClientID: os.Getenv("GOOGLE_CLIENT_ID"),

		ChatAPIBase: getEnv("CHAT_API_BASE", "https://api.groq.com/openai/v1"),
		ChatAPIKey:  os.Getenv("GROQ_API_KEY"),
		ChatModel:   getEnv("CHAT_MODEL", "llama-3.1-8b-instant"),

		SMTPHost: os.Getenv("SMTP_HOST"),
		SMTPPort: getEnv("SMTP_PORT", "587"),
		SMTPUser: os.Getenv("SMTP_USER"),
		SMTPPass: os.Getenv("SMTP_PASS"),
		SMTPFrom: os.Getenv("SMTP_FROM"),
	}
	if cfg.SMTPFrom == "" {
		cfg.SMTPFrom = cfg.SMTPUser
	}
	return cfg
}

// PlanCatalog returns the plan catalog with price IDs optionally overridden
// from the environment (STARTER_PRICE_ID, PRO_PRICE_ID, ELITE_PRICE_ID).
func (c *Config) PlanCatalog() map[model.Plan]model.PlanPricing {
	catalog := model.DefaultPlanCatalog()
	overrides := map[model.Plan]string{
		model.PlanStarter: os.Getenv("STARTER_PRICE_ID"),
		model.PlanPro:     os.Getenv("PRO_PRICE_ID"),
		model.PlanElite:   os.Getenv("ELITE_PRICE_ID"),
	}
	for plan, priceID := range overrides {
		if priceID == "" {
			continue
		}
		pricing := catalog[plan]
		pricing.PriceID = priceID
		catalog[plan] = pricing
	}
	return catalog
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}
