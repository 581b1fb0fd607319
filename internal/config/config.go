package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Credits  CreditsConfig
	Provider ProviderConfig
}

type ServerConfig struct {
	Port         string
	Environment  string
	TokenSecret  string
	TokenTTL     time.Duration
	AllowOrigins string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type CreditsConfig struct {
	WelcomeBonus        int64
	ReferralBonus       int64
	LowBalanceThreshold int64
}

type ProviderConfig struct {
	MediaURL         string
	SMSGatewayURL    string
	BillingSecret    string
	NotifyWebhookURL string
}

func (d DatabaseConfig) DSN() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.Name + "?sslmode=" + d.SSLMode
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	tokenTTLHours, _ := strconv.Atoi(getEnv("TOKEN_TTL_HOURS", "720"))
	welcomeBonus, _ := strconv.ParseInt(getEnv("WELCOME_BONUS_CREDITS", "20"), 10, 64)
	referralBonus, _ := strconv.ParseInt(getEnv("REFERRAL_BONUS_CREDITS", "10"), 10, 64)
	lowBalance, _ := strconv.ParseInt(getEnv("LOW_BALANCE_THRESHOLD", "5"), 10, 64)

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Environment:  getEnv("ENVIRONMENT", "development"),
			TokenSecret:  getEnv("TOKEN_SECRET", "change-me-in-production"),
			TokenTTL:     time.Duration(tokenTTLHours) * time.Hour,
			AllowOrigins: getEnv("ALLOW_ORIGINS", "*"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "flowsmartly"),
			Password: getEnv("DB_PASSWORD", "flowsmartly"),
			Name:     getEnv("DB_NAME", "flowsmartly"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Credits: CreditsConfig{
			WelcomeBonus:        welcomeBonus,
			ReferralBonus:       referralBonus,
			LowBalanceThreshold: lowBalance,
		},
		Provider: ProviderConfig{
			MediaURL:         getEnv("FLOW_AI_URL", "http://localhost:7860"),
			SMSGatewayURL:    getEnv("SMS_GATEWAY_URL", ""),
			BillingSecret:    getEnv("BILLING_WEBHOOK_SECRET", ""),
			NotifyWebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
