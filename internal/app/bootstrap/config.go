package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the resolved runtime configuration for the loyalty engine.
// It merges file defaults and environment overrides to support both local and deployed runs.
type Config struct {
	ServiceID string

	HTTPPort int
	GRPCPort int

	DatabaseURL string
	RedisURL    string

	StripeWebhookSecret string
	CronSecret          string
	JWTSecret           string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	ReferralBonus      float64
	ReviewBonus        float64
	WeeklyReviewCap    int
	ActiveUserLookback time.Duration
	WebhookDedupTTL    time.Duration

	MaxDBConns int32
}

// configFile mirrors the YAML schema used by configs/default.yaml.
// It is intentionally separate from Config so runtime-only fields stay internal.
type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		HTTPPort int    `yaml:"http_port"`
		GRPCPort int    `yaml:"grpc_port"`
	} `yaml:"service"`
	Dependencies struct {
		PostgresURL string `yaml:"postgres_url"`
		RedisURL    string `yaml:"redis_url"`
	} `yaml:"dependencies"`
	Loyalty struct {
		ReferralBonus      float64 `yaml:"referral_bonus"`
		ReviewBonus        float64 `yaml:"review_bonus"`
		WeeklyReviewCap    int     `yaml:"weekly_review_cap"`
		ActiveLookbackDays int     `yaml:"active_lookback_days"`
	} `yaml:"loyalty"`
	OpenAI struct {
		BaseURL string `yaml:"base_url"`
		Model   string `yaml:"model"`
	} `yaml:"openai"`
}

// LoadConfig resolves configuration in priority order: defaults -> file -> env.
// This order keeps local bootstrap simple while allowing environment-specific overrides.
func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:          "loyalty-engine",
		HTTPPort:           8080,
		GRPCPort:           9090,
		ReferralBonus:      10,
		ReviewBonus:        1,
		WeeklyReviewCap:    2,
		ActiveUserLookback: 60 * 24 * time.Hour,
		WebhookDedupTTL:    24 * time.Hour,
		MaxDBConns:         20,
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		if f.Service.ID != "" {
			cfg.ServiceID = f.Service.ID
		}
		if f.Service.HTTPPort > 0 {
			cfg.HTTPPort = f.Service.HTTPPort
		}
		if f.Service.GRPCPort > 0 {
			cfg.GRPCPort = f.Service.GRPCPort
		}
		if f.Dependencies.PostgresURL != "" {
			cfg.DatabaseURL = f.Dependencies.PostgresURL
		}
		if f.Dependencies.RedisURL != "" {
			cfg.RedisURL = f.Dependencies.RedisURL
		}
		if f.Loyalty.ReferralBonus > 0 {
			cfg.ReferralBonus = f.Loyalty.ReferralBonus
		}
		if f.Loyalty.ReviewBonus > 0 {
			cfg.ReviewBonus = f.Loyalty.ReviewBonus
		}
		if f.Loyalty.WeeklyReviewCap > 0 {
			cfg.WeeklyReviewCap = f.Loyalty.WeeklyReviewCap
		}
		if f.Loyalty.ActiveLookbackDays > 0 {
			cfg.ActiveUserLookback = time.Duration(f.Loyalty.ActiveLookbackDays) * 24 * time.Hour
		}
		if f.OpenAI.BaseURL != "" {
			cfg.OpenAIBaseURL = f.OpenAI.BaseURL
		}
		if f.OpenAI.Model != "" {
			cfg.OpenAIModel = f.OpenAI.Model
		}
	}

	cfg.DatabaseURL = envOrDefault("DB_URL", envOrDefault("POSTGRES_URL", cfg.DatabaseURL))
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.StripeWebhookSecret = envOrDefault("STRIPE_WEBHOOK_SECRET", cfg.StripeWebhookSecret)
	cfg.CronSecret = envOrDefault("CRON_SECRET", cfg.CronSecret)
	cfg.JWTSecret = envOrDefault("JWT_SECRET", cfg.JWTSecret)
	cfg.OpenAIAPIKey = envOrDefault("OPENAI_API_KEY", cfg.OpenAIAPIKey)
	cfg.OpenAIBaseURL = envOrDefault("OPENAI_BASE_URL", cfg.OpenAIBaseURL)
	cfg.OpenAIModel = envOrDefault("OPENAI_MODEL", cfg.OpenAIModel)

	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)
	cfg.MaxDBConns = int32(envInt("DB_MAX_CONNS", int(cfg.MaxDBConns)))
	cfg.ReferralBonus = envFloat("REFERRAL_BONUS", cfg.ReferralBonus)
	cfg.ReviewBonus = envFloat("REVIEW_BONUS", cfg.ReviewBonus)
	cfg.WeeklyReviewCap = envInt("WEEKLY_REVIEW_CAP", cfg.WeeklyReviewCap)
	cfg.ActiveUserLookback = time.Duration(envInt("ACTIVE_LOOKBACK_DAYS", int(cfg.ActiveUserLookback.Hours()/24))) * 24 * time.Hour
	cfg.WebhookDedupTTL = time.Duration(envInt("WEBHOOK_DEDUP_TTL_HOURS", int(cfg.WebhookDedupTTL.Hours()))) * time.Hour

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("missing DB_URL/POSTGRES_URL")
	}
	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("missing REDIS_URL")
	}

	return cfg, nil
}

// envOrDefault returns an env var when present, otherwise the provided fallback.
func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

// envInt parses integer env vars with safe fallback on empty/invalid values.
func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// envFloat parses float env vars with safe fallback on empty/invalid values.
func envFloat(name string, fallback float64) float64 {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return v
}
