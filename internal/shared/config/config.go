package config

import (
	"errors"
	"log"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Port             string
	Env              string
	CORSAllowOrigin  []string
	FrontendURL      string
	ObjectStoreType  string
	LocalStoreDir    string
	AWSRegion        string
	S3Bucket         string
	S3Prefix         string
	SSEKMSKeyID      string
	DatabaseURL      string
	LLMProvider      string
	LLMModel         string
	LLMMaxTokens     int
	AnthropicAPIKey  string
	AnthropicBaseURL string
	OpenAIAPIKey     string
	FirecrawlAPIKey  string
	FirecrawlBaseURL string
	FirecrawlRPS     float64
	NATSURL          string
	QueueURL         string
	RateLimitEnabled bool
}

// Load reads configuration from an optional config.yaml and environment variables.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	v := viper.New()
	setDefaults(v)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			log.Printf("config: read config file: %v", err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) Config {
	env := normalizeEnv(v.GetString("env"))
	dbURL := strings.TrimSpace(v.GetString("database_url"))
	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}

	frontendURL := strings.TrimSpace(v.GetString("frontend_url"))
	origins := splitAndTrim(v.GetString("cors_allow_origins"))
	if frontendURL != "" && !contains(origins, frontendURL) {
		origins = append(origins, frontendURL)
	}

	return Config{
		Port:             v.GetString("port"),
		Env:              env,
		CORSAllowOrigin:  origins,
		FrontendURL:      frontendURL,
		ObjectStoreType:  normalizeStoreType(v.GetString("object_store")),
		LocalStoreDir:    v.GetString("local_store_dir"),
		AWSRegion:        v.GetString("aws_region"),
		S3Bucket:         v.GetString("s3_bucket"),
		S3Prefix:         v.GetString("s3_prefix"),
		SSEKMSKeyID:      v.GetString("sse_kms_key_id"),
		DatabaseURL:      dbURL,
		LLMProvider:      normalizeProvider(v.GetString("llm_provider")),
		LLMModel:         v.GetString("llm_model"),
		LLMMaxTokens:     v.GetInt("llm_max_tokens"),
		AnthropicAPIKey:  v.GetString("anthropic_api_key"),
		AnthropicBaseURL: v.GetString("anthropic_base_url"),
		OpenAIAPIKey:     v.GetString("openai_api_key"),
		FirecrawlAPIKey:  v.GetString("firecrawl_api_key"),
		FirecrawlBaseURL: strings.TrimRight(v.GetString("firecrawl_base_url"), "/"),
		FirecrawlRPS:     v.GetFloat64("firecrawl_rps"),
		NATSURL:          v.GetString("nats_url"),
		QueueURL:         strings.TrimSpace(v.GetString("ms_sqs_queue_url")),
		RateLimitEnabled: v.GetBool("rate_limit_enabled"),
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8000")
	v.SetDefault("env", "dev")
	v.SetDefault("cors_allow_origins", "http://localhost:3000,http://127.0.0.1:3000")
	v.SetDefault("frontend_url", "")
	v.SetDefault("object_store", "local")
	v.SetDefault("local_store_dir", "./data")
	v.SetDefault("aws_region", "")
	v.SetDefault("s3_bucket", "")
	v.SetDefault("s3_prefix", "")
	v.SetDefault("sse_kms_key_id", "")
	v.SetDefault("database_url", "")
	v.SetDefault("llm_provider", "anthropic")
	v.SetDefault("llm_model", "claude-sonnet-4-20250514")
	v.SetDefault("llm_max_tokens", 16000)
	v.SetDefault("anthropic_api_key", "")
	v.SetDefault("anthropic_base_url", "https://api.anthropic.com/v1")
	v.SetDefault("openai_api_key", "")
	v.SetDefault("firecrawl_api_key", "")
	v.SetDefault("firecrawl_base_url", "https://api.firecrawl.dev/v1")
	v.SetDefault("firecrawl_rps", 2.0)
	v.SetDefault("nats_url", "")
	v.SetDefault("ms_sqs_queue_url", "")
	v.SetDefault("rate_limit_enabled", true)
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}

func normalizeProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "openai":
		return "openai"
	case "none", "off":
		return "none"
	default:
		return "anthropic"
	}
}
