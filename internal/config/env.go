package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL        string
	ServiceDatabaseURL string

	OpenAIAPIKey     string
	GeminiAPIKey     string
	EmbedModel       string
	GeminiEmbedModel string
	GenModel         string
	VisionModel      string

	AwsAccessKey string
	AwsSecretKey string
	AwsRegion    string

	SectionWorkers   int
	ChunkTokenBudget int
	MinTextLen       int
	OCRDPi           int
	VisionDPI        int
	CallbackTimeout  time.Duration

	Port string
}

// LoadConfig loads the environment variables and return config
func LoadConfig() *Config {

	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		ServiceDatabaseURL: getEnv("SERVICE_DATABASE_URL", ""),
		OpenAIAPIKey:       getEnv("OPENAI_API_KEY", ""),
		GeminiAPIKey:       getEnv("GEMINI_API_KEY", ""),
		EmbedModel:         getEnv("EMBED_MODEL", "text-embedding-3-small"),
		GeminiEmbedModel:   getEnv("GEMINI_EMBED_MODEL", "gemini-embedding-exp-03-07"),
		GenModel:           getEnv("GEN_MODEL", "gpt-3.5-turbo-16k"),
		VisionModel:        getEnv("VISION_MODEL", "gemini-2.0-flash"),
		AwsAccessKey:       getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey:       getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:          getEnv("AWS_REGION", "us-east-2"),
		SectionWorkers:     getEnvInt("SECTION_WORKERS", 5),
		ChunkTokenBudget:   getEnvInt("CHUNK_TOKEN_BUDGET", 12000),
		MinTextLen:         getEnvInt("MIN_TEXT_LEN", 50),
		OCRDPi:             getEnvInt("OCR_DPI", 100),
		VisionDPI:          getEnvInt("VISION_DPI", 200),
		CallbackTimeout:    getEnvDuration("CALLBACK_TIMEOUT", 5*time.Second),
		Port:               getEnv("PORT", "8080"),
	}

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}
	if cfg.ServiceDatabaseURL == "" {
		cfg.ServiceDatabaseURL = cfg.DatabaseURL
	}

	return cfg
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("WARN: %s=%q not an int, using default %d", key, v, def)
		return def
	}
	return n
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("WARN: %s=%q not a duration, using default %s", key, v, def)
		return def
	}
	return d
}
