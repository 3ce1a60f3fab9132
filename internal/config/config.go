package config

import (
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort string
	LogLevel   string

	CommerceURL string
	JWTSecret   []byte

	// The B2B trio is optional as a group: when any part is missing the
	// token exchange is skipped entirely and login proceeds without a
	// secondary token.
	B2BTokenURL   string
	B2BChannelID  string
	B2BCredential string

	RedisAddr     string
	RedisPassword string

	KafkaBrokers []string
	KafkaTopic   string
}

func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	cfg := &Config{
		ServerPort: envDefault("SERVER_PORT", "8080"),
		LogLevel:   envDefault("LOG_LEVEL", "info"),

		CommerceURL: must(os.Getenv("COMMERCE_URL"), "COMMERCE_URL"),
		JWTSecret:   []byte(must(os.Getenv("JWT_SECRET"), "JWT_SECRET")),

		B2BTokenURL:   os.Getenv("B2B_TOKEN_URL"),
		B2BChannelID:  os.Getenv("B2B_CHANNEL_ID"),
		B2BCredential: os.Getenv("B2B_CLIENT_CREDENTIAL"),

		RedisAddr:     must(os.Getenv("REDIS_ADDR"), "REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		KafkaBrokers: csv(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   envDefault("KAFKA_TOPIC", "session_events"),
	}
	return cfg, nil
}

func must(v, name string) string {
	if v == "" {
		log.Fatalf("missing required env %s", name)
	}
	return v
}

func envDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func csv(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
