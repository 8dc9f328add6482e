package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	JWTSecret  string
	ServerPort string

	// SubscriptionDays is the default paid subscription period. Zero means
	// new subscriptions get no fixed end date.
	SubscriptionDays int

	// SweepInterval is how often the background expiry sweep runs.
	SweepInterval time.Duration
}

func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println("Error loading .env file, using environment variables")
	}

	return &Config{
		DBHost:           getEnv("DB_HOST", "localhost"),
		DBPort:           getEnv("DB_PORT", "5432"),
		DBUser:           getEnv("DB_USER", "postgres"),
		DBPassword:       getEnv("DB_PASSWORD", "postgres"),
		DBName:           getEnv("DB_NAME", "coursegate"),
		JWTSecret:        getEnv("JWT_SECRET", "secret"),
		ServerPort:       getEnv("SERVER_PORT", "8080"),
		SubscriptionDays: getEnvInt("SUBSCRIPTION_DAYS", 30),
		SweepInterval:    time.Duration(getEnvInt("SWEEP_INTERVAL_MINUTES", 15)) * time.Minute,
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
