package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"leave-portal/internal/events"
)

type DBConfig struct {
	Host     string
	User     string
	Password string
	Name     string
	Port     string
	SSLMode  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Broker            string
	InvalidationTopic string
	ConsumerGroup     string
}

type CacheConfig struct {
	LeavesTTL         time.Duration
	BalanceTTL        time.Duration
	InvalidateWorkers int
	InvalidateQueue   int
	InvalidateTimeout time.Duration
}

type SeedUser struct {
	Role     string
	Name     string
	Email    string
	Password string
}

type Config struct {
	Port      string
	AppEnv    string
	JWTSecret string
	JWTTTL    time.Duration
	DB        DBConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Cache     CacheConfig
	SeedUsers []SeedUser
}

func (c Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// KafkaEnabled reports whether cache invalidation goes through Kafka instead of
// the in-process queue.
func (c Config) KafkaEnabled() bool {
	return strings.TrimSpace(c.Kafka.Broker) != ""
}

func Load() Config {
	return Config{
		Port:      getEnv("PORT", "4000"),
		AppEnv:    getEnv("APP_ENV", "development"),
		JWTSecret: getEnv("JWT_SECRET", "devsecret"),
		JWTTTL:    getEnvAsDuration("JWT_TTL", 8*time.Hour),
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "leave_portal"),
			Port:     getEnv("DB_PORT", "5432"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Broker:            getEnv("KAFKA_BROKER", ""),
			InvalidationTopic: getEnv("KAFKA_INVALIDATION_TOPIC", events.CacheInvalidationTopic),
			ConsumerGroup:     getEnv("KAFKA_CONSUMER_GROUP", "leave-portal-cache"),
		},
		Cache: CacheConfig{
			LeavesTTL:         getEnvAsDuration("LEAVES_CACHE_TTL", 20*time.Second),
			BalanceTTL:        getEnvAsDuration("BALANCE_CACHE_TTL", 30*time.Second),
			InvalidateWorkers: getEnvAsInt("INVALIDATION_WORKERS", 1),
			InvalidateQueue:   getEnvAsInt("INVALIDATION_QUEUE", 256),
			InvalidateTimeout: getEnvAsDuration("INVALIDATION_TIMEOUT", 2*time.Second),
		},
		SeedUsers: []SeedUser{
			{Role: "admin", Name: "Default Admin", Email: getEnv("DEFAULT_ADMIN_EMAIL", "admin@example.com"), Password: getEnv("DEFAULT_ADMIN_PASSWORD", "Admin1234!")},
			{Role: "manager", Name: "Default Manager", Email: getEnv("DEFAULT_MANAGER_EMAIL", "manager@example.com"), Password: getEnv("DEFAULT_MANAGER_PASSWORD", "Manager1234!")},
			{Role: "employee", Name: "Default Employee", Email: getEnv("DEFAULT_EMPLOYEE_EMAIL", "employee@example.com"), Password: getEnv("DEFAULT_EMPLOYEE_PASSWORD", "Employee1234!")},
		},
	}
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if v, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return v
	}
	return defaultVal
}

// Accepts Go durations ("20s") or a bare number of seconds ("20").
func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultVal
}
