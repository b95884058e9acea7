package config

import (
	"menu-service/pkg/database"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

type Config struct {
	Env  string
	Port string
	DB   DB

	StoreTimeout time.Duration
	JWT          JWT

	// BroadcastDriver is redis, nats or none.
	BroadcastDriver string
	Redis           Redis
	NATSURL         string

	// EventBus is kafka, amqp or none.
	EventBus     string
	KafkaBrokers []string
	KafkaTopic   string
	AMQPURL      string
	AMQPExchange string

	OrphanGrace        time.Duration
	SweepInterval      time.Duration
	ChangeFeedMaxDelay time.Duration
}

type DB struct {
	database.Config
}

type JWT struct {
	Secret   string
	Issuer   string
	Audience string
}

type Redis struct {
	Addr     string
	Password string
	DB       int
}

func Load(log *zap.Logger) *Config {
	cfg := &Config{
		Env:  getEnvDefault("ENV", "production"),
		Port: getEnv("APP_PORT", log),
		DB:   LoadDB(log),

		StoreTimeout: durationDefault(os.Getenv("STORE_TIMEOUT"), 30*time.Second),
		JWT: JWT{
			Secret:   getEnv("JWT_SECRET", log),
			Issuer:   os.Getenv("JWT_ISSUER"),
			Audience: os.Getenv("JWT_AUDIENCE"),
		},

		BroadcastDriver: strings.ToLower(getEnvDefault("BROADCAST_DRIVER", "none")),
		EventBus:        strings.ToLower(getEnvDefault("EVENT_BUS", "none")),

		OrphanGrace:        durationDefault(os.Getenv("ORPHAN_GRACE"), 10*time.Minute),
		SweepInterval:      durationDefault(os.Getenv("SWEEP_INTERVAL"), 15*time.Minute),
		ChangeFeedMaxDelay: durationDefault(os.Getenv("CHANGEFEED_MAX_DELAY"), 30*time.Second),
	}

	switch cfg.BroadcastDriver {
	case "redis":
		cfg.Redis = Redis{
			Addr:     getEnv("REDIS_ADDR", log),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       atoiDefault(os.Getenv("REDIS_DB"), 0),
		}
	case "nats":
		cfg.NATSURL = getEnv("NATS_URL", log)
	}

	switch cfg.EventBus {
	case "kafka":
		cfg.KafkaBrokers = splitAndTrim(getEnv("KAFKA_BROKERS", log))
		cfg.KafkaTopic = getEnvDefault("KAFKA_TOPIC", "order-events")
	case "amqp":
		cfg.AMQPURL = getEnv("AMQP_URL", log)
		cfg.AMQPExchange = getEnvDefault("AMQP_EXCHANGE", "order_events_fanout")
	}
	return cfg
}

// LoadDB reads only the database settings; used by the migrate and sweeper jobs.
func LoadDB(log *zap.Logger) DB {
	return DB{
		Config: database.Config{
			Host:     getEnv("DB_HOST", log),
			Port:     getEnv("DB_PORT", log),
			User:     getEnv("DB_USER", log),
			Password: getEnv("DB_PASSWORD", log),
			Name:     getEnv("DB_NAME", log),
			SSLMode:  getEnvDefault("DB_SSLMODE", "disable"),
		},
	}
}

func (c *Config) IsDev() bool { return c.Env == "development" }

func getEnv(key string, log *zap.Logger) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	log.Error("Обязательная переменная окружения не установлена", zap.String("key", key))
	panic("missing required environment variable: " + key)
}

func getEnvDefault(key, def string) string {
	if val, exists := os.LookupEnv(key); exists && val != "" {
		return val
	}
	return def
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func durationDefault(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	parts := []string{}
	for _, p := range strings.Split(s, ",") {
		pt := strings.TrimSpace(p)
		if pt != "" {
			parts = append(parts, pt)
		}
	}
	return parts
}
