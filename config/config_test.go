package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setBase(t *testing.T) {
	t.Helper()
	for k, v := range map[string]string{
		"APP_PORT":    ":8080",
		"DB_HOST":     "localhost",
		"DB_PORT":     "5432",
		"DB_USER":     "menu",
		"DB_PASSWORD": "menu",
		"DB_NAME":     "menu",
		"JWT_SECRET":  "secret",
	} {
		t.Setenv(k, v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	setBase(t)
	cfg := Load(zap.NewNop())

	assert.Equal(t, 30*time.Second, cfg.StoreTimeout)
	assert.Equal(t, "none", cfg.BroadcastDriver)
	assert.Equal(t, "none", cfg.EventBus)
	assert.Equal(t, "disable", cfg.DB.SSLMode)
	assert.Equal(t, 10*time.Minute, cfg.OrphanGrace)
	assert.False(t, cfg.IsDev())
}

func TestLoad_Drivers(t *testing.T) {
	setBase(t)
	t.Setenv("BROADCAST_DRIVER", "Redis")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("EVENT_BUS", "kafka")
	t.Setenv("KAFKA_BROKERS", " k1:9092, ,k2:9092 ")
	t.Setenv("STORE_TIMEOUT", "5s")

	cfg := Load(zap.NewNop())
	assert.Equal(t, "redis", cfg.BroadcastDriver)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "order-events", cfg.KafkaTopic)
	assert.Equal(t, 5*time.Second, cfg.StoreTimeout)
}

func TestLoad_MissingRequiredPanics(t *testing.T) {
	setBase(t)
	t.Setenv("EVENT_BUS", "amqp")
	require.Panics(t, func() { Load(zap.NewNop()) })
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, 7, atoiDefault("x", 7))
	assert.Equal(t, time.Minute, durationDefault("-1s", time.Minute))
	assert.Nil(t, splitAndTrim(""))
}
