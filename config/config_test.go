package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STAFF_ID", "")
	t.Setenv("KAFKA_BROKERS", "")

	cfg := Load()

	assert.Equal(t, int64(1), cfg.Terminal.DefaultStaffID)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 24*time.Hour, cfg.Terminal.IdempotencyTTL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STAFF_ID", "42")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("LOW_STOCK_THRESHOLD", "7")

	cfg := Load()

	assert.Equal(t, int64(42), cfg.Terminal.DefaultStaffID)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 7, cfg.Terminal.LowStockThreshold)
}

func TestLoadRejectsInvalidStaffID(t *testing.T) {
	t.Setenv("STAFF_ID", "not-a-number")

	cfg := Load()

	assert.Equal(t, int64(1), cfg.Terminal.DefaultStaffID)
}
