package kafka_config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DisabledByDefault(t *testing.T) {
	t.Setenv(EnvKafkaEnabled, "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.Enabled)
	assert.Equal(t, DefaultReservationEventsTopic, cfg.ReservationEventsTopic)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Brokers)
}

func TestLoad_ParsesBrokers(t *testing.T) {
	t.Setenv(EnvKafkaEnabled, "true")
	t.Setenv(EnvKafkaBrokers, "k1:9092, k2:9092")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Brokers)
}

func TestValidate_Enabled(t *testing.T) {
	t.Setenv(EnvKafkaEnabled, "true")
	t.Setenv(EnvKafkaProducerCompression, "brotli")
	t.Setenv(EnvKafkaProducerRequireAcks, "2")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ProducerCompression")
	assert.Contains(t, err.Error(), "ProducerRequireAcks")
}

func TestValidate_DisabledSkipsChecks(t *testing.T) {
	cfg := &Config{Enabled: false, ProducerCompression: "brotli"}
	assert.NoError(t, cfg.Validate())
}
