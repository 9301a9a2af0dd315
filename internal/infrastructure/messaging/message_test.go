package messaging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "news-article-agent/pkg/errors"
)

func TestDecodeIngestEvent(t *testing.T) {
	t.Parallel()

	t.Run("valid envelope", func(t *testing.T) {
		t.Parallel()

		event, err := DecodeIngestEvent([]byte(`{"value":{"url":"https://example.com/a"}}`))
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/a", event.Value.URL)
	})

	t.Run("malformed json", func(t *testing.T) {
		t.Parallel()

		_, err := DecodeIngestEvent([]byte(`{"value":`))
		assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidParam))
	})

	t.Run("missing url", func(t *testing.T) {
		t.Parallel()

		_, err := DecodeIngestEvent([]byte(`{"value":{"url":"  "}}`))
		assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidParam))
	})

	t.Run("wrong shape", func(t *testing.T) {
		t.Parallel()

		_, err := DecodeIngestEvent([]byte(`{"url":"https://example.com/a"}`))
		assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidParam))
	})
}

func TestNewIngestEvent_RoundTrip(t *testing.T) {
	t.Parallel()

	event := NewIngestEvent("https://example.com/a")
	assert.Equal(t, "https://example.com/a", event.Value.URL)
}

func TestBackoffConfig_CalculateBackoff(t *testing.T) {
	t.Parallel()

	cfg := BackoffConfig{
		Initial:    time.Second,
		Max:        10 * time.Second,
		Multiplier: 2,
	}

	assert.Equal(t, time.Second, cfg.CalculateBackoff(0))
	assert.Equal(t, 2*time.Second, cfg.CalculateBackoff(1))
	assert.Equal(t, 4*time.Second, cfg.CalculateBackoff(2))
	assert.Equal(t, 8*time.Second, cfg.CalculateBackoff(3))
	// 超过上限后封顶
	assert.Equal(t, 10*time.Second, cfg.CalculateBackoff(4))
	assert.Equal(t, 10*time.Second, cfg.CalculateBackoff(20))
}

func TestState_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "disconnected", StateDisconnected.String())
	assert.Equal(t, "connected", StateConnected.String())
	assert.Equal(t, "subscribed", StateSubscribed.String())
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "shutting_down", StateShuttingDown.String())
	assert.Equal(t, "stopped", StateStopped.String())
	assert.Equal(t, "unknown", State(99).String())
}
