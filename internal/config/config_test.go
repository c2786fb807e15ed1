package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	require.Equal(t, "8000", cfg.ServerPort)
	require.Equal(t, 10, cfg.SearchResultLimit)
	require.Equal(t, 1, cfg.MaxToolRounds)
	require.Equal(t, "openai", cfg.LLMProvider)
	require.False(t, cfg.NATSEnabled)
	require.Empty(t, cfg.ToolBackendURL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("MAX_TOOL_ROUNDS", "3")
	t.Setenv("TURN_TIMEOUT", "5s")
	t.Setenv("CAPACITY_DEBUG", "true")
	t.Setenv("LLM_REQUESTS_PER_SECOND", "0.5")

	cfg := Load()

	require.Equal(t, "9090", cfg.ServerPort)
	require.Equal(t, 3, cfg.MaxToolRounds)
	require.Equal(t, 5*time.Second, cfg.TurnTimeout)
	require.True(t, cfg.CapacityDebug)
	require.InDelta(t, 0.5, cfg.LLMRequestsPerSecond, 1e-9)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("SEARCH_RESULT_LIMIT", "ten")
	t.Setenv("TRACING_ENABLED", "maybe")

	cfg := Load()

	require.Equal(t, 10, cfg.SearchResultLimit)
	require.False(t, cfg.TracingEnabled)
}
