package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SUPABASE_URL", "https://example.supabase.co")
	t.Setenv("SUPABASE_SERVICE_ROLE_KEY", "service")
	t.Setenv("GIVEAWAY_ORGANIZER_IDS", "11,22")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, 6, cfg.Giveaway.Places)
	assert.Equal(t, 500, cfg.Giveaway.AttemptBudget)
	assert.Equal(t, 15*time.Second, cfg.Giveaway.OracleTimeout)
	assert.Equal(t, ResultsBackendSupabase, cfg.Giveaway.ResultsBackend)
	assert.Equal(t, []int64{11, 22}, cfg.Giveaway.OrganizerIDs)
	assert.Equal(t, "service", cfg.SupabaseKey())
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing supabase url", map[string]string{"SUPABASE_SERVICE_ROLE_KEY": "k"}},
		{"missing key", map[string]string{"SUPABASE_URL": "https://x"}},
		{"bad backend", map[string]string{"SUPABASE_URL": "https://x", "SUPABASE_ANON_KEY": "k", "GIVEAWAY_RESULTS_BACKEND": "mysql"}},
		{"bad places", map[string]string{"SUPABASE_URL": "https://x", "SUPABASE_ANON_KEY": "k", "GIVEAWAY_PLACES": "3"}},
		{"zero budget", map[string]string{"SUPABASE_URL": "https://x", "SUPABASE_ANON_KEY": "k", "GIVEAWAY_ATTEMPT_BUDGET": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("SUPABASE_URL", "")
			t.Setenv("SUPABASE_ANON_KEY", "")
			t.Setenv("SUPABASE_SERVICE_ROLE_KEY", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestSupabaseKey_FallsBackToAnon(t *testing.T) {
	cfg := &Config{}
	cfg.Supabase.AnonKey = "anon"
	assert.Equal(t, "anon", cfg.SupabaseKey())
}
