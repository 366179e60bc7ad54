package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validProfile() *Profile {
	return &Profile{
		Mode:             "dev",
		Addr:             "",
		Port:             8000,
		AssemblyAIAPIKey: "aai-key",
		GeminiAPIKey:     "gem-key",
		MurfAPIKey:       "murf-key",
	}
}

func TestProfile_Validate(t *testing.T) {
	t.Run("ValidProfile", func(t *testing.T) {
		p := validProfile()
		require.NoError(t, p.Validate())
		assert.Equal(t, int64(50<<20), p.MaxUploadBytes)
	})

	t.Run("UnknownModeFallsBackToDev", func(t *testing.T) {
		p := validProfile()
		p.Mode = "demo"
		require.NoError(t, p.Validate())
		assert.Equal(t, "dev", p.Mode)
		assert.True(t, p.IsDev())
	})

	t.Run("MissingKeysRejected", func(t *testing.T) {
		for _, mutate := range []func(*Profile){
			func(p *Profile) { p.AssemblyAIAPIKey = "" },
			func(p *Profile) { p.GeminiAPIKey = "" },
			func(p *Profile) { p.MurfAPIKey = "" },
		} {
			p := validProfile()
			mutate(p)
			assert.Error(t, p.Validate())
		}
	})

	t.Run("InvalidPortRejected", func(t *testing.T) {
		p := validProfile()
		p.Port = 0
		assert.Error(t, p.Validate())
	})
}

func TestProfile_FromEnv(t *testing.T) {
	t.Run("PrefixedWinsOverLegacy", func(t *testing.T) {
		t.Setenv("ALPACA_GEMINI_API_KEY", "prefixed")
		t.Setenv("GEMINI_API_KEY", "legacy")

		var p Profile
		p.FromEnv()
		assert.Equal(t, "prefixed", p.GeminiAPIKey)
	})

	t.Run("LegacyFallback", func(t *testing.T) {
		t.Setenv("ALPACA_MURF_API_KEY", "")
		t.Setenv("MURF_API_KEY", "legacy-murf")

		var p Profile
		p.FromEnv()
		assert.Equal(t, "legacy-murf", p.MurfAPIKey)
	})

	t.Run("VoiceOverride", func(t *testing.T) {
		t.Setenv("ALPACA_VOICE_ID", "en-UK-ruby")

		var p Profile
		p.FromEnv()
		assert.Equal(t, "en-UK-ruby", p.VoiceID)
	})
}
