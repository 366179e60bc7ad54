// Package profile holds the runtime configuration for the server.
package profile

import (
	"os"

	"github.com/pkg/errors"
)

// Profile is the configuration to start the main server.
type Profile struct {
	// Mode can be "prod" or "dev"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Version is the current version of server
	Version string

	// Provider secrets. Opaque strings; the only requirement is non-empty.
	AssemblyAIAPIKey string // ALPACA_ASSEMBLYAI_API_KEY (legacy: ASSEMBLYAI_API_KEY)
	GeminiAPIKey     string // ALPACA_GEMINI_API_KEY (legacy: GEMINI_API_KEY)
	MurfAPIKey       string // ALPACA_MURF_API_KEY (legacy: MURF_API_KEY)

	// VoiceID is the default synthesis voice.
	VoiceID string // ALPACA_VOICE_ID
	// MaxUploadBytes is the upload body ceiling enforced at the HTTP boundary.
	MaxUploadBytes int64
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// getEnvWithFallback returns the prefixed environment variable, falling back
// to the legacy unprefixed name used by earlier deployments.
func getEnvWithFallback(newKey, legacyKey string) string {
	if val := os.Getenv(newKey); val != "" {
		return val
	}
	return os.Getenv(legacyKey)
}

// FromEnv loads provider configuration from environment variables.
func (p *Profile) FromEnv() {
	p.AssemblyAIAPIKey = getEnvWithFallback("ALPACA_ASSEMBLYAI_API_KEY", "ASSEMBLYAI_API_KEY")
	p.GeminiAPIKey = getEnvWithFallback("ALPACA_GEMINI_API_KEY", "GEMINI_API_KEY")
	p.MurfAPIKey = getEnvWithFallback("ALPACA_MURF_API_KEY", "MURF_API_KEY")

	if voice := os.Getenv("ALPACA_VOICE_ID"); voice != "" {
		p.VoiceID = voice
	}
}

// Validate checks the profile is complete enough to start.
func (p *Profile) Validate() error {
	if p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "dev"
	}
	if p.Port <= 0 || p.Port > 65535 {
		return errors.Errorf("invalid port %d", p.Port)
	}
	if p.MaxUploadBytes <= 0 {
		p.MaxUploadBytes = 50 << 20
	}

	if p.AssemblyAIAPIKey == "" {
		return errors.New("ASSEMBLYAI_API_KEY is required")
	}
	if p.GeminiAPIKey == "" {
		return errors.New("GEMINI_API_KEY is required")
	}
	if p.MurfAPIKey == "" {
		return errors.New("MURF_API_KEY is required")
	}

	return nil
}
