// Package v1 exposes the voice agent over HTTP.
package v1

import (
	"context"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"golang.org/x/sync/semaphore"

	"github.com/alpacavoice/alpaca/internal/profile"
	"github.com/alpacavoice/alpaca/plugin/llm"
	"github.com/alpacavoice/alpaca/plugin/stt"
	"github.com/alpacavoice/alpaca/plugin/tts"
	"github.com/alpacavoice/alpaca/server/agent"
	"github.com/alpacavoice/alpaca/server/session"
)

// TurnHandler runs the voice pipeline for a request. It never errors; failures
// come back inside the TurnResult.
type TurnHandler interface {
	HandleTurn(ctx context.Context, sessionID string, audio []byte) *agent.TurnResult
	HandleQuery(ctx context.Context, audio []byte) *agent.TurnResult
}

// SpeechSynthesizer is the subset of the synthesis client used by the direct
// audio endpoints.
type SpeechSynthesizer interface {
	SynthesizeURL(ctx context.Context, text, voiceID string) (string, error)
	Synthesize(ctx context.Context, text, voiceID string) ([]byte, error)
	FallbackAudio(ctx context.Context) ([]byte, error)
}

type APIV1Service struct {
	Profile *profile.Profile
	Store   *session.Store
	Agent   TurnHandler
	STT     agent.Transcriber
	TTS     SpeechSynthesizer

	// instanceID identifies this process in health responses and logs.
	instanceID string

	// synthSemaphore limits concurrent synthesis provider calls on the direct
	// audio endpoints.
	synthSemaphore *semaphore.Weighted
}

func NewAPIV1Service(prof *profile.Profile) *APIV1Service {
	store := session.NewStore()

	sttConfig := stt.ConfigFromEnv()
	if prof.AssemblyAIAPIKey != "" {
		sttConfig.APIKey = prof.AssemblyAIAPIKey
	}
	if prof.MaxUploadBytes > 0 {
		sttConfig.MaxAudioBytes = prof.MaxUploadBytes
	}
	sttClient := stt.NewClient(sttConfig)

	llmConfig := llm.ConfigFromEnv()
	if prof.GeminiAPIKey != "" {
		llmConfig.APIKey = prof.GeminiAPIKey
	}
	llmClient := llm.NewClient(llmConfig)

	ttsConfig := tts.ConfigFromEnv()
	if prof.MurfAPIKey != "" {
		ttsConfig.APIKey = prof.MurfAPIKey
	}
	if prof.VoiceID != "" {
		ttsConfig.VoiceID = prof.VoiceID
	}
	ttsClient := tts.NewClient(ttsConfig)

	return &APIV1Service{
		Profile:        prof,
		Store:          store,
		Agent:          agent.NewOrchestrator(sttClient, llmClient, ttsClient, store),
		STT:            sttClient,
		TTS:            ttsClient,
		instanceID:     uuid.NewString(),
		synthSemaphore: semaphore.NewWeighted(3),
	}
}

// RegisterRoutes attaches all agent endpoints to the given Echo instance.
func (s *APIV1Service) RegisterRoutes(echoServer *echo.Echo) {
	echoServer.GET("/ping", s.Ping)
	echoServer.GET("/health", s.Health)

	echoServer.POST("/agent/chat/:sessionId", s.ChatTurn)
	echoServer.GET("/agent/chat/:sessionId", s.GetChatHistory)
	echoServer.DELETE("/agent/chat/:sessionId", s.ClearChatHistory)

	echoServer.POST("/generate-audio/", s.GenerateAudio)
	echoServer.POST("/llm/query", s.QueryLLM)
	echoServer.POST("/transcribe/file", s.TranscribeFile)
	echoServer.POST("/tts-echo", s.TTSEcho)
}
