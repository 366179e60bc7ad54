package v1

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/alpacavoice/alpaca/plugin/tts"
	"github.com/alpacavoice/alpaca/server/agent"
	"github.com/alpacavoice/alpaca/server/session"
)

// synthAcquireTimeout bounds how long a direct audio request waits for a
// synthesis slot before taking the fallback path.
const synthAcquireTimeout = 10 * time.Second

type turnResponse struct {
	Transcription string `json:"transcription,omitempty"`
	Text          string `json:"text,omitempty"`
	AudioBase64   string `json:"audio_base64,omitempty"`
	Error         string `json:"error,omitempty"`
	ErrorKind     string `json:"error_kind,omitempty"`
}

type historyResponse struct {
	SessionID string         `json:"session_id"`
	Messages  []session.Turn `json:"messages"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type generateAudioRequest struct {
	Text    string `json:"text"`
	VoiceID string `json:"voice_id"`
}

// ChatTurn runs one conversational turn: transcribe the uploaded audio, append
// it to the session, generate a reply, speak it. Provider failures still
// return 200 with an error field and fallback audio.
func (s *APIV1Service) ChatTurn(c echo.Context) error {
	audio, err := readAudioFile(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	sessionID := c.Param("sessionId")
	result := s.Agent.HandleTurn(c.Request().Context(), sessionID, audio)
	return writeTurnResult(c, result)
}

// GetChatHistory returns the full message history for a session. Unknown
// sessions yield an empty list.
func (s *APIV1Service) GetChatHistory(c echo.Context) error {
	sessionID := c.Param("sessionId")
	return c.JSON(http.StatusOK, &historyResponse{
		SessionID: sessionID,
		Messages:  s.Store.History(sessionID),
	})
}

// ClearChatHistory drops the session's history. Clearing an unknown session
// succeeds.
func (s *APIV1Service) ClearChatHistory(c echo.Context) error {
	sessionID := c.Param("sessionId")
	s.Store.Clear(sessionID)
	return c.JSON(http.StatusOK, &messageResponse{
		Message: "chat history cleared for session " + sessionID,
	})
}

// GenerateAudio synthesizes arbitrary text and returns the provider-hosted
// audio URL.
func (s *APIV1Service) GenerateAudio(c echo.Context) error {
	request := &generateAudioRequest{}
	if err := c.Bind(request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if request.Text == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "text is required")
	}

	ctx := c.Request().Context()
	release, err := s.acquireSynthSlot(ctx)
	if err != nil {
		return s.writeSynthFallback(c, err)
	}
	defer release()

	audioURL, err := s.TTS.SynthesizeURL(ctx, request.Text, request.VoiceID)
	if err != nil {
		return s.writeSynthFallback(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"audio_url": audioURL})
}

// QueryLLM answers a one-shot spoken question without touching any session.
func (s *APIV1Service) QueryLLM(c echo.Context) error {
	audio, err := readAudioFile(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	result := s.Agent.HandleQuery(c.Request().Context(), audio)
	return writeTurnResult(c, result)
}

// TranscribeFile transcribes the uploaded audio and returns the text.
func (s *APIV1Service) TranscribeFile(c echo.Context) error {
	audio, err := readAudioFile(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), agent.TranscribeTimeout)
	defer cancel()

	transcript, err := s.STT.Transcribe(ctx, audio)
	if err != nil {
		failure := agent.Classify(err)
		return c.JSON(http.StatusOK, &turnResponse{
			Error:     failure.Error(),
			ErrorKind: failure.Kind.String(),
		})
	}
	return c.JSON(http.StatusOK, map[string]string{"transcription": transcript})
}

// TTSEcho transcribes the uploaded audio and speaks it back in the configured
// voice. Success streams raw audio; failures return the fallback JSON shape.
func (s *APIV1Service) TTSEcho(c echo.Context) error {
	audio, err := readAudioFile(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()

	tctx, cancel := context.WithTimeout(ctx, agent.TranscribeTimeout)
	transcript, err := s.STT.Transcribe(tctx, audio)
	cancel()
	if err != nil {
		return s.writeSynthFallback(c, err)
	}

	release, err := s.acquireSynthSlot(ctx)
	if err != nil {
		return s.writeSynthFallback(c, err)
	}
	defer release()

	sctx, cancel := context.WithTimeout(ctx, agent.SynthesizeTimeout)
	defer cancel()
	clip, err := s.TTS.Synthesize(sctx, transcript, "")
	if err != nil {
		return s.writeSynthFallback(c, err)
	}
	return c.Blob(http.StatusOK, "audio/mpeg", clip)
}

func (s *APIV1Service) Ping(c echo.Context) error {
	return c.JSON(http.StatusOK, &messageResponse{Message: "alpaca voice agent is running"})
}

func (s *APIV1Service) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":   "healthy",
		"sessions": s.Store.Count(),
		"version":  s.Profile.Version,
		"instance": s.instanceID,
	})
}

// readAudioFile pulls the uploaded "file" part out of the multipart form. The
// returned errors are user errors and map to 400.
func readAudioFile(c echo.Context) ([]byte, error) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return nil, errors.New("audio file is required")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, errors.New("failed to open uploaded file")
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		return nil, errors.New("failed to read uploaded file")
	}
	if len(audio) == 0 {
		return nil, errors.New("uploaded audio is empty")
	}
	return audio, nil
}

// acquireSynthSlot takes a synthesis slot, waiting up to synthAcquireTimeout.
func (s *APIV1Service) acquireSynthSlot(ctx context.Context) (func(), error) {
	actx, cancel := context.WithTimeout(ctx, synthAcquireTimeout)
	defer cancel()

	if err := s.synthSemaphore.Acquire(actx, 1); err != nil {
		return nil, errors.Wrap(err, "synthesis is busy")
	}
	return func() { s.synthSemaphore.Release(1) }, nil
}

// writeSynthFallback answers a failed direct synthesis request with the fixed
// fallback phrase and, when available, its audio.
func (s *APIV1Service) writeSynthFallback(c echo.Context, err error) error {
	failure := agent.Classify(err)
	response := &turnResponse{
		Text:      tts.FallbackText,
		Error:     failure.Error(),
		ErrorKind: failure.Kind.String(),
	}

	fctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request().Context()), agent.FallbackTimeout)
	defer cancel()
	if clip, fbErr := s.TTS.FallbackAudio(fctx); fbErr == nil {
		response.AudioBase64 = base64.StdEncoding.EncodeToString(clip)
	}
	return c.JSON(http.StatusOK, response)
}

// writeTurnResult maps an orchestrator result to the wire shape. Provider
// failures keep status 200; the error field is the signal.
func writeTurnResult(c echo.Context, result *agent.TurnResult) error {
	response := &turnResponse{
		Transcription: result.Transcription,
		Text:          result.Text,
	}
	if len(result.Audio) > 0 {
		response.AudioBase64 = base64.StdEncoding.EncodeToString(result.Audio)
	}
	if result.Failure != nil {
		response.Error = result.Failure.Error()
		response.ErrorKind = result.Failure.Kind.String()
	}
	return c.JSON(http.StatusOK, response)
}
