package agent

import (
	"context"
	"log/slog"
	"strings"

	"github.com/alpacavoice/alpaca/plugin/llm"
	"github.com/alpacavoice/alpaca/server/session"
)

// systemPrompt frames replies so they stay short enough to be spoken aloud.
const systemPrompt = "You are Alpaca, a friendly voice assistant. " +
	"Answer conversationally and keep replies short enough to be spoken aloud."

// Transcriber converts audio bytes to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// Responder generates a reply from the conversation so far.
type Responder interface {
	Chat(ctx context.Context, messages []llm.Message) (string, error)
}

// Synthesizer converts text to audio bytes.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voiceID string) ([]byte, error)
	FallbackAudio(ctx context.Context) ([]byte, error)
	Truncate(text string) string
}

// TurnResult is the outcome of one conversational turn. On the fallback path
// Failure is set and Transcription/Text carry whatever was obtained before the
// failing step; Audio then holds the fallback clip (or nil if even that
// failed). The zero Failure means full success.
type TurnResult struct {
	Transcription string
	Text          string
	Audio         []byte
	Failure       *Failure
}

// Orchestrator coordinates one conversational turn across the three provider
// adapters and the session store. It never returns an error to the caller:
// every adapter failure is converted into a well-formed fallback result.
type Orchestrator struct {
	stt   Transcriber
	llm   Responder
	tts   Synthesizer
	store *session.Store

	historyWindow int
}

// NewOrchestrator creates an orchestrator over the given adapters and store.
func NewOrchestrator(transcriber Transcriber, responder Responder, synthesizer Synthesizer, store *session.Store) *Orchestrator {
	return &Orchestrator{
		stt:           transcriber,
		llm:           responder,
		tts:           synthesizer,
		store:         store,
		historyWindow: HistoryWindow,
	}
}

// HandleTurn runs transcribe → generate → synthesize for one session turn.
// The user turn is appended as soon as a transcript exists, so history
// reflects what the user said even when the assistant could not reply.
func (o *Orchestrator) HandleTurn(ctx context.Context, sessionID string, audio []byte) *TurnResult {
	result := &TurnResult{}
	log := slog.With("session_id", sessionID)

	transcript, err := o.transcribe(ctx, audio)
	if err != nil {
		log.Warn("transcription failed", "error", err)
		return o.fallback(ctx, result, Classify(err))
	}
	result.Transcription = transcript

	o.store.Append(sessionID, session.NewTurn(session.RoleUser, transcript))

	reply, err := o.generate(ctx, o.store.Recent(sessionID, o.historyWindow))
	if err != nil {
		log.Warn("reply generation failed", "error", err)
		return o.fallback(ctx, result, Classify(err))
	}
	reply = o.tts.Truncate(reply)
	result.Text = reply

	o.store.Append(sessionID, session.NewTurn(session.RoleAssistant, reply))

	audioBytes, err := o.synthesize(ctx, reply)
	if err != nil {
		log.Warn("speech synthesis failed", "error", err)
		return o.fallback(ctx, result, Classify(err))
	}
	result.Audio = audioBytes

	log.Info("turn completed",
		"transcript_len", len(transcript),
		"reply_len", len(reply),
		"audio_bytes", len(audioBytes))
	return result
}

// HandleQuery runs the same pipeline for a one-shot query without touching
// any session history.
func (o *Orchestrator) HandleQuery(ctx context.Context, audio []byte) *TurnResult {
	result := &TurnResult{}

	transcript, err := o.transcribe(ctx, audio)
	if err != nil {
		slog.Warn("one-shot transcription failed", "error", err)
		return o.fallback(ctx, result, Classify(err))
	}
	result.Transcription = transcript

	reply, err := o.generate(ctx, []session.Turn{{Role: session.RoleUser, Text: transcript}})
	if err != nil {
		slog.Warn("one-shot reply generation failed", "error", err)
		return o.fallback(ctx, result, Classify(err))
	}
	reply = o.tts.Truncate(reply)
	result.Text = reply

	audioBytes, err := o.synthesize(ctx, reply)
	if err != nil {
		slog.Warn("one-shot speech synthesis failed", "error", err)
		return o.fallback(ctx, result, Classify(err))
	}
	result.Audio = audioBytes

	return result
}

func (o *Orchestrator) transcribe(ctx context.Context, audio []byte) (string, error) {
	tctx, cancel := context.WithTimeout(ctx, TranscribeTimeout)
	defer cancel()

	transcript, err := o.stt.Transcribe(tctx, audio)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(transcript) == "" {
		return "", ErrEmptyTranscript
	}
	return transcript, nil
}

func (o *Orchestrator) generate(ctx context.Context, history []session.Turn) (string, error) {
	gctx, cancel := context.WithTimeout(ctx, GenerateTimeout)
	defer cancel()

	return o.llm.Chat(gctx, buildMessages(history))
}

func (o *Orchestrator) synthesize(ctx context.Context, text string) ([]byte, error) {
	sctx, cancel := context.WithTimeout(ctx, SynthesizeTimeout)
	defer cancel()

	return o.tts.Synthesize(sctx, text, "")
}

// fallback attaches the failure and the fixed fallback clip to the result.
// The fallback fetch runs on a fresh timeout so an already-expired request
// context cannot block the degraded response.
func (o *Orchestrator) fallback(ctx context.Context, result *TurnResult, failure *Failure) *TurnResult {
	result.Failure = failure

	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), FallbackTimeout)
	defer cancel()

	audio, err := o.tts.FallbackAudio(fctx)
	if err != nil {
		slog.Error("fallback audio unavailable", "error", err)
		return result
	}
	result.Audio = audio
	return result
}

// buildMessages converts session turns into chat messages with the system
// prompt up front.
func buildMessages(history []session.Turn) []llm.Message {
	messages := make([]llm.Message, 0, len(history)+1)
	messages = append(messages, llm.Message{Role: "system", Content: systemPrompt})
	for _, turn := range history {
		messages = append(messages, llm.Message{
			Role:    string(turn.Role),
			Content: turn.Text,
		})
	}
	return messages
}
