package agent

import "time"

// Per-step timeout budgets. A step that exceeds its budget is treated as a
// transient failure feeding the fallback path; an unbounded provider hang must
// never hang the whole request.
const (
	// TranscribeTimeout covers the upload plus polling of one transcription.
	TranscribeTimeout = 60 * time.Second

	// GenerateTimeout covers one chat completion including retries.
	GenerateTimeout = 45 * time.Second

	// SynthesizeTimeout covers synthesis plus downloading the audio.
	SynthesizeTimeout = 45 * time.Second

	// FallbackTimeout bounds the fallback-audio fetch so a dead provider
	// cannot stall the degraded response either.
	FallbackTimeout = 10 * time.Second

	// HistoryWindow is the number of recent turns fed back to the model.
	HistoryWindow = 20
)
