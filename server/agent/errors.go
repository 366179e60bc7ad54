// Package agent orchestrates the transcribe → generate → synthesize pipeline
// and classifies provider failures for the fallback policy.
package agent

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/alpacavoice/alpaca/plugin/stt"
	"github.com/alpacavoice/alpaca/plugin/tts"
)

// ErrEmptyTranscript indicates the audio produced no usable text.
var ErrEmptyTranscript = errors.New("empty transcript")

// FailureKind categorizes an adapter failure for the caller's retry decision.
type FailureKind int

const (
	// FailureTransient indicates a network or timeout failure; the caller may
	// retry the same request.
	FailureTransient FailureKind = iota

	// FailureInvalidInput indicates the request violated a provider input
	// limit; retrying unchanged will not help.
	FailureInvalidInput

	// FailureProvider indicates an unexpected provider-side failure.
	FailureProvider
)

// String returns the wire representation of the failure kind.
func (k FailureKind) String() string {
	switch k {
	case FailureTransient:
		return "transient"
	case FailureInvalidInput:
		return "invalid_input"
	case FailureProvider:
		return "provider_error"
	default:
		return "unknown"
	}
}

// Failure wraps an adapter error with its classification.
type Failure struct {
	Kind FailureKind
	Err  error
}

// Error returns a formatted failure message.
func (f *Failure) Error() string {
	if f.Err == nil {
		return f.Kind.String()
	}
	return fmt.Sprintf("%s: %v", f.Kind, f.Err)
}

// Unwrap returns the original error for errors.Is/As.
func (f *Failure) Unwrap() error {
	return f.Err
}

// Classify maps an adapter error onto the failure taxonomy.
func Classify(err error) *Failure {
	if err == nil {
		return nil
	}

	if isInvalidInput(err) {
		return &Failure{Kind: FailureInvalidInput, Err: err}
	}
	if isTimeoutError(err) || isNetworkError(err) {
		return &Failure{Kind: FailureTransient, Err: err}
	}

	return &Failure{Kind: FailureProvider, Err: err}
}

// isInvalidInput checks for input-limit violations raised by the adapters.
func isInvalidInput(err error) bool {
	return errors.Is(err, stt.ErrEmptyAudio) ||
		errors.Is(err, stt.ErrAudioTooLarge) ||
		errors.Is(err, tts.ErrEmptyText) ||
		errors.Is(err, tts.ErrTextTooLong) ||
		errors.Is(err, ErrEmptyTranscript)
}

// isTimeoutError checks if an error is timeout-related.
func isTimeoutError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	errMsg := strings.ToLower(err.Error())
	timeoutPatterns := []string{
		"timeout",
		"deadline exceeded",
		"i/o timeout",
		"operation timed out",
	}
	for _, pattern := range timeoutPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}
	return false
}

// isNetworkError checks if an error is network-related.
func isNetworkError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	errMsg := strings.ToLower(err.Error())
	networkPatterns := []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"network is unreachable",
		"no such host",
		"temporary failure",
		"dial tcp",
	}
	for _, pattern := range networkPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}
	return false
}
