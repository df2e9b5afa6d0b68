package stt

import "context"

// Provider transcribes candidate audio captured during the live demo; the
// text feeds the candidate side of the session transcript.
type Provider interface {
	Transcribe(ctx context.Context, audio []byte, language string) (text string, confidence float64, err error)
	Close() error
}
