package server

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/example/kokoro-openai-server/internal/tts"
)

// Accepted request model identifiers. /v1/models advertises a few more
// compatibility ids, but synthesis accepts exactly these.
var acceptedModels = map[string]bool{
	"tts-1":  true,
	"kokoro": true,
}

// Speed multiplier bounds, inclusive.
const (
	MinSpeed = 0.25
	MaxSpeed = 4.0
)

// Response container formats.
const (
	FormatWAV = "wav"
	FormatPCM = "pcm"
)

// speechRequest is the wire shape of POST /v1/audio/speech. Pointer
// fields distinguish "absent" from zero values so defaults apply only
// when the client said nothing.
type speechRequest struct {
	Model          string   `json:"model"`
	Input          string   `json:"input"`
	Voice          string   `json:"voice"`
	ResponseFormat string   `json:"response_format"`
	Speed          *float64 `json:"speed"`
	Stream         *bool    `json:"stream"`
}

// SynthesisRequest is a validated, normalized request. Immutable once
// built; Voice is a resolved catalog ID.
type SynthesisRequest struct {
	Model  string
	Input  string
	Voice  string
	Format string
	Speed  float32
	Stream bool
}

// validateSpeech checks fields cheapest-first and touches no resource.
// The first failing field produces the returned *ValidationError; no
// partial acceptance.
func validateSpeech(raw speechRequest, maxChars int, defaultVoice string, voices *tts.Catalog) (SynthesisRequest, error) {
	if !acceptedModels[raw.Model] {
		return SynthesisRequest{}, &ValidationError{
			Field:  "model",
			Reason: fmt.Sprintf("Model '%s' not found", raw.Model),
		}
	}

	if raw.Input == "" {
		return SynthesisRequest{}, &ValidationError{
			Field:  "input",
			Reason: "Input text cannot be empty",
		}
	}

	if n := utf8.RuneCountInString(raw.Input); n > maxChars {
		return SynthesisRequest{}, &ValidationError{
			Field:  "input",
			Reason: fmt.Sprintf("Input text exceeds maximum length of %d characters", maxChars),
		}
	}

	voice := raw.Voice
	if voice == "" {
		voice = defaultVoice
	}

	resolved, err := voices.Resolve(voice)
	if err != nil {
		return SynthesisRequest{}, &ValidationError{
			Field:  "voice",
			Reason: fmt.Sprintf("Voice '%s' not found", voice),
		}
	}

	speed := 1.0
	if raw.Speed != nil {
		speed = *raw.Speed
	}

	if math.IsNaN(speed) || math.IsInf(speed, 0) {
		return SynthesisRequest{}, &ValidationError{
			Field:  "speed",
			Reason: "Speed must be a finite number",
		}
	}

	if speed < MinSpeed || speed > MaxSpeed {
		return SynthesisRequest{}, &ValidationError{
			Field:  "speed",
			Reason: fmt.Sprintf("Speed must be between %g and %g, got %g", MinSpeed, MaxSpeed, speed),
		}
	}

	format := strings.ToLower(raw.ResponseFormat)
	if format == "" {
		format = FormatWAV
	}

	if format != FormatWAV && format != FormatPCM {
		return SynthesisRequest{}, &ValidationError{
			Field:  "response_format",
			Reason: fmt.Sprintf("Response format '%s' not supported. Supported formats: wav, pcm", raw.ResponseFormat),
		}
	}

	stream := false
	if raw.Stream != nil {
		stream = *raw.Stream
	}

	return SynthesisRequest{
		Model:  raw.Model,
		Input:  raw.Input,
		Voice:  resolved,
		Format: format,
		Speed:  float32(speed),
		Stream: stream,
	}, nil
}
