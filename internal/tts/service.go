// Package tts binds the tokenizer, the voice catalog, and an inference
// engine into the synthesis service used by one worker slot.
package tts

import (
	"context"
	"fmt"

	"github.com/example/kokoro-openai-server/internal/text"
	"github.com/example/kokoro-openai-server/internal/tokenizer"
)

// Engine is one exclusive inference context. Implementations are not
// required to be goroutine-safe; the pool guarantees single ownership.
type Engine interface {
	Infer(ctx context.Context, tokens []int64, style []float32, speed float32) ([]float32, error)
	Close() error
}

// StyleSource resolves a catalog voice ID to its conditioning vector.
type StyleSource interface {
	Style(voiceID string) ([]float32, error)
}

// Request is a validated synthesis request. Voice has already been
// resolved against the catalog.
type Request struct {
	Text  string
	Voice string
	Speed float32
}

// Service drives one engine. It satisfies pool.Worker; each worker
// slot owns exactly one Service.
type Service struct {
	tok        tokenizer.Tokenizer
	engine     Engine
	styles     StyleSource
	chunkChars int
}

// NewService wires a tokenizer, styles, and an engine together.
// chunkChars bounds the size of incremental synthesis units; <= 0
// falls back to a sensible default.
func NewService(tok tokenizer.Tokenizer, styles StyleSource, engine Engine, chunkChars int) *Service {
	if chunkChars <= 0 {
		chunkChars = 300
	}

	return &Service{
		tok:        tok,
		engine:     engine,
		styles:     styles,
		chunkChars: chunkChars,
	}
}

// Synthesize produces the complete waveform for a request in one
// blocking inference call.
func (s *Service) Synthesize(ctx context.Context, req Request) ([]float32, error) {
	style, err := s.styles.Style(req.Voice)
	if err != nil {
		return nil, err
	}

	tokens, err := s.tok.Encode(req.Text)
	if err != nil {
		return nil, fmt.Errorf("tokenize: %w", err)
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("no tokens produced from input")
	}

	samples, err := s.engine.Infer(ctx, tokens, style, req.Speed)
	if err != nil {
		return nil, fmt.Errorf("synthesize: %w", err)
	}

	return samples, nil
}

// SynthesizeStream produces audio incrementally, one sentence-group at
// a time, calling emit for each sample chunk in order. The sequence is
// finite and non-restartable. Cancellation is observed between chunks:
// a ctx error or an emit error stops production immediately, so an
// abandoned request never runs inference the client will not hear.
func (s *Service) SynthesizeStream(ctx context.Context, req Request, emit func(samples []float32) error) error {
	style, err := s.styles.Style(req.Voice)
	if err != nil {
		return err
	}

	units := text.Chunk(req.Text, s.chunkChars)
	if len(units) == 0 {
		return fmt.Errorf("no synthesizable text in input")
	}

	for i, unit := range units {
		if err := ctx.Err(); err != nil {
			return err
		}

		tokens, err := s.tok.Encode(unit)
		if err != nil {
			return fmt.Errorf("tokenize chunk %d: %w", i, err)
		}
		if len(tokens) == 0 {
			continue
		}

		samples, err := s.engine.Infer(ctx, tokens, style, req.Speed)
		if err != nil {
			return fmt.Errorf("synthesize chunk %d: %w", i, err)
		}

		if err := emit(samples); err != nil {
			return err
		}
	}

	return nil
}

// Close releases the engine. Called by the pool at shutdown.
func (s *Service) Close() error {
	return s.engine.Close()
}
