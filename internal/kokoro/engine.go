// Package kokoro runs the Kokoro TTS graph through ONNX Runtime.
// Each Engine owns one ORT runtime/env/session triple and is not safe
// for concurrent use; the worker pool hands an Engine to at most one
// request at a time.
package kokoro

import (
	"context"
	"fmt"

	ort "github.com/shota3506/onnxruntime-purego/onnxruntime"
)

// Graph input names of the exported Kokoro model.
const (
	inputTokens = "input_ids"
	inputStyle  = "style"
	inputSpeed  = "speed"
)

// Config holds everything needed to bring up one inference context.
type Config struct {
	ModelPath   string
	VoicesPath  string
	LibraryPath string // Path to the ONNX Runtime shared library.
	APIVersion  uint32 // ORT C API version; 0 selects the default.
}

// Engine wraps an ORT session for the Kokoro graph together with the
// voice style table.
type Engine struct {
	runtime *ort.Runtime
	env     *ort.Env
	session *ort.Session
	styles  *StyleTable
}

// NewEngine loads the model and voice styles eagerly. Any failure here
// is a startup failure: the server must not come up with fewer
// functional workers than configured.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.ModelPath == "" {
		return nil, fmt.Errorf("kokoro: model path is required")
	}

	styles, err := LoadStyleTable(cfg.VoicesPath)
	if err != nil {
		return nil, err
	}

	if cfg.APIVersion == 0 {
		cfg.APIVersion = 23
	}

	runtime, err := ort.NewRuntime(cfg.LibraryPath, cfg.APIVersion)
	if err != nil {
		return nil, fmt.Errorf("ort runtime: %w", err)
	}

	env, err := runtime.NewEnv("kokoro", ort.LoggingLevelWarning)
	if err != nil {
		_ = runtime.Close()
		return nil, fmt.Errorf("ort env: %w", err)
	}

	session, err := runtime.NewSession(env, cfg.ModelPath, nil)
	if err != nil {
		env.Close()
		_ = runtime.Close()

		return nil, fmt.Errorf("ort session (%s): %w", cfg.ModelPath, err)
	}

	return &Engine{
		runtime: runtime,
		env:     env,
		session: session,
		styles:  styles,
	}, nil
}

// Styles exposes the loaded voice style table.
func (e *Engine) Styles() *StyleTable {
	return e.styles
}

// Infer runs the graph for one token sequence and returns the raw
// float32 waveform at 24 kHz.
func (e *Engine) Infer(ctx context.Context, tokens []int64, style []float32, speed float32) ([]float32, error) {
	if len(tokens) == 0 {
		return nil, fmt.Errorf("kokoro: empty token sequence")
	}
	if len(style) == 0 {
		return nil, fmt.Errorf("kokoro: empty style vector")
	}

	inputs := make(map[string]*ort.Value, 3)
	defer closeValues(inputs)

	tokensVal, err := ort.NewTensorValue(e.runtime, tokens, []int64{1, int64(len(tokens))})
	if err != nil {
		return nil, fmt.Errorf("tokens tensor: %w", err)
	}
	inputs[inputTokens] = tokensVal

	styleVal, err := ort.NewTensorValue(e.runtime, style, []int64{1, int64(len(style))})
	if err != nil {
		return nil, fmt.Errorf("style tensor: %w", err)
	}
	inputs[inputStyle] = styleVal

	speedVal, err := ort.NewTensorValue(e.runtime, []float32{speed}, []int64{1})
	if err != nil {
		return nil, fmt.Errorf("speed tensor: %w", err)
	}
	inputs[inputSpeed] = speedVal

	outputs, err := e.session.Run(ctx, inputs)
	if err != nil {
		return nil, fmt.Errorf("kokoro: run graph: %w", err)
	}
	defer closeValues(outputs)

	samples, err := firstWaveform(outputs)
	if err != nil {
		return nil, err
	}

	return samples, nil
}

// Close releases all ORT resources. Safe to call multiple times.
func (e *Engine) Close() error {
	if e.session != nil {
		e.session.Close()
		e.session = nil
	}

	if e.env != nil {
		e.env.Close()
		e.env = nil
	}

	if e.runtime != nil {
		err := e.runtime.Close()
		e.runtime = nil

		return err
	}

	return nil
}

// firstWaveform extracts the float32 output tensor. The exported graph
// has a single output; the name varies between exports, so match by
// element type instead.
func firstWaveform(outputs map[string]*ort.Value) ([]float32, error) {
	for name, v := range outputs {
		elemType, err := v.GetTensorElementType()
		if err != nil {
			return nil, fmt.Errorf("output %q: %w", name, err)
		}

		if elemType != ort.ONNXTensorElementDataTypeFloat {
			continue
		}

		data, _, err := ort.GetTensorData[float32](v)
		if err != nil {
			return nil, fmt.Errorf("output %q: %w", name, err)
		}

		// Copy out: the backing array is owned by the ORT value.
		out := make([]float32, len(data))
		copy(out, data)

		return out, nil
	}

	return nil, fmt.Errorf("kokoro: graph produced no float32 output")
}

func closeValues(vals map[string]*ort.Value) {
	for _, v := range vals {
		if v != nil {
			v.Close()
		}
	}
}
