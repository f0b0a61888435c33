package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/example/kokoro-openai-server/internal/audio"
	"github.com/example/kokoro-openai-server/internal/pool"
	"github.com/example/kokoro-openai-server/internal/stream"
	"github.com/example/kokoro-openai-server/internal/tts"
)

func (h *handler) handleSpeech(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeAPIError(w, http.StatusMethodNotAllowed, "invalid_request_error", "Method not allowed", "")
		return
	}

	reqID := uuid.NewString()
	w.Header().Set("X-Request-Id", reqID)
	log := h.log.With("request_id", reqID)

	var raw speechRequest
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		h.opts.metrics.RecordRequest(r.Context(), "rejected")
		writeAPIError(w, http.StatusBadRequest, "invalid_request_error", "Invalid JSON body", "")
		return
	}

	req, verr := validateSpeech(raw, h.opts.maxInputChars, h.opts.defaultVoice, h.voices)
	if verr != nil {
		h.opts.metrics.RecordRequest(r.Context(), "rejected")
		log.Info("request rejected", "error", verr)
		writeMappedError(w, verr)
		return
	}

	// Validation passed; only now compete for a worker.
	tk, err := h.acquire(r.Context())
	if err != nil {
		if r.Context().Err() != nil {
			// Client gave up while queued. Nothing useful to write.
			h.opts.metrics.RecordRequest(r.Context(), "disconnected")
			log.Info("client disconnected while waiting for worker")
			return
		}
		h.opts.metrics.RecordRequest(context.Background(), "error")
		log.Warn("admission failed", "error", err)
		writeMappedError(w, err)
		return
	}
	h.opts.metrics.WorkerAcquired(r.Context())

	ttsReq := tts.Request{
		Text:  req.Input,
		Voice: req.Voice,
		Speed: req.Speed,
	}

	log.Info("synthesis admitted",
		"voice", req.Voice,
		"format", req.Format,
		"stream", req.Stream,
		"chars", len(req.Input),
		"slot", tk.Slot(),
	)

	if req.Stream {
		h.serveStream(w, r, log, tk, ttsReq, req.Format)
		return
	}
	h.serveComplete(w, r, log, tk, ttsReq, req.Format)
}

// acquire waits for a pool ticket, bounded by the admission timeout
// when one is configured. It also records how long the request queued.
func (h *handler) acquire(ctx context.Context) (*pool.Ticket[*tts.Service], error) {
	if h.opts.admissionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opts.admissionTimeout)
		defer cancel()
	}

	start := time.Now()
	tk, err := h.pool.Acquire(ctx)
	h.opts.metrics.RecordAdmissionWait(context.Background(), time.Since(start))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, errAdmissionTimeout
		}
		return nil, err
	}
	return tk, nil
}

// serveComplete synthesizes the whole utterance, then writes one body.
func (h *handler) serveComplete(w http.ResponseWriter, r *http.Request, log *slog.Logger, tk *pool.Ticket[*tts.Service], req tts.Request, format string) {
	start := time.Now()
	samples, err := h.runSynthesis(r.Context(), tk, req)
	if err != nil {
		if r.Context().Err() != nil {
			h.opts.metrics.RecordRequest(context.Background(), "disconnected")
			log.Info("client disconnected during synthesis")
			return
		}
		h.opts.metrics.RecordRequest(context.Background(), "error")
		log.Error("synthesis failed", "error", err)
		writeMappedError(w, err)
		return
	}
	h.opts.metrics.RecordSynthesis(context.Background(), time.Since(start))

	var body []byte
	switch format {
	case FormatPCM:
		body = audio.EncodePCM16(samples)
		w.Header().Set("Content-Type", "audio/pcm")
	default:
		body, err = audio.EncodeWAV(samples)
		if err != nil {
			h.opts.metrics.RecordRequest(context.Background(), "error")
			log.Error("wav encode failed", "error", err)
			writeMappedError(w, err)
			return
		}
		w.Header().Set("Content-Type", "audio/wav")
	}

	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		h.opts.metrics.RecordRequest(context.Background(), "disconnected")
		log.Info("client disconnected during response write", "error", err)
		return
	}
	h.opts.metrics.RecordRequest(context.Background(), "ok")
	log.Info("synthesis complete", "samples", len(samples), "elapsed", time.Since(start))
}

// runSynthesis owns the ticket for the duration of the call and always
// returns it to the pool, success or failure.
func (h *handler) runSynthesis(ctx context.Context, tk *pool.Ticket[*tts.Service], req tts.Request) ([]float32, error) {
	defer func() {
		tk.Release()
		h.opts.metrics.WorkerReleased(context.Background())
	}()
	return tk.Worker().Synthesize(ctx, req)
}

// flushSink writes each chunk to the client immediately.
type flushSink struct {
	w http.ResponseWriter
	f http.Flusher
}

func (s *flushSink) Write(p []byte) error {
	if _, err := s.w.Write(p); err != nil {
		return err
	}
	if s.f != nil {
		s.f.Flush()
	}
	return nil
}

// serveStream runs synthesis in a producer goroutine and drains encoded
// chunks to the client as they arrive. A client disconnect cancels the
// producer at the next chunk boundary; it is never treated as a
// request error.
func (h *handler) serveStream(w http.ResponseWriter, r *http.Request, log *slog.Logger, tk *pool.Ticket[*tts.Service], req tts.Request, format string) {
	pipe := stream.New(h.opts.streamBuffer)
	prodCtx, cancel := context.WithCancel(r.Context())
	defer cancel()

	errCh := make(chan error, 1)
	start := time.Now()
	go func() {
		errCh <- h.runStreamSynthesis(prodCtx, tk, req, pipe)
	}()

	if format == FormatPCM {
		w.Header().Set("Content-Type", "audio/pcm")
	} else {
		w.Header().Set("Content-Type", "audio/wav")
	}
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	sink := &flushSink{w: w, f: flusher}

	if format == FormatWAV {
		if err := sink.Write(audio.StreamingWAVHeader()); err != nil {
			cancel()
			<-errCh
			h.opts.metrics.RecordRequest(context.Background(), "disconnected")
			log.Info("client disconnected before first chunk", "error", err)
			return
		}
	}

	chunks, err := pipe.Drain(r.Context(), sink)
	h.opts.metrics.RecordChunks(context.Background(), chunks)

	if err != nil {
		// The consumer side failed: the socket broke or the client went
		// away. Stop the producer and wait for it to hand the slot back.
		cancel()
		<-errCh
		h.opts.metrics.RecordRequest(context.Background(), "disconnected")
		log.Info("client disconnected mid-stream", "chunks_sent", chunks, "error", err)
		return
	}

	prodErr := <-errCh
	if prodErr != nil && prodCtx.Err() == nil {
		// Headers are already on the wire; all we can do is log and cut
		// the stream short.
		h.opts.metrics.RecordRequest(context.Background(), "error")
		log.Error("synthesis failed mid-stream", "chunks_sent", chunks, "error", prodErr)
		return
	}

	h.opts.metrics.RecordSynthesis(context.Background(), time.Since(start))
	h.opts.metrics.RecordRequest(context.Background(), "ok")
	log.Info("stream complete", "chunks", chunks, "elapsed", time.Since(start))
}

// runStreamSynthesis is the producer: it holds the ticket, feeds
// encoded PCM into the pipeline, and releases both on every exit path.
func (h *handler) runStreamSynthesis(ctx context.Context, tk *pool.Ticket[*tts.Service], req tts.Request, pipe *stream.Pipeline) error {
	defer func() {
		tk.Release()
		h.opts.metrics.WorkerReleased(context.Background())
	}()
	defer pipe.CloseSend()

	return tk.Worker().SynthesizeStream(ctx, req, func(samples []float32) error {
		return pipe.Send(ctx, audio.EncodePCM16(samples))
	})
}
