// Package stream carries ordered audio chunks from a synthesis
// producer to a transport sink through a bounded channel. The bound is
// the backpressure mechanism: when the client reads slowly, Send
// blocks and the producer stops burning CPU on audio nobody is
// draining yet.
package stream

import (
	"context"
	"errors"
	"fmt"
)

// ErrDisconnected reports that the transport peer stopped accepting
// writes. It is an expected outer-world event, not a system fault, and
// must never surface as a client-visible error.
var ErrDisconnected = errors.New("client disconnected")

// Chunk is one transport unit. Seq increases strictly by one per
// request, starting at 0; Drain enforces this.
type Chunk struct {
	Seq     uint64
	Payload []byte
}

// Sink accepts encoded bytes for delivery to the peer. A failed write
// means the peer is gone.
type Sink interface {
	Write(p []byte) error
}

// Pipeline is single-producer, single-consumer, per request.
type Pipeline struct {
	ch      chan Chunk
	nextSeq uint64
}

// New creates a pipeline with the given channel capacity. capacity < 1
// is coerced to 1 so Send can never deadlock against an absent
// consumer slot.
func New(capacity int) *Pipeline {
	if capacity < 1 {
		capacity = 1
	}

	return &Pipeline{ch: make(chan Chunk, capacity)}
}

// Send enqueues one payload, blocking while the channel is full.
// Returns ctx.Err() if the request is cancelled first, which is how
// the producer observes disconnection at a chunk boundary.
func (p *Pipeline) Send(ctx context.Context, payload []byte) error {
	c := Chunk{Seq: p.nextSeq, Payload: payload}

	select {
	case p.ch <- c:
		p.nextSeq++
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CloseSend signals that no further chunks will arrive. Must be called
// exactly once by the producer, on every exit path.
func (p *Pipeline) CloseSend() {
	close(p.ch)
}

// Drain delivers chunks to the sink in sequence order until the
// producer closes the pipeline, ctx ends, or a write fails. A write
// failure returns ErrDisconnected (wrapping the sink error); the
// caller is expected to cancel the producer's context in response.
// Returns the number of chunks delivered.
func (p *Pipeline) Drain(ctx context.Context, sink Sink) (int, error) {
	var want uint64
	delivered := 0

	for {
		select {
		case c, ok := <-p.ch:
			if !ok {
				return delivered, nil
			}

			if c.Seq != want {
				return delivered, fmt.Errorf("chunk sequence broken: got %d, want %d", c.Seq, want)
			}
			want++

			if err := sink.Write(c.Payload); err != nil {
				return delivered, fmt.Errorf("%w: %w", ErrDisconnected, err)
			}

			delivered++
		case <-ctx.Done():
			return delivered, fmt.Errorf("%w: %w", ErrDisconnected, ctx.Err())
		}
	}
}
