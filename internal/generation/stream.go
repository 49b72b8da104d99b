package generation

import (
	"context"
	"strings"
)

// DefaultStreamBuffer is the channel capacity used by NewStream.
const DefaultStreamBuffer = 16

// Emitter delivers parts from a producer to the stream's consumer.
type Emitter struct {
	ctx context.Context
	ch  chan<- Part
}

// Emit sends p, blocking while the buffer is full. It returns false once
// the consumer's context is done; the producer should stop then.
func (e Emitter) Emit(p Part) bool {
	select {
	case e.ch <- p:
		return true
	case <-e.ctx.Done():
		return false
	}
}

// NewStream runs produce in a goroutine and returns the channel it feeds.
// The channel is closed when produce returns. A non-nil error from produce
// is delivered as a final PartError unless ctx was cancelled.
func NewStream(ctx context.Context, buffer int, produce func(ctx context.Context, emit Emitter) error) <-chan Part {
	if buffer <= 0 {
		buffer = DefaultStreamBuffer
	}
	ch := make(chan Part, buffer)
	go func() {
		defer close(ch)
		emit := Emitter{ctx: ctx, ch: ch}
		if err := produce(ctx, emit); err != nil && ctx.Err() == nil {
			emit.Emit(ErrorPart(err))
		}
	}()
	return ch
}

// Result is the outcome of draining a stream.
type Result struct {
	Text  string
	Usage Usage
	Tools []ToolCall
}

// Collect drains parts, calling onPart for each one when non-nil, and
// returns the accumulated text. It stops at the first error part. If ctx
// is cancelled before the stream closes, ctx's error is returned.
func Collect(ctx context.Context, parts <-chan Part, onPart func(p Part, text string)) (Result, error) {
	var (
		sb  strings.Builder
		res Result
	)
	for {
		select {
		case <-ctx.Done():
			res.Text = sb.String()
			return res, ctx.Err()
		case p, ok := <-parts:
			if !ok {
				res.Text = sb.String()
				return res, nil
			}
			switch p.Type {
			case PartError:
				res.Text = sb.String()
				return res, p.Err
			case PartText:
				sb.WriteString(p.Text)
			case PartUsage:
				if p.Usage != nil {
					res.Usage.Add(*p.Usage)
				}
			case PartTool:
				if p.Tool != nil {
					res.Tools = append(res.Tools, *p.Tool)
				}
			}
			if onPart != nil {
				onPart(p, sb.String())
			}
		}
	}
}
