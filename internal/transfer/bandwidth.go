package transfer

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

// burstMultiplier sizes the token bucket relative to the per-second rate.
const burstMultiplier = 2

// Limiter caps the combined throughput of a Manager's reads and writes.
// A nil *Limiter is valid and means unlimited.
type Limiter struct {
	limiter *rate.Limiter
}

// NewLimiter returns a limiter for bytesPerSec, or nil when bytesPerSec is
// zero or negative.
func NewLimiter(bytesPerSec int64) *Limiter {
	if bytesPerSec <= 0 {
		return nil
	}

	return &Limiter{limiter: rate.NewLimiter(rate.Limit(bytesPerSec), int(bytesPerSec)*burstMultiplier)}
}

// Reader wraps r so that reads wait for the limiter.
func (l *Limiter) Reader(ctx context.Context, r io.Reader) io.Reader {
	if l == nil {
		return r
	}

	return &limitedReader{r: r, l: l.limiter, ctx: ctx}
}

// Writer wraps w so that writes wait for the limiter.
func (l *Limiter) Writer(ctx context.Context, w io.Writer) io.Writer {
	if l == nil {
		return w
	}

	return &limitedWriter{w: w, l: l.limiter, ctx: ctx}
}

type limitedReader struct {
	r   io.Reader
	l   *rate.Limiter
	ctx context.Context
}

func (r *limitedReader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	if n > 0 {
		if waitErr := waitN(r.ctx, r.l, n); waitErr != nil {
			return n, waitErr
		}
	}

	return n, err
}

type limitedWriter struct {
	w   io.Writer
	l   *rate.Limiter
	ctx context.Context
}

func (w *limitedWriter) Write(p []byte) (int, error) {
	n, err := w.w.Write(p)
	if n > 0 {
		if waitErr := waitN(w.ctx, w.l, n); waitErr != nil {
			return n, waitErr
		}
	}

	return n, err
}

// waitN takes n tokens in burst-sized steps; rate.Limiter.WaitN rejects
// requests larger than the burst.
func waitN(ctx context.Context, l *rate.Limiter, n int) error {
	burst := l.Burst()

	for n > 0 {
		take := min(n, burst)

		if err := l.WaitN(ctx, take); err != nil {
			return err
		}

		n -= take
	}

	return nil
}
