package wipe

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

// ThrottledWriter ограничивает скорость записи
type ThrottledWriter struct {
	w       io.Writer
	limiter *rate.Limiter
}

// NewThrottledWriter создает writer с ограничением maxSpeedMBps (0 - без ограничения).
// burst задаёт максимальный размер одной записи, обычно равен размеру чанка.
func NewThrottledWriter(w io.Writer, maxSpeedMBps float64, burst int) *ThrottledWriter {
	tw := &ThrottledWriter{w: w}
	if maxSpeedMBps > 0 {
		if burst <= 0 {
			burst = 1024 * 1024
		}
		tw.limiter = rate.NewLimiter(rate.Limit(maxSpeedMBps*1024*1024), burst)
	}
	return tw
}

// Write записывает данные, дожидаясь токенов лимитера.
// Ожидание не прерывается: файл не должен оставаться затёртым частично из-за отмены.
func (tw *ThrottledWriter) Write(data []byte) (int, error) {
	if len(data) == 0 {
		return 0, nil
	}

	if tw.limiter != nil {
		written := 0
		for written < len(data) {
			n := len(data) - written
			if n > tw.limiter.Burst() {
				n = tw.limiter.Burst()
			}
			if err := tw.limiter.WaitN(context.Background(), n); err != nil {
				return written, err
			}
			m, err := tw.w.Write(data[written : written+n])
			written += m
			if err != nil {
				return written, err
			}
			if m < n {
				return written, io.ErrShortWrite
			}
		}
		return written, nil
	}

	return tw.w.Write(data)
}
