package ocr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"tender-backend/internal/shared/telemetry"
)

const retryBaseDelay = 300 * time.Millisecond

// statusError carries the HTTP status of a failed OCR service call.
type statusError struct {
	Status int
	Body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("ocr http status %d: %s", e.Status, e.Body)
}

func shouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.Status >= 500 || se.Status == 429
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "unexpected eof")
}

// withRetry runs fn, retrying transient failures with a doubling delay. The
// context deadline bounds the total time spent.
func withRetry(ctx context.Context, attempts int, op string, fn func() error) error {
	delay := retryBaseDelay
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil || !shouldRetry(err) {
			return err
		}
		if i == attempts-1 {
			break
		}
		telemetry.Warn("ocr.retry", map[string]any{
			"op":      op,
			"attempt": i + 1,
			"error":   err.Error(),
		})
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay *= 2
	}
	return err
}
