package binance

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/raykavin/fibscan/pkg/core"
	"github.com/raykavin/fibscan/pkg/logger"

	"github.com/adshao/go-binance/v2/common"
	"github.com/jpillora/backoff"
)

// Common errors
var (
	ErrRateLimited = errors.New("rate limit exceeded")
	ErrTimeout     = errors.New("request timed out")
)

// codeTooManyRequests is the Binance API error code sent with HTTP 429
const codeTooManyRequests = -1003

// Retry defaults
const (
	DefaultAttempts       = 3
	DefaultRequestTimeout = 30 * time.Second
	DefaultRateLimitWait  = 5 * time.Second
	DefaultTimeoutWait    = 2 * time.Second
	// KlineLimit is the number of bars requested per series
	KlineLimit = 500
)

// Gateway defines the market data operations shared by spot and futures clients
type Gateway interface {
	core.Feeder
}

// RequestError describes a gateway call that failed after retries
type RequestError struct {
	Op       string
	Symbol   string
	Attempts int
	Err      error
}

func (e *RequestError) Error() string {
	if e.Symbol == "" {
		return fmt.Sprintf("binance %s failed after %d attempt(s): %v", e.Op, e.Attempts, e.Err)
	}
	return fmt.Sprintf("binance %s %s failed after %d attempt(s): %v", e.Op, e.Symbol, e.Attempts, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

type failure int

const (
	failureOther failure = iota
	failureRateLimit
	failureTimeout
)

// classify tells rate limits and timeouts apart from errors that must not be retried
func classify(err error) failure {
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == codeTooManyRequests {
			return failureRateLimit
		}
		return failureOther
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return failureTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return failureTimeout
	}

	msg := err.Error()
	if strings.Contains(msg, strconv.Itoa(http.StatusTooManyRequests)) ||
		strings.Contains(msg, http.StatusText(http.StatusTooManyRequests)) {
		return failureRateLimit
	}

	return failureOther
}

// Option configures the retry behaviour of a gateway
type Option func(*requester)

// WithRequestTimeout sets the deadline of each single request
func WithRequestTimeout(timeout time.Duration) Option {
	return func(r *requester) {
		if timeout > 0 {
			r.timeout = timeout
		}
	}
}

// WithAttempts sets how many times a request is tried
func WithAttempts(attempts int) Option {
	return func(r *requester) {
		if attempts > 0 {
			r.attempts = attempts
		}
	}
}

// WithRetryWaits sets the first rate limit wait (doubled on every retry) and the wait after a timeout
func WithRetryWaits(rateLimit, timeout time.Duration) Option {
	return func(r *requester) {
		r.rateLimitWait = rateLimit
		r.timeoutWait = timeout
	}
}

// WithActivity records retries in the activity log
func WithActivity(activity core.ActivityLogger) Option {
	return func(r *requester) {
		r.activity = activity
	}
}

// WithLogger sets the logger used for retry diagnostics
func WithLogger(log logger.Logger) Option {
	return func(r *requester) {
		r.log = log
	}
}

// requester runs exchange calls with a per request timeout and retries
type requester struct {
	attempts      int
	timeout       time.Duration
	rateLimitWait time.Duration
	timeoutWait   time.Duration
	activity      core.ActivityLogger
	log           logger.Logger
}

func newRequester(options ...Option) *requester {
	r := &requester{
		attempts:      DefaultAttempts,
		timeout:       DefaultRequestTimeout,
		rateLimitWait: DefaultRateLimitWait,
		timeoutWait:   DefaultTimeoutWait,
	}
	for _, option := range options {
		option(r)
	}
	return r
}

func (r *requester) logAlert(title, description string) {
	if r.activity != nil {
		r.activity.Alert(title, description)
	}
}

func (r *requester) logError(title, description string) {
	if r.activity != nil {
		r.activity.Error(title, description)
	}
}

// sleep waits for d or until the context is done
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// call runs fn until it succeeds, fails with a non retryable error or runs out of attempts.
// Rate limits wait rateLimitWait, doubling every time. Timeouts wait timeoutWait.
func call[T any](ctx context.Context, r *requester, op, symbol string, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	wait := &backoff.Backoff{
		Min:    r.rateLimitWait,
		Max:    r.rateLimitWait << r.attempts,
		Factor: 2,
	}

	for attempt := 1; ; attempt++ {
		reqCtx, cancel := context.WithTimeout(ctx, r.timeout)
		result, err := fn(reqCtx)
		cancel()

		if err == nil {
			return result, nil
		}

		// cancelled by the caller, not a request timeout
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}

		reqErr := &RequestError{Op: op, Symbol: symbol, Attempts: attempt, Err: err}
		last := attempt >= r.attempts

		switch classify(err) {
		case failureRateLimit:
			if last {
				reqErr.Err = fmt.Errorf("%w: %w", ErrRateLimited, err)
				r.logAlert("Rate limit", reqErr.Error())
				return zero, reqErr
			}

			d := wait.Duration()
			r.logAlert("Rate limit", fmt.Sprintf("%s %s: retrying in %s (attempt %d/%d)", op, symbol, d, attempt, r.attempts))
			if r.log != nil {
				r.log.WithField("op", op).Debugf("rate limited on %s, waiting %s", symbol, d)
			}
			if err := sleep(ctx, d); err != nil {
				return zero, err
			}

		case failureTimeout:
			if last {
				reqErr.Err = fmt.Errorf("%w: %w", ErrTimeout, err)
				r.logError("Request timeout", reqErr.Error())
				return zero, reqErr
			}

			r.logError("Request timeout", fmt.Sprintf("%s %s: retrying in %s (attempt %d/%d)", op, symbol, r.timeoutWait, attempt, r.attempts))
			if err := sleep(ctx, r.timeoutWait); err != nil {
				return zero, err
			}

		default:
			return zero, reqErr
		}
	}
}

func parseFloat(value string) float64 {
	f, _ := strconv.ParseFloat(value, 64)
	return f
}

func millis(t time.Time) int64 {
	return t.UnixNano() / int64(time.Millisecond)
}
