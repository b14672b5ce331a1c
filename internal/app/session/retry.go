package session

import "time"

const (
	// DefaultMaxAttempts is how many reconnects follow one abnormal closure.
	DefaultMaxAttempts = 3

	// DefaultRetryDelay is the wait before each reconnect.
	DefaultRetryDelay = 2 * time.Second
)

// RetryPolicy bounds reconnection after abnormal closures. Any successful open resets it.
// It is not safe for concurrent use; the session's Run loop owns it.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration

	attempts int
}

// DefaultRetryPolicy returns 3 attempts spaced 2 seconds apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: DefaultMaxAttempts, Delay: DefaultRetryDelay}
}

// Next consumes one attempt and returns the delay before it, or false once exhausted.
func (p *RetryPolicy) Next() (time.Duration, bool) {
	if p.attempts >= p.MaxAttempts {
		return 0, false
	}

	p.attempts++
	return p.Delay, true
}

// Reset restores the full attempt budget.
func (p *RetryPolicy) Reset() {
	p.attempts = 0
}

// Attempts returns how many attempts were consumed since the last reset.
func (p *RetryPolicy) Attempts() int {
	return p.attempts
}
