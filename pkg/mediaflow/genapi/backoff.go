package genapi

import "time"

// Backoff produces an exponentially increasing delay sequence for
// retrying transient transport errors: each delay doubles the previous
// one, capped at a ceiling. Reset returns to the initial delay after a
// successful request.
//
// Backoff is not safe for concurrent use; each polling loop owns one.
type Backoff struct {
	initial time.Duration
	max     time.Duration
	next    time.Duration
}

// NewBackoff creates a backoff starting at initial and capped at max.
func NewBackoff(initial, max time.Duration) *Backoff {
	if initial <= 0 {
		initial = time.Second
	}
	if max < initial {
		max = initial
	}
	return &Backoff{initial: initial, max: max, next: initial}
}

// Next returns the current delay and advances the sequence.
func (b *Backoff) Next() time.Duration {
	d := b.next
	b.next *= 2
	if b.next > b.max {
		b.next = b.max
	}
	return d
}

// Reset returns the sequence to the initial delay.
func (b *Backoff) Reset() {
	b.next = b.initial
}
