// Package cancel provides the cooperative cancellation flag polled by a cleanup run.
package cancel

import (
	"errors"
	"sync/atomic"
)

// ErrCancelled is returned by operations stopped through a Token.
var ErrCancelled = errors.New("operation cancelled")

// Token is a one-way cancellation flag. Share it by pointer.
// A nil Token is never cancelled.
type Token struct {
	cancelled atomic.Bool
}

// New returns an uncancelled token.
func New() *Token {
	return &Token{}
}

// Cancel sets the flag. Calling it again has no effect.
// Reports whether this call performed the transition.
func (t *Token) Cancel() bool {
	return t.cancelled.CompareAndSwap(false, true)
}

// Cancelled reports whether Cancel has been called. Never blocks.
func (t *Token) Cancelled() bool {
	return t != nil && t.cancelled.Load()
}

// Err returns ErrCancelled once the token is set.
func (t *Token) Err() error {
	if t.Cancelled() {
		return ErrCancelled
	}
	return nil
}
