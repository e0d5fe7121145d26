package genapi

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

// timeoutErr is a net.Error with Timeout() true.
type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

// TestIsTransient covers the retry classification table.
func TestIsTransient(t *testing.T) {
	testCases := []struct {
		name      string
		err       error
		transient bool
	}{
		{"nil", nil, false},
		{"context canceled", context.Canceled, false},
		{"deadline exceeded", context.DeadlineExceeded, false},
		{"wrapped cancellation", fmt.Errorf("poll: %w", context.Canceled), false},
		{"http 429", &HTTPError{StatusCode: 429}, true},
		{"http 500", &HTTPError{StatusCode: 500}, true},
		{"http 502", &HTTPError{StatusCode: 502}, true},
		{"http 503", &HTTPError{StatusCode: 503}, true},
		{"http 504", &HTTPError{StatusCode: 504}, true},
		{"http 400", &HTTPError{StatusCode: 400}, false},
		{"http 404", &HTTPError{StatusCode: 404}, false},
		{"wrapped http 503", fmt.Errorf("poll: %w", &HTTPError{StatusCode: 503}), true},
		{"net timeout", timeoutErr{}, true},
		{"connection reset", syscall.ECONNRESET, true},
		{"connection refused", syscall.ECONNREFUSED, true},
		{"broken pipe", syscall.EPIPE, true},
		{"plain error", errors.New("boom"), false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.transient, IsTransient(tc.err))
		})
	}
}

// TestHTTPError_Error verifies message formatting with and without an
// endpoint.
func TestHTTPError_Error(t *testing.T) {
	err := &HTTPError{StatusCode: 503, Message: "unavailable", Endpoint: "/generate/image"}
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "/generate/image")

	err = &HTTPError{StatusCode: 400, Message: "bad prompt"}
	assert.Equal(t, "HTTP 400: bad prompt", err.Error())
}
