package genapi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestBackoff_Doubles verifies the delay sequence doubles up to the cap.
func TestBackoff_Doubles(t *testing.T) {
	b := NewBackoff(time.Second, 10*time.Second)

	assert.Equal(t, 1*time.Second, b.Next())
	assert.Equal(t, 2*time.Second, b.Next())
	assert.Equal(t, 4*time.Second, b.Next())
	assert.Equal(t, 8*time.Second, b.Next())
	assert.Equal(t, 10*time.Second, b.Next())
	assert.Equal(t, 10*time.Second, b.Next())
}

// TestBackoff_Monotonic verifies each delay is >= the previous one.
func TestBackoff_Monotonic(t *testing.T) {
	b := NewBackoff(250*time.Millisecond, 30*time.Second)

	prev := time.Duration(0)
	for i := 0; i < 20; i++ {
		d := b.Next()
		assert.GreaterOrEqual(t, d, prev)
		assert.LessOrEqual(t, d, 30*time.Second)
		prev = d
	}
}

// TestBackoff_Reset returns the sequence to the initial delay.
func TestBackoff_Reset(t *testing.T) {
	b := NewBackoff(time.Second, time.Minute)
	b.Next()
	b.Next()
	b.Next()

	b.Reset()
	assert.Equal(t, time.Second, b.Next())
}

// TestNewBackoff_Defaults covers degenerate constructor arguments.
func TestNewBackoff_Defaults(t *testing.T) {
	b := NewBackoff(0, 0)
	assert.Equal(t, time.Second, b.Next())

	// max below initial is raised to initial.
	b = NewBackoff(5*time.Second, time.Second)
	assert.Equal(t, 5*time.Second, b.Next())
	assert.Equal(t, 5*time.Second, b.Next())
}
