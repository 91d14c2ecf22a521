package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClock_AdvanceAndSet(t *testing.T) {
	c := NewClock()
	start := c.Now()

	c.Advance(90 * time.Second)
	assert.Equal(t, start.Add(90*time.Second), c.Now())

	fixed := time.Date(2030, 5, 1, 0, 0, 0, 0, time.UTC)
	c.Set(fixed)
	assert.Equal(t, fixed, c.Now())
}

func TestLogger_NotNil(t *testing.T) {
	assert.NotNil(t, Logger(t))
}
