package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFixed(t *testing.T) {
	start := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	c := NewFixed(start)
	assert.Equal(t, start, c.Now())

	c.Advance(36 * time.Hour)
	assert.Equal(t, time.Date(2024, 3, 11, 12, 0, 0, 0, time.UTC), c.Now())

	c.Set(start)
	assert.Equal(t, start, c.Now())
}

func TestSystem_IsUTC(t *testing.T) {
	assert.Equal(t, time.UTC, System{}.Now().Location())
}
