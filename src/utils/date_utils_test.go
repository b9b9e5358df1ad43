package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseAndFormatDate(t *testing.T) {
	parsed := ParseDate("2025-03-10")
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), parsed)
	assert.Equal(t, "2025-03-10", FormatDate(parsed))

	assert.True(t, ParseDate("not-a-date").IsZero())
	assert.Equal(t, "", FormatDate(time.Time{}))
}

func TestDateOnly(t *testing.T) {
	stamp := time.Date(2025, 3, 10, 23, 45, 1, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), DateOnly(stamp))
}

func TestLaterOf(t *testing.T) {
	a := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	b := time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, b, LaterOf(a, b))
	assert.Equal(t, b, LaterOf(b, a))
	assert.Equal(t, a, LaterOf(a, time.Time{}))
}
