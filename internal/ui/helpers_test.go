package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPromptPreview(t *testing.T) {
	assert.Equal(t, "find tech stocks", PromptPreview("  find\ntech   stocks \r\n"))
	assert.Equal(t, "", PromptPreview("   \n  "))

	long := strings.Repeat("x", 600)
	assert.Len(t, PromptPreview(long), 500)
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "", TruncateRunes("hello", 0))
	assert.Equal(t, "hello", TruncateRunes("hello", 5))
	assert.Equal(t, "hell…", TruncateRunes("hello!", 5))
	assert.Equal(t, "…", TruncateRunes("hello", 1))
}

func TestSessionSuffix(t *testing.T) {
	assert.Equal(t, "4c1a9f02", SessionSuffix("8e2b0d7a-55a1-4f3c-9b1e-4c1a9f02"))
	assert.Equal(t, "short", SessionSuffix("short"))
	assert.Equal(t, "23456789", SessionSuffix("s123456789"))
}

func TestWrappedLineCount(t *testing.T) {
	assert.Equal(t, 1, WrappedLineCount("", 10))
	assert.Equal(t, 1, WrappedLineCount("abc", 10))
	assert.Equal(t, 2, WrappedLineCount("abcdefghijk", 10))
	assert.Equal(t, 3, WrappedLineCount("a\nb\nc", 10))
	assert.Equal(t, 1, WrappedLineCount("anything", 0))
}

func TestRelativeTime(t *testing.T) {
	now := time.Now()
	assert.Equal(t, "just now", RelativeTime(now))
	assert.Equal(t, "5 mins ago", RelativeTime(now.Add(-5*time.Minute)))
	assert.Equal(t, "1 hr ago", RelativeTime(now.Add(-90*time.Minute)))
	assert.Equal(t, "2 days ago", RelativeTime(now.Add(-49*time.Hour)))
	assert.Equal(t, "3 weeks ago", RelativeTime(now.Add(-22*24*time.Hour)))
}
