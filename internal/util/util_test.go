package util

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		max   int
		want  string
	}{
		{name: "shorter than budget", input: "hello", max: 10, want: "hello"},
		{name: "exact budget", input: "hello", max: 5, want: "hello"},
		{name: "ascii cut", input: "hello world", max: 5, want: "hello"},
		{name: "cyrillic cut", input: "превышен лимит", max: 8, want: "превышен"},
		{name: "emoji cut", input: "👋🌍🎉", max: 2, want: "👋🌍"},
		{name: "disabled", input: "hello", max: 0, want: "hello"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateRunes(tt.input, tt.max)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}

func TestTruncateString_UTF8(t *testing.T) {
	tests := []struct {
		name          string
		input         string
		maxLen        int
		preserveWords bool
	}{
		{"Chinese characters - no word preserve", "查询中文数据库中的用户信息", 10, false},
		{"English with word boundaries", "This is a very long string that needs truncation", 20, true},
		{"Mixed language", "Query for 用户信息 in the database system", 25, true},
		{"Emoji and special chars", "Hello 👋 World 🌍 Testing 🎉 Emoji", 15, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateString(tt.input, tt.maxLen, tt.preserveWords)
			assert.True(t, utf8.ValidString(got))
			assert.LessOrEqual(t, utf8.RuneCountInString(got), tt.maxLen)
			assert.Contains(t, got, "...")
		})
	}
}

func TestTruncateString_Short(t *testing.T) {
	assert.Equal(t, "abc", TruncateString("abc", 10, false))
	assert.Equal(t, "", TruncateString("abc", 0, false))
	assert.Equal(t, "..", TruncateString("abcdef", 2, false))
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "*****...", MaskSecret("abcde", 10))
	assert.Equal(t, "**********...", MaskSecret("a-very-long-secret-value", 10))
}

func TestContainsFold(t *testing.T) {
	assert.True(t, ContainsFold("Maximum Context Length exceeded", []string{"context"}))
	assert.True(t, ContainsFold("ЛИМИТ токенов превышен", []string{"лимит"}))
	assert.False(t, ContainsFold("connection refused", []string{"token", ""}))
}
