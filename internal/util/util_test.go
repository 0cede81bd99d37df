package util

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugifyTitle(t *testing.T) {
	assert.Equal(t, "lorem-ipsum-dolor", SlugifyTitle("Lorem Ipsum Dolor!", 40))
	assert.Equal(t, "lorem", SlugifyTitle("Lorem Ipsum", 6), "trailing dash is trimmed")
}

func TestSafeFilename(t *testing.T) {
	name := SafeFilename("Lorem ipsum dolor sit amet", "http://www.vienna-rss.com/1", 60)
	assert.True(t, strings.HasPrefix(name, "lorem-ipsum-dolor-sit-amet-"))
	assert.Len(t, strings.TrimPrefix(name, "lorem-ipsum-dolor-sit-amet-"), 8)

	assert.Equal(t, name, SafeFilename("Lorem ipsum dolor sit amet", "http://www.vienna-rss.com/1", 60), "stable")
	assert.NotEqual(t, name, SafeFilename("Lorem ipsum dolor sit amet", "http://www.vienna-rss.com/2", 60))

	assert.True(t, strings.HasPrefix(SafeFilename("", "guid", 60), "article-"))
	assert.LessOrEqual(t, len(SafeFilename(strings.Repeat("word ", 40), "guid", 40)), 40)
}

func TestDedupeStrings(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, DedupeStrings([]string{" a", "b", "a ", "", "b"}))
	assert.Nil(t, DedupeStrings(nil))
}

func TestParseRelativeDate(t *testing.T) {
	now := time.Date(2024, 3, 15, 13, 45, 0, 0, time.UTC)

	tests := []struct {
		input string
		want  time.Time
	}{
		{"today", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"Yesterday", time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)},
		{"2h", time.Date(2024, 3, 15, 11, 45, 0, 0, time.UTC)},
		{"3d", time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC)},
		{"1w", time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)},
		{"1m", time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)},
		{"1y", time.Date(2023, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"2020-04-01", time.Date(2020, 4, 1, 0, 0, 0, 0, time.UTC)},
		{"2020-04-01T10:30:00Z", time.Date(2020, 4, 1, 10, 30, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseRelativeDate(tt.input, now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"", "soon", "3x"} {
		_, err := parseRelativeDate(bad, now)
		assert.Error(t, err, bad)
	}
}

func TestFormatDateRange(t *testing.T) {
	since, until, err := FormatDateRange("2020-04-01", "2020-04-02")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2020, 4, 1, 0, 0, 0, 0, time.UTC), *since)
	assert.Equal(t, time.Date(2020, 4, 2, 23, 59, 59, 999999999, time.UTC), *until)

	since, until, err = FormatDateRange("", "")
	require.NoError(t, err)
	assert.Nil(t, since)
	assert.Nil(t, until)

	_, _, err = FormatDateRange("nope", "")
	assert.Error(t, err)
}
