package analytics

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"postcrafter/internal/storage"
)

var day = time.Date(2024, time.January, 15, 0, 0, 0, 0, time.Local)

func samplePosts() []storage.Post {
	return []storage.Post{
		{Timestamp: day.Add(2 * time.Hour), UserID: 123, Model: "gpt-4o", Events: []string{"a", "b"}, PromptTokens: 100, CompletionTokens: 200},
		{Timestamp: day.Add(4 * time.Hour), UserID: 123, Model: "gpt-4o", Events: []string{"c"}, PromptTokens: 50, CompletionTokens: 80},
		{Timestamp: day.Add(6 * time.Hour), UserID: 456, Model: "yandexgpt", Events: []string{"d"}, PromptTokens: 30, CompletionTokens: 40},
		// next day
		{Timestamp: day.AddDate(0, 0, 1), UserID: 789, Model: "gpt-4o", Events: []string{"e"}, PromptTokens: 1, CompletionTokens: 1},
		// previous day, last nanosecond
		{Timestamp: day.Add(-time.Nanosecond), UserID: 789, Model: "gpt-4o"},
	}
}

func TestAnalyzeDailyPosts(t *testing.T) {
	stats := AnalyzeDailyPosts(samplePosts(), day.Add(12*time.Hour))

	assert.Equal(t, "2024-01-15", stats.Date)
	assert.Equal(t, 3, stats.TotalPosts)
	assert.Equal(t, 2, stats.UniqueUsers)
	assert.Equal(t, 4, stats.EventsSummarized)
	assert.Equal(t, int64(180), stats.PromptTokens)
	assert.Equal(t, int64(320), stats.CompletionTokens)
	assert.Equal(t, map[string]int{"gpt-4o": 2, "yandexgpt": 1}, stats.PostsByModel)

	u := stats.UserStats[123]
	assert.Equal(t, 2, u.Posts)
	assert.Equal(t, 3, u.Events)
	assert.Equal(t, int64(150), u.PromptTokens)
	assert.NotContains(t, stats.UserStats, int64(789))
}

func TestAnalyzeDailyPostsEmpty(t *testing.T) {
	stats := AnalyzeDailyPosts(nil, day)
	assert.Zero(t, stats.TotalPosts)
	assert.Zero(t, stats.UniqueUsers)
	assert.NotNil(t, stats.PostsByModel)
	assert.NotNil(t, stats.UserStats)
}

func TestGenerateReportSummary(t *testing.T) {
	summary := AnalyzeDailyPosts(samplePosts(), day).GenerateReportSummary()

	assert.Contains(t, summary, "Post generation report for 2024-01-15")
	assert.Contains(t, summary, "- Posts generated: 3")
	assert.Contains(t, summary, "- gpt-4o: 2")
	assert.Contains(t, summary, "- 123: 2 posts from 3 events, 430 tokens")
	assert.Less(t, strings.Index(summary, "- 123:"), strings.Index(summary, "- 456:"))
}

