// Package analytics summarizes the archive of generated posts.
package analytics

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"postcrafter/internal/storage"
)

// DailyStats aggregates the posts generated on one calendar day.
type DailyStats struct {
	Date             string              `json:"date"`
	TotalPosts       int                 `json:"total_posts"`
	UniqueUsers      int                 `json:"unique_users"`
	EventsSummarized int                 `json:"events_summarized"`
	PromptTokens     int64               `json:"prompt_tokens"`
	CompletionTokens int64               `json:"completion_tokens"`
	PostsByModel     map[string]int      `json:"posts_by_model"`
	UserStats        map[int64]UserStats `json:"user_stats"`
}

type UserStats struct {
	UserID           int64 `json:"user_id"`
	Posts            int   `json:"posts"`
	Events           int   `json:"events"`
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
}

// AnalyzeDailyPosts keeps only posts generated on the local calendar day
// containing day.
func AnalyzeDailyPosts(posts []storage.Post, day time.Time) *DailyStats {
	start, end := storage.DayWindow(day)
	stats := &DailyStats{
		Date:         start.Format(time.DateOnly),
		PostsByModel: make(map[string]int),
		UserStats:    make(map[int64]UserStats),
	}

	for _, p := range posts {
		if p.Timestamp.Before(start) || p.Timestamp.After(end) {
			continue
		}
		stats.TotalPosts++
		stats.EventsSummarized += len(p.Events)
		stats.PromptTokens += p.PromptTokens
		stats.CompletionTokens += p.CompletionTokens
		if p.Model != "" {
			stats.PostsByModel[p.Model]++
		}

		us := stats.UserStats[p.UserID]
		us.UserID = p.UserID
		us.Posts++
		us.Events += len(p.Events)
		us.PromptTokens += p.PromptTokens
		us.CompletionTokens += p.CompletionTokens
		stats.UserStats[p.UserID] = us
	}

	stats.UniqueUsers = len(stats.UserStats)
	return stats
}

// GenerateReportSummary renders a plain-text report, users ordered by id.
func (ds *DailyStats) GenerateReportSummary() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Post generation report for %s:\n\n", ds.Date)
	fmt.Fprintf(&sb, "- Posts generated: %d\n", ds.TotalPosts)
	fmt.Fprintf(&sb, "- Unique users: %d\n", ds.UniqueUsers)
	fmt.Fprintf(&sb, "- Events summarized: %d\n", ds.EventsSummarized)
	fmt.Fprintf(&sb, "- Tokens: prompt %d, completion %d\n", ds.PromptTokens, ds.CompletionTokens)

	if len(ds.PostsByModel) > 0 {
		models := make([]string, 0, len(ds.PostsByModel))
		for m := range ds.PostsByModel {
			models = append(models, m)
		}
		sort.Strings(models)
		sb.WriteString("\nModels:\n")
		for _, m := range models {
			fmt.Fprintf(&sb, "- %s: %d\n", m, ds.PostsByModel[m])
		}
	}

	if len(ds.UserStats) > 0 {
		ids := make([]int64, 0, len(ds.UserStats))
		for id := range ds.UserStats {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		sb.WriteString("\nUsers:\n")
		for _, id := range ids {
			us := ds.UserStats[id]
			fmt.Fprintf(&sb, "- %d: %d posts from %d events, %d tokens\n",
				id, us.Posts, us.Events, us.PromptTokens+us.CompletionTokens)
		}
	}
	return sb.String()
}
