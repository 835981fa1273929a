package digest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postcrafter/internal/llm"
	"postcrafter/internal/prompt"
	"postcrafter/internal/storage"
	"postcrafter/internal/storage/sqlite"
	"postcrafter/internal/storage/storagetest"
)

type fakeLLM struct {
	mu       sync.Mutex
	resp     llm.Response
	err      error
	calls    int
	messages []llm.Message
}

func (f *fakeLLM) Generate(_ context.Context, model string, messages []llm.Message) (llm.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.messages = messages
	if f.err != nil {
		return llm.Response{}, f.err
	}
	resp := f.resp
	if resp.Model == "" {
		resp.Model = model
	}
	return resp, nil
}

type memRecorder struct {
	posts []storage.Post
}

func (m *memRecorder) AppendPost(p storage.Post) error {
	m.posts = append(m.posts, p)
	return nil
}

func (m *memRecorder) LoadPosts() ([]storage.Post, error) { return m.posts, nil }

var day = time.Date(2024, time.May, 2, 0, 0, 0, 0, time.Local)

func setup(t *testing.T, client llm.Client) (*sqlite.DB, *storagetest.Clock, *Service, *memRecorder) {
	t.Helper()
	clock := storagetest.NewClock(day.Add(9 * time.Hour))
	db, err := sqlite.New(":memory:", sqlite.WithClock(clock.Now))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(context.Background()))

	builder, err := prompt.NewBuilder("", "")
	require.NoError(t, err)
	rec := &memRecorder{}
	svc := NewService(db, builder, NewDispatcher(client, db, nil), "test-model", WithPostRecorder(rec))
	return db, clock, svc, rec
}

func TestComposeWithoutEventsSkipsModel(t *testing.T) {
	ctx := context.Background()
	client := &fakeLLM{resp: llm.Response{Content: "posts", PromptTokens: 10, CompletionTokens: 20}}
	db, _, svc, rec := setup(t, client)
	_, err := db.UpsertUser(ctx, 7, storage.Profile{FirstName: "Ann"})
	require.NoError(t, err)

	_, err = svc.Compose(ctx, 7, day)
	var empty *prompt.EmptyInputError
	require.True(t, errors.As(err, &empty), "got %v", err)
	assert.Zero(t, client.calls)
	assert.Empty(t, rec.posts)

	u, err := db.GetUser(ctx, 7)
	require.NoError(t, err)
	assert.Zero(t, u.PromptTokens)
	assert.Zero(t, u.CompletionTokens)
}

func TestComposeIgnoresOtherDays(t *testing.T) {
	ctx := context.Background()
	client := &fakeLLM{resp: llm.Response{Content: "posts"}}
	db, clock, svc, _ := setup(t, client)

	clock.Set(day.Add(-time.Hour))
	_, err := db.RecordEvent(ctx, 7, "yesterday")
	require.NoError(t, err)

	_, err = svc.Compose(ctx, 7, day)
	var empty *prompt.EmptyInputError
	assert.True(t, errors.As(err, &empty))
	assert.Zero(t, client.calls)
}

func TestComposeSuccessIncrementsUsage(t *testing.T) {
	ctx := context.Background()
	client := &fakeLLM{resp: llm.Response{Content: "three posts", PromptTokens: 120, CompletionTokens: 300}}
	db, clock, svc, rec := setup(t, client)
	_, err := db.UpsertUser(ctx, 7, storage.Profile{FirstName: "Ann"})
	require.NoError(t, err)

	_, err = db.RecordEvent(ctx, 7, "shipped the release")
	require.NoError(t, err)
	clock.Set(day.Add(15 * time.Hour))
	_, err = db.RecordEvent(ctx, 7, "gave a talk")
	require.NoError(t, err)

	res, err := svc.Compose(ctx, 7, day.Add(20*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "three posts", res.Text)
	assert.Equal(t, "test-model", res.Model)
	assert.NotEmpty(t, res.RequestID)
	assert.Equal(t, int64(120), res.PromptTokens)
	assert.Equal(t, int64(300), res.CompletionTokens)

	require.Len(t, client.messages, 2)
	assert.Equal(t, llm.RoleSystem, client.messages[0].Role)
	assert.Contains(t, client.messages[1].Content, "shipped the release, gave a talk")

	u, err := db.GetUser(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(120), u.PromptTokens)
	assert.Equal(t, int64(300), u.CompletionTokens)

	require.Len(t, rec.posts, 1)
	assert.Equal(t, res.RequestID, rec.posts[0].RequestID)
	assert.Equal(t, []string{"shipped the release", "gave a talk"}, rec.posts[0].Events)

	_, err = svc.Compose(ctx, 7, day)
	require.NoError(t, err)
	u, err = db.GetUser(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(240), u.PromptTokens)
	assert.Equal(t, int64(600), u.CompletionTokens)
}

func TestComposeFailureLeavesUsageUntouched(t *testing.T) {
	ctx := context.Background()
	client := &fakeLLM{err: &llm.UpstreamError{
		Provider: "openai",
		Message:  "You exceeded your current quota. Please check your plan.",
	}}
	db, _, svc, rec := setup(t, client)
	_, err := db.UpsertUser(ctx, 7, storage.Profile{FirstName: "Ann"})
	require.NoError(t, err)
	_, err = db.RecordEvent(ctx, 7, "an event")
	require.NoError(t, err)

	_, err = svc.Compose(ctx, 7, day)
	var genErr *GenerationError
	require.True(t, errors.As(err, &genErr), "got %v", err)
	assert.Equal(t, "You exceeded your current quota", genErr.Summary)
	assert.Equal(t, 1, client.calls)
	assert.Empty(t, rec.posts)

	u, err := db.GetUser(ctx, 7)
	require.NoError(t, err)
	assert.Zero(t, u.PromptTokens)
	assert.Zero(t, u.CompletionTokens)
}

func TestComposeBlankCompletionIsFailure(t *testing.T) {
	for _, content := range []string{"", "  \n\t"} {
		ctx := context.Background()
		client := &fakeLLM{resp: llm.Response{Content: content, PromptTokens: 50, CompletionTokens: 5}}
		db, _, svc, rec := setup(t, client)
		_, err := db.UpsertUser(ctx, 7, storage.Profile{FirstName: "Ann"})
		require.NoError(t, err)
		_, err = db.RecordEvent(ctx, 7, "an event")
		require.NoError(t, err)

		res, err := svc.Compose(ctx, 7, day)
		assert.Nil(t, res)
		var genErr *GenerationError
		require.True(t, errors.As(err, &genErr), "got %v", err)
		assert.Equal(t, "The model returned no completion", genErr.Summary)
		assert.Equal(t, 1, client.calls)
		assert.Empty(t, rec.posts)

		u, err := db.GetUser(ctx, 7)
		require.NoError(t, err)
		assert.Zero(t, u.PromptTokens)
		assert.Zero(t, u.CompletionTokens)
	}
}

func TestDispatcherUsageSurvivesCancellation(t *testing.T) {
	client := &fakeLLM{resp: llm.Response{Content: "ok", PromptTokens: 3, CompletionTokens: 4}}
	db, _, _, _ := setup(t, client)
	_, err := db.UpsertUser(context.Background(), 9, storage.Profile{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	d := NewDispatcher(cancelAfter{client, cancel}, db, nil)
	_, err = d.Generate(ctx, 9, prompt.Prompt{System: "s", User: "u"}, "")
	require.NoError(t, err)

	u, err := db.GetUser(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, int64(3), u.PromptTokens)
	assert.Equal(t, int64(4), u.CompletionTokens)
}

// cancelAfter cancels the caller's context once the model has answered.
type cancelAfter struct {
	llm.Client
	cancel context.CancelFunc
}

func (c cancelAfter) Generate(ctx context.Context, model string, messages []llm.Message) (llm.Response, error) {
	resp, err := c.Client.Generate(ctx, model, messages)
	c.cancel()
	return resp, err
}

func TestSummarize(t *testing.T) {
	long := make([]rune, 300)
	for i := range long {
		long[i] = 'a'
	}
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"first clause", &llm.UpstreamError{Message: "Rate limit reached. Try again in 20s."}, "Rate limit reached"},
		{"no period", &llm.UpstreamError{Message: "  model overloaded  "}, "model overloaded"},
		{"wrapped", errors.Wrap(&llm.UpstreamError{Message: "Bad key. Fix it."}, "call"), "Bad key"},
		{"empty message", &llm.UpstreamError{Err: errors.New("dial tcp: refused")}, fallbackSummary},
		{"leading period", &llm.UpstreamError{Message: ".hidden"}, fallbackSummary},
		{"not upstream", errors.New("boom"), fallbackSummary},
		{"truncated", &llm.UpstreamError{Message: string(long)}, string(long[:maxSummaryLength]) + "…"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Summarize(tt.err))
		})
	}
}
