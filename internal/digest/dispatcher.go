package digest

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"postcrafter/internal/llm"
	"postcrafter/internal/prompt"
	"postcrafter/internal/storage"
)

const (
	fallbackSummary  = "The post generator is not reachable right now"
	maxSummaryLength = 200
)

// GenerationError is returned when the generative service fails. Summary is
// safe to show to the end user; Err is for operators only.
type GenerationError struct {
	Summary string
	Err     error
}

func (e *GenerationError) Error() string {
	return "generation failed: " + e.Err.Error()
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Result is a successful generation.
type Result struct {
	RequestID        string
	Text             string
	Model            string
	PromptTokens     int64
	CompletionTokens int64
}

// Dispatcher sends prompts to the generative service and accounts the
// reported usage against the user.
type Dispatcher struct {
	client llm.Client
	users  storage.UserStore
	logger *slog.Logger
}

func NewDispatcher(client llm.Client, users storage.UserStore, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{client: client, users: users, logger: logger}
}

// Generate makes a single synchronous attempt. On success the usage counters
// of externalID are incremented before returning. A blank completion counts
// as a failure and is not accounted.
func (d *Dispatcher) Generate(ctx context.Context, externalID int64, p prompt.Prompt, model string) (*Result, error) {
	requestID := uuid.NewString()
	log := d.logger.With("request_id", requestID, "user_id", externalID)

	resp, err := d.client.Generate(ctx, model, p.Messages())
	if err != nil {
		log.Error("generation failed", "model", model, "err", err)
		return nil, &GenerationError{Summary: Summarize(err), Err: err}
	}
	if strings.TrimSpace(resp.Content) == "" {
		err := &llm.UpstreamError{Provider: "dispatcher", Message: llm.NoCompletionMessage}
		log.Error("generation returned no text", "model", model, "prompt_tokens", resp.PromptTokens)
		return nil, &GenerationError{Summary: Summarize(err), Err: err}
	}

	res := &Result{
		RequestID:        requestID,
		Text:             resp.Content,
		Model:            resp.Model,
		PromptTokens:     int64(resp.PromptTokens),
		CompletionTokens: int64(resp.CompletionTokens),
	}
	log.Info("generation succeeded",
		"model", res.Model,
		"prompt_tokens", res.PromptTokens,
		"completion_tokens", res.CompletionTokens,
	)

	// Accounting must survive the caller going away after the call returned.
	if err := d.users.IncrementUsage(context.WithoutCancel(ctx), externalID, res.PromptTokens, res.CompletionTokens); err != nil {
		log.Error("failed to record usage", "err", err)
	}
	return res, nil
}

// Summarize turns an upstream failure into a short user-presentable sentence:
// the first clause of the service's message, cut at the first period.
func Summarize(err error) string {
	var upstream *llm.UpstreamError
	if !errors.As(err, &upstream) {
		return fallbackSummary
	}
	summary, _, _ := strings.Cut(upstream.Message, ".")
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return fallbackSummary
	}
	if utf8.RuneCountInString(summary) > maxSummaryLength {
		summary = string([]rune(summary)[:maxSummaryLength]) + "…"
	}
	return summary
}
