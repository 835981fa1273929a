// Package digest turns a user's day of events into social-media posts.
package digest

import (
	"context"
	"log/slog"
	"time"

	"postcrafter/internal/prompt"
	"postcrafter/internal/storage"
)

// Service runs one generation request: load the day's events, build the
// prompt and dispatch it. A day without events never reaches the model.
type Service struct {
	events     storage.EventStore
	builder    *prompt.Builder
	dispatcher *Dispatcher
	model      string
	posts      storage.PostRecorder
	logger     *slog.Logger
}

type Option func(*Service)

// WithPostRecorder archives every generated post.
func WithPostRecorder(r storage.PostRecorder) Option {
	return func(s *Service) { s.posts = r }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func NewService(events storage.EventStore, builder *prompt.Builder, dispatcher *Dispatcher, model string, opts ...Option) *Service {
	s := &Service{
		events:     events,
		builder:    builder,
		dispatcher: dispatcher,
		model:      model,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Compose generates posts from the events externalID recorded on the local
// calendar day containing day.
//
// Errors: *storage.PersistenceError when events cannot be loaded,
// *prompt.EmptyInputError when there are none, *GenerationError when the
// model call fails.
func (s *Service) Compose(ctx context.Context, externalID int64, day time.Time) (*Result, error) {
	events, err := s.events.ListEventsForDay(ctx, externalID, day)
	if err != nil {
		return nil, err
	}

	p, err := s.builder.Build(events)
	if err != nil {
		s.logger.Debug("nothing to compose", "user_id", externalID, "err", err)
		return nil, err
	}

	res, err := s.dispatcher.Generate(ctx, externalID, p, s.model)
	if err != nil {
		return nil, err
	}

	if s.posts != nil {
		texts := make([]string, 0, len(events))
		for _, ev := range events {
			texts = append(texts, ev.Text)
		}
		post := storage.Post{
			Timestamp:        time.Now(),
			UserID:           externalID,
			RequestID:        res.RequestID,
			Model:            res.Model,
			Events:           texts,
			Text:             res.Text,
			PromptTokens:     res.PromptTokens,
			CompletionTokens: res.CompletionTokens,
		}
		if err := s.posts.AppendPost(post); err != nil {
			s.logger.Warn("failed to archive post", "request_id", res.RequestID, "err", err)
		}
	}
	return res, nil
}
