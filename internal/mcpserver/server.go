// Package mcpserver exposes event capture and post generation as MCP tools.
package mcpserver

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/pkg/errors"

	"postcrafter/internal/digest"
	"postcrafter/internal/prompt"
	"postcrafter/internal/storage"
)

const (
	Name    = "postcrafter-mcp"
	Version = "1.0.0"
)

type RecordEventParams struct {
	UserID int64  `json:"user_id" mcp:"numeric chat user id the event belongs to"`
	Text   string `json:"text" mcp:"free-form description of what happened"`
}

type ListEventsParams struct {
	UserID int64  `json:"user_id" mcp:"numeric chat user id"`
	Date   string `json:"date,omitempty" mcp:"day in YYYY-MM-DD, defaults to today"`
}

type GeneratePostsParams struct {
	UserID int64  `json:"user_id" mcp:"numeric chat user id"`
	Date   string `json:"date,omitempty" mcp:"day in YYYY-MM-DD, defaults to today"`
}

// Composer generates posts from a user's events of one day.
type Composer interface {
	Compose(ctx context.Context, externalID int64, day time.Time) (*digest.Result, error)
}

type Server struct {
	events   storage.EventStore
	composer Composer
	now      func() time.Time
	logger   *slog.Logger
}

func New(events storage.EventStore, composer Composer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{events: events, composer: composer, now: time.Now, logger: logger}
}

// MCPServer builds an MCP server with every tool registered.
func (s *Server) MCPServer() *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: Name, Version: Version}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "record_event",
		Description: "Records a free-text event of the current day for a user",
	}, s.RecordEvent)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_events",
		Description: "Lists a user's events of one day in chronological order",
	}, s.ListEvents)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "generate_posts",
		Description: "Generates LinkedIn, Facebook and Twitter posts from a user's events of one day",
	}, s.GeneratePosts)
	return server
}

func (s *Server) RecordEvent(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[RecordEventParams]) (*mcp.CallToolResultFor[any], error) {
	args := params.Arguments
	if args.UserID == 0 {
		return errorResult("user_id is required"), nil
	}
	ev, err := s.events.RecordEvent(ctx, args.UserID, args.Text)
	if err != nil {
		if errors.Is(err, storage.ErrEmptyText) {
			return errorResult("text must not be empty"), nil
		}
		s.logger.Error("mcp record_event failed", "user_id", args.UserID, "err", err)
		return errorResult(fmt.Sprintf("failed to record event: %v", err)), nil
	}
	return &mcp.CallToolResultFor[any]{
		Content: []mcp.Content{&mcp.TextContent{Text: "Event recorded"}},
		Meta: map[string]interface{}{
			"event_id":   ev.ID,
			"created_at": ev.CreatedAt.Format(time.RFC3339),
		},
	}, nil
}

func (s *Server) ListEvents(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[ListEventsParams]) (*mcp.CallToolResultFor[any], error) {
	args := params.Arguments
	day, err := s.parseDay(args.Date)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	events, err := s.events.ListEventsForDay(ctx, args.UserID, day)
	if err != nil {
		return errorResult(fmt.Sprintf("failed to list events: %v", err)), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d event(s) on %s", len(events), day.Format(time.DateOnly))
	for _, ev := range events {
		fmt.Fprintf(&sb, "\n- %s %s", ev.CreatedAt.In(time.Local).Format("15:04"), ev.Text)
	}
	return &mcp.CallToolResultFor[any]{
		Content: []mcp.Content{&mcp.TextContent{Text: sb.String()}},
		Meta:    map[string]interface{}{"count": len(events)},
	}, nil
}

func (s *Server) GeneratePosts(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[GeneratePostsParams]) (*mcp.CallToolResultFor[any], error) {
	args := params.Arguments
	day, err := s.parseDay(args.Date)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	res, err := s.composer.Compose(ctx, args.UserID, day)
	if err != nil {
		var (
			empty  *prompt.EmptyInputError
			genErr *digest.GenerationError
		)
		switch {
		case errors.As(err, &empty):
			return errorResult("No events for the day."), nil
		case errors.As(err, &genErr):
			return errorResult(genErr.Summary), nil
		default:
			return errorResult(fmt.Sprintf("failed to generate posts: %v", err)), nil
		}
	}
	return &mcp.CallToolResultFor[any]{
		Content: []mcp.Content{&mcp.TextContent{Text: res.Text}},
		Meta: map[string]interface{}{
			"request_id":        res.RequestID,
			"model":             res.Model,
			"prompt_tokens":     res.PromptTokens,
			"completion_tokens": res.CompletionTokens,
		},
	}, nil
}

func (s *Server) parseDay(date string) (time.Time, error) {
	if date == "" {
		return s.now(), nil
	}
	day, err := time.ParseInLocation(time.DateOnly, date, time.Local)
	if err != nil {
		return time.Time{}, errors.Errorf("invalid date %q, expected YYYY-MM-DD", date)
	}
	return day, nil
}

func errorResult(text string) *mcp.CallToolResultFor[any] {
	return &mcp.CallToolResultFor[any]{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}
