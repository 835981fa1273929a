// Package telegram is the chat front end: it maps commands and free text to
// the stores and the digest service.
package telegram

import (
	"context"
	"log/slog"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"postcrafter/internal/digest"
	"postcrafter/internal/prompt"
	"postcrafter/internal/storage"
)

// Composer generates posts from a user's events of one day.
type Composer interface {
	Compose(ctx context.Context, externalID int64, day time.Time) (*digest.Result, error)
}

// digestConcurrency bounds parallel model calls of the scheduled digest.
const digestConcurrency = 4

type Bot struct {
	api       *tgbotapi.BotAPI
	s         sender
	users     storage.UserStore
	events    storage.EventStore
	composer  Composer
	stickerID string
	now       func() time.Time
	logger    *slog.Logger
	wg        sync.WaitGroup
}

type Option func(*Bot)

// WithWaitSticker sets the sticker shown while posts are generated. Empty
// disables it.
func WithWaitSticker(fileID string) Option {
	return func(b *Bot) { b.stickerID = fileID }
}

func WithLogger(l *slog.Logger) Option {
	return func(b *Bot) { b.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(b *Bot) { b.now = now }
}

func New(botToken string, users storage.UserStore, events storage.EventStore, composer Composer, opts ...Option) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create bot api")
	}
	b := newBot(botAPISender{api: api}, users, events, composer, opts...)
	b.api = api
	b.logger.Info("authorized on telegram", "username", api.Self.UserName)
	return b, nil
}

func newBot(s sender, users storage.UserStore, events storage.EventStore, composer Composer, opts ...Option) *Bot {
	b := &Bot{
		s:        s,
		users:    users,
		events:   events,
		composer: composer,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Start long-polls for updates until ctx is done, then waits for in-flight
// handlers to finish.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	defer b.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil {
				continue
			}
			b.dispatch(ctx, update.Message)
		}
	}
}

// dispatch handles msg on its own goroutine so a slow generation never
// blocks other users.
func (b *Bot) dispatch(ctx context.Context, msg *tgbotapi.Message) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.handleMessage(ctx, msg)
	}()
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.Chat == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("handler panicked", "user_id", msg.From.ID, "panic", r)
			b.sendMessage(msg.Chat.ID, difficultiesText)
		}
	}()

	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}
	if msg.Text == "" {
		b.logger.Debug("ignoring non-text message", "user_id", msg.From.ID)
		return
	}
	b.handleText(ctx, msg)
}

func (b *Bot) sendMessage(chatID int64, text string) {
	for _, part := range splitMessage(text, maxMessageRunes) {
		if _, err := b.s.Send(tgbotapi.NewMessage(chatID, part)); err != nil {
			b.logger.Error("failed to send message", "chat_id", chatID, "err", err)
			return
		}
	}
}

func (b *Bot) deleteMessage(chatID int64, messageID int) {
	if messageID == 0 {
		return
	}
	if _, err := b.s.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		b.logger.Warn("failed to delete message", "chat_id", chatID, "message_id", messageID, "err", err)
	}
}

// SendDailyDigests composes and delivers posts to every user that recorded
// events on the current day. A private chat id equals the user id.
func (b *Bot) SendDailyDigests(ctx context.Context) error {
	day := b.now()
	ids, err := b.events.ListUsersWithEventsForDay(ctx, day)
	if err != nil {
		return err
	}
	b.logger.Info("sending daily digests", "users", len(ids))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(digestConcurrency)
	for _, id := range ids {
		g.Go(func() error {
			res, err := b.composer.Compose(ctx, id, day)
			var empty *prompt.EmptyInputError
			switch {
			case errors.As(err, &empty):
				return nil
			case err != nil:
				b.logger.Error("daily digest failed", "user_id", id, "err", err)
				return nil
			}
			b.sendMessage(id, res.Text)
			return nil
		})
	}
	return g.Wait()
}
