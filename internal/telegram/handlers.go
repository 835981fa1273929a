package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"

	"postcrafter/internal/digest"
	"postcrafter/internal/prompt"
	"postcrafter/internal/storage"
)

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		b.handleStart(ctx, msg)
	case "generate":
		b.handleGenerate(ctx, msg)
	case "usage":
		b.handleUsage(ctx, msg)
	default:
		b.sendMessage(msg.Chat.ID, helpText)
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	from := msg.From
	_, err := b.users.UpsertUser(ctx, from.ID, storage.Profile{
		FirstName: from.FirstName,
		LastName:  from.LastName,
		Username:  from.UserName,
		IsBot:     from.IsBot,
	})
	if err != nil {
		b.logger.Error("failed to register user", "user_id", from.ID, "err", err)
		b.sendMessage(msg.Chat.ID, difficultiesText)
		return
	}
	b.sendMessage(msg.Chat.ID, greetingText(from.FirstName))
}

func (b *Bot) handleText(ctx context.Context, msg *tgbotapi.Message) {
	if _, err := b.events.RecordEvent(ctx, msg.From.ID, msg.Text); err != nil {
		if errors.Is(err, storage.ErrEmptyText) {
			return
		}
		b.logger.Error("failed to record event", "user_id", msg.From.ID, "err", err)
		b.sendMessage(msg.Chat.ID, tryAgainLaterText)
		return
	}
	b.sendMessage(msg.Chat.ID, notedText)
}

func (b *Bot) handleUsage(ctx context.Context, msg *tgbotapi.Message) {
	u, err := b.users.GetUser(ctx, msg.From.ID)
	if err != nil {
		b.logger.Error("failed to load user", "user_id", msg.From.ID, "err", err)
		b.sendMessage(msg.Chat.ID, tryAgainLaterText)
		return
	}
	if u == nil {
		b.sendMessage(msg.Chat.ID, notRegisteredText)
		return
	}
	b.sendMessage(msg.Chat.ID, usageText(u.PromptTokens, u.CompletionTokens))
}

func (b *Bot) handleGenerate(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	var ephemeral []int
	if sent, err := b.s.Send(tgbotapi.NewMessage(chatID, waitText(msg.From.FirstName))); err != nil {
		b.logger.Warn("failed to send wait message", "chat_id", chatID, "err", err)
	} else {
		ephemeral = append(ephemeral, sent.MessageID)
	}
	if b.stickerID != "" {
		if sent, err := b.s.Send(tgbotapi.NewSticker(chatID, tgbotapi.FileID(b.stickerID))); err != nil {
			b.logger.Warn("failed to send wait sticker", "chat_id", chatID, "err", err)
		} else {
			ephemeral = append(ephemeral, sent.MessageID)
		}
	}

	res, err := b.composer.Compose(ctx, msg.From.ID, b.now())

	for _, id := range ephemeral {
		b.deleteMessage(chatID, id)
	}
	b.sendMessage(chatID, generateReply(res, err))
	if err != nil {
		b.logger.Info("generate request finished without posts", "user_id", msg.From.ID, "err", err)
	}
}

func generateReply(res *digest.Result, err error) string {
	if err == nil {
		return res.Text
	}
	var (
		empty  *prompt.EmptyInputError
		genErr *digest.GenerationError
	)
	switch {
	case errors.As(err, &empty):
		return noEventsText
	case errors.As(err, &genErr):
		return generationErrorText(genErr.Summary)
	default:
		return tryAgainLaterText
	}
}
