package telegram

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gymcomplete/internal/events"
)

// Bot pushes registry changes to subscribed telegram chats. Chats opt in
// with /start and out with /stop.
type Bot struct {
	api   *tgbotapi.BotAPI
	store *Store
}

func NewBot(store *Store, token string) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &Bot{
		api:   api,
		store: store,
	}, nil
}

func (b *Bot) Broadcast(ctx context.Context, message string) error {
	chats, err := b.store.ListChats(ctx)
	if err != nil {
		return fmt.Errorf("list chats: %w", err)
	}
	for _, chat := range chats {
		msg := tgbotapi.NewMessage(chat.ID, message)
		if _, err := b.api.Send(msg); err != nil {
			return fmt.Errorf("send message: %w", err)
		}
	}
	return nil
}

func (b *Bot) BroadcastSlogRecord(ctx context.Context, r slog.Record) error {
	return b.Broadcast(ctx, fmt.Sprintf("%s: %s", r.Level, r.Message))
}

// SubscribeToEvents wires the bot into the registry change bus.
func (b *Bot) SubscribeToEvents(bus *events.Bus) {
	bus.Subscribe(func(ctx context.Context, event events.Event) {
		message := formatEvent(event)
		if message == "" {
			return
		}
		if err := b.Broadcast(ctx, message); err != nil {
			slog.ErrorContext(ctx, "broadcast event", "event", event.Type.String(), "error", err)
		}
	})
}

func formatEvent(event events.Event) string {
	switch event.Type {
	case events.TypeMemberEnrolled:
		return fmt.Sprintf("member %d enrolled in %s", event.MemberID, event.ClassName)
	case events.TypeMemberUnenrolled:
		return fmt.Sprintf("member %d left %s", event.MemberID, event.ClassName)
	case events.TypeMemberWaitlisted:
		return fmt.Sprintf("member %d joined the waitlist for %s", event.MemberID, event.ClassName)
	case events.TypeMemberPromoted:
		return fmt.Sprintf("member %d promoted from the waitlist of class %d", event.MemberID, event.ClassID)
	case events.TypeClassDeleted:
		return fmt.Sprintf("class %s was removed from the schedule", event.ClassName)
	default:
		return ""
	}
}

func (b *Bot) Listen(ctx context.Context) error {
	offset, err := b.store.GetUpdatesOffset(ctx)
	if err != nil {
		return fmt.Errorf("get updates offset: %w", err)
	}
	updates := b.api.GetUpdatesChan(tgbotapi.UpdateConfig{Offset: offset})
	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "stopping listening for telegram updates")
			return nil
		case update := <-updates:
			if update.Message != nil && update.Message.IsCommand() {
				if err := b.handleCommand(ctx, update.Message); err != nil {
					slog.ErrorContext(ctx, "handle command", "error", err)
				}
			}

			if err := b.store.SetUpdatesOffset(ctx, update.UpdateID+1); err != nil {
				slog.ErrorContext(ctx, "set updates offset", "error", err)
			}
		}
	}
}

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) error {
	switch message.Command() {
	case "start":
		chat := Chat{
			ID:        message.Chat.ID,
			FirstName: message.Chat.FirstName,
		}
		if err := b.store.InsertChat(ctx, &chat); err != nil {
			return fmt.Errorf("insert chat: %w", err)
		}
		return nil
	case "stop":
		if err := b.store.DeleteChat(ctx, message.Chat.ID); err != nil {
			return fmt.Errorf("delete chat: %w", err)
		}
		return nil
	default:
		return nil
	}
}
