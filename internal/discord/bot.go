package discord

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"

	"github.com/example/calendar-assistant/internal/application"
	"github.com/example/calendar-assistant/internal/logging"
)

// Workflow is the registration flow driven by chat events.
type Workflow interface {
	StartRegistration(ctx context.Context, userID, channelID string) (string, error)
	CancelRegistration(ctx context.Context, userID string) (string, error)
	HandleMessage(ctx context.Context, msg application.Message) (application.BatchResult, error)
	MonitoredChannel() string
}

// Bot dispatches Discord events to the workflow.
type Bot struct {
	api       API
	workflow  Workflow
	logger    *slog.Logger
	botUserID atomic.Value
}

// NewBot constructs a bot.
func NewBot(api API, workflow Workflow) *Bot {
	return NewBotWithLogger(api, workflow, nil)
}

// NewBotWithLogger constructs a bot with a custom logger.
func NewBotWithLogger(api API, workflow Workflow, logger *slog.Logger) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Bot{api: api, workflow: workflow, logger: logger}
	b.botUserID.Store("")
	return b
}

// SetSelf records the bot's own user id so its messages are ignored.
func (b *Bot) SetSelf(userID string) {
	b.botUserID.Store(userID)
}

func (b *Bot) self() string {
	id, _ := b.botUserID.Load().(string)
	return id
}

func (b *Bot) eventContext(ctx context.Context, event string, attrs ...any) (context.Context, *slog.Logger) {
	pairs := append([]any{"event_id", uuid.NewString(), "event", event}, attrs...)
	return logging.Scope(ctx, b.logger, pairs...)
}

// HandleMessageCreate routes a channel message. Messages from bots, the bot
// itself and channels other than the monitored one are ignored.
func (b *Bot) HandleMessageCreate(ctx context.Context, m *discordgo.Message) {
	if m == nil || m.Author == nil {
		return
	}
	if m.Author.Bot || m.Author.ID == b.self() {
		return
	}
	if m.ChannelID != b.workflow.MonitoredChannel() {
		return
	}

	ctx, logger := b.eventContext(ctx, "message_create", "user_id", m.Author.ID, "message_id", m.ID)

	if err := b.api.ChannelTyping(m.ChannelID, discordgo.WithContext(ctx)); err != nil {
		logger.DebugContext(ctx, "failed to send typing indicator", "error", err)
	}

	_, err := b.workflow.HandleMessage(ctx, application.Message{
		Ref: application.MessageRef{
			ChannelID: m.ChannelID,
			MessageID: m.ID,
			UserID:    m.Author.ID,
		},
		Content: m.Content,
	})
	if err != nil && !errors.Is(err, application.ErrNotAwaitingInput) {
		logger.DebugContext(ctx, "message handled with error", "error_kind", application.ErrorKind(err))
	}
}

// HandleInteraction answers slash commands. Every answer is ephemeral.
func (b *Bot) HandleInteraction(ctx context.Context, i *discordgo.Interaction) {
	if i == nil || i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	name := i.ApplicationCommandData().Name
	userID := interactionUserID(i)
	ctx, logger := b.eventContext(ctx, "interaction_create", "command", name, "user_id", userID, "channel_id", i.ChannelID)

	var data *discordgo.InteractionResponseData
	switch name {
	case CommandHelp:
		data = &discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{HelpEmbed()}}
	case CommandCalendar:
		reply, _ := b.workflow.StartRegistration(ctx, userID, i.ChannelID)
		data = &discordgo.InteractionResponseData{Content: reply}
	case CommandCancel:
		reply, _ := b.workflow.CancelRegistration(ctx, userID)
		data = &discordgo.InteractionResponseData{Content: reply}
	default:
		logger.WarnContext(ctx, "unknown command")
		return
	}
	data.Flags = discordgo.MessageFlagsEphemeral

	err := b.api.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	}, discordgo.WithContext(ctx))
	if err != nil {
		logger.ErrorContext(ctx, "failed to respond to interaction", "error", err)
	}
}

func interactionUserID(i *discordgo.Interaction) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}
