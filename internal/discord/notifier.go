package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/example/calendar-assistant/internal/application"
)

// DefaultTransientDelay is how long hint replies stay visible.
const DefaultTransientDelay = 10 * time.Second

// Notifier delivers workflow output through the Discord REST API.
type Notifier struct {
	api    API
	delay  time.Duration
	after  func(time.Duration, func())
	logger *slog.Logger
}

var _ application.Notifier = (*Notifier)(nil)

// NotifierOption configures a Notifier.
type NotifierOption func(*Notifier)

// WithTransientDelay overrides how long transient replies stay visible.
func WithTransientDelay(d time.Duration) NotifierOption {
	return func(n *Notifier) {
		if d > 0 {
			n.delay = d
		}
	}
}

// WithScheduler replaces time.AfterFunc for delayed deletions.
func WithScheduler(after func(time.Duration, func())) NotifierOption {
	return func(n *Notifier) {
		if after != nil {
			n.after = after
		}
	}
}

// WithNotifierLogger sets the logger used for background deletions.
func WithNotifierLogger(logger *slog.Logger) NotifierOption {
	return func(n *Notifier) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// NewNotifier constructs a Notifier over api.
func NewNotifier(api API, opts ...NotifierOption) *Notifier {
	n := &Notifier{
		api:    api,
		delay:  DefaultTransientDelay,
		after:  func(d time.Duration, f func()) { time.AfterFunc(d, f) },
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Reply answers the referenced message.
func (n *Notifier) Reply(ctx context.Context, ref application.MessageRef, text string) error {
	if _, err := n.api.ChannelMessageSendReply(ref.ChannelID, text, reference(ref), discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("reply to message %s: %w", ref.MessageID, err)
	}
	return nil
}

// ReplyTransient answers the referenced message and deletes the answer after
// the transient delay.
func (n *Notifier) ReplyTransient(ctx context.Context, ref application.MessageRef, text string) error {
	sent, err := n.api.ChannelMessageSendReply(ref.ChannelID, text, reference(ref), discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("reply to message %s: %w", ref.MessageID, err)
	}
	if sent == nil {
		return nil
	}

	channelID, messageID := sent.ChannelID, sent.ID
	if channelID == "" {
		channelID = ref.ChannelID
	}
	n.after(n.delay, func() {
		if err := n.api.ChannelMessageDelete(channelID, messageID); err != nil {
			n.logger.Warn("failed to delete transient reply", "channel_id", channelID, "message_id", messageID, "error", err)
		}
	})
	return nil
}

// ReplyCreated answers with an embed describing the created event.
func (n *Notifier) ReplyCreated(ctx context.Context, ref application.MessageRef, record application.EventRecord, event application.CreatedEvent) error {
	_, err := n.api.ChannelMessageSendComplex(ref.ChannelID, &discordgo.MessageSend{
		Embeds:    []*discordgo.MessageEmbed{CreatedEmbed(record, event)},
		Reference: reference(ref),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("reply to message %s: %w", ref.MessageID, err)
	}
	return nil
}

// SendDirect opens a direct message channel with userID and posts text.
func (n *Notifier) SendDirect(ctx context.Context, userID, text string) error {
	channel, err := n.api.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return mapDirectError(userID, err)
	}
	if _, err := n.api.ChannelMessageSend(channel.ID, text, discordgo.WithContext(ctx)); err != nil {
		return mapDirectError(userID, err)
	}
	return nil
}

// CreatedEmbed renders the success reply for one event.
func CreatedEmbed(record application.EventRecord, event application.CreatedEvent) *discordgo.MessageEmbed {
	summary := event.Summary
	if summary == "" {
		summary = record.Summary
	}
	embed := &discordgo.MessageEmbed{
		Title:       "✅ カレンダーに登録しました！",
		Description: "**" + summary + "**",
		Color:       colorGreen,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "日時", Value: application.DisplayWhen(record)},
		},
	}
	if record.Location != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "場所", Value: record.Location})
	}
	if event.Link != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "リンク", Value: "[カレンダーで表示](" + event.Link + ")"})
	}
	return embed
}

func reference(ref application.MessageRef) *discordgo.MessageReference {
	return &discordgo.MessageReference{MessageID: ref.MessageID, ChannelID: ref.ChannelID}
}

func mapDirectError(userID string, err error) error {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Message != nil && restErr.Message.Code == discordgo.ErrCodeCannotSendMessagesToThisUser {
		return fmt.Errorf("direct message to %s: %w", userID, application.ErrDirectMessageRefused)
	}
	return fmt.Errorf("direct message to %s: %w", userID, err)
}
