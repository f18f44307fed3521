package discord

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
)

// Intents the bot needs to read channel messages and send direct messages.
const Intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsMessageContent |
	discordgo.IntentsDirectMessages

// NewSession creates a gateway session for a bot token.
func NewSession(token string) (*discordgo.Session, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = Intents
	return session, nil
}

// Run connects session, registers slash commands for guildID (global when
// empty) and dispatches events to b until ctx is done.
func Run(ctx context.Context, session *discordgo.Session, b *Bot, guildID string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		b.SetSelf(r.User.ID)
		logger.Info("logged in", "user", r.User.Username, "user_id", r.User.ID)

		channelID := b.workflow.MonitoredChannel()
		if channel, err := s.Channel(channelID); err != nil {
			logger.Error("target channel not found", "channel_id", channelID, "error", err)
		} else {
			logger.Info("monitoring channel", "channel", channel.Name, "channel_id", channelID)
		}

		synced, err := s.ApplicationCommandBulkOverwrite(r.User.ID, guildID, Commands())
		if err != nil {
			logger.Error("failed to register commands", "error", err)
			return
		}
		logger.Info("registered commands", "count", len(synced), "guild_id", guildID)
	})
	session.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		b.HandleMessageCreate(ctx, m.Message)
	})
	session.AddHandler(func(_ *discordgo.Session, i *discordgo.InteractionCreate) {
		b.HandleInteraction(ctx, i.Interaction)
	})

	if err := session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}

	<-ctx.Done()

	if err := session.Close(); err != nil {
		return fmt.Errorf("close discord session: %w", err)
	}
	return nil
}
