// Package discord connects the registration workflow to a Discord bot.
//
// Slash commands start, cancel and explain a registration. Messages in the
// monitored channel are handed to the workflow, and replies, embeds and
// direct messages are delivered through Notifier.
package discord
