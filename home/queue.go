package home

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/omit"
	"github.com/leeineian/jukebox/sys"
)

const queuePageSize = 10

func init() {
	djPerm := discord.PermissionManageMessages

	sys.RegisterCommand(discord.SlashCommandCreate{
		Name:        "queue",
		Description: "Shows the current queue",
		Contexts: []discord.InteractionContextType{
			discord.InteractionContextTypeGuild,
		},
		Options: []discord.ApplicationCommandOption{
			discord.ApplicationCommandOptionSubCommand{
				Name:        "show",
				Description: "Show now playing and the upcoming tracks",
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "history",
				Description: "Show the tracks most recently added in this server",
			},
		},
	}, handleQueue)

	sys.RegisterCommand(discord.SlashCommandCreate{
		Name:                     "skip",
		Description:              "Skips the current track",
		DefaultMemberPermissions: omit.New(&djPerm),
		Contexts: []discord.InteractionContextType{
			discord.InteractionContextTypeGuild,
		},
	}, handleSkip)
}

func replyEphemeral(event *events.ApplicationCommandInteractionCreate, content string) {
	_ = event.CreateMessage(discord.NewMessageCreateBuilder().
		SetContent(sys.CapMessage(content)).
		SetEphemeral(true).
		Build())
}

func handleQueue(event *events.ApplicationCommandInteractionCreate) {
	data := event.SlashCommandInteractionData()
	if event.GuildID() == nil || Queues == nil {
		replyEphemeral(event, "This command only works in a server.")
		return
	}
	sub := "show"
	if data.SubCommandName != nil {
		sub = *data.SubCommandName
	}
	switch sub {
	case "history":
		handleQueueHistory(event)
	default:
		handleQueueShow(event)
	}
}

func handleQueueShow(event *events.ApplicationCommandInteractionCreate) {
	q, ok := Queues.Lookup(*event.GuildID())
	if !ok || q.Len() == 0 {
		replyEphemeral(event, "Not playing anything.")
		return
	}
	entries := q.Snapshot()

	var sb strings.Builder
	head := entries[0]
	sb.WriteString("**Now Playing:**\n")
	fmt.Fprintf(&sb, "[%s](<%s>) `%s` | <@%s>\n\n", head.Track.Title, head.Track.URI, sys.FormatTime(head.Track.Duration), head.Metadata.RequesterID)

	sb.WriteString("**Queue:**\n")
	rest := entries[1:]
	if len(rest) == 0 {
		sb.WriteString("_Empty_")
	}
	for i, qt := range rest {
		if i >= queuePageSize {
			fmt.Fprintf(&sb, "\n*...and %d more*", len(rest)-queuePageSize)
			break
		}
		fmt.Fprintf(&sb, "`%d.` [%s](<%s>) `%s` | <@%s>\n", i+1, qt.Track.Title, qt.Track.URI, sys.FormatTime(qt.Track.Duration), qt.Metadata.RequesterID)
	}
	replyEphemeral(event, sb.String())
}

func handleQueueHistory(event *events.ApplicationCommandInteractionCreate) {
	ctx, cancel := context.WithTimeout(sys.AppContext, 5*time.Second)
	defer cancel()

	guildID := *event.GuildID()
	history, err := sys.GetRecentHistory(ctx, guildID, queuePageSize)
	if err != nil {
		sys.LogWarn("Failed to read history for guild %s: %v", guildID, err)
		replyEphemeral(event, "Could not read the history.")
		return
	}
	if len(history) == 0 {
		replyEphemeral(event, "Nothing has been played here yet.")
		return
	}
	total, _ := sys.GetHistoryCount(ctx, guildID)

	var sb strings.Builder
	fmt.Fprintf(&sb, "**Recently added** (%d total):\n", total)
	for i, h := range history {
		fmt.Fprintf(&sb, "`%d.` [%s](<%s>) `%s` | <@%s> <t:%d:R>\n", i+1, h.Title, h.URI, sys.FormatTime(h.Duration), h.RequesterID, h.RequestedAt.Unix())
	}
	replyEphemeral(event, sb.String())
}

func handleSkip(event *events.ApplicationCommandInteractionCreate) {
	if event.GuildID() == nil || Queues == nil {
		replyEphemeral(event, "This command only works in a server.")
		return
	}
	q, ok := Queues.Lookup(*event.GuildID())
	if !ok {
		replyEphemeral(event, "Not playing anything.")
		return
	}
	skipped := q.Skip()
	if skipped == nil {
		replyEphemeral(event, "Not playing anything.")
		return
	}
	sys.LogPlayer("User %s (%s) skipped %q in guild %s", event.User().Username, event.User().ID, skipped.Track.Title, *event.GuildID())
	_ = event.CreateMessage(discord.NewMessageCreateBuilder().
		SetContent(fmt.Sprintf("Skipped **%s**.", skipped.Track.Title)).
		Build())
}
