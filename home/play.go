package home

import (
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/leeineian/jukebox/proc"
	"github.com/leeineian/jukebox/sys"
)

func init() {
	sys.RegisterCommand(discord.SlashCommandCreate{
		Name:        "play",
		Description: "Plays the provided song",
		Contexts: []discord.InteractionContextType{
			discord.InteractionContextTypeGuild,
		},
		Options: []discord.ApplicationCommandOption{
			discord.ApplicationCommandOptionString{
				Name:         "query",
				Description:  "Title or URL",
				Required:     false,
				Autocomplete: true,
			},
			discord.ApplicationCommandOptionAttachment{
				Name:        "file",
				Description: "Audio file to play when no query is given",
				Required:    false,
			},
			discord.ApplicationCommandOptionString{
				Name:         "playlist",
				Description:  "Name of a stored playlist to load",
				Required:     false,
				Autocomplete: true,
			},
		},
	}, handlePlay)

	sys.RegisterAutocompleteHandler("play", handlePlayAutocomplete)
}

func handlePlay(event *events.ApplicationCommandInteractionCreate) {
	data := event.SlashCommandInteractionData()
	guildID := event.GuildID()
	if guildID == nil || Player == nil {
		_ = event.CreateMessage(discord.NewMessageCreateBuilder().
			SetContent("This command only works in a server.").
			SetEphemeral(true).
			Build())
		return
	}

	query, _ := data.OptString("query")
	playlist, _ := data.OptString("playlist")
	var attachments []string
	if a, ok := data.OptAttachment("file"); ok {
		attachments = append(attachments, a.URL)
	}

	_ = event.DeferCreateMessage(false)

	inv := proc.Invocation{
		GuildID:     *guildID,
		ChannelID:   event.Channel().ID(),
		RequesterID: event.User().ID,
		RawArgs:     query,
		Attachments: attachments,
		Replier:     newInteractionReplier(event),
		Affordances: newReactionAffordances(event),
	}

	if playlist = strings.TrimSpace(playlist); playlist != "" {
		sys.LogPlaylist("User %s (%s) requested playlist %s", event.User().Username, event.User().ID, playlist)
		Player.PlayPlaylist(sys.AppContext, inv, playlist)
		return
	}
	Player.Play(sys.AppContext, inv)
}

func handlePlayAutocomplete(event *events.AutocompleteInteractionCreate) {
	f := event.Data.Focused()
	switch f.Name {
	case "playlist":
		_ = event.AutocompleteResult(playlistChoices(f.String()))
	case "query":
		q := f.String()
		if q == "" || strings.Contains(q, "http") || Suggestions == nil {
			_ = event.AutocompleteResult(nil)
			return
		}
		var cs []discord.AutocompleteChoice
		for _, s := range Suggestions.Suggest(sys.AppContext, q) {
			v := s.URL
			if len(v) > 100 {
				v = sys.Truncate(s.Title, 100)
			}
			cs = append(cs, discord.AutocompleteChoiceString{Name: sys.Truncate(s.Title, 100), Value: v})
		}
		_ = event.AutocompleteResult(cs)
	default:
		_ = event.AutocompleteResult(nil)
	}
}

func playlistChoices(prefix string) []discord.AutocompleteChoice {
	if Player == nil || Player.Playlists == nil {
		return nil
	}
	names, err := Player.Playlists.List()
	if err != nil {
		sys.LogPlaylist("Listing playlists failed: %v", err)
		return nil
	}
	var cs []discord.AutocompleteChoice
	for _, n := range names {
		if prefix != "" && !sys.ContainsIgnoreCase(n, prefix) {
			continue
		}
		cs = append(cs, discord.AutocompleteChoiceString{Name: n, Value: n})
		if len(cs) == 25 {
			break
		}
	}
	return cs
}
