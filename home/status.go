package home

import (
	"sync"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/jukebox/proc"
	"github.com/leeineian/jukebox/sys"
)

// interactionReplier answers a deferred slash command. The first reply fills
// the deferred response; later replies are follow-ups.
type interactionReplier struct {
	client    *bot.Client
	appID     snowflake.ID
	token     string
	channelID snowflake.ID

	mu       sync.Mutex
	answered bool
}

func newInteractionReplier(event *events.ApplicationCommandInteractionCreate) *interactionReplier {
	return &interactionReplier{
		client:    event.Client(),
		appID:     event.ApplicationID(),
		token:     event.Token(),
		channelID: event.Channel().ID(),
	}
}

func (r *interactionReplier) Reply(text string) proc.StatusMessage {
	r.mu.Lock()
	first := !r.answered
	r.answered = true
	r.mu.Unlock()

	text = sys.CapMessage(text)
	msg := &interactionMessage{replier: r, original: first}

	var (
		m   *discord.Message
		err error
	)
	if first {
		m, err = r.client.Rest.UpdateInteractionResponse(r.appID, r.token, discord.NewMessageUpdateBuilder().SetContent(text).Build())
	} else {
		m, err = r.client.Rest.CreateFollowupMessage(r.appID, r.token, discord.NewMessageCreateBuilder().SetContent(text).Build())
	}
	if err != nil {
		sys.LogWarn("Failed to send status message: %v", err)
		return msg
	}
	msg.id = m.ID
	msg.channelID = m.ChannelID
	return msg
}

// interactionMessage serializes edits so they land in call order.
type interactionMessage struct {
	replier   *interactionReplier
	original  bool
	id        snowflake.ID
	channelID snowflake.ID

	mu sync.Mutex
}

func (m *interactionMessage) ID() snowflake.ID { return m.id }

func (m *interactionMessage) Edit(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := m.replier
	update := discord.NewMessageUpdateBuilder().SetContent(sys.CapMessage(text)).Build()
	var err error
	if m.original || m.id == 0 {
		_, err = r.client.Rest.UpdateInteractionResponse(r.appID, r.token, update)
	} else {
		_, err = r.client.Rest.UpdateFollowupMessage(r.appID, r.token, m.id, update)
	}
	if err != nil {
		sys.LogWarn("Failed to edit status message: %v", err)
	}
}

// reactionAffordances offers choices as reactions tracked by sys.Waiter.
type reactionAffordances struct {
	client    *bot.Client
	channelID snowflake.ID
	permitted bool
}

func newReactionAffordances(event *events.ApplicationCommandInteractionCreate) *reactionAffordances {
	perms := event.AppPermissions()
	return &reactionAffordances{
		client:    event.Client(),
		channelID: event.Channel().ID(),
		permitted: perms != nil && perms.Has(discord.PermissionAddReactions),
	}
}

func (a *reactionAffordances) Permitted() bool { return a.permitted }

func (a *reactionAffordances) channelOf(msg proc.StatusMessage) snowflake.ID {
	if im, ok := msg.(*interactionMessage); ok && im.channelID != 0 {
		return im.channelID
	}
	return a.channelID
}

func (a *reactionAffordances) Present(msg proc.StatusMessage, requester snowflake.ID, choices []string, onChoice func(string)) (func(), error) {
	allowed := make(map[string]bool, len(choices))
	for _, c := range choices {
		allowed[c] = true
	}
	cancel := sys.Waiter.Subscribe(msg.ID(), func(ev sys.ReactionEvent) bool {
		return ev.UserID == requester && allowed[ev.Emoji]
	}, func(ev sys.ReactionEvent) {
		onChoice(ev.Emoji)
	})

	channelID := a.channelOf(msg)
	for _, c := range choices {
		if err := a.client.Rest.AddReaction(channelID, msg.ID(), c); err != nil {
			cancel()
			return nil, err
		}
	}
	return cancel, nil
}

func (a *reactionAffordances) Clear(msg proc.StatusMessage) {
	_ = a.client.Rest.RemoveAllReactions(a.channelOf(msg), msg.ID())
}
