package sys

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/cache"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
)

// SafeGo runs a function in a new goroutine with panic recovery
func SafeGo(f func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				LogError(MsgLoaderPanicRecovered, r)
				fmt.Printf("%s\n", debug.Stack())
			}
		}()
		f()
	}()
}

// --- Global State & Setup ---

var AppContext = context.Background()
var StartupTime = time.Now()

var commands = []discord.ApplicationCommandCreate{}
var commandHandlers = map[string]func(event *events.ApplicationCommandInteractionCreate){}
var autocompleteHandlers = map[string]func(event *events.AutocompleteInteractionCreate){}
var onClientReadyCallbacks []func(ctx context.Context, client *bot.Client)

func SetAppContext(ctx context.Context) {
	AppContext = ctx
}

// --- Bot Initialization ---

// CreateClient creates and configures a disgo client
func CreateClient(ctx context.Context, cfg *Config) (*bot.Client, error) {
	return disgo.New(cfg.Token,
		bot.WithGatewayConfigOpts(
			gateway.WithIntents(
				gateway.IntentGuilds,
				gateway.IntentGuildMessages,
				gateway.IntentGuildMessageReactions,
				gateway.IntentGuildVoiceStates,
			),
			gateway.WithPresenceOpts(
				gateway.WithListeningActivity("/play"),
				gateway.WithOnlineStatus(discord.OnlineStatusOnline),
			),
		),
		bot.WithCacheConfigOpts(
			cache.WithCaches(cache.FlagGuilds, cache.FlagChannels, cache.FlagVoiceStates),
		),
		bot.WithEventListenerFunc(onApplicationCommandInteraction),
		bot.WithEventListenerFunc(onAutocompleteInteraction),
		bot.WithEventListenerFunc(onMessageReactionAdd),
		bot.WithEventListenerFunc(onReady),
		bot.WithLogger(slog.Default()),
		bot.WithRestClientConfigOpts(
			rest.WithHTTPClient(&http.Client{
				Timeout: 60 * time.Second,
			}),
		),
	)
}

// --- Command & Handler Registration ---

func RegisterCommand(cmd discord.ApplicationCommandCreate, handler func(event *events.ApplicationCommandInteractionCreate)) {
	commands = append(commands, cmd)
	switch c := cmd.(type) {
	case discord.SlashCommandCreate:
		commandHandlers[c.CommandName()] = handler
	case discord.UserCommandCreate:
		commandHandlers[c.CommandName()] = handler
	case discord.MessageCommandCreate:
		commandHandlers[c.CommandName()] = handler
	}
}

func RegisterAutocompleteHandler(cmdName string, handler func(event *events.AutocompleteInteractionCreate)) {
	autocompleteHandlers[cmdName] = handler
}

func OnClientReady(cb func(ctx context.Context, client *bot.Client)) {
	onClientReadyCallbacks = append(onClientReadyCallbacks, cb)
}

// --- Command Syncing Logic ---

// calculateCommandHash generates a SHA256 hash of the commands slice
func calculateCommandHash(cmds []discord.ApplicationCommandCreate) string {
	data, err := json.Marshal(cmds)
	if err != nil {
		return ""
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// RegisterCommands pushes the command set to Discord unless the stored hash says it is unchanged.
func RegisterCommands(client *bot.Client, guildIDStr string, force bool) error {
	ctx := context.Background()

	currentMode := "global"
	if guildIDStr != "" {
		currentMode = "guild:" + guildIDStr
	}
	LogLoader(MsgLoaderSyncCommands, strings.ToUpper(strings.SplitN(currentMode, ":", 2)[0]))

	currentHash := calculateCommandHash(commands)
	lastHash, _ := GetBotConfig(ctx, "last_cmd_hash")
	lastMode, _ := GetBotConfig(ctx, "last_reg_mode")

	if !force && currentHash != "" && currentHash == lastHash && currentMode == lastMode {
		LogLoader(MsgLoaderUpToDate, currentHash[:8])
		return nil
	}

	if guildIDStr == "" {
		created, err := client.Rest.SetGlobalCommands(client.ApplicationID, commands)
		if err != nil {
			return fmt.Errorf(MsgLoaderRegisterFail, "global", err)
		}
		for _, cmd := range created {
			LogLoader(MsgLoaderRegistered, "global", cmd.Name())
		}
	} else {
		guildID, err := snowflake.Parse(guildIDStr)
		if err != nil {
			return err
		}
		created, err := client.Rest.SetGuildCommands(client.ApplicationID, guildID, commands)
		if err != nil {
			return fmt.Errorf(MsgLoaderRegisterFail, "guild", err)
		}
		for _, cmd := range created {
			LogLoader(MsgLoaderRegistered, "guild", cmd.Name())
		}
	}

	_ = SetBotConfig(ctx, "last_cmd_hash", currentHash)
	_ = SetBotConfig(ctx, "last_reg_mode", currentMode)
	return nil
}

// --- Event Handlers ---

func onReady(event *events.Ready) {
	client := event.Client()
	botUser := event.User

	duration := time.Since(StartupTime)
	LogInfo(MsgBotReady, botUser.Username, botUser.ID.String(), os.Getpid(), duration.Milliseconds())

	for _, cb := range onClientReadyCallbacks {
		cb(AppContext, client)
	}
}

func onApplicationCommandInteraction(event *events.ApplicationCommandInteractionCreate) {
	data := event.Data
	if h, ok := commandHandlers[data.CommandName()]; ok {
		SafeGo(func() { h(event) })
	}
}

func onAutocompleteInteraction(event *events.AutocompleteInteractionCreate) {
	data := event.Data
	if h, ok := autocompleteHandlers[data.CommandName]; ok {
		SafeGo(func() { h(event) })
	}
}

func onMessageReactionAdd(event *events.MessageReactionAdd) {
	if event.Emoji.Name == nil {
		return
	}
	if self, ok := event.Client().Caches.SelfUser(); ok && self.ID == event.UserID {
		return
	}
	ev := ReactionEvent{
		ChannelID: event.ChannelID,
		MessageID: event.MessageID,
		UserID:    event.UserID,
		Emoji:     *event.Emoji.Name,
	}
	if event.GuildID != nil {
		ev.GuildID = *event.GuildID
	}
	SafeGo(func() { Waiter.Dispatch(ev) })
}
