// Package commands implements the chatvoice slash commands. Command names
// and replies are Vietnamese; every reply is ephemeral.
//
// Each command group keeps its decision logic in methods that return the
// reply text, so handlers only adapt them to the Discord session.
package commands

import (
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/chatvoice/internal/discord"
	"github.com/MrWong99/chatvoice/internal/lexicon"
	"github.com/MrWong99/chatvoice/internal/speech"
	"github.com/MrWong99/chatvoice/internal/voice"
	"github.com/MrWong99/chatvoice/internal/voices"
)

// Deps holds everything the command groups need.
type Deps struct {
	Perms      *discord.PermissionChecker
	Sessions   *voice.Manager
	Dictionary *lexicon.Dictionary
	Voices     *voices.Registry
	Dispatcher *speech.Dispatcher

	// Shutdown stops the process. It is called after the reply is sent.
	Shutdown func()

	Logger *slog.Logger
}

// RegisterAll registers every command group with router.
func RegisterAll(router *discord.CommandRouter, d Deps) {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	NewChannelCommands(d.Sessions, d.Logger).Register(router)
	NewSlangCommands(d.Dictionary).Register(router)
	NewPlaybackCommands(d.Sessions, d.Dispatcher).Register(router)
	NewVoiceCommands(d.Voices, d.Perms).Register(router)
	NewAdminCommands(d.Perms, d.Shutdown, d.Logger).Register(router)
}

// ephemeral adapts a reply function to a router handler.
func ephemeral(reply func(*discordgo.InteractionCreate) string) discord.HandlerFunc {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		discord.RespondEphemeral(s, i, reply(i))
	}
}

// options indexes the top-level options of a command interaction by name.
func options(i *discordgo.InteractionCreate) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	opts := i.ApplicationCommandData().Options
	m := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(opts))
	for _, o := range opts {
		m[o.Name] = o
	}
	return m
}

func stringOption(i *discordgo.InteractionCreate, name string) string {
	if o, ok := options(i)[name]; ok {
		if v, ok := o.Value.(string); ok {
			return v
		}
	}
	return ""
}

func numberOption(i *discordgo.InteractionCreate, name string) (float64, bool) {
	if o, ok := options(i)[name]; ok {
		v, ok := o.Value.(float64)
		return v, ok
	}
	return 0, false
}

// userOption returns the ID of a user option and the best display name
// available from the resolved data.
func userOption(i *discordgo.InteractionCreate, name string) (id, display string) {
	id = stringOption(i, name)
	display = id
	if res := i.ApplicationCommandData().Resolved; res != nil {
		if m, ok := res.Members[id]; ok && m.Nick != "" {
			return id, m.Nick
		}
		if u, ok := res.Users[id]; ok {
			display = u.Username
		}
	}
	return id, display
}

func required(t discordgo.ApplicationCommandOptionType, name, desc string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{Type: t, Name: name, Description: desc, Required: true}
}

// choices builds string choices whose name equals the value.
func choices(values ...string) []*discordgo.ApplicationCommandOptionChoice {
	out := make([]*discordgo.ApplicationCommandOptionChoice, len(values))
	for n, v := range values {
		out[n] = &discordgo.ApplicationCommandOptionChoice{Name: v, Value: v}
	}
	return out
}
