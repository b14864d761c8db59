package commands

import (
	"fmt"
	"strconv"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/chatvoice/internal/discord"
	"github.com/MrWong99/chatvoice/internal/speech"
	"github.com/MrWong99/chatvoice/internal/voice"
)

const noSessionReply = "⚠️ Bot không ở voice nào. Dùng /joinbot trước."

var engineLabels = map[string]string{
	speech.EngineFree:       "Google TTS",
	speech.EngineElevenLabs: "ElevenLabs",
	speech.EngineFPT:        "FPT.AI",
}

// PlaybackCommands implements /tocdo, /amluong and /voiceengine. The
// settings belong to the guild's voice session.
type PlaybackCommands struct {
	sessions   *voice.Manager
	dispatcher *speech.Dispatcher
}

// NewPlaybackCommands creates the playback settings command group.
func NewPlaybackCommands(sessions *voice.Manager, dispatcher *speech.Dispatcher) *PlaybackCommands {
	return &PlaybackCommands{sessions: sessions, dispatcher: dispatcher}
}

// Register registers the group with router.
func (c *PlaybackCommands) Register(router *discord.CommandRouter) {
	router.RegisterCommand("tocdo", &discordgo.ApplicationCommand{
		Name:        "tocdo",
		Description: "Tốc độ đọc (0.5 – 2.0)",
		Options: []*discordgo.ApplicationCommandOption{
			required(discordgo.ApplicationCommandOptionNumber, "value", "Tốc độ"),
		},
	}, ephemeral(c.speed))
	router.RegisterCommand("amluong", &discordgo.ApplicationCommand{
		Name:        "amluong",
		Description: "Âm lượng (0.1 – 2.0)",
		Options: []*discordgo.ApplicationCommandOption{
			required(discordgo.ApplicationCommandOptionNumber, "value", "Âm lượng"),
		},
	}, ephemeral(c.volume))

	engine := required(discordgo.ApplicationCommandOptionString, "engine", "Chọn engine")
	engine.Choices = []*discordgo.ApplicationCommandOptionChoice{
		{Name: "Google TTS (free)", Value: "gtts"},
		{Name: "ElevenLabs", Value: "11labs"},
		{Name: "FPT.AI", Value: "fpt"},
	}
	router.RegisterCommand("voiceengine", &discordgo.ApplicationCommand{
		Name:        "voiceengine",
		Description: "Đổi engine giọng đọc",
		Options:     []*discordgo.ApplicationCommandOption{engine},
	}, ephemeral(c.engine))
}

func (c *PlaybackCommands) speed(i *discordgo.InteractionCreate) string {
	s, ok := c.sessions.Get(i.GuildID)
	if !ok {
		return noSessionReply
	}
	v, _ := numberOption(i, "value")
	if err := s.SetSpeed(v); err != nil {
		return "⚠️ Tốc độ hợp lệ: 0.5 – 2.0"
	}
	return fmt.Sprintf("⚙️ Tốc độ đọc = %sx", formatFactor(v))
}

func (c *PlaybackCommands) volume(i *discordgo.InteractionCreate) string {
	s, ok := c.sessions.Get(i.GuildID)
	if !ok {
		return noSessionReply
	}
	v, _ := numberOption(i, "value")
	if err := s.SetVolume(v); err != nil {
		return "⚠️ Âm lượng hợp lệ: 0.1 – 2.0"
	}
	return fmt.Sprintf("🔊 Âm lượng = %sx", formatFactor(v))
}

func (c *PlaybackCommands) engine(i *discordgo.InteractionCreate) string {
	s, ok := c.sessions.Get(i.GuildID)
	if !ok {
		return noSessionReply
	}
	engine, err := speech.ParseEngine(stringOption(i, "engine"))
	if err != nil || !c.dispatcher.Has(engine) {
		return "⚠️ Engine này chưa được bật."
	}
	if err := s.SetEngine(engine); err != nil {
		return fmt.Sprintf("❌ Lỗi: %v", err)
	}

	reply := fmt.Sprintf("🎙️ Đã đổi engine sang **%s**.", engineLabels[engine])
	if !c.dispatcher.Credentialed(engine) {
		reply += fmt.Sprintf("\n⚠️ %s chưa có API key, bot sẽ đọc bằng Google TTS.", engineLabels[engine])
	}
	return reply
}

func formatFactor(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
