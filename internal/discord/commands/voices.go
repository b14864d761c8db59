package commands

import (
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/chatvoice/internal/discord"
	"github.com/MrWong99/chatvoice/internal/voices"
)

// VoiceCommands implements /myvoice and /setvoice.
type VoiceCommands struct {
	registry *voices.Registry
	perms    *discord.PermissionChecker
}

// NewVoiceCommands creates the voice preset command group.
func NewVoiceCommands(registry *voices.Registry, perms *discord.PermissionChecker) *VoiceCommands {
	return &VoiceCommands{registry: registry, perms: perms}
}

// Register registers the group with router.
func (c *VoiceCommands) Register(router *discord.CommandRouter) {
	preset := func() *discordgo.ApplicationCommandOption {
		o := required(discordgo.ApplicationCommandOptionString, "voice", "Chọn giọng")
		o.Choices = choices(voices.PresetKeys...)
		return o
	}
	router.RegisterCommand("myvoice", &discordgo.ApplicationCommand{
		Name:        "myvoice",
		Description: "Chọn giọng ElevenLabs cho riêng bạn",
		Options:     []*discordgo.ApplicationCommandOption{preset()},
	}, ephemeral(c.mine))
	router.RegisterCommand("setvoice", &discordgo.ApplicationCommand{
		Name:        "setvoice",
		Description: "Set giọng ElevenLabs cho user (admin)",
		Options: []*discordgo.ApplicationCommandOption{
			required(discordgo.ApplicationCommandOptionUser, "user", "User"),
			preset(),
		},
	}, ephemeral(c.set))
}

func (c *VoiceCommands) mine(i *discordgo.InteractionCreate) string {
	userID := discord.InteractionUserID(i)
	key := stringOption(i, "voice")
	prev, had := c.registry.Assignment(userID)
	if reply, ok := c.assign(userID, key); !ok {
		return reply
	}
	if had && prev == key {
		return fmt.Sprintf("ℹ️ Bạn đang dùng giọng **%s** rồi.", key)
	}
	return fmt.Sprintf("✅ Giọng ElevenLabs của bạn đã đổi sang **%s**.\n(Đảm bảo engine đang là `11labs` bằng /voiceengine)", key)
}

func (c *VoiceCommands) set(i *discordgo.InteractionCreate) string {
	if !c.perms.IsAdmin(i) {
		return "🚫 Bạn không có quyền dùng lệnh này."
	}
	userID, name := userOption(i, "user")
	key := stringOption(i, "voice")
	if reply, ok := c.assign(userID, key); !ok {
		return reply
	}
	return fmt.Sprintf("✅ Đã set giọng **%s** cho **%s**.", key, name)
}

// assign returns a failure reply and false when the assignment did not
// take effect. A persistence failure still takes effect and is only logged
// by the registry.
func (c *VoiceCommands) assign(userID, key string) (string, bool) {
	err := c.registry.Assign(userID, key)
	if errors.Is(err, voices.ErrUnknownPreset) {
		return "⚠️ Giọng này chưa được cấu hình ID.", false
	}
	return "", true
}
