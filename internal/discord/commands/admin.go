package commands

import (
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/chatvoice/internal/discord"
)

// AdminCommands implements /shutdown.
type AdminCommands struct {
	perms    *discord.PermissionChecker
	shutdown func()
	log      *slog.Logger
}

// NewAdminCommands creates the admin command group. shutdown may be nil,
// in which case /shutdown only replies.
func NewAdminCommands(perms *discord.PermissionChecker, shutdown func(), log *slog.Logger) *AdminCommands {
	return &AdminCommands{perms: perms, shutdown: shutdown, log: log}
}

// Register registers the group with router.
func (c *AdminCommands) Register(router *discord.CommandRouter) {
	router.RegisterCommand("shutdown", &discordgo.ApplicationCommand{
		Name:        "shutdown",
		Description: "Tắt bot (chỉ OWNER)",
	}, func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		reply, stop := c.decide(i)
		discord.RespondEphemeral(s, i, reply)
		if stop {
			c.shutdown()
		}
	})
}

// decide returns the reply and whether the process should stop.
func (c *AdminCommands) decide(i *discordgo.InteractionCreate) (string, bool) {
	if !c.perms.IsOwner(i) {
		return "🚫 Bạn không có quyền dùng lệnh này.", false
	}
	c.log.Warn("commands: shutdown requested", "user", discord.InteractionUserID(i))
	return "🛑 Bot đang tắt...", c.shutdown != nil
}
