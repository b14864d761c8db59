package discord

import (
	"slices"

	"github.com/bwmarrin/discordgo"
)

// PermissionChecker validates that a Discord user may run privileged slash
// commands.
type PermissionChecker struct {
	adminRoleID string
	ownerID     string
}

// NewPermissionChecker creates a PermissionChecker.
func NewPermissionChecker(adminRoleID, ownerID string) *PermissionChecker {
	return &PermissionChecker{adminRoleID: adminRoleID, ownerID: ownerID}
}

// IsOwner reports whether the interaction author is the configured owner.
// Without a configured owner nobody is.
func (p *PermissionChecker) IsOwner(i *discordgo.InteractionCreate) bool {
	return p.ownerID != "" && InteractionUserID(i) == p.ownerID
}

// IsAdmin reports whether the interaction author is the owner or has the
// admin role. With neither configured everyone is an admin, which is meant
// for development servers.
func (p *PermissionChecker) IsAdmin(i *discordgo.InteractionCreate) bool {
	if p.adminRoleID == "" && p.ownerID == "" {
		return true
	}
	if p.IsOwner(i) {
		return true
	}
	if p.adminRoleID == "" || i.Member == nil {
		return false
	}
	return slices.Contains(i.Member.Roles, p.adminRoleID)
}

// InteractionUserID extracts the user ID from an interaction, handling
// both guild (Member) and DM (User) contexts.
func InteractionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}
