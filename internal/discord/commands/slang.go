package commands

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/chatvoice/internal/discord"
	"github.com/MrWong99/chatvoice/internal/lexicon"
)

// maxReplyRunes keeps replies under Discord's 2000 character limit.
const maxReplyRunes = 1900

// SlangCommands implements /themtu, /xoatu and /viettat.
type SlangCommands struct {
	dict *lexicon.Dictionary
}

// NewSlangCommands creates the slang command group.
func NewSlangCommands(dict *lexicon.Dictionary) *SlangCommands {
	return &SlangCommands{dict: dict}
}

// Register registers the group with router.
func (c *SlangCommands) Register(router *discord.CommandRouter) {
	router.RegisterCommand("themtu", &discordgo.ApplicationCommand{
		Name:        "themtu",
		Description: "Thêm từ viết tắt",
		Options: []*discordgo.ApplicationCommandOption{
			required(discordgo.ApplicationCommandOptionString, "tu", "Từ"),
			required(discordgo.ApplicationCommandOptionString, "doc", "Cách đọc"),
		},
	}, ephemeral(c.add))
	router.RegisterCommand("xoatu", &discordgo.ApplicationCommand{
		Name:        "xoatu",
		Description: "Xóa từ viết tắt",
		Options: []*discordgo.ApplicationCommandOption{
			required(discordgo.ApplicationCommandOptionString, "tu", "Từ cần xóa"),
		},
	}, ephemeral(c.remove))
	router.RegisterCommand("viettat", &discordgo.ApplicationCommand{
		Name:        "viettat",
		Description: "Xem danh sách từ viết tắt",
	}, ephemeral(c.list))
}

func (c *SlangCommands) add(i *discordgo.InteractionCreate) string {
	phrase := lexicon.NormalizePhrase(stringOption(i, "tu"))
	pron := strings.TrimSpace(stringOption(i, "doc"))

	err := c.dict.Add(phrase, pron)
	switch {
	case errors.Is(err, lexicon.ErrInvalidPhrase):
		return fmt.Sprintf("⚠️ Từ không hợp lệ (tối đa %d từ, cách đọc không được trống).", lexicon.MaxPhraseTokens)
	case err != nil:
		return fmt.Sprintf("✨ Đã thêm: **%s → %s** (chưa lưu được vào file: %v)", phrase, pron, err)
	}
	return fmt.Sprintf("✨ Đã thêm: **%s → %s**", phrase, pron)
}

func (c *SlangCommands) remove(i *discordgo.InteractionCreate) string {
	phrase := lexicon.NormalizePhrase(stringOption(i, "tu"))
	ok, err := c.dict.Remove(phrase)
	switch {
	case !ok:
		return "⚠️ Không tồn tại từ đó."
	case err != nil:
		return fmt.Sprintf("🗑️ Đã xóa **%s** (chưa lưu được vào file: %v)", phrase, err)
	}
	return fmt.Sprintf("🗑️ Đã xóa **%s**", phrase)
}

func (c *SlangCommands) list(*discordgo.InteractionCreate) string {
	overrides := c.dict.Overrides()
	if len(overrides) == 0 {
		return "📋 Chưa có từ viết tắt nào được thêm."
	}

	var b strings.Builder
	b.WriteString("📋 **Từ viết tắt đã thêm:**\n")
	keys := slices.Sorted(maps.Keys(overrides))
	for n, k := range keys {
		line := fmt.Sprintf("🔹 **%s** → %s\n", k, overrides[k])
		if len([]rune(b.String()))+len([]rune(line)) > maxReplyRunes {
			fmt.Fprintf(&b, "… và %d từ khác", len(keys)-n)
			break
		}
		b.WriteString(line)
	}
	return strings.TrimRight(b.String(), "\n")
}
