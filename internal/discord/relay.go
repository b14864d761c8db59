package discord

import (
	"context"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/chatvoice/internal/observe"
	"github.com/MrWong99/chatvoice/internal/playback"
	"github.com/MrWong99/chatvoice/internal/textnorm"
	"github.com/MrWong99/chatvoice/internal/voice"
)

// Relay turns guild messages into queue items for the guild's voice
// session. Messages are ignored while the bot is not in a voice channel of
// that guild, and messages from bots are never read.
type Relay struct {
	sessions   *voice.Manager
	normalizer *textnorm.Normalizer
	log        *slog.Logger
}

// NewRelay creates a Relay. log may be nil.
func NewRelay(sessions *voice.Manager, normalizer *textnorm.Normalizer, log *slog.Logger) *Relay {
	if log == nil {
		log = slog.Default()
	}
	return &Relay{sessions: sessions, normalizer: normalizer, log: log}
}

// OnMessageCreate is the discordgo handler for MessageCreate events.
func (r *Relay) OnMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	r.Handle(context.Background(), m.Message)
}

// Handle normalizes m and enqueues it. It reports whether the message was
// queued.
func (r *Relay) Handle(ctx context.Context, m *discordgo.Message) bool {
	if m == nil || m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return false
	}
	sess, ok := r.sessions.Get(m.GuildID)
	if !ok {
		return false
	}
	raw := strings.TrimSpace(m.Content)
	if raw == "" {
		return false
	}

	ctx, span := observe.StartSpan(ctx, "discord.message")
	defer span.End()
	log := observe.WithTrace(ctx, r.log)

	name := displayName(m)
	res := r.normalizer.Normalize(ctx, raw)
	if len(res.Masked) > 0 {
		log.InfoContext(ctx, "discord: masked spans skipped", "user", name, "count", len(res.Masked), "spans", res.Masked)
	}
	if strings.TrimSpace(res.Text) == "" {
		return false
	}

	sess.Enqueue(playback.Item{
		SpeakerID:     m.Author.ID,
		DisplayName:   name,
		Text:          res.Text,
		Raw:           raw,
		Masked:        res.Masked,
		CorrelationID: observe.CorrelationID(ctx),
	})
	log.DebugContext(ctx, "discord: message queued", "guild", m.GuildID, "user", name, "text", res.Text)
	return true
}

func displayName(m *discordgo.Message) string {
	if m.Member != nil && m.Member.Nick != "" {
		return m.Member.Nick
	}
	if m.Author.GlobalName != "" {
		return m.Author.GlobalName
	}
	return m.Author.Username
}
