// Package playback sequences chat messages into a voice channel.
//
// A [Queue] holds pending items and a busy flag under one mutex. At most one
// item is being synthesized or played at any time, and items are taken in
// strict arrival order. An item that cannot be synthesized is logged and
// skipped; it never reaches the [Player].
package playback

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/MrWong99/chatvoice/internal/observe"
	"github.com/MrWong99/chatvoice/pkg/audio"
	"github.com/MrWong99/chatvoice/pkg/provider/tts"
)

// Item is one normalized message waiting to be spoken. Text is the
// speakable form of Raw; Masked lists the spans removed from Raw and is only
// logged. CorrelationID is the trace ID of the originating message.
type Item struct {
	SpeakerID     string
	DisplayName   string
	Text          string
	Raw           string
	Masked        []string
	CorrelationID string
}

// Player plays a resource and reports completion exactly once through done.
// Play must not block.
type Player interface {
	Play(ctx context.Context, res *audio.Resource, done func(error))
}

// Option configures a [Queue].
type Option func(*Queue)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(q *Queue) { q.log = l }
}

// WithMetrics records queue depth and item outcomes on m.
func WithMetrics(m *observe.Metrics) Option {
	return func(q *Queue) { q.metrics = m }
}

// WithItemTimeout bounds synthesis plus playback of a single item. Zero
// disables the bound.
func WithItemTimeout(d time.Duration) Option {
	return func(q *Queue) { q.itemTimeout = d }
}

// Queue is a strict FIFO of [Item]s drained one at a time.
type Queue struct {
	ctx     context.Context
	speaker tts.Provider
	player  Player

	log         *slog.Logger
	metrics     *observe.Metrics
	itemTimeout time.Duration

	mu    sync.Mutex
	items []Item
	busy  bool
}

// New returns a queue that synthesizes with speaker and plays through
// player. Once ctx is done, pending items are discarded and nothing new is
// started.
func New(ctx context.Context, speaker tts.Provider, player Player, opts ...Option) *Queue {
	q := &Queue{
		ctx:     ctx,
		speaker: speaker,
		player:  player,
		log:     slog.Default(),
	}
	for _, o := range opts {
		o(q)
	}
	return q
}

// Enqueue appends item and starts draining if the queue is idle. It never
// blocks on synthesis or playback.
func (q *Queue) Enqueue(item Item) {
	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()
	q.addDepth(1)
	q.drain()
}

// Len returns the number of items waiting, excluding the one in progress.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Busy reports whether an item is being synthesized or played.
func (q *Queue) Busy() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.busy
}

// Clear drops every waiting item and returns how many were dropped. The item
// in progress is not affected.
func (q *Queue) Clear() int {
	q.mu.Lock()
	n := len(q.items)
	q.items = nil
	q.mu.Unlock()
	q.addDepth(-n)
	return n
}

func (q *Queue) drain() {
	if q.ctx.Err() != nil {
		q.Clear()
		return
	}

	q.mu.Lock()
	if q.busy || len(q.items) == 0 {
		q.mu.Unlock()
		return
	}
	item := q.items[0]
	q.items[0] = Item{}
	q.items = q.items[1:]
	q.busy = true
	q.mu.Unlock()

	q.addDepth(-1)
	go q.run(item)
}

func (q *Queue) run(item Item) {
	ctx, cancel := q.ctx, context.CancelFunc(func() {})
	if q.itemTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, q.itemTimeout)
	}

	res, err := q.speaker.Speak(ctx, tts.Request{Text: item.Text, SpeakerID: item.SpeakerID})
	if err != nil {
		cancel()
		q.log.WarnContext(ctx, "playback: item skipped",
			"speaker", item.SpeakerID, "text", item.Text, "correlation_id", item.CorrelationID, "err", err)
		q.finish(ctx, false)
		return
	}

	var once sync.Once
	q.player.Play(ctx, res, func(err error) {
		once.Do(func() {
			cancel()
			if err != nil {
				q.log.WarnContext(ctx, "playback: item interrupted",
					"speaker", item.SpeakerID, "correlation_id", item.CorrelationID, "err", err)
			}
			q.finish(ctx, err == nil)
		})
	})
}

func (q *Queue) finish(ctx context.Context, played bool) {
	if q.metrics != nil {
		q.metrics.RecordPlayback(ctx, played)
	}
	q.mu.Lock()
	q.busy = false
	q.mu.Unlock()
	q.drain()
}

func (q *Queue) addDepth(n int) {
	if q.metrics != nil && n != 0 {
		q.metrics.QueueDepth.Add(context.Background(), int64(n))
	}
}
