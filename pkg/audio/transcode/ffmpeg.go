package transcode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/MrWong99/chatvoice/pkg/audio"
)

// FFmpeg transcodes by piping the stream through an ffmpeg process that
// emits 48 kHz stereo s16le.
type FFmpeg struct {
	path string
}

var _ Transcoder = (*FFmpeg)(nil)

// NewFFmpeg returns a transcoder that runs the binary at path. An empty path
// means "ffmpeg" from $PATH.
func NewFFmpeg(path string) *FFmpeg {
	if path == "" {
		path = "ffmpeg"
	}
	return &FFmpeg{path: path}
}

// Available reports whether the ffmpeg binary can be found.
func (f *FFmpeg) Available() error {
	if _, err := exec.LookPath(f.path); err != nil {
		return fmt.Errorf("transcode: ffmpeg not found: %w", err)
	}
	return nil
}

// Args returns the ffmpeg command line used for opts.
func (f *FFmpeg) Args(opts Options) []string {
	opts = opts.Clamped()
	filter := "atempo=" + strconv.FormatFloat(opts.Tempo, 'f', -1, 64) +
		",volume=" + strconv.FormatFloat(opts.Volume, 'f', -1, 64)
	return []string{
		"-loglevel", "error",
		"-f", "mp3", "-i", "pipe:0",
		"-filter:a", filter,
		"-ac", strconv.Itoa(audio.DiscordFormat.Channels),
		"-ar", strconv.Itoa(audio.DiscordFormat.SampleRate),
		"-f", "s16le", "pipe:1",
	}
}

// Transcode implements [Transcoder].
func (f *FFmpeg) Transcode(ctx context.Context, src io.Reader, opts Options) (*audio.Resource, error) {
	cmd := exec.CommandContext(ctx, f.path, f.Args(opts)...)
	cmd.Stdin = src
	cmd.WaitDelay = 5 * time.Second
	stderr := &tailBuffer{max: 2048}
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: stdout pipe: %v", ErrTranscode, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: start %s: %v", ErrTranscode, f.path, err)
	}
	return audio.NewResource(&process{cmd: cmd, stdout: stdout, stderr: stderr}, audio.DiscordFormat), nil
}

// process exposes ffmpeg's stdout and reports the exit status at EOF.
type process struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr *tailBuffer

	waitOnce sync.Once
	waitErr  error
}

func (p *process) Read(b []byte) (int, error) {
	n, err := p.stdout.Read(b)
	if errors.Is(err, io.EOF) {
		if werr := p.wait(); werr != nil {
			return n, werr
		}
	}
	return n, err
}

// Close stops ffmpeg if it is still running. Exit errors were already
// reported through Read.
func (p *process) Close() error {
	_ = p.cmd.Process.Kill()
	_ = p.wait()
	return nil
}

func (p *process) wait() error {
	p.waitOnce.Do(func() {
		if err := p.cmd.Wait(); err != nil {
			p.waitErr = fmt.Errorf("%w: ffmpeg: %v: %s", ErrTranscode, err, strings.TrimSpace(p.stderr.String()))
		}
	})
	return p.waitErr
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
	max int
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf.Write(p)
	if over := t.buf.Len() - t.max; over > 0 {
		t.buf.Next(over)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.buf.String()
}
