package elevenlabs

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/coder/websocket"

	"github.com/MrWong99/chatvoice/pkg/provider/tts"
)

// boiMessage opens a stream-input session.
type boiMessage struct {
	Text          string         `json:"text"`
	VoiceSettings *VoiceSettings `json:"voice_settings,omitempty"`
	XiAPIKey      string         `json:"xi_api_key"`
}

// textMessage carries text; an empty Text ends the input.
type textMessage struct {
	Text string `json:"text"`
}

// streamResponse is one message received over the WebSocket.
type streamResponse struct {
	Audio   string `json:"audio"` // base64-encoded MP3
	IsFinal bool   `json:"isFinal"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// streamURL derives the stream-input endpoint from the HTTP base URL.
func (s *Source) streamURL(voice string) string {
	base := s.baseURL
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	q := url.Values{}
	q.Set("model_id", s.model)
	q.Set("output_format", defaultOutputFmt)
	q.Set("language_code", defaultLanguage)
	return fmt.Sprintf("%s/v1/text-to-speech/%s/stream-input?%s", base, url.PathEscape(voice), q.Encode())
}

// fetchWebSocket sends the whole text in one session and returns the decoded
// audio chunks as a byte stream.
func (s *Source) fetchWebSocket(ctx context.Context, voice, text string) (io.ReadCloser, error) {
	conn, _, err := websocket.Dial(ctx, s.streamURL(voice), nil)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: dial: %w", err)
	}

	settings := s.settings
	msgs := []any{
		boiMessage{Text: " ", VoiceSettings: &settings, XiAPIKey: s.apiKey},
		textMessage{Text: text + " "},
		textMessage{Text: ""},
	}
	for _, m := range msgs {
		data, _ := json.Marshal(m)
		if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
			conn.CloseNow()
			return nil, fmt.Errorf("elevenlabs: send: %w", err)
		}
	}

	pr, pw := io.Pipe()
	go s.receive(ctx, conn, pw)
	return &wsStream{PipeReader: pr, conn: conn}, nil
}

// receive copies audio messages into pw until the final message arrives.
func (s *Source) receive(ctx context.Context, conn *websocket.Conn, pw *io.PipeWriter) {
	defer conn.CloseNow()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	for {
		_, msg, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				pw.Close()
				return
			}
			pw.CloseWithError(fmt.Errorf("elevenlabs: stream read: %w", err))
			return
		}

		var resp streamResponse
		if err := json.Unmarshal(msg, &resp); err != nil {
			pw.CloseWithError(fmt.Errorf("elevenlabs: %w: %v", tts.ErrMalformedResponse, err))
			return
		}
		if resp.Error != "" {
			pw.CloseWithError(fmt.Errorf("elevenlabs: stream error: %s: %s", resp.Error, resp.Message))
			return
		}
		if resp.Audio != "" {
			chunk, err := base64.StdEncoding.DecodeString(resp.Audio)
			if err != nil {
				pw.CloseWithError(fmt.Errorf("elevenlabs: %w: audio: %v", tts.ErrMalformedResponse, err))
				return
			}
			if _, err := pw.Write(chunk); err != nil {
				// Reader closed.
				return
			}
		}
		if resp.IsFinal {
			conn.Close(websocket.StatusNormalClosure, "done")
			pw.Close()
			return
		}
	}
}

// wsStream closes the socket along with the pipe.
type wsStream struct {
	*io.PipeReader
	conn *websocket.Conn
}

func (w *wsStream) Close() error {
	err := w.PipeReader.Close()
	_ = w.conn.CloseNow()
	return err
}
