package audio

import (
	"testing"
	"time"
)

func samplesToBytes(samples []int16) []byte {
	b := make([]byte, len(samples)*2)
	for i, s := range samples {
		putSample(b, i, s)
	}
	return b
}

func bytesToSamples(b []byte) []int16 {
	out := make([]int16, len(b)/2)
	for i := range out {
		out[i] = sampleAt(b, i)
	}
	return out
}

func TestMonoToStereo(t *testing.T) {
	t.Parallel()

	got := bytesToSamples(MonoToStereo(samplesToBytes([]int16{1, -2, 300})))
	want := []int16{1, 1, -2, -2, 300, 300}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestStereoToMono(t *testing.T) {
	t.Parallel()

	got := bytesToSamples(StereoToMono(samplesToBytes([]int16{100, 200, 32767, 32767, -32768, -32768})))
	want := []int16{150, 32767, -32768}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestResample16(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		channels  int
		src, dst  int
		in        []int16
		wantLen   int
		wantFirst int16
	}{
		{"same rate", 1, 48000, 48000, []int16{1, 2, 3}, 3, 1},
		{"mono upsample 2x", 1, 24000, 48000, []int16{0, 100, 200, 300}, 8, 0},
		{"stereo downsample 2x", 2, 48000, 24000, []int16{10, 20, 30, 40, 50, 60, 70, 80}, 4, 10},
		{"zero rate untouched", 1, 0, 48000, []int16{5, 6}, 2, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := bytesToSamples(Resample16(samplesToBytes(tt.in), tt.channels, tt.src, tt.dst))
			if len(got) != tt.wantLen {
				t.Fatalf("len = %d, want %d", len(got), tt.wantLen)
			}
			if got[0] != tt.wantFirst {
				t.Errorf("first sample = %d, want %d", got[0], tt.wantFirst)
			}
		})
	}
}

func TestResample16_Interpolates(t *testing.T) {
	t.Parallel()

	got := bytesToSamples(Resample16(samplesToBytes([]int16{0, 100}), 1, 24000, 48000))
	want := []int16{0, 50, 100, 100}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestFormatConverter(t *testing.T) {
	t.Parallel()

	t.Run("no-op", func(t *testing.T) {
		t.Parallel()
		c := FormatConverter{Target: DiscordFormat}
		in := AudioFrame{Data: make([]byte, 16), SampleRate: 48000, Channels: 2}
		out := c.Convert(in)
		if &out.Data[0] != &in.Data[0] {
			t.Error("matching format should return the frame unchanged")
		}
	})

	t.Run("24k mono to 48k stereo", func(t *testing.T) {
		t.Parallel()
		c := FormatConverter{Target: DiscordFormat}
		in := AudioFrame{Data: samplesToBytes([]int16{10, 20, 30, 40}), SampleRate: 24000, Channels: 1, Timestamp: time.Second}
		out := c.Convert(in)
		if out.SampleRate != 48000 || out.Channels != 2 {
			t.Fatalf("format = %dHz/%dch", out.SampleRate, out.Channels)
		}
		if got := len(out.Data); got != 8*4 {
			t.Errorf("len = %d bytes, want %d", got, 8*4)
		}
		if out.Timestamp != time.Second {
			t.Errorf("timestamp not preserved")
		}
	})

	t.Run("odd byte count dropped", func(t *testing.T) {
		t.Parallel()
		c := FormatConverter{Target: DiscordFormat}
		out := c.Convert(AudioFrame{Data: []byte{1, 2, 3}, SampleRate: 48000, Channels: 2})
		if len(out.Data) != 0 {
			t.Errorf("expected empty frame, got %d bytes", len(out.Data))
		}
	})
}

func TestFormat_FrameBytes(t *testing.T) {
	t.Parallel()

	if got := DiscordFormat.FrameBytes(20 * time.Millisecond); got != 3840 {
		t.Errorf("20ms of 48k stereo = %d bytes, want 3840", got)
	}
	if got := (Format{SampleRate: 24000, Channels: 1}).FrameBytes(20 * time.Millisecond); got != 960 {
		t.Errorf("20ms of 24k mono = %d bytes, want 960", got)
	}
}
