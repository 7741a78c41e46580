package ffmpeg

import (
	"context"
	"fmt"
	"os/exec"

	"mediagate/internal/core/ports"
)

type processor struct {
	binPath string
}

func NewProcessor(binPath string) ports.MediaProcessor {
	return &processor{binPath: binPath}
}

// Mux combines a video-only and an audio-only file into one mp4.
// Re-encoding to H.264/AAC keeps the output playable regardless of the
// source codecs (adaptive streams are often VP9/Opus in webm).
func (p *processor) Mux(ctx context.Context, videoPath, audioPath, outPath string) error {
	cmd := exec.CommandContext(ctx, p.binPath,
		"-y",
		"-i", videoPath,
		"-i", audioPath,
		"-c:v", "libx264", "-preset", "fast", "-crf", "23", "-pix_fmt", "yuv420p",
		"-c:a", "aac", "-b:a", "128k",
		"-movflags", "+faststart",
		outPath,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg mux: %w: %s", err, tail(out))
	}
	return nil
}

func tail(out []byte) []byte {
	const keep = 512
	if len(out) > keep {
		return out[len(out)-keep:]
	}
	return out
}
