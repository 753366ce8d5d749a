package video

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
)

// Muxer turns a frame directory into a video file and back.
type Muxer interface {
	Encode(ctx context.Context, framesDir string, fps int, output string) error
	Decode(ctx context.Context, input, framesDir string) error
}

// FFmpeg runs the ffmpeg binary.
type FFmpeg struct {
	Path   string // defaults to "ffmpeg" on PATH
	Codec  string // defaults to libx264
	PixFmt string // defaults to yuv420p
}

// EncodeArgs returns the ffmpeg arguments used by Encode.
func (f FFmpeg) EncodeArgs(framesDir string, fps int, output string) []string {
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-framerate", strconv.Itoa(fps),
		"-i", filepath.Join(framesDir, FramePattern),
		"-c:v", orDefault(f.Codec, "libx264"),
		"-pix_fmt", orDefault(f.PixFmt, "yuv420p"),
		"-y", output,
	}
}

// DecodeArgs returns the ffmpeg arguments used by Decode. Frames are written
// as 8-bit gray so a sample is the luma plane value.
func (FFmpeg) DecodeArgs(input, framesDir string) []string {
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-i", input,
		"-vsync", "passthrough",
		"-pix_fmt", "gray",
		"-y", filepath.Join(framesDir, FramePattern),
	}
}

// Encode muxes framesDir into output at fps.
func (f FFmpeg) Encode(ctx context.Context, framesDir string, fps int, output string) error {
	return f.run(ctx, f.EncodeArgs(framesDir, fps, output))
}

// Decode extracts every frame of input into framesDir.
func (f FFmpeg) Decode(ctx context.Context, input, framesDir string) error {
	return f.run(ctx, f.DecodeArgs(input, framesDir))
}

func (f FFmpeg) run(ctx context.Context, args []string) error {
	path := orDefault(f.Path, "ffmpeg")
	cmd := exec.CommandContext(ctx, path, args...) //nolint:gosec // path is operator configuration
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := bytes.TrimSpace(stderr.Bytes()); len(msg) > 0 {
			return fmt.Errorf("%s: %w: %s", path, err, msg)
		}
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
