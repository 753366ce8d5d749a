package video

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sort"

	"github.com/patte/go-framesignal"
	"github.com/patte/go-framesignal/bitseq"
)

// FramePattern names rendered and decoded frames, in ffmpeg image2 syntax.
const FramePattern = "frame_%06d.png"

// Sample selects how a frame is reduced to one gray level.
type Sample string

const (
	// SampleOrigin reads the top-left pixel.
	SampleOrigin Sample = "origin"
	// SampleMean averages every pixel.
	SampleMean Sample = "mean"
)

// RenderFrame returns a uniform frame for bit.
func RenderFrame(bit bool, width, height int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	level := framesignal.BitToLuminance(bit)
	for i := range img.Pix {
		img.Pix[i] = level
	}
	return img
}

// WriteFrames renders one PNG per bit into dir, numbered from 1 to match
// the ffmpeg image2 default start number.
func WriteFrames(dir string, bits bitseq.Bits, format framesignal.FrameFormat) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create frame dir: %w", err)
	}
	// frames of one level are identical, so each is encoded once
	var encoded [2][]byte
	for i, bit := range bits {
		idx := 0
		if bit {
			idx = 1
		}
		if encoded[idx] == nil {
			var buf bytes.Buffer
			if err := png.Encode(&buf, RenderFrame(bit, format.Width, format.Height)); err != nil {
				return fmt.Errorf("encode frame: %w", err)
			}
			encoded[idx] = buf.Bytes()
		}
		name := filepath.Join(dir, fmt.Sprintf(FramePattern, i+1))
		if err := os.WriteFile(name, encoded[idx], 0o600); err != nil {
			return fmt.Errorf("write frame %d: %w", i+1, err)
		}
	}
	return nil
}

// ReadFrames samples every frame_*.png in dir in frame order.
func ReadFrames(dir string, sample Sample) (bitseq.Bits, error) {
	names, err := filepath.Glob(filepath.Join(dir, "frame_*.png"))
	if err != nil {
		return nil, fmt.Errorf("list frames: %w", err)
	}
	sort.Strings(names)

	out := bitseq.New(len(names))
	for _, name := range names {
		level, err := sampleFile(name, sample)
		if err != nil {
			return nil, err
		}
		out = append(out, framesignal.LuminanceToBit(level))
	}
	return out, nil
}

func sampleFile(name string, sample Sample) (uint8, error) {
	f, err := os.Open(name) //nolint:gosec // frame names come from Glob in our own dir
	if err != nil {
		return 0, fmt.Errorf("open frame: %w", err)
	}
	defer func() { _ = f.Close() }()

	img, err := png.Decode(f)
	if err != nil {
		return 0, fmt.Errorf("decode %s: %w", filepath.Base(name), err)
	}
	return SampleImage(img, sample), nil
}

// SampleImage reduces img to one gray level.
func SampleImage(img image.Image, sample Sample) uint8 {
	b := img.Bounds()
	if b.Empty() {
		return 0
	}
	if sample != SampleMean {
		return gray(img.At(b.Min.X, b.Min.Y))
	}

	var sum, n uint64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			sum += uint64(gray(img.At(x, y)))
			n++
		}
	}
	return uint8(sum / n)
}

func gray(c color.Color) uint8 {
	return color.GrayModel.Convert(c).(color.Gray).Y
}
