package transcode

import (
	"context"
	"math"

	"clipforge/internal/media/ffmpeg"
	"clipforge/internal/media/ffprobe"
	"clipforge/internal/services"
)

// Prober extracts the duration of a source file and confirms it carries a
// video stream.
type Prober interface {
	Probe(ctx context.Context, path string) (durationSeconds float64, err error)
}

// Encoder produces one quality variant from a source file.
type Encoder interface {
	Encode(ctx context.Context, inputPath, outputPath string, profile ffmpeg.Profile, durationSeconds float64, progress ffmpeg.ProgressFunc) error
}

type ffprobeProber struct {
	binary string
}

// NewProber returns a Prober backed by the ffprobe binary.
func NewProber(binary string) Prober {
	return &ffprobeProber{binary: binary}
}

func (p *ffprobeProber) Probe(ctx context.Context, path string) (float64, error) {
	result, err := ffprobe.Inspect(ctx, p.binary, path)
	if err != nil {
		return 0, services.Wrap(services.ErrProbe, "probe", "inspect", "", err)
	}
	if result.VideoStreamCount() == 0 {
		return 0, services.Wrap(services.ErrProbe, "probe", "inspect", "source has no video stream", nil)
	}
	duration := result.DurationSeconds()
	if math.IsNaN(duration) || duration <= 0 {
		return 0, services.Wrap(services.ErrProbe, "probe", "inspect", "source reported no usable duration", nil)
	}
	return duration, nil
}
