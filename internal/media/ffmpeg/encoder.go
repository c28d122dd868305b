package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"clipforge/internal/services"
)

// ProgressFunc receives encode progress as a percentage in [0,100]. Calls are
// monotonically non-decreasing for one Encode invocation.
type ProgressFunc func(percent float64)

// Encoder runs ffmpeg encodes for the fixed quality profiles.
type Encoder struct {
	Binary string
}

// NewEncoder builds an encoder using the given ffmpeg binary name.
func NewEncoder(binary string) *Encoder {
	return &Encoder{Binary: binary}
}

// Encode transcodes input into one rendition at outputPath. durationSeconds is
// the probed source duration used to translate ffmpeg's out_time into a
// percentage; when it is zero or negative only the final 100 is reported.
// On failure any partial output file is removed before returning.
func (e *Encoder) Encode(ctx context.Context, input, outputPath string, profile Profile, durationSeconds float64, progress ProgressFunc) error {
	binary := strings.TrimSpace(e.Binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return services.Wrap(services.ErrEncode, "encode", profile.Label, "create output directory", err)
	}

	args := buildArgs(input, outputPath, profile)
	cmd := exec.CommandContext(ctx, binary, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return services.Wrap(services.ErrEncode, "encode", profile.Label, "attach progress pipe", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return services.Wrap(services.ErrEncode, "encode", profile.Label, "start ffmpeg", err)
	}

	watchProgress(stdout, durationSeconds, progress)

	if err := cmd.Wait(); err != nil {
		_ = os.Remove(outputPath)
		detail := tail(stderr.String(), 512)
		if detail != "" {
			err = fmt.Errorf("%w: %s", err, detail)
		}
		return services.Wrap(services.ErrEncode, "encode", profile.Label, "ffmpeg exited", err)
	}

	if progress != nil {
		progress(100)
	}
	return nil
}

func buildArgs(input, output string, profile Profile) []string {
	bitrate := strconv.Itoa(profile.BitrateKbps)
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		// -progress must precede inputs so ffmpeg cannot read pipe:1 as an output.
		"-progress", "pipe:1",
		"-y",
		"-i", input,
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-b:v", bitrate + "k",
		"-maxrate", bitrate + "k",
		"-bufsize", strconv.Itoa(profile.BitrateKbps*2) + "k",
		"-vf", fmt.Sprintf("scale=%d:-2", profile.Width),
		"-c:a", "aac",
		"-b:a", "128k",
		// Relocate the moov atom so playback can start before the download ends.
		"-movflags", "+faststart",
		output,
	}
}

// watchProgress consumes ffmpeg -progress output until the pipe closes,
// reporting strictly increasing percentages capped below 100; the caller
// reports 100 after a successful Wait.
func watchProgress(r interface{ Read([]byte) (int, error) }, durationSeconds float64, progress ProgressFunc) {
	scanner := bufio.NewScanner(r)
	var last float64
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "out_time_us=") {
			continue
		}
		if progress == nil || durationSeconds <= 0 {
			continue
		}
		us, err := strconv.ParseInt(strings.TrimPrefix(line, "out_time_us="), 10, 64)
		if err != nil {
			continue
		}
		percent := float64(us) / 1e6 / durationSeconds * 100
		if percent > 99.9 {
			percent = 99.9
		}
		if percent <= last {
			continue
		}
		last = percent
		progress(percent)
	}
}

func tail(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[len(s)-max:]
}
