// Package convert runs audio conversions through an external ffmpeg binary.
package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/justyntemme/twinpane/internal/debug"
	"github.com/justyntemme/twinpane/internal/provider"
)

// Tool describes the converter binary found on the system.
type Tool struct {
	Name      string // Display name
	Command   string // Command to run
	Available bool   // Whether it's installed
	Version   string // Version string if available
}

// Detect looks for ffmpeg on PATH.
func Detect() Tool {
	path, err := exec.LookPath("ffmpeg")
	if err != nil {
		return Tool{Name: "ffmpeg (not installed)", Command: "ffmpeg"}
	}
	return Tool{
		Name:      "ffmpeg",
		Command:   path,
		Available: true,
		Version:   commandVersion(path, "-version"),
	}
}

func commandVersion(cmd, versionFlag string) string {
	out, err := exec.Command(cmd, versionFlag).Output()
	if err != nil {
		return ""
	}
	// first line only
	line, _, _ := strings.Cut(string(out), "\n")
	return strings.TrimSpace(line)
}

// FFmpeg implements provider.Converter.
type FFmpeg struct {
	command string
}

var _ provider.Converter = (*FFmpeg)(nil)

// New returns a converter running command, or the ffmpeg on PATH when
// command is empty. It fails with provider.ErrConversionUnavailable when the
// binary cannot be found.
func New(command string) (*FFmpeg, error) {
	if command == "" {
		command = "ffmpeg"
	}
	path, err := exec.LookPath(command)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", command, provider.ErrConversionUnavailable)
	}
	return &FFmpeg{command: path}, nil
}

// Convert transcodes src into dst. Output goes to a hidden partial file next
// to dst which is renamed into place on success and removed on failure.
func (f *FFmpeg) Convert(ctx context.Context, src, dst string, params provider.ConversionParams) error {
	part := partialPath(dst)
	args := Args(src, part, params)
	debug.Log(debug.FS, "Convert: %s %v", f.command, args)

	var stderr bytes.Buffer
	c := exec.CommandContext(ctx, f.command, args...)
	c.Stderr = &stderr
	if err := c.Run(); err != nil {
		os.Remove(part)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("ffmpeg exit %d: %s", exitErr.ExitCode(), lastLine(stderr.String()))
		}
		return err
	}
	if err := os.Rename(part, dst); err != nil {
		os.Remove(part)
		return err
	}
	return nil
}

// partialPath keeps dst's extension, which ffmpeg uses to pick the container.
func partialPath(dst string) string {
	dir, base := filepath.Split(dst)
	ext := filepath.Ext(base)
	return filepath.Join(dir, "."+strings.TrimSuffix(base, ext)+".part"+ext)
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

// Args builds the ffmpeg argument list for one conversion.
func Args(src, dst string, p provider.ConversionParams) []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-nostdin", "-y", "-i", src}
	if p.SampleRate > 0 {
		args = append(args, "-ar", strconv.Itoa(p.SampleRate))
	}
	if p.Mono {
		args = append(args, "-ac", "1")
	}
	if p.Normalize {
		args = append(args, "-af", "loudnorm")
	}
	args = append(args, sampleArgs(strings.ToLower(strings.TrimPrefix(filepath.Ext(dst), ".")), p.BitDepth)...)
	// drop embedded artwork streams
	args = append(args, "-vn", dst)
	return args
}

// sampleArgs selects the codec or sample format for the requested bit depth.
// Lossy formats ignore it.
func sampleArgs(format string, bitDepth int) []string {
	switch format {
	case "wav":
		switch bitDepth {
		case 16:
			return []string{"-c:a", "pcm_s16le"}
		case 24:
			return []string{"-c:a", "pcm_s24le"}
		case 32:
			return []string{"-c:a", "pcm_s32le"}
		}
	case "aif", "aiff":
		switch bitDepth {
		case 16:
			return []string{"-c:a", "pcm_s16be"}
		case 24:
			return []string{"-c:a", "pcm_s24be"}
		case 32:
			return []string{"-c:a", "pcm_s32be"}
		}
	case "flac":
		switch bitDepth {
		case 16:
			return []string{"-sample_fmt", "s16"}
		case 24:
			return []string{"-sample_fmt", "s32", "-bits_per_raw_sample", "24"}
		}
	}
	return nil
}
