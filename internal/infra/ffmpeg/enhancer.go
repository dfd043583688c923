package ffmpeg

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/AstraLink99/backend-video-processing/internal/domain/entity"
)

// Fixed enhancement profile: multiplicative brightness gain with a small
// additive lift (1.2x + 20/255), matching the eq filter's contrast and
// brightness terms.
const (
	contrastGain     = 1.2
	brightnessOffset = 0.078
)

type codecProfile struct {
	format     string
	videoCodec string
	audioCodec string
}

// profileFor picks the output codec profile from the input extension.
// WebM containers keep the VP8/Vorbis profile; everything else gets the
// standard H.264/AAC profile.
func profileFor(path string) codecProfile {
	if strings.EqualFold(filepath.Ext(path), ".webm") {
		return codecProfile{format: "webm", videoCodec: "libvpx", audioCodec: "libvorbis"}
	}
	return codecProfile{format: "mp4", videoCodec: "libx264", audioCodec: "aac"}
}

type Enhancer struct {
	targetFPS int
	logger    *zap.Logger
}

func NewEnhancer(targetFPS int, logger *zap.Logger) *Enhancer {
	return &Enhancer{targetFPS: targetFPS, logger: logger}
}

// Enhance transcodes inputPath into outputPath with brightness scaling and
// frame-rate normalization. The container format is forced explicitly so
// outputPath may be a scratch file without a meaningful extension.
func (e *Enhancer) Enhance(ctx context.Context, inputPath string, outputPath string) error {
	prof := profileFor(inputPath)

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-i", inputPath,
		"-vf", fmt.Sprintf("eq=contrast=%.2f:brightness=%.3f,fps=%d", contrastGain, brightnessOffset, e.targetFPS),
		"-c:v", prof.videoCodec,
		"-c:a", prof.audioCodec,
		"-f", prof.format,
		"-y",
		outputPath,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg %s: %w: %v, output: %s", inputPath, entity.ErrTranscodeFailure, err, string(output))
	}

	e.logger.Info("enhancement complete",
		zap.String("input", inputPath),
		zap.String("output", outputPath),
		zap.String("video_codec", prof.videoCodec),
	)
	return nil
}
