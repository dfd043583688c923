package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"

	"go.uber.org/zap"

	"github.com/AstraLink99/backend-video-processing/internal/domain/entity"
	"github.com/AstraLink99/backend-video-processing/internal/domain/port"
)

type Prober struct {
	logger *zap.Logger
}

func NewProber(logger *zap.Logger) *Prober {
	return &Prober{logger: logger}
}

func (p *Prober) Probe(ctx context.Context, videoPath string) (*port.ProbeResult, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		videoPath,
	)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe %s: %w: %v", videoPath, entity.ErrProbeFailure, err)
	}

	result, err := parseProbeOutput(output)
	if err != nil {
		return nil, err
	}

	p.logger.Debug("probe complete",
		zap.String("path", videoPath),
		zap.Float64("duration", result.Duration),
		zap.String("codec", result.Codec),
	)
	return result, nil
}

type probeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		CodecName string `json:"codec_name"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

func parseProbeOutput(raw []byte) (*port.ProbeResult, error) {
	var out probeOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w: %v", entity.ErrProbeFailure, err)
	}

	for _, s := range out.Streams {
		if s.CodecType != "video" {
			continue
		}
		duration, err := strconv.ParseFloat(out.Format.Duration, 64)
		if err != nil {
			return nil, fmt.Errorf("parse duration %q: %w: %v", out.Format.Duration, entity.ErrProbeFailure, err)
		}
		return &port.ProbeResult{
			Duration: duration,
			Width:    s.Width,
			Height:   s.Height,
			Codec:    s.CodecName,
		}, nil
	}

	return nil, fmt.Errorf("no video stream found: %w", entity.ErrProbeFailure)
}
