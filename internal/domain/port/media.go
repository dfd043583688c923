package port

import "context"

// ProbeResult holds the stream-level facts extracted from a stored video.
type ProbeResult struct {
	Duration float64
	Width    int
	Height   int
	Codec    string
}

type Prober interface {
	Probe(ctx context.Context, videoPath string) (*ProbeResult, error)
}

type Enhancer interface {
	Enhance(ctx context.Context, inputPath string, outputPath string) error
}
