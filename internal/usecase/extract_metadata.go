package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/AstraLink99/backend-video-processing/internal/domain/entity"
	"github.com/AstraLink99/backend-video-processing/internal/domain/port"
	"github.com/AstraLink99/backend-video-processing/internal/infra/metrics"
	"github.com/AstraLink99/backend-video-processing/internal/infra/storage"
)

// URL prefix under which the ingestion service serves the content store.
const processedURLPrefix = "/storage/processed/"

type ExtractMetadataUseCase struct {
	prober   port.Prober
	reporter port.ResultReporter
	content  *storage.ContentStore
	logger   *zap.Logger
}

func NewExtractMetadataUseCase(
	prober port.Prober,
	reporter port.ResultReporter,
	content *storage.ContentStore,
	logger *zap.Logger,
) *ExtractMetadataUseCase {
	return &ExtractMetadataUseCase{
		prober:   prober,
		reporter: reporter,
		content:  content,
		logger:   logger,
	}
}

func (uc *ExtractMetadataUseCase) Execute(ctx context.Context, rawMsg []byte) entity.Outcome {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "ExtractMetadataUseCase.Execute")
	defer span.End()

	metrics.ActiveWorkers.Inc()
	defer metrics.ActiveWorkers.Dec()

	var job entity.JobDescriptor
	if err := json.Unmarshal(rawMsg, &job); err != nil {
		uc.logger.Error("failed to unmarshal job", zap.Error(err), zap.ByteString("body", rawMsg))
		return entity.Skipped("unmarshal: " + err.Error())
	}

	span.SetAttributes(
		attribute.String("job.filename", job.Filename),
		attribute.String("job.client_id", job.ClientID),
	)
	log := uc.logger.With(zap.String("filename", job.Filename), zap.String("client_id", job.ClientID))

	videoPath, err := uc.content.UploadPath(job.Filename)
	if err != nil {
		log.Warn("invalid filename in job, dropping", zap.Error(err))
		return entity.Skipped("invalid filename: " + err.Error())
	}

	probeStart := time.Now()
	res, err := uc.prober.Probe(ctx, videoPath)
	if err != nil {
		log.Warn("probe failed, dropping job", zap.Error(err))
		return entity.Skipped("probe: " + err.Error())
	}
	metrics.JobStageDuration.WithLabelValues("probe").Observe(time.Since(probeStart).Seconds())

	rec := entity.MetadataRecord{
		Filename:   job.Filename,
		ClientID:   job.ClientID,
		Duration:   res.Duration,
		Resolution: fmt.Sprintf("%dx%d", res.Width, res.Height),
		Codec:      res.Codec,
		// derived deterministically; the enhancement worker races this
		// job, so the file may not exist yet when the record is reported
		ProcessedVideoPath: processedURLPrefix + storage.EnhancedName(job.Filename),
	}

	reportStart := time.Now()
	if err := uc.reporter.ReportMetadata(ctx, rec); err != nil {
		log.Warn("metadata report failed, dropping job", zap.Error(err))
		return entity.Skipped("report: " + err.Error())
	}
	metrics.JobStageDuration.WithLabelValues("report").Observe(time.Since(reportStart).Seconds())

	log.Info("metadata extracted",
		zap.Float64("duration", rec.Duration),
		zap.String("resolution", rec.Resolution),
		zap.String("codec", rec.Codec),
	)
	return entity.Success()
}
