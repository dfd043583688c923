package usecase

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/AstraLink99/backend-video-processing/internal/domain/entity"
	"github.com/AstraLink99/backend-video-processing/internal/domain/port"
	"github.com/AstraLink99/backend-video-processing/internal/infra/metrics"
	"github.com/AstraLink99/backend-video-processing/internal/infra/storage"
)

type EnhanceVideoUseCase struct {
	enhancer port.Enhancer
	reporter port.ResultReporter
	content  *storage.ContentStore
	logger   *zap.Logger
}

func NewEnhanceVideoUseCase(
	enhancer port.Enhancer,
	reporter port.ResultReporter,
	content *storage.ContentStore,
	logger *zap.Logger,
) *EnhanceVideoUseCase {
	return &EnhanceVideoUseCase{
		enhancer: enhancer,
		reporter: reporter,
		content:  content,
		logger:   logger,
	}
}

func (uc *EnhanceVideoUseCase) Execute(ctx context.Context, rawMsg []byte) entity.Outcome {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "EnhanceVideoUseCase.Execute")
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

	inputPath, err := uc.content.UploadPath(job.Filename)
	if err != nil {
		log.Warn("invalid filename in job, dropping", zap.Error(err))
		return entity.Skipped("invalid filename: " + err.Error())
	}

	outName := storage.EnhancedName(job.Filename)
	finalPath, err := uc.content.ProcessedPath(outName)
	if err != nil {
		log.Warn("invalid output name, dropping", zap.Error(err))
		return entity.Skipped("invalid output name: " + err.Error())
	}

	// ffmpeg writes into a scratch file that is renamed into place, so a
	// client fetching the artifact path never sees a partial transcode
	scratchPath := finalPath + ".part-" + uuid.NewString()[:8]

	enhanceStart := time.Now()
	if err := uc.enhancer.Enhance(ctx, inputPath, scratchPath); err != nil {
		os.Remove(scratchPath)
		log.Warn("enhancement failed, dropping job", zap.Error(err))
		return entity.Skipped("enhance: " + err.Error())
	}
	metrics.JobStageDuration.WithLabelValues("enhance").Observe(time.Since(enhanceStart).Seconds())

	if err := os.Rename(scratchPath, finalPath); err != nil {
		os.Remove(scratchPath)
		log.Warn("failed to finalize artifact, dropping job", zap.Error(err))
		return entity.Skipped("finalize: " + err.Error())
	}

	res := entity.EnhancementResult{
		Filename:     job.Filename,
		ClientID:     job.ClientID,
		EnhancedFile: processedURLPrefix + outName,
	}

	reportStart := time.Now()
	if err := uc.reporter.ReportEnhancement(ctx, res); err != nil {
		log.Warn("enhancement report failed, artifact kept", zap.Error(err))
		return entity.Skipped("report: " + err.Error())
	}
	metrics.JobStageDuration.WithLabelValues("report").Observe(time.Since(reportStart).Seconds())

	log.Info("video enhanced", zap.String("enhanced_file", res.EnhancedFile))
	return entity.Success()
}
