package port

import (
	"context"

	"github.com/AstraLink99/backend-video-processing/internal/domain/entity"
)

// ResultReporter is the callback path workers use to report results back
// into the ingestion service.
type ResultReporter interface {
	ReportMetadata(ctx context.Context, rec entity.MetadataRecord) error
	ReportEnhancement(ctx context.Context, res entity.EnhancementResult) error
}
